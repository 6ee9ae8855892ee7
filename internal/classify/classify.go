// Package classify sorts extracted workspace files into documents and image
// resources and selects the primary document to convert.
package classify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ErrNoDocument is returned when a workspace holds no markdown file.
var ErrNoDocument = errors.New("no markdown document found")

// Category says how a file participates in a conversion.
type Category int

const (
	Ignored Category = iota
	Document
	Resource
)

func (c Category) String() string {
	switch c {
	case Document:
		return "document"
	case Resource:
		return "resource"
	default:
		return "ignored"
	}
}

var (
	documentExts = map[string]bool{".md": true, ".markdown": true}
	resourceExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}
)

// preferredNames are equally preferred; among candidates carrying one of
// them, walk order decides.
var preferredNames = map[string]bool{
	"main.md":         true,
	"main.markdown":   true,
	"readme.md":       true,
	"readme.markdown": true,
}

// ResourceFormats lists the accepted image extensions without the dot.
func ResourceFormats() []string {
	out := make([]string, 0, len(resourceExts))
	for ext := range resourceExts {
		out = append(out, strings.TrimPrefix(ext, "."))
	}
	sort.Strings(out)
	return out
}

// CategoryOf classifies a file by its extension, case-insensitively.
func CategoryOf(name string) Category {
	ext := strings.ToLower(path.Ext(name))
	switch {
	case documentExts[ext]:
		return Document
	case resourceExts[ext]:
		return Resource
	default:
		return Ignored
	}
}

// Inventory is the classified content of a workspace.
type Inventory struct {
	Root      string
	Documents []string          // workspace-relative slash paths, walk order
	Resources map[string]string // workspace-relative slash path -> absolute path
	Primary   string
}

// Classify walks root in lexical order and builds its inventory.
func Classify(root string) (*Inventory, error) {
	inv := &Inventory{Root: root, Resources: make(map[string]string)}

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		switch CategoryOf(rel) {
		case Document:
			inv.Documents = append(inv.Documents, rel)
		case Resource:
			abs, err := filepath.Abs(p)
			if err != nil {
				return err
			}
			inv.Resources[rel] = abs
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking workspace: %w", err)
	}

	primary, err := SelectPrimary(inv.Documents)
	if err != nil {
		return nil, err
	}
	inv.Primary = primary
	return inv, nil
}

// SelectPrimary picks the document to convert: the first candidate named
// main or readme, otherwise the first candidate.
func SelectPrimary(candidates []string) (string, error) {
	if len(candidates) == 0 {
		return "", ErrNoDocument
	}
	for _, c := range candidates {
		if preferredNames[strings.ToLower(path.Base(c))] {
			return c, nil
		}
	}
	return candidates[0], nil
}

// PrimaryPath returns the absolute path of the primary document.
func (inv *Inventory) PrimaryPath() string {
	return filepath.Join(inv.Root, filepath.FromSlash(inv.Primary))
}

// ReadPrimary returns the primary document text. Files that are not valid
// UTF-8 are decoded as ISO-8859-1; fellBack reports when that happened.
func (inv *Inventory) ReadPrimary() (text string, fellBack bool, err error) {
	raw, err := os.ReadFile(inv.PrimaryPath())
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", inv.Primary, err)
	}
	raw = trimBOM(raw)
	if utf8.Valid(raw) {
		return string(raw), false, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", false, fmt.Errorf("decoding %s: %w", inv.Primary, err)
	}
	return string(decoded), true, nil
}

func trimBOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		return b[3:]
	}
	return b
}
