// Package archive unpacks untrusted zip bundles into a workspace directory.
//
// Every check that can reject an archive runs before the first byte is
// written: content type, entry count, cumulative declared size and entry
// names. A rejected archive therefore leaves the workspace untouched.
package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/alnah/go-zip2pdf/internal/classify"
	"github.com/alnah/go-zip2pdf/internal/mimetype"
)

// Sentinel errors for archive extraction.
var (
	ErrInvalidFormat  = errors.New("invalid archive format")
	ErrTooLarge       = errors.New("archive too large")
	ErrTooManyEntries = errors.New("archive has too many entries")
	ErrUnsafePath     = errors.New("unsafe path in archive")
	ErrWrite          = errors.New("writing archive entry")
)

// Default limits.
const (
	DefaultMaxUploadSize    int64 = 50 << 20
	DefaultMaxExtractedSize int64 = 200 << 20
	DefaultMaxEntries             = 10000
)

// Limits bounds what Extract accepts. Zero fields use the defaults.
type Limits struct {
	MaxUploadSize    int64
	MaxExtractedSize int64
	MaxEntries       int
}

// WithDefaults fills zero fields with the package defaults.
func (l Limits) WithDefaults() Limits {
	if l.MaxUploadSize <= 0 {
		l.MaxUploadSize = DefaultMaxUploadSize
	}
	if l.MaxExtractedSize <= 0 {
		l.MaxExtractedSize = DefaultMaxExtractedSize
	}
	if l.MaxEntries <= 0 {
		l.MaxEntries = DefaultMaxEntries
	}
	return l
}

// Entry is one extracted file.
type Entry struct {
	Path     string // slash-separated, relative to the workspace root
	Size     int64
	Category classify.Category
}

type plannedEntry struct {
	file *zip.File
	name string
	dir  bool
}

// Extract validates data as a zip archive and writes its contents below root.
func Extract(data []byte, root string, limits Limits, detector mimetype.Detector) ([]Entry, error) {
	limits = limits.WithDefaults()

	if int64(len(data)) > limits.MaxUploadSize {
		return nil, fmt.Errorf("%w: upload is %d bytes, limit %d", ErrTooLarge, len(data), limits.MaxUploadSize)
	}

	if ct := detector.Detect(data); ct != mimetype.Zip {
		return nil, fmt.Errorf("%w: detected %s", ErrInvalidFormat, ct)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, zip.ErrInsecurePath) {
		// The reader is still usable; SafeName reports the offending entry.
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}

	if len(zr.File) > limits.MaxEntries {
		return nil, fmt.Errorf("%w: %d entries, limit %d", ErrTooManyEntries, len(zr.File), limits.MaxEntries)
	}

	// Compared before adding so forged sizes cannot wrap the sum.
	limit := uint64(limits.MaxExtractedSize)
	var declared uint64
	for _, f := range zr.File {
		if f.UncompressedSize64 > limit-declared {
			return nil, fmt.Errorf("%w: declared size exceeds %d bytes", ErrTooLarge, limits.MaxExtractedSize)
		}
		declared += f.UncompressedSize64
	}

	plan, err := planEntries(zr.File)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(plan))
	for _, p := range plan {
		dest := filepath.Join(root, filepath.FromSlash(p.name))
		if p.dir {
			if err := os.MkdirAll(dest, 0o700); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrWrite, err)
			}
			continue
		}
		n, err := writeEntry(p.file, dest)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			Path:     p.name,
			Size:     n,
			Category: classify.CategoryOf(p.name),
		})
	}
	return entries, nil
}

// planEntries validates every entry name and drops platform metadata.
func planEntries(files []*zip.File) ([]plannedEntry, error) {
	plan := make([]plannedEntry, 0, len(files))
	for _, f := range files {
		mode := f.Mode()
		if mode&fs.ModeSymlink != 0 {
			return nil, fmt.Errorf("%w: %q is a symlink", ErrUnsafePath, f.Name)
		}
		if mode&(fs.ModeDevice|fs.ModeNamedPipe|fs.ModeSocket|fs.ModeCharDevice) != 0 {
			return nil, fmt.Errorf("%w: %q is not a regular file", ErrUnsafePath, f.Name)
		}

		name, err := SafeName(f.Name)
		if err != nil {
			return nil, err
		}
		if name == "." || isMetadata(name) {
			continue
		}
		plan = append(plan, plannedEntry{
			file: f,
			name: name,
			dir:  mode.IsDir() || strings.HasSuffix(f.Name, "/"),
		})
	}
	return plan, nil
}

// SafeName normalises an archive entry name and rejects names that would
// resolve outside the extraction root.
func SafeName(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}

	slashed := strings.ReplaceAll(name, "\\", "/")
	if strings.HasPrefix(slashed, "/") || hasDriveLetter(slashed) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafePath, name)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return cleaned, nil
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") || !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", fmt.Errorf("%w: %q escapes the workspace", ErrUnsafePath, name)
	}
	return cleaned, nil
}

func hasDriveLetter(name string) bool {
	if len(name) < 2 || name[1] != ':' {
		return false
	}
	c := name[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isMetadata(name string) bool {
	if name == "__MACOSX" || strings.HasPrefix(name, "__MACOSX/") {
		return true
	}
	base := path.Base(name)
	return base == ".DS_Store" || strings.HasPrefix(base, "._")
}

// writeEntry copies one file entry to dest. The copy is capped one byte past
// the declared size so an entry lying about its size is caught.
func writeEntry(f *zip.File, dest string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o700); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidFormat, f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrWrite, err)
	}

	declared := int64(f.UncompressedSize64)
	n, copyErr := io.Copy(out, io.LimitReader(rc, declared+1))
	closeErr := out.Close()

	switch {
	case n > declared:
		return 0, fmt.Errorf("%w: %s expands past its declared size", ErrTooLarge, f.Name)
	case copyErr != nil:
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalidFormat, f.Name, copyErr)
	case closeErr != nil:
		return 0, fmt.Errorf("%w: %w", ErrWrite, closeErr)
	}
	return n, nil
}
