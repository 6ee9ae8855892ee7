// Package rewrite points image references in markdown at the files extracted
// into a workspace.
//
// Two syntactic forms are recognised, in this order: markdown inline images
// and HTML <img> tags. Each pass works on the output of the previous one.
// Resolved references become file:// URLs, which neither pass treats as a
// reference, so no span is rewritten twice.
package rewrite

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/alnah/go-zip2pdf/internal/mimetype"
)

// Form identifies the syntax a reference was written in.
type Form string

const (
	FormMarkdown Form = "markdown"
	FormHTML     Form = "html"
)

// Reference is one image reference found in the document.
type Reference struct {
	Form     Form
	Span     string // matched source text
	Path     string // normalised reference path
	Resolved string // file:// URL, empty when unresolved
}

// Result is the outcome of a rewrite.
type Result struct {
	Text       string
	References []Reference
	Unresolved []string // first-seen order, no duplicates
}

var (
	// ![alt](dest "title") with an optional <...> wrapped destination. Bare
	// destinations may contain spaces; the shortest one followed by an
	// optional title and the closing parenthesis wins.
	markdownImage = regexp.MustCompile(`!\[([^\]]*)\]\(\s*(<[^>\n]*>|[^)\n]*?)((?:\s+(?:"[^"]*"|'[^']*'))?)\s*\)`)

	imgTag = regexp.MustCompile(`(?is)<img\b[^>]*>`)
	// The leading space keeps data-src and similar attributes out.
	srcAttr = regexp.MustCompile(`(?is)(\s)src\s*=\s*(?:"([^"]*)"|'([^']*)')`)

	uriScheme = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)
)

// Rewrite resolves references against workspace-relative resource paths.
func Rewrite(text string, resources map[string]string) Result {
	return RewriteRelative(text, ".", resources)
}

// RewriteRelative resolves references first against docDir, the
// workspace-relative directory of the document, then against the workspace
// root.
func RewriteRelative(text, docDir string, resources map[string]string) Result {
	r := &rewriter{
		docDir:    docDir,
		resources: resources,
		folded:    foldKeys(resources),
		seen:      make(map[string]bool),
	}
	out := r.markdownPass(text)
	out = r.htmlPass(out)
	r.result.Text = out
	return r.result
}

type rewriter struct {
	docDir    string
	resources map[string]string
	folded    map[string]string // lower-cased key -> absolute path
	seen      map[string]bool
	result    Result
}

func (r *rewriter) markdownPass(text string) string {
	return markdownImage.ReplaceAllStringFunc(text, func(span string) string {
		m := markdownImage.FindStringSubmatch(span)
		alt, dest, title := m[1], m[2], m[3]

		raw := strings.TrimSuffix(strings.TrimPrefix(dest, "<"), ">")
		ref, ok := normalise(raw)
		if !ok {
			return span
		}
		resolved := r.resolve(FormMarkdown, span, ref)
		if resolved == "" {
			return span
		}
		return "![" + alt + "](" + resolved + title + ")"
	})
}

func (r *rewriter) htmlPass(text string) string {
	return imgTag.ReplaceAllStringFunc(text, func(tag string) string {
		loc := srcAttr.FindStringSubmatchIndex(tag)
		if loc == nil {
			return tag
		}
		start, end := loc[4], loc[5]
		if start < 0 {
			start, end = loc[6], loc[7]
		}
		ref, ok := normalise(tag[start:end])
		if !ok {
			return tag
		}
		resolved := r.resolve(FormHTML, tag, ref)
		if resolved == "" {
			return tag
		}
		return tag[:loc[3]] + `src="` + resolved + `"` + tag[loc[1]:]
	})
}

// resolve records the reference and returns its file URL, or "" when no
// resource matches.
func (r *rewriter) resolve(form Form, span, ref string) string {
	candidates := []string{path.Join(r.docDir, ref), path.Clean(ref)}

	var resolved string
	for _, c := range candidates {
		if abs, ok := r.resources[c]; ok {
			resolved = FileURL(abs)
			break
		}
	}
	if resolved == "" {
		for _, c := range candidates {
			if abs, ok := r.folded[strings.ToLower(c)]; ok {
				resolved = FileURL(abs)
				break
			}
		}
	}

	r.result.References = append(r.result.References, Reference{
		Form: form, Span: span, Path: ref, Resolved: resolved,
	})
	if resolved == "" && !r.seen[ref] {
		r.seen[ref] = true
		r.result.Unresolved = append(r.result.Unresolved, ref)
	}
	return resolved
}

// foldKeys indexes resources by lower-cased path. When two paths differ only
// in case, the lexically smallest keeps the slot.
func foldKeys(resources map[string]string) map[string]string {
	keys := make([]string, 0, len(resources))
	for k := range resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	folded := make(map[string]string, len(keys))
	for _, k := range keys {
		lk := strings.ToLower(k)
		if _, taken := folded[lk]; !taken {
			folded[lk] = resources[k]
		}
	}
	return folded
}

// normalise turns a raw reference into a relative slash path. It returns
// false for references that point outside the archive (any URI scheme,
// protocol-relative or absolute paths) or are empty.
func normalise(raw string) (string, bool) {
	ref := strings.TrimSpace(raw)
	if ref == "" || strings.HasPrefix(ref, "/") || strings.HasPrefix(ref, "#") {
		return "", false
	}
	if uriScheme.MatchString(ref) {
		return "", false
	}
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}
	for strings.HasPrefix(ref, "./") {
		ref = ref[2:]
	}
	ref = strings.ReplaceAll(ref, "\\", "/")
	if ref == "" {
		return "", false
	}
	return ref, true
}

// FileURL converts an absolute filesystem path into a file:// URL.
func FileURL(abs string) string {
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// VerifyResources keeps only resources whose content sniffs as an image.
// Unreadable or mistyped files are logged and dropped.
func VerifyResources(ctx context.Context, resources map[string]string, detector mimetype.Detector, logger *slog.Logger) (map[string]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	keys := make([]string, 0, len(resources))
	for k := range resources {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	verified := make(map[string]string, len(resources))
	for _, rel := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		abs := resources[rel]
		ct, err := mimetype.DetectFile(detector, abs)
		if err != nil {
			logger.Warn("skipping unreadable image",
				slog.String("file", rel),
				slog.String("error", err.Error()))
			continue
		}
		if !mimetype.IsImage(ct) {
			logger.Warn("skipping non-image file",
				slog.String("file", rel),
				slog.String("mime_type", ct))
			continue
		}
		verified[rel] = abs
	}
	return verified, nil
}
