package pipeline

import (
	"fmt"
	"strings"
)

// Stylesheet placeholders substituted per document.
const (
	CompanyPlaceholder = "{{ company_name }}"
	TitlePlaceholder   = "{{ document_title }}"
)

// applyPlaceholders substitutes branding values into css. Values are escaped
// for use inside CSS string literals.
func applyPlaceholders(css, company, title string) string {
	r := strings.NewReplacer(
		CompanyPlaceholder, escapeCSSString(company),
		TitlePlaceholder, escapeCSSString(title),
	)
	return sanitizeCSS(r.Replace(css))
}

// escapeCSSString escapes s so it cannot terminate a quoted CSS string or
// the enclosing <style> element.
func escapeCSSString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\', '"', '\'':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n', '\r', '\f', '<', '>':
			fmt.Fprintf(&b, "\\%x ", r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, "\\%x ", r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sanitizeCSS escapes sequences that could break out of a <style> block.
func sanitizeCSS(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}
