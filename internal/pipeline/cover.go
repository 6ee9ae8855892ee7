package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"html/template"
)

// ErrCoverRender indicates the cover template could not be parsed or executed.
var ErrCoverRender = errors.New("cover template rendering failed")

// CoverData holds the values available to the cover template.
type CoverData struct {
	DocumentTitle    string
	DocumentSubtitle string
	CompanyName      string
	LogoPath         template.URL // data: or file:// URL, trusted
	GenerationDate   string
}

// renderCover executes the cover template.
func renderCover(tmplContent string, data CoverData) (string, error) {
	tmpl, err := template.New("cover").Parse(tmplContent)
	if err != nil {
		return "", fmt.Errorf("%w: parsing: %v", ErrCoverRender, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCoverRender, err)
	}
	return buf.String(), nil
}

// fallbackCover is the minimal cover used when the template is unusable.
func fallbackCover(data CoverData) string {
	return `<div class="cover-page"><h1 class="document-title">` +
		html.EscapeString(data.DocumentTitle) +
		`</h1><p>Generated on ` + html.EscapeString(data.GenerationDate) +
		`</p><p>` + html.EscapeString(data.CompanyName) + `</p></div>`
}
