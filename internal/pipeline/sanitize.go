package pipeline

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer removes unsafe markup from rendered HTML.
type Sanitizer interface {
	Sanitize(html string) string
}

// BodySanitizer is a bluemonday policy tuned for converted documents: user
// generated content rules, plus workspace file:// and inline data: images,
// footnote roles, task list checkboxes and table alignment.
type BodySanitizer struct {
	policy *bluemonday.Policy
}

var classValue = regexp.MustCompile(`^[a-zA-Z0-9 _+#-]+$`)

// NewBodySanitizer builds the document sanitisation policy.
func NewBodySanitizer() *BodySanitizer {
	p := bluemonday.UGCPolicy()
	p.AllowURLSchemes("mailto", "http", "https", "file")
	p.AllowDataURIImages()
	p.AllowAttrs("class").Matching(classValue).Globally()
	p.AllowAttrs("role").Matching(regexp.MustCompile(`^doc-[a-z]+$`)).Globally()
	p.AllowElements("input")
	p.AllowAttrs("type").Matching(regexp.MustCompile(`^checkbox$`)).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AllowStyles("text-align").MatchingEnum("left", "center", "right").OnElements("th", "td")
	return &BodySanitizer{policy: p}
}

// Sanitize returns html with scripts, event handlers and disallowed URLs removed.
func (s *BodySanitizer) Sanitize(html string) string {
	return s.policy.Sanitize(html)
}
