package zip2pdf

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Page format names accepted by the renderer.
const (
	PageFormatA4     = "A4"
	PageFormatLetter = "Letter"
	PageFormatLegal  = "Legal"
	PageFormatA3     = "A3"
	PageFormatA5     = "A5"
)

// DefaultPageFormat is used when no format is configured.
const DefaultPageFormat = PageFormatA4

// Page margins in inches.
const (
	marginInches       = 0.6
	marginBottomInches = 0.8 // room for the page number footer
)

// paperSize is a page size in inches, portrait.
type paperSize struct {
	Width, Height float64
}

var paperSizes = map[string]paperSize{
	"a4":     {8.27, 11.69},
	"letter": {8.5, 11},
	"legal":  {8.5, 14},
	"a3":     {11.69, 16.54},
	"a5":     {5.83, 8.27},
}

// ValidatePageFormat reports whether name is a supported page format
// (case-insensitive).
func ValidatePageFormat(name string) error {
	if _, ok := paperSizes[strings.ToLower(name)]; !ok {
		return fmt.Errorf("%w: %q", ErrPageFormat, name)
	}
	return nil
}

// MaxTitleLength bounds the cover title.
const MaxTitleLength = 200

var titleUnsafe = regexp.MustCompile(`[<>:"/\\|?*]`)

// ValidateTitle trims title, strips characters that are unsafe in file
// names and markup, and caps its length. An empty result is an error.
func ValidateTitle(title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("%w: title cannot be empty", ErrInvalidTitle)
	}
	clean := titleUnsafe.ReplaceAllString(strings.TrimSpace(title), "")
	if len(clean) > MaxTitleLength {
		clean = truncateUTF8(clean, MaxTitleLength)
	}
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return "", fmt.Errorf("%w: title contains only invalid characters", ErrInvalidTitle)
	}
	return clean, nil
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	for n > 0 && n < len(s) && s[n]&0xC0 == 0x80 {
		n--
	}
	return s[:n]
}

// Result is the output of one conversion.
type Result struct {
	PDF        []byte
	HTML       string   // the assembled page handed to the renderer
	Primary    string   // workspace-relative path of the chosen document
	Unresolved []string // image references that matched no extracted file
	Pages      int
	Entries    int // files extracted from the archive
	Duration   time.Duration
}
