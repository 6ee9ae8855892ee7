// Package dateutil formats the generation date printed on cover pages.
// Formats are written with user-friendly tokens (YYYY, MMMM, DD) rather than
// Go reference layouts so they can live in YAML config.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length to prevent abuse.
const MaxDateFormatLength = 50

// DefaultDateFormat renders dates like "March 05, 2025".
const DefaultDateFormat = "MMMM DD, YYYY"

// dateTokens maps user-friendly tokens to Go time format components.
// Ordered by length descending for greedy matching.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"M", "1"},
	{"D", "2"},
}

// Presets provides named shortcuts for common date formats.
var Presets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     DefaultDateFormat,
}

// ParseDateFormat converts a token format string to Go's time layout.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D.
// Brackets escape literal text: "[Week of] MMMM D" keeps "Week of".
func ParseDateFormat(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	}
	if len(format) > MaxDateFormatLength {
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var b strings.Builder
	b.Grow(len(format) + 10)

	i := 0
	for i < len(format) {
		if format[i] == '[' {
			end := strings.IndexByte(format[i+1:], ']')
			if end == -1 {
				return "", fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, i)
			}
			b.WriteString(format[i+1 : i+1+end])
			i += end + 2
			continue
		}

		matched := false
		for _, t := range dateTokens {
			if strings.HasPrefix(format[i:], t.token) {
				b.WriteString(t.goFmt)
				i += len(t.token)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(format[i])
			i++
		}
	}

	return b.String(), nil
}

// Format renders t using a token format or a preset name (case-insensitive).
// An empty format falls back to DefaultDateFormat.
func Format(t time.Time, format string) (string, error) {
	if format == "" {
		format = DefaultDateFormat
	}
	if preset, ok := Presets[strings.ToLower(format)]; ok {
		format = preset
	}

	layout, err := ParseDateFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(layout), nil
}

// Validate reports whether format is usable by Format, so config loading can
// reject a bad value before the first conversion.
func Validate(format string) error {
	_, err := Format(time.Time{}, format)
	return err
}
