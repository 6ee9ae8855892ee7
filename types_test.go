package zip2pdf

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestValidateTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "Quarterly Report", "Quarterly Report", false},
		{"trimmed", "  Spaced  ", "Spaced", false},
		{"unsafe characters stripped", `Q3: "Final" <draft>/v2?`, "Q3 Final draftv2", false},
		{"empty", "", "", true},
		{"whitespace", "   \t", "", true},
		{"only unsafe", `<>:"/\|?*`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ValidateTitle(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTitle) {
					t.Errorf("ValidateTitle(%q) error = %v, want ErrInvalidTitle", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateTitle(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ValidateTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestValidateTitle_Length(t *testing.T) {
	t.Parallel()

	got, err := ValidateTitle(strings.Repeat("é", 150))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) > MaxTitleLength {
		t.Errorf("len = %d, want <= %d", len(got), MaxTitleLength)
	}
	if !utf8.ValidString(got) {
		t.Error("truncation split a rune")
	}
}

func TestValidatePageFormat(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"A4", "a4", "Letter", "LEGAL", "A3", "a5"} {
		if err := ValidatePageFormat(ok); err != nil {
			t.Errorf("ValidatePageFormat(%q) = %v", ok, err)
		}
	}
	for _, bad := range []string{"", "B5", "tabloid"} {
		if err := ValidatePageFormat(bad); !errors.Is(err, ErrPageFormat) {
			t.Errorf("ValidatePageFormat(%q) = %v, want ErrPageFormat", bad, err)
		}
	}
}
