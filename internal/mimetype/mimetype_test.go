package mimetype_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alnah/go-zip2pdf/internal/mimetype"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// ---------------------------------------------------------------------------
// TestSniffer_Detect - Signature-based detection
// ---------------------------------------------------------------------------

func TestSniffer_Detect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		head []byte
		want string
	}{
		{name: "zip local header", head: []byte("PK\x03\x04\x14\x00"), want: mimetype.Zip},
		{name: "empty zip", head: []byte("PK\x05\x06" + string(make([]byte, 18))), want: mimetype.Zip},
		{name: "png", head: pngHeader, want: mimetype.PNG},
		{name: "jpeg", head: []byte("\xff\xd8\xff\xe0\x00\x10JFIF"), want: mimetype.JPEG},
		{name: "text strips charset", head: []byte("# Title\n"), want: "text/plain"},
		{name: "pdf", head: []byte("%PDF-1.7\n"), want: "application/pdf"},
	}

	d := mimetype.NewSniffer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := d.Detect(tt.head); got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// TestDetectFile - File sniffing
// ---------------------------------------------------------------------------

func TestDetectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	img := filepath.Join(dir, "real.png")
	fake := filepath.Join(dir, "fake.png")
	if err := os.WriteFile(img, pngHeader, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fake, []byte("not an image at all"), 0o600); err != nil {
		t.Fatal(err)
	}

	d := mimetype.NewSniffer()

	got, err := mimetype.DetectFile(d, img)
	if err != nil {
		t.Fatalf("DetectFile(real) error: %v", err)
	}
	if !mimetype.IsImage(got) {
		t.Errorf("DetectFile(real) = %q, want image/*", got)
	}

	got, err = mimetype.DetectFile(d, fake)
	if err != nil {
		t.Fatalf("DetectFile(fake) error: %v", err)
	}
	if mimetype.IsImage(got) {
		t.Errorf("DetectFile(fake) = %q, want non-image", got)
	}

	if _, err := mimetype.DetectFile(d, filepath.Join(dir, "missing")); err == nil {
		t.Error("DetectFile(missing) expected error")
	}
}
