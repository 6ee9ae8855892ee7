// Package mimetype identifies payloads by their leading bytes rather than by
// name, so uploads and extracted files cannot lie about their type.
package mimetype

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// SniffLen is the number of leading bytes inspected by Detect.
const SniffLen = 512

// Common content types returned by the detector.
const (
	Zip  = "application/zip"
	PNG  = "image/png"
	JPEG = "image/jpeg"
)

// Detector reports the content type of a payload given its leading bytes.
type Detector interface {
	Detect(head []byte) string
}

// Sniffer is the default Detector. It extends http.DetectContentType with
// signatures the standard table lacks, such as the empty zip archive.
type Sniffer struct{}

// NewSniffer returns the default content-type detector.
func NewSniffer() Sniffer { return Sniffer{} }

// Zip archives without entries start directly with the end-of-central-directory
// record; spanned archives start with the spanning marker.
var zipSignatures = [][]byte{
	[]byte("PK\x05\x06"),
	[]byte("PK\x07\x08"),
}

// Detect returns the MIME type of head without parameters, e.g. "text/plain"
// rather than "text/plain; charset=utf-8".
func (Sniffer) Detect(head []byte) string {
	if len(head) > SniffLen {
		head = head[:SniffLen]
	}
	for _, sig := range zipSignatures {
		if bytes.HasPrefix(head, sig) {
			return Zip
		}
	}
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// DetectFile reads up to SniffLen bytes from path and runs d on them.
func DetectFile(d Detector, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, SniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return d.Detect(head[:n]), nil
}

// IsImage reports whether a detected content type denotes an image.
func IsImage(contentType string) bool {
	return strings.HasPrefix(contentType, "image/")
}
