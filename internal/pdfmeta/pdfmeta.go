// Package pdfmeta validates rendered PDFs and stamps document properties
// into their info dictionary using pdfcpu.
package pdfmeta

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Sentinel errors for PDF post-processing.
var (
	ErrInvalidPDF = errors.New("invalid PDF")
	ErrAnnotate   = errors.New("adding PDF properties failed")
)

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	model.ConfigPath = "disable"
}

func newConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Inspect validates pdf and returns its page count.
func Inspect(pdf []byte) (pages int, err error) {
	if len(pdf) == 0 {
		return 0, fmt.Errorf("%w: empty document", ErrInvalidPDF)
	}
	if err := api.Validate(bytes.NewReader(pdf), newConfig()); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	pages, err = api.PageCount(bytes.NewReader(pdf), newConfig())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	return pages, nil
}

// Annotate returns a copy of pdf with props added to its info dictionary.
// Empty values are skipped; with nothing to add the input is returned as is.
func Annotate(pdf []byte, props map[string]string) ([]byte, error) {
	clean := make(map[string]string, len(props))
	for k, v := range props {
		if k != "" && v != "" {
			clean[k] = v
		}
	}
	if len(clean) == 0 {
		return pdf, nil
	}

	var out bytes.Buffer
	if err := api.AddProperties(bytes.NewReader(pdf), &out, clean, newConfig()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAnnotate, err)
	}
	return out.Bytes(), nil
}

// Properties lists the custom info dictionary entries of pdf.
func Properties(pdf []byte) (map[string]string, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(pdf), newConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	props := make(map[string]string, len(ctx.Properties))
	for k, v := range ctx.Properties {
		props[k] = v
	}
	return props, nil
}
