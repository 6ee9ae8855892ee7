package zip2pdf

import (
	"context"
	"errors"
	"fmt"

	"github.com/alnah/go-zip2pdf/internal/archive"
	"github.com/alnah/go-zip2pdf/internal/assets"
	"github.com/alnah/go-zip2pdf/internal/classify"
	"github.com/alnah/go-zip2pdf/internal/pdfmeta"
	"github.com/alnah/go-zip2pdf/internal/pipeline"
)

// Sentinel errors for library operations.
var (
	ErrInvalidTitle   = errors.New("invalid document title")
	ErrPDFGeneration  = errors.New("PDF generation failed")
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrPageLoad       = errors.New("failed to load page")
	ErrPoolClosed     = errors.New("renderer pool closed")
	ErrInvalidAsset   = errors.New("invalid asset path")
	ErrPageFormat     = errors.New("unsupported page format")
)

// Kind classifies a conversion failure. The HTTP layer maps kinds to status
// codes and the CLI maps them to exit codes.
type Kind string

// Failure kinds.
const (
	KindInvalidArchiveFormat Kind = "InvalidArchiveFormat"
	KindArchiveTooLarge      Kind = "ArchiveTooLarge"
	KindUnsafePath           Kind = "UnsafePath"
	KindNoDocumentFound      Kind = "NoDocumentFound"
	KindTemplateMissing      Kind = "TemplateMissing"
	KindRenderFailure        Kind = "RenderFailure"
	KindInvalidInput         Kind = "InvalidInput"
	KindCanceled             Kind = "Canceled"
	KindTimeout              Kind = "Timeout"
	KindInternal             Kind = "Internal"
)

// ConversionError is the error type returned by Converter.Convert.
type ConversionError struct {
	Kind    Kind
	Message string // safe to show to clients
	Err     error
}

func (e *ConversionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

// KindOf returns the failure kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return kindFor(err)
}

// kindFor maps internal sentinels to kinds.
func kindFor(err error) Kind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, archive.ErrInvalidFormat):
		return KindInvalidArchiveFormat
	case errors.Is(err, archive.ErrTooLarge), errors.Is(err, archive.ErrTooManyEntries):
		return KindArchiveTooLarge
	case errors.Is(err, archive.ErrUnsafePath):
		return KindUnsafePath
	case errors.Is(err, classify.ErrNoDocument):
		return KindNoDocumentFound
	case errors.Is(err, pipeline.ErrTemplateMissing), errors.Is(err, assets.ErrRequirementMissing):
		return KindTemplateMissing
	case errors.Is(err, ErrBrowserConnect),
		errors.Is(err, ErrPageCreate),
		errors.Is(err, ErrPageLoad),
		errors.Is(err, ErrPDFGeneration),
		errors.Is(err, pipeline.ErrHTMLConversion),
		errors.Is(err, pdfmeta.ErrInvalidPDF):
		return KindRenderFailure
	case errors.Is(err, ErrInvalidTitle):
		return KindInvalidInput
	}
	return KindInternal
}

var kindMessages = map[Kind]string{
	KindInvalidArchiveFormat: "file must be a ZIP archive",
	KindArchiveTooLarge:      "archive exceeds the allowed size",
	KindUnsafePath:           "archive contains an unsafe path",
	KindNoDocumentFound:      "no markdown document found in archive",
	KindTemplateMissing:      "document template is missing",
	KindRenderFailure:        "PDF generation failed",
	KindInvalidInput:         "invalid input",
	KindCanceled:             "conversion canceled",
	KindTimeout:              "conversion timed out",
	KindInternal:             "internal error",
}

// wrapError tags err with its kind. Errors that already carry a kind pass
// through unchanged.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConversionError
	if errors.As(err, &ce) {
		return err
	}
	kind := kindFor(err)
	return &ConversionError{Kind: kind, Message: kindMessages[kind], Err: err}
}
