package main

import (
	"errors"
	"os"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/config"
	"github.com/alnah/go-zip2pdf/internal/hints"
)

// Exit codes for the zip2pdf CLI.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess = 0 // Successful conversion or clean shutdown
	ExitGeneral = 1 // General/unexpected error, timeout, cancellation
	ExitUsage   = 2 // Invalid flags, config, or rejected archive
	ExitIO      = 3 // File not found, permission denied, listen failure
	ExitBrowser = 4 // Browser/Chrome or PDF errors
)

// exitCodeFor returns the appropriate exit code for an error.
// Conversion errors are mapped by kind; everything else by sentinel.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ce *zip2pdf.ConversionError
	if errors.As(err, &ce) {
		switch ce.Kind {
		case zip2pdf.KindRenderFailure:
			return ExitBrowser
		case zip2pdf.KindInvalidArchiveFormat,
			zip2pdf.KindArchiveTooLarge,
			zip2pdf.KindUnsafePath,
			zip2pdf.KindNoDocumentFound,
			zip2pdf.KindInvalidInput,
			zip2pdf.KindTemplateMissing:
			return ExitUsage
		default:
			return ExitGeneral
		}
	}

	// Browser errors (exit 4)
	if errors.Is(err, zip2pdf.ErrBrowserConnect) ||
		errors.Is(err, zip2pdf.ErrPageCreate) ||
		errors.Is(err, zip2pdf.ErrPageLoad) ||
		errors.Is(err, zip2pdf.ErrPDFGeneration) {
		return ExitBrowser
	}

	// I/O errors (exit 3)
	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrReadArchive) ||
		errors.Is(err, ErrWritePDF) ||
		errors.Is(err, ErrListen) ||
		errors.Is(err, ErrOpenHistory) {
		return ExitIO
	}

	// Usage/config/validation errors (exit 2)
	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrNoInput) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, zip2pdf.ErrPageFormat) ||
		errors.Is(err, zip2pdf.ErrInvalidAsset) ||
		errors.Is(err, zip2pdf.ErrInvalidTitle) {
		return ExitUsage
	}

	return ExitGeneral
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch zip2pdf.KindOf(err) {
	case zip2pdf.KindArchiveTooLarge:
		return hints.ForArchiveTooLarge()
	case zip2pdf.KindNoDocumentFound:
		return hints.ForNoDocument()
	case zip2pdf.KindTimeout:
		return hints.ForTimeout()
	}
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, ErrWritePDF):
		return hints.ForOutputDirectory()
	}
	return ""
}
