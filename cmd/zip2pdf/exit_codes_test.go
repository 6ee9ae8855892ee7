package main

// Notes:
// - exitCodeFor: conversion errors map by kind, everything else by sentinel
//   through errors.Is, so wrapped errors are checked too.

import (
	"errors"
	"fmt"
	"os"
	"testing"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/config"
)

// ---------------------------------------------------------------------------
// TestExitCodeFor - Error to exit code mapping
// ---------------------------------------------------------------------------

func TestExitCodeFor(t *testing.T) {
	t.Parallel()

	kindErr := func(k zip2pdf.Kind) error {
		return fmt.Errorf("convert: %w", &zip2pdf.ConversionError{Kind: k})
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, ExitSuccess},

		// Conversion kinds
		{"invalid archive", kindErr(zip2pdf.KindInvalidArchiveFormat), ExitUsage},
		{"too large", kindErr(zip2pdf.KindArchiveTooLarge), ExitUsage},
		{"unsafe path", kindErr(zip2pdf.KindUnsafePath), ExitUsage},
		{"no document", kindErr(zip2pdf.KindNoDocumentFound), ExitUsage},
		{"invalid input", kindErr(zip2pdf.KindInvalidInput), ExitUsage},
		{"template missing", kindErr(zip2pdf.KindTemplateMissing), ExitUsage},
		{"render failure", kindErr(zip2pdf.KindRenderFailure), ExitBrowser},
		{"timeout", kindErr(zip2pdf.KindTimeout), ExitGeneral},
		{"canceled", kindErr(zip2pdf.KindCanceled), ExitGeneral},
		{"internal", kindErr(zip2pdf.KindInternal), ExitGeneral},

		// Browser errors (exit 4)
		{"browser connect", zip2pdf.ErrBrowserConnect, ExitBrowser},
		{"page load", fmt.Errorf("x: %w", zip2pdf.ErrPageLoad), ExitBrowser},

		// I/O errors (exit 3)
		{"file not exist", os.ErrNotExist, ExitIO},
		{"permission denied", os.ErrPermission, ExitIO},
		{"read archive", ErrReadArchive, ExitIO},
		{"write pdf", fmt.Errorf("%w: disk full", ErrWritePDF), ExitIO},
		{"listen", ErrListen, ExitIO},
		{"history", ErrOpenHistory, ExitIO},

		// Usage/config errors (exit 2)
		{"usage", ErrUsage, ExitUsage},
		{"no input", ErrNoInput, ExitUsage},
		{"config not found", config.ErrConfigNotFound, ExitUsage},
		{"config parse", fmt.Errorf("loading config: %w", config.ErrConfigParse), ExitUsage},
		{"invalid value", config.ErrInvalidValue, ExitUsage},
		{"field too long", config.ErrFieldTooLong, ExitUsage},
		{"page format", zip2pdf.ErrPageFormat, ExitUsage},

		// General
		{"unknown", errors.New("boom"), ExitGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := exitCodeFor(tt.err); got != tt.want {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestExitCodeConstants(t *testing.T) {
	t.Parallel()

	codes := []int{ExitSuccess, ExitGeneral, ExitUsage, ExitIO, ExitBrowser}
	seen := make(map[int]bool)
	for _, c := range codes {
		if c >= 126 {
			t.Errorf("exit code %d collides with shell-reserved range", c)
		}
		if seen[c] {
			t.Errorf("exit code %d used twice", c)
		}
		seen[c] = true
	}
}
