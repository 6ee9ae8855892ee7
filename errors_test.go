package zip2pdf

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alnah/go-zip2pdf/internal/archive"
	"github.com/alnah/go-zip2pdf/internal/classify"
	"github.com/alnah/go-zip2pdf/internal/pipeline"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want Kind
	}{
		{nil, ""},
		{fmt.Errorf("%w: detected text/plain", archive.ErrInvalidFormat), KindInvalidArchiveFormat},
		{archive.ErrTooLarge, KindArchiveTooLarge},
		{archive.ErrTooManyEntries, KindArchiveTooLarge},
		{archive.ErrUnsafePath, KindUnsafePath},
		{archive.ErrWrite, KindInternal},
		{classify.ErrNoDocument, KindNoDocumentFound},
		{fmt.Errorf("%w: default", pipeline.ErrTemplateMissing), KindTemplateMissing},
		{ErrBrowserConnect, KindRenderFailure},
		{ErrPageLoad, KindRenderFailure},
		{context.Canceled, KindCanceled},
		{fmt.Errorf("render: %w", context.DeadlineExceeded), KindTimeout},
		{ErrInvalidTitle, KindInvalidInput},
		{errors.New("surprise"), KindInternal},
		{&ConversionError{Kind: KindUnsafePath}, KindUnsafePath},
	}

	for _, tt := range tests {
		if got := KindOf(tt.err); got != tt.want {
			t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if wrapError(nil) != nil {
		t.Error("wrapError(nil) != nil")
	}

	err := wrapError(fmt.Errorf("%w: too big", archive.ErrTooLarge))
	var ce *ConversionError
	if !errors.As(err, &ce) {
		t.Fatalf("wrapError() = %T, want *ConversionError", err)
	}
	if ce.Kind != KindArchiveTooLarge || ce.Message == "" {
		t.Errorf("ConversionError = %+v", ce)
	}
	if !errors.Is(err, archive.ErrTooLarge) {
		t.Error("wrapped error lost its cause")
	}

	if again := wrapError(err); again != err {
		t.Error("wrapError() re-wrapped a ConversionError")
	}
}

func TestConversionError_Error(t *testing.T) {
	t.Parallel()

	withCause := &ConversionError{Kind: KindRenderFailure, Message: "PDF generation failed", Err: ErrPageLoad}
	if got := withCause.Error(); got != "RenderFailure: PDF generation failed: failed to load page" {
		t.Errorf("Error() = %q", got)
	}
	bare := &ConversionError{Kind: KindInternal, Message: "internal error"}
	if got := bare.Error(); got != "Internal: internal error" {
		t.Errorf("Error() = %q", got)
	}
}
