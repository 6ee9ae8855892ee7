package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/config"
)

// Converter is the slice of *zip2pdf.Converter the commands use.
type Converter interface {
	Convert(ctx context.Context, data []byte, title string, includeTOC bool) (*zip2pdf.Result, error)
	SweepWorkspaces(olderThan time.Duration) (int, error)
	Close() error
}

// Compile-time interface implementation check.
var _ Converter = (*zip2pdf.Converter)(nil)

// ConverterFactory builds a Converter from the resolved configuration.
// rec is nil when history is disabled.
type ConverterFactory func(cfg *config.Config, logger *slog.Logger, rec zip2pdf.Recorder) (Converter, error)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now          func() time.Time
	Stdout       io.Writer
	Stderr       io.Writer
	LookupEnv    func(string) (string, bool)
	NewConverter ConverterFactory
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:          time.Now,
		Stdout:       os.Stdout,
		Stderr:       os.Stderr,
		LookupEnv:    os.LookupEnv,
		NewConverter: newConverter,
	}
}
