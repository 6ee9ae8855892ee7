package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/archive"
	"github.com/alnah/go-zip2pdf/internal/config"
)

// loadConfig resolves configuration in order: defaults, config file,
// ZIP2PDF_* environment. Command flags are merged by the caller.
func loadConfig(name string, lookup func(string) (string, bool)) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if name != "" {
		var err error
		cfg, err = config.LoadConfig(name)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}
	if lookup != nil {
		if err := cfg.ApplyEnv(lookup); err != nil {
			return nil, fmt.Errorf("reading environment: %w", err)
		}
	}
	return cfg, nil
}

// newLogger builds the slog handler named by the logging section.
// --verbose and --quiet override the configured level.
func newLogger(cfg *config.Config, w io.Writer, common commonFlags) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	switch {
	case common.quiet:
		level = slog.LevelError
	case common.verbose:
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// converterOptions maps configuration onto converter options.
func converterOptions(cfg *config.Config, logger *slog.Logger, rec zip2pdf.Recorder) []zip2pdf.Option {
	opts := []zip2pdf.Option{
		zip2pdf.WithLogger(logger),
		zip2pdf.WithLimits(archive.Limits{
			MaxUploadSize:    cfg.Limits.MaxUploadSize,
			MaxExtractedSize: cfg.Limits.MaxExtractedSize,
			MaxEntries:       cfg.Limits.MaxEntries,
		}),
		zip2pdf.WithWorkspaceDir(cfg.Workspace.BaseDir),
		zip2pdf.WithStyle(cfg.Render.Style),
		zip2pdf.WithSyntaxHighlight(cfg.Render.SyntaxHighlight),
		zip2pdf.WithPageFormat(cfg.Render.PageFormat),
		zip2pdf.WithTimeout(cfg.RenderTimeout()),
		zip2pdf.WithWorkers(cfg.Server.Workers),
		zip2pdf.WithBranding(zip2pdf.Branding{
			CompanyName: cfg.Branding.CompanyName,
			Subtitle:    cfg.Branding.Subtitle,
			Logo:        cfg.Branding.Logo,
			DateFormat:  cfg.DateFormat(),
		}),
		zip2pdf.WithTOC(zip2pdf.TOCSettings{
			Title:    cfg.TOC.Title,
			MinDepth: cfg.TOC.MinDepth,
			MaxDepth: cfg.TOC.MaxDepth,
		}),
	}
	if cfg.Assets.BasePath != "" {
		opts = append(opts, zip2pdf.WithAssetPath(cfg.Assets.BasePath))
	}
	if rec != nil {
		opts = append(opts, zip2pdf.WithRecorder(rec))
	}
	return opts
}

// newConverter is the production ConverterFactory.
func newConverter(cfg *config.Config, logger *slog.Logger, rec zip2pdf.Recorder) (Converter, error) {
	conv, err := zip2pdf.NewConverter(converterOptions(cfg, logger, rec)...)
	if err != nil {
		return nil, err
	}
	return conv, nil
}
