package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-zip2pdf/internal/config"
)

// runConvert converts one archive to a PDF on disk.
func runConvert(ctx context.Context, args []string, env *Environment) error {
	flags, positional, err := parseConvertFlags(args, env.Stderr)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		printConvertUsage(env.Stderr)
		return ErrNoInput
	}
	if len(positional) > 1 {
		return fmt.Errorf("%w: expected one archive, got %d", ErrUsage, len(positional))
	}
	input := positional[0]

	cfg, err := loadConfig(flags.common.config, env.LookupEnv)
	if err != nil {
		return err
	}
	if err := mergeConvertFlags(flags, cfg); err != nil {
		return err
	}

	logger, err := newLogger(cfg, env.Stderr, flags.common)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(input) // #nosec G304 -- user-provided path
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadArchive, err)
	}

	title := flags.title
	if strings.TrimSpace(title) == "" {
		title = archiveBaseName(input)
	}
	output := resolveOutputPath(input, flags.output)

	conv, err := env.NewConverter(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close() }()

	start := env.Now()
	res, err := conv.Convert(ctx, data, title, !flags.noTOC)
	if err != nil {
		return err
	}

	if err := writeOutput(output, res.PDF); err != nil {
		return err
	}
	if flags.html {
		htmlPath := strings.TrimSuffix(output, filepath.Ext(output)) + ".html"
		if err := writeOutput(htmlPath, []byte(res.HTML)); err != nil {
			return err
		}
		if !flags.common.quiet {
			fmt.Fprintf(env.Stdout, "Created %s\n", htmlPath)
		}
	}

	if !flags.common.quiet {
		for _, ref := range res.Unresolved {
			fmt.Fprintf(env.Stderr, "warning: image not found in archive: %s\n", ref)
		}
		fmt.Fprintf(env.Stdout, "Created %s (%d pages)\n", output, res.Pages)
		if flags.common.verbose {
			fmt.Fprintf(env.Stdout, "  source: %s\n", res.Primary)
			fmt.Fprintf(env.Stdout, "  took:   %s\n", env.Now().Sub(start).Round(time.Millisecond))
		}
	}
	return nil
}

// mergeConvertFlags applies command flags over the loaded config (CLI wins)
// and revalidates.
func mergeConvertFlags(flags *convertFlags, cfg *config.Config) error {
	if flags.pageFormat != "" {
		cfg.Render.PageFormat = flags.pageFormat
	}
	if flags.timeout != "" {
		cfg.Render.Timeout = flags.timeout
	}
	// A single conversion never needs more than one browser.
	cfg.Server.Workers = 1
	return cfg.Validate()
}

// resolveOutputPath returns explicit when set, else input with a .pdf
// extension in the same directory.
func resolveOutputPath(input, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".pdf"
}

// archiveBaseName is the file name without directory or extension.
func archiveBaseName(p string) string {
	base := filepath.Base(p)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeOutput(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPermissions); err != nil {
			return fmt.Errorf("%w: %w", ErrWritePDF, err)
		}
	}
	if err := os.WriteFile(path, data, filePermissions); err != nil {
		return fmt.Errorf("%w: %w", ErrWritePDF, err)
	}
	return nil
}
