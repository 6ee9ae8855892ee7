package main

import (
	"fmt"
	"io"

	flag "github.com/spf13/pflag"
)

// commonFlags holds flags shared across commands.
type commonFlags struct {
	config  string
	quiet   bool
	verbose bool
}

// convertFlags holds all flags for the convert command.
type convertFlags struct {
	common     commonFlags
	title      string
	output     string
	noTOC      bool
	html       bool
	pageFormat string
	timeout    string
}

// serveFlags holds all flags for the serve command.
type serveFlags struct {
	common  commonFlags
	addr    string
	workers int
}

// addCommonFlags adds common flags to a FlagSet.
func addCommonFlags(fs *flag.FlagSet, f *commonFlags) {
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "only show errors")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "show debug logs and timing")
}

// parseConvertFlags parses convert command flags and returns positional args.
func parseConvertFlags(args []string, stderr io.Writer) (*convertFlags, []string, error) {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &convertFlags{}

	fs.StringVarP(&f.title, "title", "t", "", "document title for the cover page")
	fs.StringVarP(&f.output, "output", "o", "", "output PDF path")
	fs.BoolVar(&f.noTOC, "no-toc", false, "disable table of contents")
	fs.BoolVar(&f.html, "html", false, "write the assembled HTML alongside the PDF")
	fs.StringVarP(&f.pageFormat, "page-format", "p", "", "page format: A4, Letter, Legal, A3, A5")
	fs.StringVar(&f.timeout, "timeout", "", "conversion timeout (e.g., 30s, 2m)")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printConvertUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, nil, usageError(err)
	}
	return f, fs.Args(), nil
}

// parseServeFlags parses serve command flags.
func parseServeFlags(args []string, stderr io.Writer) (*serveFlags, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &serveFlags{}

	fs.StringVarP(&f.addr, "addr", "a", "", "listen address (default :8000)")
	fs.IntVarP(&f.workers, "workers", "w", 0, "browser pool size (0 = auto)")
	addCommonFlags(fs, &f.common)

	fs.Usage = func() { printServeUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, usageError(err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if f.workers < 0 {
		return nil, fmt.Errorf("%w: workers must be >= 0, got %d", ErrUsage, f.workers)
	}
	return f, nil
}

// usageError tags flag parse failures; --help passes through untouched.
func usageError(err error) error {
	if err == flag.ErrHelp {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUsage, err)
}
