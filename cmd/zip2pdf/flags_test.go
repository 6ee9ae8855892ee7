package main

import (
	"errors"
	"io"
	"testing"

	flag "github.com/spf13/pflag"
)

// ---------------------------------------------------------------------------
// TestParseConvertFlags
// ---------------------------------------------------------------------------

func TestParseConvertFlags(t *testing.T) {
	t.Parallel()

	f, args, err := parseConvertFlags([]string{
		"a.zip", "-t", "Title", "-o", "out.pdf", "--no-toc", "--html",
		"-p", "A3", "--timeout", "1m", "-c", "work", "-v",
	}, io.Discard)
	if err != nil {
		t.Fatalf("parseConvertFlags() error: %v", err)
	}
	if len(args) != 1 || args[0] != "a.zip" {
		t.Errorf("args = %v", args)
	}
	if f.title != "Title" || f.output != "out.pdf" || !f.noTOC || !f.html {
		t.Errorf("flags = %+v", f)
	}
	if f.pageFormat != "A3" || f.timeout != "1m" {
		t.Errorf("render flags = %q %q", f.pageFormat, f.timeout)
	}
	if f.common.config != "work" || !f.common.verbose || f.common.quiet {
		t.Errorf("common = %+v", f.common)
	}
}

func TestParseConvertFlags_Errors(t *testing.T) {
	t.Parallel()

	_, _, err := parseConvertFlags([]string{"--nope"}, io.Discard)
	if !errors.Is(err, ErrUsage) {
		t.Errorf("unknown flag error = %v, want ErrUsage", err)
	}

	_, _, err = parseConvertFlags([]string{"-h"}, io.Discard)
	if !errors.Is(err, flag.ErrHelp) {
		t.Errorf("help error = %v, want flag.ErrHelp", err)
	}
}

// ---------------------------------------------------------------------------
// TestParseServeFlags
// ---------------------------------------------------------------------------

func TestParseServeFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		addr    string
		workers int
	}{
		{name: "defaults", args: nil},
		{name: "addr and workers", args: []string{"--addr", ":9000", "-w", "4"}, addr: ":9000", workers: 4},
		{name: "negative workers", args: []string{"-w", "-1"}, wantErr: true},
		{name: "positional", args: []string{"extra"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f, err := parseServeFlags(tt.args, io.Discard)
			if tt.wantErr {
				if !errors.Is(err, ErrUsage) {
					t.Errorf("error = %v, want ErrUsage", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseServeFlags() error: %v", err)
			}
			if f.addr != tt.addr || f.workers != tt.workers {
				t.Errorf("flags = %+v", f)
			}
		})
	}
}
