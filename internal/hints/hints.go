// Package hints provides actionable error hints for common failure scenarios.
// Hints are formatted as "\n  hint: <text>" for appending to CLI error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-zip2pdf/internal/fileutil"
)

// IsInContainer reports whether the process runs inside Docker.
var IsInContainer = func() bool {
	return fileutil.FileExists("/.dockerenv")
}

// ForBrowserConnect returns hints for headless browser launch failures.
func ForBrowserConnect() string {
	var hints []string

	inCI := os.Getenv("CI") != "" ||
		os.Getenv("GITHUB_ACTIONS") != "" ||
		os.Getenv("GITLAB_CI") != ""

	if (inCI || IsInContainer()) && os.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if os.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use a custom Chrome")
	}

	return formatHints(hints)
}

// ForTimeout returns a hint about raising the render timeout.
func ForTimeout() string {
	return format("for large archives, raise render.timeout or ZIP2PDF_TIMEOUT")
}

// ForArchiveTooLarge returns a hint naming the limits that were exceeded.
func ForArchiveTooLarge() string {
	return format("raise limits.maxUploadSize or limits.maxExtractedSize in the config file")
}

// ForNoDocument returns a hint listing the accepted markdown extensions.
func ForNoDocument() string {
	return format("the archive must contain a .md or .markdown file; main.md or readme.md is preferred")
}

// ForConfigNotFound returns hints for config file not found errors.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-zip2pdf") {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output file creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
