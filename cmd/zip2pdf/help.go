package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: zip2pdf <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  convert    Convert a zip of markdown and images to PDF")
	fmt.Fprintln(w, "  serve      Run the HTTP conversion API")
	fmt.Fprintln(w, "  config     Print the effective configuration")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'zip2pdf help <command>' for details on a specific command.")
}

// printConvertUsage prints usage for the convert command.
func printConvertUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: zip2pdf convert <bundle.zip> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Convert a zip archive holding markdown and images to a branded PDF.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Arguments:")
	fmt.Fprintln(w, "  bundle.zip    Archive to convert")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Document:")
	fmt.Fprintln(w, "  -t, --title <s>           Cover page title (default: archive name)")
	fmt.Fprintln(w, "      --no-toc              Disable table of contents")
	fmt.Fprintln(w, "  -p, --page-format <s>     Page format: A4, Letter, Legal, A3, A5")
	fmt.Fprintln(w, "      --timeout <d>         Conversion timeout (e.g., 30s, 2m)")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Output:")
	fmt.Fprintln(w, "  -o, --output <path>       Output PDF (default: <bundle>.pdf)")
	fmt.Fprintln(w, "      --html                Also write the assembled HTML")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: zip2pdf serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run the HTTP API. POST /api/v1/convert takes a multipart form with")
	fmt.Fprintln(w, "'file', 'title' and 'include_toc' fields.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default :8000)")
	fmt.Fprintln(w, "  -w, --workers <n>         Browser pool size (0 = auto)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printConfigUsage prints usage for the config command.
func printConfigUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: zip2pdf config [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Print the configuration after applying the config file and environment.")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -q, --quiet               Only show errors")
	fmt.Fprintln(w, "  -v, --verbose             Show debug logs and timing")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment variables prefixed with ZIP2PDF_ override the config file.")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) int {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return ExitSuccess
	}

	switch args[0] {
	case "convert":
		printConvertUsage(env.Stdout)
	case "serve":
		printServeUsage(env.Stdout)
	case "config":
		printConfigUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: zip2pdf version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: zip2pdf help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
		return ExitUsage
	}
	return ExitSuccess
}
