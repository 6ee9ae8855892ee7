// Package zip2pdf converts a zip bundle of markdown and images into a
// branded PDF using headless Chrome.
//
// # Quick Start
//
// Create a converter, convert an archive, and close when done:
//
//	conv, err := zip2pdf.NewConverter(
//	    zip2pdf.WithBranding(zip2pdf.Branding{CompanyName: "Acme Corp"}),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conv.Close()
//
//	data, _ := os.ReadFile("report.zip")
//	result, err := conv.Convert(ctx, data, "Quarterly Report", true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("report.pdf", result.PDF, 0o644)
//
// # Conversion Pipeline
//
// Each conversion runs in its own workspace directory, removed before
// Convert returns:
//
//  1. Extraction: the upload must sniff as a zip; entry count, declared
//     size and entry names are checked before anything is written.
//  2. Classification: markdown files are candidates, main.md or README.md
//     wins, otherwise the first in lexical order.
//  3. Reference rewriting: image references in markdown and HTML form are
//     pointed at the extracted files; missing images are reported, not fatal.
//  4. Assembly: Goldmark renders the body; a cover page and an optional
//     table of contents are added and the branded stylesheet applied.
//  5. Rendering via headless Chrome (go-rod), then pdfcpu validates the
//     output and sets the document properties.
//
// # Errors
//
// Convert returns *ConversionError. Use KindOf to branch on the failure:
//
//	switch zip2pdf.KindOf(err) {
//	case zip2pdf.KindArchiveTooLarge:
//	    // 413
//	case zip2pdf.KindInvalidArchiveFormat, zip2pdf.KindUnsafePath, zip2pdf.KindNoDocumentFound:
//	    // 400
//	}
//
// # Parallel Processing
//
// A Converter is safe for concurrent use. It renders with a pool of
// browsers sized by WithWorkers, or GOMAXPROCS/2 clamped to 1..8.
package zip2pdf
