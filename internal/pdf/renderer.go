// Package pdf turns receipt HTML into PDF bytes.
//
// Two engines implement Renderer:
//   - ChromeRenderer drives a headless Chrome through the DevTools protocol
//     (chromedp) and prints the page, honoring CSS and backgrounds.
//   - BasicRenderer lays out the document text with gofpdf and needs no
//     browser; it is meant for environments without Chrome and for tests.
//
// Both release every resource they acquire before returning, on success,
// failure, and context cancellation alike.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/go-receipt-service/internal/config"
)

// Margins are page margins in millimetres.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Options is the page configuration handed to a Renderer.
type Options struct {
	// Format is the paper size name; only "A4" and "Letter" are known.
	Format string
	// PrintBackground prints CSS backgrounds.
	PrintBackground bool
	// Margins around the printable area.
	Margins Margins
	// PreferCSSPageSize lets an @page rule in the document override Format.
	PreferCSSPageSize bool
}

// ReceiptOptions is the fixed page configuration used for receipts.
func ReceiptOptions() Options {
	return Options{
		Format:            "A4",
		PrintBackground:   true,
		Margins:           Margins{Top: 10, Right: 10, Bottom: 10, Left: 10},
		PreferCSSPageSize: true,
	}
}

// Renderer renders an HTML document to PDF bytes.
type Renderer interface {
	Render(ctx context.Context, html string, opts Options) ([]byte, error)
}

// paperSize returns width and height in millimetres for a format name.
func paperSize(format string) (w, h float64) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "letter":
		return 215.9, 279.4
	default:
		return 210, 297
	}
}

const mmPerInch = 25.4

// New builds the Renderer selected by cfg.Engine.
func New(cfg config.PDFConfig) (Renderer, error) {
	switch cfg.Engine {
	case "chrome", "":
		return &ChromeRenderer{ExecPath: cfg.ChromePath}, nil
	case "basic":
		return &BasicRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.Engine)
	}
}
