package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// BasicRenderer writes the visible text of an HTML document into a PDF with
// gofpdf core fonts. Headings are set in bold, block elements start new lines
// and table cells are laid out side by side. CSS is ignored.
type BasicRenderer struct {
	// FontFamily is a gofpdf core font; defaults to Helvetica.
	FontFamily string
}

// block is one line of output text with its heading level (0 = body).
type block struct {
	text  string
	level int
}

// Render implements Renderer.
func (r *BasicRenderer) Render(ctx context.Context, doc string, opts Options) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	blocks, err := extractBlocks(doc)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	family := r.FontFamily
	if family == "" {
		family = "Helvetica"
	}
	size := "A4"
	if strings.EqualFold(opts.Format, "letter") {
		size = "Letter"
	}

	p := gofpdf.New("P", "mm", size, "")
	p.SetMargins(opts.Margins.Left, opts.Margins.Top, opts.Margins.Right)
	p.SetAutoPageBreak(true, opts.Margins.Bottom)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	for _, b := range blocks {
		switch b.level {
		case 1:
			p.SetFont(family, "B", 18)
			p.MultiCell(0, 9, tr(b.text), "", "L", false)
			p.Ln(2)
		case 2, 3:
			p.SetFont(family, "B", 13)
			p.MultiCell(0, 7, tr(b.text), "", "L", false)
		default:
			p.SetFont(family, "", 11)
			p.MultiCell(0, 6, tr(b.text), "", "L", false)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, fmt.Errorf("gofpdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// extractBlocks walks the token stream and groups text into lines. Entity
// references are decoded by the tokenizer, so "&lt;" becomes "<" in the PDF.
func extractBlocks(doc string) ([]block, error) {
	z := html.NewTokenizer(strings.NewReader(doc))
	var (
		out     []block
		line    []string
		level   int
		skip    int
		inCells bool
	)
	flush := func() {
		text := strings.Join(strings.Fields(strings.Join(line, " ")), " ")
		if text != "" {
			out = append(out, block{text: text, level: level})
		}
		line = line[:0]
	}

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			flush()
			return out, nil
		case html.TextToken:
			if skip == 0 {
				line = append(line, string(z.Text()))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Head, atom.Style, atom.Script, atom.Title:
				if tt == html.StartTagToken {
					skip++
				}
			case atom.H1, atom.H2, atom.H3:
				flush()
				level = int(a.String()[1] - '0')
			case atom.Td, atom.Th:
				if inCells {
					line = append(line, " | ")
				}
				inCells = true
			case atom.Br, atom.P, atom.Div, atom.Tr, atom.Li, atom.Table, atom.Section, atom.Header, atom.Footer, atom.Hr:
				flush()
				inCells = false
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch a := atom.Lookup(name); a {
			case atom.Head, atom.Style, atom.Script, atom.Title:
				if skip > 0 {
					skip--
				}
			case atom.H1, atom.H2, atom.H3:
				flush()
				level = 0
			case atom.P, atom.Div, atom.Tr, atom.Li, atom.Table, atom.Section, atom.Header, atom.Footer:
				flush()
				inCells = false
			}
		}
	}
}
