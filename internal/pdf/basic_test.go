package pdf

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-receipt-service/internal/config"
)

const sampleDoc = `<!doctype html><html><head><title>ignored</title><style>body{color:red}</style></head>
<body><h1>Receipt</h1><p>Name: Ana &lt;Test&gt;</p>
<table><tr><th>ID</th><td>AGR-1-ABCDEF</td></tr></table><p>Notes: —</p></body></html>`

func TestExtractBlocks_SkipsHeadAndDecodesEntities(t *testing.T) {
	blocks, err := extractBlocks(sampleDoc)
	if err != nil {
		t.Fatalf("extractBlocks: %v", err)
	}
	want := []block{
		{text: "Receipt", level: 1},
		{text: "Name: Ana <Test>"},
		{text: "ID | AGR-1-ABCDEF"},
		{text: "Notes: —"},
	}
	if len(blocks) != len(want) {
		t.Fatalf("got %d blocks %+v, want %d", len(blocks), blocks, len(want))
	}
	for i := range want {
		if blocks[i] != want[i] {
			t.Fatalf("block %d = %+v, want %+v", i, blocks[i], want[i])
		}
	}
}

func TestBasicRenderer_ProducesPDF(t *testing.T) {
	r := &BasicRenderer{}
	out, err := r.Render(context.Background(), sampleDoc, ReceiptOptions())
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
}

func TestBasicRenderer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&BasicRenderer{}).Render(ctx, sampleDoc, ReceiptOptions()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestReceiptOptions_Fixed(t *testing.T) {
	o := ReceiptOptions()
	if o.Format != "A4" || !o.PrintBackground || !o.PreferCSSPageSize {
		t.Fatalf("unexpected options: %+v", o)
	}
	if o.Margins != (Margins{10, 10, 10, 10}) {
		t.Fatalf("unexpected margins: %+v", o.Margins)
	}
}

func TestPaperSize(t *testing.T) {
	if w, h := paperSize("A4"); w != 210 || h != 297 {
		t.Fatalf("A4 = %vx%v", w, h)
	}
	if w, _ := paperSize(" letter "); w != 215.9 {
		t.Fatalf("Letter width = %v", w)
	}
}

func TestNew_SelectsEngine(t *testing.T) {
	r, err := New(config.PDFConfig{Engine: "basic"})
	if err != nil {
		t.Fatalf("New(basic): %v", err)
	}
	if _, ok := r.(*BasicRenderer); !ok {
		t.Fatalf("expected *BasicRenderer, got %T", r)
	}
	r, err = New(config.PDFConfig{Engine: "chrome", ChromePath: "/opt/chrome"})
	if err != nil {
		t.Fatalf("New(chrome): %v", err)
	}
	cr, ok := r.(*ChromeRenderer)
	if !ok || cr.ExecPath != "/opt/chrome" {
		t.Fatalf("expected chrome renderer with exec path, got %#v", r)
	}
	if _, err := New(config.PDFConfig{Engine: "wkhtml"}); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
}
