package pdf

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ChromeRenderer prints HTML to PDF with a headless Chrome started for every
// call. The browser process is tied to the call's context and is torn down
// before Render returns, whatever the outcome.
type ChromeRenderer struct {
	// ExecPath overrides the browser binary; empty uses chromedp's lookup.
	ExecPath string
	// ViewportWidth and ViewportHeight size the page before printing.
	ViewportWidth, ViewportHeight int64
}

// allocatorOptions builds the exec allocator flags for a sandbox-less
// container environment.
func (r *ChromeRenderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}
	return opts
}

// Render loads html into a blank tab and prints it with opts.
func (r *ChromeRenderer) Render(ctx context.Context, html string, opts Options) ([]byte, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	vw, vh := r.ViewportWidth, r.ViewportHeight
	if vw <= 0 || vh <= 0 {
		vw, vh = 1200, 800
	}
	wmm, hmm := paperSize(opts.Format)

	var out []byte
	err := chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(vw, vh, 1, false),
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(wmm / mmPerInch).
				WithPaperHeight(hmm / mmPerInch).
				WithMarginTop(opts.Margins.Top / mmPerInch).
				WithMarginRight(opts.Margins.Right / mmPerInch).
				WithMarginBottom(opts.Margins.Bottom / mmPerInch).
				WithMarginLeft(opts.Margins.Left / mmPerInch).
				WithPrintBackground(opts.PrintBackground).
				WithPreferCSSPageSize(opts.PreferCSSPageSize).
				Do(ctx)
			if err != nil {
				return err
			}
			out = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	return out, nil
}
