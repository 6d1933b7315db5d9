package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-receipt-service/internal/mail"
	"github.com/tbourn/go-receipt-service/internal/repo"
)

// Check statuses.
const (
	statusOK   = "✓"
	statusWarn = "⚠"
	statusFail = "✗"
)

// CheckResult is one row of the doctor report.
type CheckResult struct {
	Name    string
	Status  string
	Details string
}

// chromeCandidates are the executables chromedp looks for on PATH.
var chromeCandidates = []string{"headless-shell", "chromium", "chromium-browser", "google-chrome", "google-chrome-stable"}

func doctorCmd(open Opener) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Validate storage, database, renderer and mail configuration",
		Long: `Health check for a receipt service deployment.

Validates:
- Storage is writable (local directory or S3 bucket)
- The receipt index database opens and answers
- A PDF engine is available
- A mail backend is configured

Examples:
  receiptctl doctor           # Full report
  receiptctl doctor --quiet   # Exit code only (0=healthy, 1=issues)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open()
			if err != nil {
				return err
			}
			defer rt.Close()

			results := runChecks(context.Background(), rt)
			hasErrors := false
			for _, r := range results {
				if r.Status == statusFail {
					hasErrors = true
					break
				}
			}

			if !quiet {
				printResults(cmd, results)
			}
			if hasErrors {
				return errors.New("doctor found problems")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only set the exit code")
	return cmd
}

func runChecks(ctx context.Context, rt *Runtime) []CheckResult {
	return []CheckResult{
		checkStorage(ctx, rt),
		checkDatabase(ctx, rt),
		checkRenderer(rt),
		checkMail(rt),
	}
}

func checkStorage(ctx context.Context, rt *Runtime) CheckResult {
	r := CheckResult{Name: "storage"}
	where := rt.Config.Storage.Dir
	if rt.Config.Storage.Backend == "s3" {
		where = "s3://" + rt.Config.Storage.S3Bucket
	}
	if err := rt.Store.EnsureDir(ctx); err != nil {
		r.Status, r.Details = statusFail, fmt.Sprintf("%s: %v", where, err)
		return r
	}
	r.Status, r.Details = statusOK, where
	return r
}

func checkDatabase(ctx context.Context, rt *Runtime) CheckResult {
	r := CheckResult{Name: "database"}
	n, err := repo.CountReceipts(ctx, rt.DB)
	if err != nil {
		r.Status, r.Details = statusFail, err.Error()
		return r
	}
	r.Status, r.Details = statusOK, fmt.Sprintf("%d receipts indexed", n)
	return r
}

func checkRenderer(rt *Runtime) CheckResult {
	r := CheckResult{Name: "renderer"}
	pc := rt.Config.PDF
	switch {
	case pc.Engine == "basic":
		r.Status, r.Details = statusOK, "basic (no browser)"
	case pc.ChromePath != "":
		if fi, err := os.Stat(pc.ChromePath); err != nil || fi.IsDir() {
			r.Status, r.Details = statusFail, "browser not found at "+pc.ChromePath
		} else {
			r.Status, r.Details = statusOK, pc.ChromePath
		}
	default:
		for _, name := range chromeCandidates {
			if p, err := exec.LookPath(name); err == nil {
				r.Status, r.Details = statusOK, p
				return r
			}
		}
		r.Status, r.Details = statusFail, "no Chrome on PATH; set CHROME_PATH or PDF_ENGINE=basic"
	}
	return r
}

func checkMail(rt *Runtime) CheckResult {
	r := CheckResult{Name: "mail"}
	switch b := mail.Backend(rt.Config.Mail); b {
	case mail.BackendNone:
		r.Status, r.Details = statusWarn, "no backend; receipts are stored but not emailed"
	default:
		r.Status, r.Details = statusOK, fmt.Sprintf("%s from %s", b, rt.Config.Mail.From)
	}
	return r
}

func statusColor(s string) string {
	switch s {
	case statusOK:
		return color.New(color.FgGreen).Sprint(s)
	case statusWarn:
		return color.New(color.FgYellow).Sprint(s)
	default:
		return color.New(color.FgRed).Sprint(s)
	}
}

func printResults(cmd *cobra.Command, results []CheckResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Check       Status")
	fmt.Fprintln(out, "──────────────────")
	for _, r := range results {
		fmt.Fprintf(out, "%-11s %s\n", r.Name, statusColor(r.Status))
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Details:")
	for _, r := range results {
		if r.Details != "" {
			fmt.Fprintf(out, "  %s: %s\n", r.Name, r.Details)
		}
	}
}
