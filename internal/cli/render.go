package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-receipt-service/internal/domain"
)

func renderCmd(open Opener) *cobra.Command {
	var req domain.ReceiptRequest
	var noEmail bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Create a receipt",
		Long: `Render, store and (unless --no-email) email a receipt, exactly as
POST /api/v1/receipts would.

Examples:
  receiptctl render --name "Ana Pérez" --email ana@example.com --date "2025-06-01 10:30"
  receiptctl render --name Ana --email ana@example.com --no-email`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open()
			if err != nil {
				return err
			}
			defer rt.Close()

			svc := *rt.Receipts
			if noEmail {
				svc.Sender = nil
			}
			rec, err := svc.Create(context.Background(), req)
			if err != nil {
				return fmt.Errorf("failed to create receipt: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s Created receipt %s\n", color.New(color.FgGreen).Sprint("✓"), rec.ID)
			fmt.Fprintf(out, "  File: %s\n", rec.StoragePath)
			fmt.Fprintf(out, "  URL: %s\n", rec.PublicURL)
			fmt.Fprintf(out, "  Emailed: %t\n", rec.Emailed)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "client name (required)")
	cmd.Flags().StringVar(&req.Email, "email", "", "client email (required)")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "client phone")
	cmd.Flags().StringVar(&req.Date, "date", "", "appointment date")
	cmd.Flags().StringVar(&req.Notes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&noEmail, "no-email", false, "skip email delivery")
	return cmd
}
