package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-receipt-service/internal/services"
)

func showCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show [receipt-id]",
		Short: "Show receipt details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := open()
			if err != nil {
				return err
			}
			defer rt.Close()

			rec, err := rt.Receipts.Get(context.Background(), args[0])
			if errors.Is(err, services.ErrReceiptNotFound) {
				return fmt.Errorf("receipt %s not found", args[0])
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Receipt: %s\n", rec.ID)
			fmt.Fprintf(out, "Created: %s\n", rec.CreatedAt.UTC().Format(time.RFC3339))
			fmt.Fprintf(out, "Name: %s\n", rec.Name)
			fmt.Fprintf(out, "Email: %s\n", rec.Email)
			fmt.Fprintf(out, "Emailed: %t\n", rec.Emailed)
			fmt.Fprintf(out, "File: %s (%d bytes)\n", rec.Filename, rec.SizeBytes)
			fmt.Fprintf(out, "URL: %s\n", rec.URL)
			return nil
		},
	}
}
