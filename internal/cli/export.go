package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-receipt-service/internal/export"
)

const dateLayout = "2006-01-02"

func exportCmd(open Opener) *cobra.Command {
	var out, from, to string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the receipt index as XLSX",
		Long: `Write every indexed receipt, optionally limited to a date window, to an
Excel workbook.

Examples:
  receiptctl export --out receipts.xlsx
  receiptctl export --out june.xlsx --from 2025-06-01 --to 2025-06-30`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var fromT, toT time.Time
			var err error
			if from != "" {
				if fromT, err = time.Parse(dateLayout, from); err != nil {
					return fmt.Errorf("--from must be YYYY-MM-DD: %w", err)
				}
			}
			if to != "" {
				if toT, err = time.Parse(dateLayout, to); err != nil {
					return fmt.Errorf("--to must be YYYY-MM-DD: %w", err)
				}
			}

			rt, err := open()
			if err != nil {
				return err
			}
			defer rt.Close()

			data, err := export.NewService(rt.Receipts, rt.Log).ReceiptsXLSX(context.Background(), fromT, toT)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "receipts.xlsx", "output file")
	cmd.Flags().StringVar(&from, "from", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day, inclusive (YYYY-MM-DD)")
	return cmd
}
