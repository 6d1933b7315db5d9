package cli

import (
	"github.com/spf13/cobra"
)

// RootCmd assembles receiptctl.
func RootCmd(open Opener, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "receiptctl",
		Short:   "Operate the appointment receipt service",
		Version: version,
		Long: `receiptctl creates and inspects appointment receipts without going
through the HTTP API. It reads the same environment (.env) as the server.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(renderCmd(open))
	cmd.AddCommand(showCmd(open))
	cmd.AddCommand(exportCmd(open))
	cmd.AddCommand(doctorCmd(open))
	return cmd
}
