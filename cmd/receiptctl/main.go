// Command receiptctl is the operator CLI of the receipt service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tbourn/go-receipt-service/internal/cli"
	"github.com/tbourn/go-receipt-service/internal/config"
	"github.com/tbourn/go-receipt-service/internal/sysutil"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	open := func() (*cli.Runtime, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		logger := sysutil.SetupLogger(os.Stderr, cfg.LogLevel, true, "receiptctl")
		return cli.NewRuntime(cfg, logger)
	}

	if err := cli.RootCmd(open, version).Execute(); err != nil {
		os.Exit(1)
	}
}
