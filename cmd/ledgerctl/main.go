package main

import (
	"fmt"
	"os"

	"github.com/ariefcatur/midtrans-ledger/internal/config"
	"github.com/ariefcatur/midtrans-ledger/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Operator tools for the settlement ledger",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&cfg.PostgresDSN, "dsn", cfg.PostgresDSN, "Postgres DSN (default from POSTGRES_DSN)")

	rootCmd.AddCommand(migrateCmd(&cfg))
	rootCmd.AddCommand(repostCmd(&cfg))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{ServiceName: cfg.ServiceName + "-ctl", Level: cfg.LogLevel, Format: "console"})
}
