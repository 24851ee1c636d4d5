package main

import (
	"fmt"

	"github.com/ariefcatur/midtrans-ledger/internal/config"
	"github.com/ariefcatur/midtrans-ledger/internal/postgres"
	"github.com/spf13/cobra"
)

func migrateCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
