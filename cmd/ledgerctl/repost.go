package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/ariefcatur/midtrans-ledger/internal/config"
	"github.com/ariefcatur/midtrans-ledger/internal/postgres"
	"github.com/ariefcatur/midtrans-ledger/internal/settlement"
	"github.com/spf13/cobra"
)

func repostCmd(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "repost [order-id...]",
		Short: "Re-run journal posting for settled orders",
		Long: `Re-run the journal posting pipeline for the given orders.

Without arguments every settled order that has no journal is reposted.
Orders that already carry a journal are reported as duplicate and left
untouched.

Examples:
  ledgerctl repost 42 43
  ledgerctl repost --limit 500`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseOrderIDs(args)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			db, err := postgres.Connect(ctx, cfg.PostgresDSN, postgres.PoolOptions{MaxConns: 2})
			if err != nil {
				return err
			}
			defer db.Close()

			repo := &settlement.Repo{DB: db}
			c := &settlement.Composer{
				Store:      repo,
				Log:        logger.Named("settlement.composer"),
				Reconciler: settlement.Reconciler{MaxAttempts: cfg.StockCASAttempts},
			}
			failed, err := repost(ctx, repo, c, ids, limit, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d order(s) failed to post", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "Maximum orders to scan when no ids are given")
	return cmd
}

func parseOrderIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(a, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid order id %q", a)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// repost posts each order and prints one line per order. Returns how many
// ended as OutcomeFailed.
func repost(ctx context.Context, st settlement.Store, c *settlement.Composer, ids []int64, limit int, out io.Writer) (int, error) {
	if len(ids) == 0 {
		var err error
		ids, err = st.ListSettledWithoutJournal(ctx, limit)
		if err != nil {
			return 0, err
		}
		if len(ids) == 0 {
			fmt.Fprintln(out, "nothing to repost")
			return 0, nil
		}
	}

	failed := 0
	for _, id := range ids {
		rep := c.Post(ctx, id)
		switch rep.Outcome {
		case settlement.OutcomePosted:
			fmt.Fprintf(out, "order %d: posted journal %d\n", id, rep.JournalID)
		case settlement.OutcomeFailed:
			failed++
			fmt.Fprintf(out, "order %d: failed: %v\n", id, rep.Err)
		default:
			fmt.Fprintf(out, "order %d: %s\n", id, rep.Outcome)
		}
	}
	return failed, nil
}
