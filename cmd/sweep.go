package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeremiapane/restaurant-reservation/config"
	"github.com/yeremiapane/restaurant-reservation/database"
	"github.com/yeremiapane/restaurant-reservation/services"
)

// newSweepCmd runs one advisory sweep, for deployments that prefer a cron
// job over the in-process ticker.
func newSweepCmd() *cobra.Command {
	var batch int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Rewrite lapsed tentative holds to expired once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			db, err := config.InitDB(cfg)
			if err != nil {
				return err
			}

			sweeper := services.NewSweeper(database.NewGormStore(db), services.SystemClock{}, nil, 0)
			if batch > 0 {
				sweeper.BatchSize = batch
			}
			n, err := sweeper.SweepOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d holds\n", n)
			return nil
		},
	}

	cmd.Flags().IntVar(&batch, "batch", 0, "rows rewritten per statement (default 500)")
	return cmd
}
