package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var sweepLimit int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run housekeeping once",
	Long: `Run housekeeping once and exit:

  - deactivate suspensions whose resume time has passed
  - time out sessions past their allotment, fail sessions that never connected
  - re-forward settlements the payout ledger has not acknowledged

Lazy evaluation already covers the first two on read; the sweep keeps stored
state tidy and drains pending payouts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := runSweep(cmd.Context(), a, time.Now())
		fmt.Fprintf(cmd.OutOrStdout(), "suspensions expired: %d\nsessions closed: %d\nsettlements forwarded: %d\n",
			res.suspensions, res.sessions, res.settlements)
		return err
	},
}

func init() {
	sweepCmd.Flags().IntVar(&sweepLimit, "limit", 100, "maximum pending settlements to re-forward")
}

type sweepResult struct {
	suspensions int
	sessions    int
	settlements int
}

// runSweep runs every housekeeping step even if an earlier one fails.
func runSweep(ctx context.Context, a *app, now time.Time) (sweepResult, error) {
	var (
		res  sweepResult
		errs []error
		err  error
	)

	if res.suspensions, err = a.moderation.Controller.ExpireDue(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("expire suspensions: %w", err))
	}
	if res.sessions, err = a.sessions.ExpireOverdue(ctx, now); err != nil {
		errs = append(errs, fmt.Errorf("expire sessions: %w", err))
	}
	if res.settlements, err = a.billing.RetryPending(ctx, sweepLimit); err != nil {
		errs = append(errs, fmt.Errorf("retry settlements: %w", err))
	}

	a.log.Info("sweep finished", "suspensions_expired", res.suspensions, "sessions_closed", res.sessions, "settlements_forwarded", res.settlements)
	return res, errors.Join(errs...)
}
