package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/dealsentry/dealsentry/internal/persistence/postgres"
	"github.com/dealsentry/dealsentry/internal/watch"
)

func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch maintenance commands",
	}
	cmd.AddCommand(watchSweepCmd())
	return cmd
}

func watchSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Evaluate all active watches once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := buildDeps(prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer closeDeps(d)
			if d.db == nil {
				return fmt.Errorf("watch sweep needs postgres.dsn configured")
			}

			watches := postgres.NewWatchRepo(d.db, d.cfg.Postgres.QueryTimeout)
			prices := postgres.NewPriceHistoryRepo(d.db, d.cfg.Postgres.QueryTimeout)
			alerts := postgres.NewAlertRepo(d.db, d.cfg.Postgres.QueryTimeout)
			evaluator := watch.NewEvaluator(d.cfg.Watch.Config, d.adapter, watches, prices, alerts, d.metrics)
			runner := watch.NewRunner(evaluator, watches, d.cfg.Watch.Schedule, d.cfg.Watch.PerWatch)
			runner.Sweep(context.Background())
			return nil
		},
	}
}
