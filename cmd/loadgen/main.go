// Command loadgen floods a running stagepay service with engagement events
// and verifies the standings it serves.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/loadgen"
	"github.com/okian/stagepay/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1) //nolint:gocritic // stop already called
	}
}

func newRootCmd() *cobra.Command {
	cfg := loadgen.DefaultConfig()
	var (
		weights   map[string]string
		logLevel  string
		logFormat string
	)

	cmd := &cobra.Command{
		Use:   "loadgen",
		Short: "Load and verify a stagepay service",
		Long: `loadgen creates a competition, submits random engagement events
concurrently, waits until every accepted event is logged and checks the
served standings against a ranking computed locally from the same events.
A resent fraction of events exercises duplicate detection.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.Init(logger.WithFormat(logFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			if err := logger.SetLevelString(logLevel); err != nil {
				return err
			}

			if len(weights) > 0 {
				w, err := parseWeights(weights)
				if err != nil {
					return err
				}
				cfg.Weights = w
			}

			r, err := loadgen.NewRunner(cfg, loadgen.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			_, err = r.Run(cmd.Context())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", cfg.BaseURL, "base URL of the service")
	f.StringVar(&cfg.Name, "name", "", "competition name (random when empty)")
	f.IntVarP(&cfg.Participants, "participants", "p", cfg.Participants, "number of participants")
	f.IntVarP(&cfg.Events, "events", "n", cfg.Events, "number of distinct events")
	f.Float64Var(&cfg.Duplicates, "duplicates", cfg.Duplicates, "fraction of events resent with the same ID")
	f.IntVarP(&cfg.Workers, "workers", "c", cfg.Workers, "concurrent requests")
	f.Float64Var(&cfg.PrizePool, "pool", cfg.PrizePool, "prize pool")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "per-request timeout")
	f.DurationVar(&cfg.Settle, "settle", cfg.Settle, "how long to wait for ingestion")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "standings poll interval")
	f.BoolVar(&cfg.Finalize, "finalize", false, "finalize the competition after a verified run")
	f.Uint64Var(&cfg.Seed, "seed", 0, "random seed (time based when 0)")
	f.IntVar(&cfg.Top, "top", cfg.Top, "standings rows to print, 0 for all")
	f.StringToStringVar(&weights, "weight", nil, "scoring weights the service uses, e.g. vote=1,play=0.5,like=2,download=5")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	f.StringVar(&logFormat, "log-format", logger.FormatText, "log format (text or json)")
	return cmd
}

func parseWeights(raw map[string]string) (competition.Weights, error) {
	vals := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("weight %s: %w", k, err)
		}
		vals[k] = f
	}
	return competition.ParseWeights(vals)
}
