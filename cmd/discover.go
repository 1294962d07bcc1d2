package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scout"
)

var discoverCmd = &cobra.Command{
	Use:   "discover <brief>",
	Short: "Discover candidate sub-markets from a project brief",
	Long: `Runs Tier-1 open discovery: Claude proposes named sub-markets for
the brief, and each is quick-scored against live substation data.

Examples:
  sitescout discover "100MW hyperscale campus in north Texas, cheap power"
  sitescout discover --mw 300 --max 8 "edge compute near Atlanta"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDiscover,
}

func init() {
	f := discoverCmd.Flags()
	f.Float64("mw", 0, "target load in MW (default from config)")
	f.Int("max", 0, "maximum sub-markets to return (default from config)")
	f.String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("discover"); err != nil {
		return err
	}

	query := strings.Join(args, " ")
	mw, _ := cmd.Flags().GetFloat64("mw")
	maxSub, _ := cmd.Flags().GetInt("max")
	if maxSub <= 0 {
		maxSub = cfg.Scout.MaxSubMarkets
	}

	e, err := initSources(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	pipeline := newPipeline(e)

	st := openStoreSoft(ctx)
	var runID string
	if st != nil {
		defer st.Close()
		if run, err := st.CreateRun(ctx, "cli", model.RunKindDiscover, query); err != nil {
			zap.L().Warn("record run failed", zap.Error(err))
			st = nil
		} else {
			runID = run.ID
		}
	}

	req := scout.DiscoverRequest{
		Query:         query,
		MWTarget:      mw,
		MaxSubMarkets: maxSub,
	}

	emit := func(ev scout.Event) {
		if ev.Type == scout.EventStatus {
			fmt.Fprintf(os.Stderr, "• %s\n", ev.Message)
		}
	}

	subMarkets, runErr := pipeline.Discover(ctx, req, emit)

	if st != nil {
		if runErr != nil {
			if err := st.FailRun(ctx, runID, runErr.Error()); err != nil {
				zap.L().Warn("record run failure failed", zap.Error(err))
			}
		} else if err := st.CompleteRun(ctx, runID, nil, subMarkets); err != nil {
			zap.L().Warn("record run completion failed", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	if len(subMarkets) == 0 {
		fmt.Fprintln(os.Stderr, "No sub-markets identified.")
		return nil
	}
	return writeDocument(cmd, subMarkets)
}
