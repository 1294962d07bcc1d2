package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scout"
)

var scoutCmd = &cobra.Command{
	Use:   "scout",
	Short: "Scout an area for data center candidate parcels",
	Long: `Quick-scores every qualifying parcel in a bounding box, fully
enriches the top candidates, and prints the ranked result set. The run is
recorded in the local store for later export.

Examples:
  # Scout southern Dallas county for a 100 MW build
  sitescout scout --bbox="-97.1,32.45,-97.0,32.55"

  # Larger build, more finalists, streamed narrative summary
  sitescout scout --bbox="-97.1,32.45,-97.0,32.55" --mw 300 --top-n 8 --summarize`,
	RunE: runScout,
}

func init() {
	f := scoutCmd.Flags()
	f.String("bbox", "", "search area as west,south,east,north (required)")
	f.Float64("mw", 0, "target load in MW (default from config)")
	f.Float64("min-acres", 0, "minimum parcel acreage (default from config)")
	f.Int("top-n", 0, "number of candidates to fully enrich (default from config)")
	f.Bool("summarize", false, "stream a narrative summary of the top candidates")
	f.String("format", "json", "output format: json or yaml")
	scoutCmd.MarkFlagRequired("bbox") //nolint:errcheck

	rootCmd.AddCommand(scoutCmd)
}

// parseBBox parses "west,south,east,north" into a validated bbox.
func parseBBox(s string) (geomath.BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geomath.BBox{}, eris.Errorf("bbox must be west,south,east,north, got %q", s)
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geomath.BBox{}, eris.Wrapf(err, "bbox component %d", i+1)
		}
		vals[i] = v
	}
	bbox := geomath.BBox{West: vals[0], South: vals[1], East: vals[2], North: vals[3]}
	if !bbox.Valid() {
		return geomath.BBox{}, eris.Errorf("invalid bbox %q", s)
	}
	return bbox, nil
}

func runScout(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("scout"); err != nil {
		return err
	}

	bboxFlag, _ := cmd.Flags().GetString("bbox")
	bbox, err := parseBBox(bboxFlag)
	if err != nil {
		return err
	}

	mw, _ := cmd.Flags().GetFloat64("mw")
	minAcres, _ := cmd.Flags().GetFloat64("min-acres")
	topN, _ := cmd.Flags().GetInt("top-n")
	summarize, _ := cmd.Flags().GetBool("summarize")

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
		if run, err := st.CreateRun(ctx, "cli", model.RunKindArea, bboxFlag); err != nil {
			zap.L().Warn("record run failed", zap.Error(err))
			st = nil
		} else {
			runID = run.ID
		}
	}

	req := scout.AreaRequest{
		BBox:      bbox,
		MWTarget:  mw,
		MinAcres:  minAcres,
		TopN:      topN,
		Summarize: summarize,
	}

	candidates, runErr := pipeline.ScoutArea(ctx, req, cliEmitter())

	if st != nil {
		if runErr != nil {
			if err := st.FailRun(ctx, runID, runErr.Error()); err != nil {
				zap.L().Warn("record run failure failed", zap.Error(err))
			}
		} else if err := st.CompleteRun(ctx, runID, candidates, nil); err != nil {
			zap.L().Warn("record run completion failed", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}

	if len(candidates) == 0 {
		fmt.Fprintln(os.Stderr, "No viable candidates in the search area.")
		return nil
	}
	return writeDocument(cmd, candidates)
}

// cliEmitter renders pipeline events for terminal use: progress to stderr,
// narrative chunks streamed to stdout. Result events are ignored here; the
// command prints the returned set once the pipeline finishes.
func cliEmitter() scout.EmitFunc {
	narrated := false
	return func(ev scout.Event) {
		switch ev.Type {
		case scout.EventStatus:
			fmt.Fprintf(os.Stderr, "• %s\n", ev.Message)
		case scout.EventQuickResults:
			fmt.Fprintf(os.Stderr, "• %d candidates quick-scored\n", len(ev.Candidates))
		case scout.EventSummaryChunk:
			narrated = true
			fmt.Print(ev.Chunk)
		case scout.EventDone:
			if narrated {
				fmt.Println()
			}
		}
	}
}
