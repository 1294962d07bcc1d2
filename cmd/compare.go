package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/sitescout/internal/compare"
	"github.com/sells-group/sitescout/internal/scoring"
)

var compareCmd = &cobra.Command{
	Use:   "compare <apn> <apn> [apn] [apn]",
	Short: "Compare 2-4 parcels side by side",
	Long: `Builds a snapshot and full score for each parcel and prints a
per-metric comparison with best/worst markers.

Examples:
  sitescout compare 126-44-100 126-44-205
  sitescout compare --mw 200 --format json 126-44-100 126-44-205 127-01-033`,
	Args: cobra.RangeArgs(2, 4),
	RunE: runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.Float64("mw", 0, "target load in MW (default from config)")
	f.String("format", "table", "output format: table, json, or yaml")

	rootCmd.AddCommand(compareCmd)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	mw, _ := cmd.Flags().GetFloat64("mw")
	if mw <= 0 {
		mw = cfg.Scout.MWTarget
	}

	e, err := initSources(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	sites := make([]compare.Site, 0, len(args))
	for _, apn := range args {
		parcel, err := e.Parcels.ParcelByAPN(ctx, apn)
		if err != nil {
			return err
		}
		if parcel.Centroid == nil {
			return fmt.Errorf("compare: parcel %s has no centroid", apn)
		}

		snap, err := e.Builder.Build(ctx, *parcel.Centroid, mw)
		if err != nil {
			return err
		}

		score := scoring.ComputeDCScore(snap, mw)
		scoring.AttachEstimates(&score, parcel.Acres)

		sites = append(sites, compare.Site{
			APN:            parcel.APN,
			Address:        parcel.Address,
			Score:          score,
			Infrastructure: snap,
		})
	}

	table, err := compare.Compare(sites)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "table" || format == "" {
		formatCompareTable(os.Stdout, table)
		return nil
	}
	return writeDocument(cmd, table)
}

// formatCompareTable renders the comparison as an aligned text table with
// best (*) and worst (!) markers.
func formatCompareTable(w io.Writer, table *compare.Table) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprint(tw, "METRIC")
	for _, s := range table.Sites {
		fmt.Fprintf(tw, "\t%s", s.APN)
	}
	fmt.Fprintln(tw)

	for _, row := range table.Rows {
		fmt.Fprint(tw, row.Metric)
		for i, v := range row.Values {
			if v == nil {
				fmt.Fprint(tw, "\t—")
				continue
			}
			marker := ""
			if row.BestIdx != nil && *row.BestIdx == i {
				marker = " *"
			} else if row.WorstIdx != nil && *row.WorstIdx == i {
				marker = " !"
			}
			if len(row.Disqualified) > i && row.Disqualified[i] {
				marker = " DQ"
			}
			fmt.Fprintf(tw, "\t%s%s", formatMetric(*v), marker)
		}
		fmt.Fprintln(tw)
	}
}

// formatMetric trims trailing zeros so integers print bare.
func formatMetric(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}
