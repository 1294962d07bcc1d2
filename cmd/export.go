package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/sitescout/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export <run-id>",
	Short: "Export a run's results to an XLSX workbook",
	Long: `Writes the ranked candidates (or sub-markets) of a recorded run to
a spreadsheet, one row per result.

Examples:
  sitescout export 3f1c… --output candidates.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringP("output", "o", "sitescout.xlsx", "output file path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.GetRun(ctx, args[0])
	if err != nil {
		return eris.Wrap(err, "export")
	}

	file := xlsx.NewFile()
	switch run.Kind {
	case model.RunKindDiscover:
		if err := addSubMarketSheet(file, run.SubMarkets); err != nil {
			return err
		}
	default:
		if err := addCandidateSheet(file, run.Candidates); err != nil {
			return err
		}
	}

	output, _ := cmd.Flags().GetString("output")
	if err := file.Save(output); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	fmt.Printf("Wrote %s\n", output)
	return nil
}

func addCandidateSheet(file *xlsx.File, cands []model.RankedCandidate) error {
	sheet, err := file.AddSheet("Candidates")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Rank", "APN", "Address", "Acres", "Zoning", "Quick Score",
		"Composite", "Tier", "Power", "Fiber", "Water", "Environmental",
		"Nearest Sub (mi)", "Nearest Sub (kV)", "Est. MW", "Conn. Cost (USD)",
		"Degraded",
	} {
		header.AddCell().SetString(h)
	}

	for _, c := range cands {
		row := sheet.AddRow()
		row.AddCell().SetInt(c.Rank)
		row.AddCell().SetString(c.APN)
		row.AddCell().SetString(c.Address)
		setOptFloat(row.AddCell(), c.Acres)
		row.AddCell().SetString(c.Zoning)
		setOptFloat(row.AddCell(), c.QuickScore)

		if c.DCScore == nil {
			for i := 0; i < 10; i++ {
				row.AddCell()
			}
		} else {
			s := c.DCScore
			row.AddCell().SetInt(s.Composite)
			row.AddCell().SetString(string(s.Tier))
			row.AddCell().SetInt(s.Power)
			row.AddCell().SetInt(s.Fiber)
			row.AddCell().SetInt(s.Water)
			row.AddCell().SetInt(s.Environmental)
			if s.NearestSubstation != nil {
				row.AddCell().SetFloat(s.NearestSubstation.DistanceMiles)
				row.AddCell().SetFloat(s.NearestSubstation.VoltageKV)
			} else {
				row.AddCell()
				row.AddCell()
			}
			setOptFloat(row.AddCell(), s.EstimatedMW)
			setOptFloat(row.AddCell(), s.ConnectionCostUSD)
		}

		degraded := ""
		if c.Degraded {
			degraded = "yes"
		}
		row.AddCell().SetString(degraded)
	}
	return nil
}

func addSubMarketSheet(file *xlsx.File, subs []model.SubMarketCandidate) error {
	sheet, err := file.AddSheet("Sub-Markets")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Name", "Quick Score", "Substations", "Max kV", "Flood Risk",
		"Center Lng", "Center Lat", "Rationale",
	} {
		header.AddCell().SetString(h)
	}

	for _, s := range subs {
		row := sheet.AddRow()
		row.AddCell().SetString(s.Name)
		row.AddCell().SetFloat(s.QuickScore)
		row.AddCell().SetInt(s.SubstationCount)
		row.AddCell().SetFloat(s.MaxVoltageKV)
		row.AddCell().SetString(string(s.FloodRisk))
		row.AddCell().SetFloat(s.Center.Lng)
		row.AddCell().SetFloat(s.Center.Lat)
		row.AddCell().SetString(s.Rationale)
	}
	return nil
}

func setOptFloat(cell *xlsx.Cell, v *float64) {
	if v != nil {
		cell.SetFloat(*v)
	}
}
