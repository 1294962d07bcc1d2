package main

import (
	"fmt"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/shapeload"
)

var loadshpCmd = &cobra.Command{
	Use:   "loadshp <product> <file.shp>",
	Short: "Load a shapefile into the PostGIS geostore",
	Long: `Parses a HIFLD or county shapefile and bulk-loads it into the
geostore tables used for local parcel and power queries.

Products: ` + productNames() + `

Examples:
  sitescout loadshp substations Electric_Substations.shp
  sitescout loadshp parcels tarrant_county_parcels.shp`,
	Args: cobra.ExactArgs(2),
	RunE: runLoadshp,
}

func init() {
	rootCmd.AddCommand(loadshpCmd)
}

func productNames() string {
	names := make([]string, 0, len(shapeload.Products))
	for name := range shapeload.Products {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func runLoadshp(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("loadshp"); err != nil {
		return err
	}

	product, ok := shapeload.Products[args[0]]
	if !ok {
		return eris.Errorf("loadshp: unknown product %q (valid: %s)", args[0], productNames())
	}

	pool, err := geoPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := shapeload.Migrate(ctx, pool); err != nil {
		return err
	}

	rows, err := shapeload.ParseShapefile(args[1], product)
	if err != nil {
		return err
	}
	zap.L().Info("parsed shapefile",
		zap.String("product", product.Name),
		zap.Int("rows", len(rows)))

	n, err := shapeload.Load(ctx, pool, product, rows)
	if err != nil {
		return err
	}

	fmt.Printf("Loaded %d %s into %s.\n", n, product.Name, product.Table)
	return nil
}
