package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sitescout/internal/geomath"
	"github.com/sells-group/sitescout/internal/model"
	"github.com/sells-group/sitescout/internal/scoring"
	"github.com/sells-group/sitescout/internal/store"
	"github.com/sells-group/sitescout/pkg/geocode"
)

var scoreCmd = &cobra.Command{
	Use:   "score [apn]",
	Short: "Score a single parcel for data center viability",
	Long: `Builds an infrastructure snapshot for one parcel and scores it.

The parcel is identified by APN (looked up in the parcel layer) or by an
explicit --lng/--lat point. The default output is the four-dimension data
center score; pass --persona to also compute the persona-weighted site
score.

Examples:
  # Score a parcel by APN
  sitescout score 126-44-100

  # Score a bare coordinate for a 150 MW build
  sitescout score --lng -97.05 --lat 32.50 --mw 150

  # Hyperscale persona, YAML output
  sitescout score 126-44-100 --persona HYPERSCALE --format yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Float64("lng", 0, "parcel longitude (with --lat, instead of an APN)")
	f.Float64("lat", 0, "parcel latitude (with --lng, instead of an APN)")
	f.String("address", "", "street address to geocode (instead of an APN)")
	f.Float64("mw", 0, "target load in MW (default from config)")
	f.String("persona", "", "development persona: HYPERSCALE, EDGE_COMPUTE, or ENTERPRISE")
	f.String("format", "json", "output format: json or yaml")
	f.Bool("no-cache", false, "bypass the snapshot cache")

	rootCmd.AddCommand(scoreCmd)
}

// scoreResult is the score command's output document.
type scoreResult struct {
	Parcel         model.ParcelIdentity          `json:"parcel" yaml:"parcel"`
	DCScore        model.DCScoreResult           `json:"dc_score" yaml:"dc_score"`
	SiteScore      *model.SiteScore              `json:"site_score,omitempty" yaml:"site_score,omitempty"`
	Infrastructure *model.InfrastructureSnapshot `json:"infrastructure" yaml:"infrastructure"`
}

func runScore(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.Validate("score"); err != nil {
		return err
	}

	mw, _ := cmd.Flags().GetFloat64("mw")
	if mw <= 0 {
		mw = cfg.Scout.MWTarget
	}

	personaFlag, _ := cmd.Flags().GetString("persona")
	persona := model.Persona(strings.ToUpper(personaFlag))
	if personaFlag != "" && !persona.Valid() {
		return eris.Errorf("score: unknown persona %q", personaFlag)
	}

	e, err := initSources(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	parcel, err := resolveParcel(cmd, args, e)
	if err != nil {
		return err
	}
	if parcel.Centroid == nil {
		return eris.Errorf("score: parcel %s has no centroid", parcel.APN)
	}

	snap, err := buildSnapshot(ctx, cmd, e, parcel, mw)
	if err != nil {
		return err
	}

	res := scoring.ComputeDCScore(snap, mw)
	scoring.AttachEstimates(&res, parcel.Acres)

	out := scoreResult{Parcel: *parcel, DCScore: res, Infrastructure: snap}
	if personaFlag != "" {
		ss := scoring.CalculateSiteScore(*parcel, snap, persona)
		out.SiteScore = &ss
	}

	return writeDocument(cmd, out)
}

// resolveParcel finds the parcel by APN, geocodes --address, or synthesizes
// one from --lng/--lat.
func resolveParcel(cmd *cobra.Command, args []string, e *env) (*model.ParcelIdentity, error) {
	if len(args) == 1 {
		return e.Parcels.ParcelByAPN(cmd.Context(), args[0])
	}

	if address, _ := cmd.Flags().GetString("address"); address != "" {
		res, err := geocode.NewClient().Geocode(cmd.Context(), address)
		if err != nil {
			return nil, err
		}
		zap.L().Info("geocoded address",
			zap.String("matched", res.MatchedAddress),
			zap.Float64("lng", res.Point.Lng),
			zap.Float64("lat", res.Point.Lat))
		return &model.ParcelIdentity{APN: "ad-hoc", Address: res.MatchedAddress, Centroid: &res.Point}, nil
	}

	lng, _ := cmd.Flags().GetFloat64("lng")
	lat, _ := cmd.Flags().GetFloat64("lat")
	p := geomath.Point{Lng: lng, Lat: lat}
	if (lng == 0 && lat == 0) || !p.Valid() {
		return nil, eris.New("score: provide an APN, --address, or both --lng and --lat")
	}
	return &model.ParcelIdentity{APN: "ad-hoc", Centroid: &p}, nil
}

// buildSnapshot consults the snapshot cache for APN-identified parcels and
// falls back to a fresh build. Cache failures are logged, never fatal.
func buildSnapshot(ctx context.Context, cmd *cobra.Command, e *env, parcel *model.ParcelIdentity, mw float64) (*model.InfrastructureSnapshot, error) {
	noCache, _ := cmd.Flags().GetBool("no-cache")
	cacheable := !noCache && parcel.APN != "" && parcel.APN != "ad-hoc"

	var st *store.SQLiteStore
	if cacheable {
		st = openStoreSoft(ctx)
		if st != nil {
			defer st.Close()
			if snap, err := st.GetCachedSnapshot(ctx, parcel.APN); err != nil {
				zap.L().Warn("snapshot cache read failed", zap.Error(err))
			} else if snap != nil {
				zap.L().Debug("snapshot cache hit", zap.String("apn", parcel.APN))
				return snap, nil
			}
		}
	}

	snap, err := e.Builder.Build(ctx, *parcel.Centroid, mw)
	if err != nil {
		return nil, err
	}

	if cacheable && st != nil {
		if err := st.SetCachedSnapshot(ctx, parcel.APN, snap, snapshotTTL()); err != nil {
			zap.L().Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	return snap, nil
}

func writeDocument(cmd *cobra.Command, doc any) error {
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return eris.Wrap(err, "score: marshal yaml")
		}
		_, err = os.Stdout.Write(data)
		return err
	case "json", "":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	default:
		return eris.Errorf("unknown format %q", format)
	}
}
