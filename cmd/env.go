package main

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sitescout/internal/geostore"
	"github.com/sells-group/sitescout/internal/scout"
	"github.com/sells-group/sitescout/internal/snapshot"
	"github.com/sells-group/sitescout/internal/store"
	"github.com/sells-group/sitescout/pkg/anthropic"
	"github.com/sells-group/sitescout/pkg/arcgis"
	"github.com/sells-group/sitescout/pkg/fcc"
	"github.com/sells-group/sitescout/pkg/fema"
	"github.com/sells-group/sitescout/pkg/hifld"
)

// env bundles the wired geodata sources for a command invocation.
type env struct {
	Parcels     snapshot.ParcelSource
	Substations snapshot.SubstationSource
	Builder     *snapshot.Builder
	Flood       snapshot.FloodSource

	pool *pgxpool.Pool
}

// Close releases the PostGIS pool if one was opened.
func (e *env) Close() {
	if e.pool != nil {
		e.pool.Close()
	}
}

// geoPool creates a pgxpool.Pool against the PostGIS geostore.
func geoPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Geostore.DatabaseURL == "" {
		return nil, eris.New("geostore: no database_url configured (set geostore.database_url)")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Geostore.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: parse database_url")
	}
	if cfg.Geostore.MaxConns > 0 {
		poolCfg.MaxConns = cfg.Geostore.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "geostore: create connection pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "geostore: ping")
	}

	return pool, nil
}

// initSources wires parcel, power, flood, and fiber sources. A configured
// PostGIS geostore serves parcels and power locally; otherwise the live
// county ArcGIS layer and HIFLD feeds are used.
func initSources(ctx context.Context) (*env, error) {
	e := &env{
		Flood: fema.NewClient(
			fema.WithRateLimit(cfg.FEMA.RateLimit),
			femaLayerOption(),
		),
	}

	fiber := fcc.NewClient(
		fcc.WithRateLimit(cfg.FCC.RateLimit),
		fccBaseOption(),
	)

	if cfg.Geostore.DatabaseURL != "" {
		pool, err := geoPool(ctx)
		if err != nil {
			return nil, err
		}
		gs := geostore.NewStore(pool)
		e.pool = pool
		e.Parcels = gs
		e.Substations = gs
		e.Builder = snapshot.NewBuilder(gs,
			snapshot.WithTransmission(gs),
			snapshot.WithFlood(e.Flood),
			snapshot.WithFiber(fiber),
		)
		zap.L().Debug("using postgis geostore for parcels and power")
		return e, nil
	}

	if cfg.ArcGIS.ParcelLayerURL == "" {
		return nil, eris.New("no parcel source configured (set arcgis.parcel_layer_url or geostore.database_url)")
	}

	power := hifld.NewClient(hifldOptions()...)
	e.Parcels = arcgis.NewClient(cfg.ArcGIS.ParcelLayerURL, arcgisOptions()...)
	e.Substations = power
	e.Builder = snapshot.NewBuilder(power,
		snapshot.WithTransmission(power),
		snapshot.WithFlood(e.Flood),
		snapshot.WithFiber(fiber),
	)
	return e, nil
}

func arcgisOptions() []arcgis.Option {
	opts := []arcgis.Option{
		arcgis.WithRateLimit(cfg.ArcGIS.RateLimit),
		arcgis.WithMaxRecords(cfg.ArcGIS.MaxRecords),
	}
	if cfg.ArcGIS.APNField != "" {
		opts = append(opts, arcgis.WithFieldMap(arcgis.FieldMap{
			APN:     cfg.ArcGIS.APNField,
			Address: cfg.ArcGIS.AddressField,
			Acres:   cfg.ArcGIS.AcresField,
			Zoning:  cfg.ArcGIS.ZoningField,
		}))
	}
	return opts
}

func hifldOptions() []hifld.Option {
	opts := []hifld.Option{
		hifld.WithRateLimit(cfg.HIFLD.RateLimit),
	}
	if cfg.HIFLD.SubstationsURL != "" {
		opts = append(opts, hifld.WithSubstationsURL(cfg.HIFLD.SubstationsURL))
	}
	if cfg.HIFLD.TransmissionURL != "" {
		opts = append(opts, hifld.WithTransmissionURL(cfg.HIFLD.TransmissionURL))
	}
	return opts
}

func femaLayerOption() fema.Option {
	if cfg.FEMA.LayerURL != "" {
		return fema.WithLayerURL(cfg.FEMA.LayerURL)
	}
	return func(*fema.Client) {}
}

func fccBaseOption() fcc.Option {
	if cfg.FCC.BaseURL != "" {
		return fcc.WithBaseURL(cfg.FCC.BaseURL)
	}
	return func(*fcc.Client) {}
}

// initStore opens the local run/cache database and applies migrations.
func initStore(ctx context.Context) (*store.SQLiteStore, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// openStoreSoft opens the run store, returning nil on failure. Call sites
// that can work without persistence use this instead of initStore.
func openStoreSoft(ctx context.Context) *store.SQLiteStore {
	st, err := initStore(ctx)
	if err != nil {
		zap.L().Warn("run store unavailable", zap.Error(err))
		return nil
	}
	return st
}

// snapshotTTL returns the configured snapshot cache lifetime.
func snapshotTTL() time.Duration {
	hours := cfg.Store.SnapshotTTLHours
	if hours <= 0 {
		hours = 24
	}
	return time.Duration(hours) * time.Hour
}

// newPipeline wires a scout pipeline over the env's sources. Claude is
// attached only when a key is configured; area search works without it.
func newPipeline(e *env) *scout.Pipeline {
	opts := []scout.Option{
		scout.WithFloodSource(e.Flood),
	}
	if len(cfg.Scout.ZoningPrefixes) > 0 {
		opts = append(opts, scout.WithZoningPrefixes(cfg.Scout.ZoningPrefixes))
	}
	if cfg.Scout.EnrichTimeoutSecs > 0 {
		opts = append(opts, scout.WithEnrichTimeout(time.Duration(cfg.Scout.EnrichTimeoutSecs)*time.Second))
	}
	if cfg.Anthropic.Key != "" {
		opts = append(opts, scout.WithClaude(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.SonnetModel))
	}
	return scout.NewPipeline(e.Parcels, e.Substations, e.Builder, opts...)
}
