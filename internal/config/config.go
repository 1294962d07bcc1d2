package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Geostore  GeostoreConfig  `yaml:"geostore" mapstructure:"geostore"`
	ArcGIS    ArcGISConfig    `yaml:"arcgis" mapstructure:"arcgis"`
	HIFLD     HIFLDConfig     `yaml:"hifld" mapstructure:"hifld"`
	FEMA      FEMAConfig      `yaml:"fema" mapstructure:"fema"`
	FCC       FCCConfig       `yaml:"fcc" mapstructure:"fcc"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Scout     ScoutConfig     `yaml:"scout" mapstructure:"scout"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local run/cache database.
type StoreConfig struct {
	Path             string `yaml:"path" mapstructure:"path"`
	SnapshotTTLHours int    `yaml:"snapshot_ttl_hours" mapstructure:"snapshot_ttl_hours"`
}

// GeostoreConfig configures the PostGIS spatial database.
type GeostoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// ArcGISConfig configures the county parcel FeatureServer.
type ArcGISConfig struct {
	ParcelLayerURL string  `yaml:"parcel_layer_url" mapstructure:"parcel_layer_url"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxRecords     int     `yaml:"max_records" mapstructure:"max_records"`
	APNField       string  `yaml:"apn_field" mapstructure:"apn_field"`
	AddressField   string  `yaml:"address_field" mapstructure:"address_field"`
	AcresField     string  `yaml:"acres_field" mapstructure:"acres_field"`
	ZoningField    string  `yaml:"zoning_field" mapstructure:"zoning_field"`
}

// HIFLDConfig configures the HIFLD infrastructure layers.
type HIFLDConfig struct {
	SubstationsURL  string  `yaml:"substations_url" mapstructure:"substations_url"`
	TransmissionURL string  `yaml:"transmission_url" mapstructure:"transmission_url"`
	RateLimit       float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FEMAConfig configures the NFHL flood layer.
type FEMAConfig struct {
	LayerURL  string  `yaml:"layer_url" mapstructure:"layer_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FCCConfig configures the National Broadband Map lookup.
type FCCConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	SonnetModel string `yaml:"sonnet_model" mapstructure:"sonnet_model"`
	HaikuModel  string `yaml:"haiku_model" mapstructure:"haiku_model"`
}

// ScoutConfig configures the candidate discovery pipeline.
type ScoutConfig struct {
	TopN              int      `yaml:"top_n" mapstructure:"top_n"`
	MWTarget          float64  `yaml:"mw_target" mapstructure:"mw_target"`
	MinAcres          float64  `yaml:"min_acres" mapstructure:"min_acres"`
	EnrichTimeoutSecs int      `yaml:"enrich_timeout_secs" mapstructure:"enrich_timeout_secs"`
	ZoningPrefixes    []string `yaml:"zoning_prefixes" mapstructure:"zoning_prefixes"`
	MaxSubMarkets     int      `yaml:"max_sub_markets" mapstructure:"max_sub_markets"`
}

// ServerConfig configures the SSE server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SITESCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "sitescout.db")
	v.SetDefault("store.snapshot_ttl_hours", 24)
	v.SetDefault("geostore.max_conns", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("arcgis.rate_limit", 4)
	v.SetDefault("arcgis.max_records", 200)
	v.SetDefault("hifld.rate_limit", 4)
	v.SetDefault("fema.rate_limit", 2)
	v.SetDefault("fcc.rate_limit", 2)
	v.SetDefault("anthropic.sonnet_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.haiku_model", "claude-haiku-4-5-20251001")
	v.SetDefault("scout.top_n", 5)
	v.SetDefault("scout.mw_target", 100)
	v.SetDefault("scout.min_acres", 20)
	v.SetDefault("scout.enrich_timeout_secs", 45)
	v.SetDefault("scout.zoning_prefixes", []string{"M", "I", "C", "LI", "HI", "PD"})
	v.SetDefault("scout.max_sub_markets", 5)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration required for the given command mode
// is present. Errors accumulate so the user sees everything at once.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "score", "scout":
		if c.ArcGIS.ParcelLayerURL == "" && c.Geostore.DatabaseURL == "" {
			problems = append(problems, "arcgis.parcel_layer_url or geostore.database_url is required")
		}
	case "discover":
		if c.Anthropic.Key == "" {
			problems = append(problems, "anthropic.key is required")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "loadshp":
		if c.Geostore.DatabaseURL == "" {
			problems = append(problems, "geostore.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Scout.TopN < 1 || c.Scout.TopN > 20 {
		problems = append(problems, "scout.top_n must be between 1 and 20")
	}
	if c.Scout.MWTarget <= 0 {
		problems = append(problems, "scout.mw_target must be > 0")
	}
	if c.Scout.MinAcres < 0 {
		problems = append(problems, "scout.min_acres must be >= 0")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
