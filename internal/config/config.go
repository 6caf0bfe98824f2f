package config

import (
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Realtor RealtorConfig `yaml:"realtor" mapstructure:"realtor"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// RealtorConfig holds the listing search endpoint settings.
type RealtorConfig struct {
	SearchURL     string `yaml:"search_url" mapstructure:"search_url"`
	Referer       string `yaml:"referer" mapstructure:"referer"`
	SitePrefix    string `yaml:"site_prefix" mapstructure:"site_prefix"`
	UserAgent     string `yaml:"user_agent" mapstructure:"user_agent"`
	PageSize      int    `yaml:"page_size" mapstructure:"page_size"`
	ProbePageSize int    `yaml:"probe_page_size" mapstructure:"probe_page_size"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// OutputConfig controls which files a harvest writes.
type OutputConfig struct {
	GeoJSON bool `yaml:"geojson" mapstructure:"geojson"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Validate checks values that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Realtor.SearchURL); err != nil {
		return eris.Wrapf(err, "config: invalid realtor.search_url %q", c.Realtor.SearchURL)
	}
	if c.Realtor.PageSize <= 0 {
		return eris.Errorf("config: realtor.page_size must be positive, got %d", c.Realtor.PageSize)
	}
	if c.Realtor.ProbePageSize <= 0 {
		return eris.Errorf("config: realtor.probe_page_size must be positive, got %d", c.Realtor.ProbePageSize)
	}
	if c.Realtor.TimeoutSecs <= 0 {
		return eris.Errorf("config: realtor.timeout_secs must be positive, got %d", c.Realtor.TimeoutSecs)
	}
	return nil
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("realtor.search_url", "https://api2.realtor.ca/Listing.svc/PropertySearch_Post")
	v.SetDefault("realtor.referer", "https://www.realtor.ca/")
	v.SetDefault("realtor.site_prefix", "https://www.realtor.ca")
	v.SetDefault("realtor.user_agent", "listing-cli/1.0")
	v.SetDefault("realtor.page_size", 200)
	v.SetDefault("realtor.probe_page_size", 12)
	v.SetDefault("realtor.timeout_secs", 60)
	v.SetDefault("output.geojson", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// InitLogger installs the global zap logger. Format "console" selects the
// development encoder; "json" or empty selects production JSON.
func InitLogger(cfg LogConfig) error {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	case "json", "":
		zapCfg = zap.NewProductionConfig()
	default:
		return eris.Errorf("config: unknown log format %q", cfg.Format)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapCfg.Build(zap.Fields(zap.String("app", "listing-cli")))
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
