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
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	BLS    BLSConfig    `yaml:"bls" mapstructure:"bls"`
	GSA    GSAConfig    `yaml:"gsa" mapstructure:"gsa"`
	Salary SalaryConfig `yaml:"salary" mapstructure:"salary"`
	Notion NotionConfig `yaml:"notion" mapstructure:"notion"`
	Grants GrantsConfig `yaml:"grants" mapstructure:"grants"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// BLSConfig holds Bureau of Labor Statistics API settings.
type BLSConfig struct {
	Key      string `yaml:"key" mapstructure:"key"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	DataYear int    `yaml:"data_year" mapstructure:"data_year"`
}

// GSAConfig holds GSA per-diem API settings.
type GSAConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SalaryConfig configures salary validation.
type SalaryConfig struct {
	DefaultArea string `yaml:"default_area" mapstructure:"default_area"`
}

// NotionConfig holds Notion API credentials and the tracker database ID.
type NotionConfig struct {
	Token     string `yaml:"token" mapstructure:"token"`
	TrackerDB string `yaml:"tracker_db" mapstructure:"tracker_db"`
}

// GrantsConfig locates the local grant directories.
type GrantsConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
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
	v.SetEnvPrefix("GRANTKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "grantkit.db")
	v.SetDefault("bls.base_url", "https://api.bls.gov/publicAPI/v2/timeseries/data/")
	v.SetDefault("bls.data_year", 2023)
	v.SetDefault("gsa.base_url", "https://api.gsa.gov/travel/perdiem/v2")
	v.SetDefault("salary.default_area", "national")
	v.SetDefault("grants.dir", "grants")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
