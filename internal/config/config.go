// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/banktcg/gradesync/internal/pricing"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Aggregate AggregateConfig `mapstructure:"aggregate"`
	Lookup    LookupConfig    `mapstructure:"lookup"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxConns     int32  `mapstructure:"max_conns"`
	MinConns     int32  `mapstructure:"min_conns"`
	ConnLifeMins int    `mapstructure:"conn_lifetime_minutes"`
}

// SyncConfig governs the batch cycle.
type SyncConfig struct {
	BatchSize    int     `mapstructure:"batch_size"`
	DelaySeconds float64 `mapstructure:"delay_seconds"`
	MaxItems     int     `mapstructure:"max_items"`
	MinPrice     float64 `mapstructure:"min_price"`
	Grades       []int   `mapstructure:"grades"`
}

// AggregateConfig governs the windowed estimation pass.
type AggregateConfig struct {
	WindowDays   int `mapstructure:"window_days"`
	RecentSample int `mapstructure:"recent_sample"`
}

// LookupConfig configures the external price-reference client.
type LookupConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ArchiveConfig configures raw page archiving.
type ArchiveConfig struct {
	Provider string `mapstructure:"provider"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// NotifyConfig holds metadata for publish-subscribe notifications.
type NotifyConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the on-demand HTTP surface.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GRADESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sync.batch_size", 50)
	v.SetDefault("sync.delay_seconds", 2.0)
	v.SetDefault("sync.max_items", 0)
	v.SetDefault("sync.min_price", 15)
	v.SetDefault("sync.grades", pricing.DefaultTrackedGrades)
	v.SetDefault("aggregate.window_days", 14)
	v.SetDefault("aggregate.recent_sample", 3)
	v.SetDefault("lookup.base_url", "https://www.pricecharting.com")
	v.SetDefault("lookup.user_agent", "gradesync/1.0 (+https://github.com/banktcg/gradesync)")
	v.SetDefault("lookup.timeout_seconds", 30)
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "pages")
	v.SetDefault("notify.provider", "noop")
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Sync.BatchSize <= 0 {
		return fmt.Errorf("sync.batch_size must be > 0")
	}
	if c.Sync.DelaySeconds < 0 {
		return fmt.Errorf("sync.delay_seconds must be >= 0")
	}
	for _, g := range c.Sync.Grades {
		if g < pricing.GradeMin || g > pricing.GradeMax {
			return fmt.Errorf("sync.grades entry %d outside %d..%d", g, pricing.GradeMin, pricing.GradeMax)
		}
	}
	if c.Aggregate.WindowDays <= 0 {
		return fmt.Errorf("aggregate.window_days must be > 0")
	}
	if c.Aggregate.RecentSample <= 0 {
		return fmt.Errorf("aggregate.recent_sample must be > 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Archive.Provider == "gcs" && c.Archive.Bucket == "" {
		return fmt.Errorf("archive.bucket must be set when archive.provider is gcs")
	}
	if c.Notify.Provider == "pubsub" && (c.Notify.ProjectID == "" || c.Notify.Topic == "") {
		return fmt.Errorf("notify.project_id and notify.topic must be set when notify.provider is pubsub")
	}
	return nil
}

// Delay converts the configured pause between external calls to a Duration.
func (c SyncConfig) Delay() time.Duration {
	return time.Duration(c.DelaySeconds * float64(time.Second))
}

// Timeout converts the lookup timeout to a Duration.
func (c LookupConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ConnLifetime converts the pool lifetime knob to a Duration.
func (c DBConfig) ConnLifetime() time.Duration {
	return time.Duration(c.ConnLifeMins) * time.Minute
}
