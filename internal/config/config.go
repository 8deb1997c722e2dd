// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Extract  ExtractConfig  `mapstructure:"extract"`
	Renderer RendererConfig `mapstructure:"renderer"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                  int      `mapstructure:"port"`
	AllowedOrigins        []string `mapstructure:"allowed_origins"`
	RequireReferrer       bool     `mapstructure:"require_referrer"`
	RequestTimeoutSeconds int      `mapstructure:"request_timeout_seconds"`
}

// ExtractConfig governs the extraction pipeline.
type ExtractConfig struct {
	// MaxURLs caps how many URLs of one batch request are dispatched.
	MaxURLs int `mapstructure:"max_urls"`
	// Mode is "live" (render on /extract) or "deferred" (INIT placeholders
	// completed by background workers).
	Mode    string `mapstructure:"mode"`
	Workers int    `mapstructure:"workers"`
}

// RendererConfig configures the page rendering subsystem.
type RendererConfig struct {
	// Provider is "chromedp" or "static".
	Provider          string `mapstructure:"provider"`
	ViewportWidth     int    `mapstructure:"viewport_width"`
	ViewportHeight    int    `mapstructure:"viewport_height"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
	IdleMillis        int    `mapstructure:"idle_millis"`
	MaxTabs           int    `mapstructure:"max_tabs"`
	UserAgent         string `mapstructure:"user_agent"`
}

// StorageConfig selects and parameterizes the preview image blob store.
type StorageConfig struct {
	// Provider is "gcs" or "memory".
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
}

// DBConfig selects and parameterizes the result store.
type DBConfig struct {
	// Provider is "postgres" or "memory".
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// QueueConfig selects the pre-warm completion queue.
type QueueConfig struct {
	// Provider is "memory", "pubsub", or "none".
	Provider       string `mapstructure:"provider"`
	Depth          int    `mapstructure:"depth"`
	ProjectID      string `mapstructure:"project_id"`
	TopicID        string `mapstructure:"topic_id"`
	SubscriptionID string `mapstructure:"subscription_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("EXTRACTOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// App Engine style: a bare PORT variable overrides the listen port.
	if err := v.BindEnv("server.port", "EXTRACTOR_SERVER_PORT", "PORT"); err != nil {
		return Config{}, fmt.Errorf("bind port env: %w", err)
	}

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
	v.SetDefault("server.port", 8088)
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("server.require_referrer", false)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("extract.max_urls", 10)
	v.SetDefault("extract.mode", "live")
	v.SetDefault("extract.workers", 2)
	v.SetDefault("renderer.provider", "chromedp")
	v.SetDefault("renderer.viewport_width", 1280)
	v.SetDefault("renderer.viewport_height", 800)
	v.SetDefault("renderer.nav_timeout_seconds", 45)
	v.SetDefault("renderer.idle_millis", 500)
	v.SetDefault("renderer.max_tabs", 4)
	v.SetDefault("renderer.user_agent", "linkextract-bot/1.0")
	v.SetDefault("storage.provider", "memory")
	v.SetDefault("storage.prefix", "previews")
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.table", "extracts")
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.depth", 64)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Extract.MaxURLs <= 0 {
		return fmt.Errorf("extract.max_urls must be > 0")
	}
	if c.Extract.Mode != "live" && c.Extract.Mode != "deferred" {
		return fmt.Errorf("extract.mode must be live or deferred")
	}
	if c.Extract.Workers < 0 {
		return fmt.Errorf("extract.workers must be >= 0")
	}
	switch c.Renderer.Provider {
	case "chromedp", "static":
	default:
		return fmt.Errorf("unknown renderer provider: %s", c.Renderer.Provider)
	}
	if c.Renderer.ViewportWidth <= 0 || c.Renderer.ViewportHeight <= 0 {
		return fmt.Errorf("renderer viewport dimensions must be > 0")
	}
	if c.Storage.Provider == "gcs" && c.Storage.GCSBucket == "" {
		return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.provider is postgres")
	}
	if c.Queue.Provider == "pubsub" && (c.Queue.ProjectID == "" || c.Queue.TopicID == "") {
		return fmt.Errorf("queue.project_id and queue.topic_id must be set when queue.provider is pubsub")
	}
	return nil
}

// NavTimeout converts the renderer navigation timeout to a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Renderer.NavTimeoutSeconds) * time.Second
}

// IdleWindow converts the renderer idle window to a duration.
func (c Config) IdleWindow() time.Duration {
	return time.Duration(c.Renderer.IdleMillis) * time.Millisecond
}

// RequestTimeout converts the server request timeout to a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}
