// Package config loads service settings from an optional YAML or TOML file
// and overlays environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the API server and CLI.
type Config struct {
	Port        string `yaml:"port" toml:"port"`
	DatabaseURL string `yaml:"databaseUrl" toml:"database_url"`
	DBMigrate   bool   `yaml:"dbMigrate" toml:"db_migrate"`
	// MigrationsDir is read when DBMigrate is set.
	MigrationsDir string `yaml:"migrationsDir" toml:"migrations_dir"`
	RedisURL      string `yaml:"redisUrl" toml:"redis_url"`
	LogLevel      string `yaml:"logLevel" toml:"log_level"`

	RateRPS   float64 `yaml:"rateRps" toml:"rate_rps"`
	RateBurst int     `yaml:"rateBurst" toml:"rate_burst"`

	CacheTTL  Duration  `yaml:"cacheTtl" toml:"cache_ttl"`
	Optimizer Optimizer `yaml:"optimizer" toml:"optimizer"`
	Export    Export    `yaml:"export" toml:"export"`
}

// Optimizer holds request defaults and limits. TimeBudgetMs applies when a
// request names no budget; 0 searches to a local optimum.
type Optimizer struct {
	Algorithm       string `yaml:"algorithm" toml:"algorithm"`
	TimeBudgetMs    int    `yaml:"timeBudgetMs" toml:"time_budget_ms"`
	MaxTimeBudgetMs int    `yaml:"maxTimeBudgetMs" toml:"max_time_budget_ms"`
	Restarts        int    `yaml:"restarts" toml:"restarts"`
	MaxRestarts     int    `yaml:"maxRestarts" toml:"max_restarts"`
	MaxStops        int    `yaml:"maxStops" toml:"max_stops"`
	ExactThreshold  int    `yaml:"exactThreshold" toml:"exact_threshold"`
	Parallelism     int    `yaml:"parallelism" toml:"parallelism"`
}

// Export configures the report webhook.
type Export struct {
	WebhookURL    string   `yaml:"webhookUrl" toml:"webhook_url"`
	WebhookSecret string   `yaml:"webhookSecret" toml:"webhook_secret"`
	MaxAttempts   int      `yaml:"maxAttempts" toml:"max_attempts"`
	Timeout       Duration `yaml:"timeout" toml:"timeout"`
}

// Duration is a time.Duration written as "1500ms" or "2m" in config files.
type Duration time.Duration

func (d *Duration) set(s string) error {
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalYAML(n *yaml.Node) error { return d.set(n.Value) }

func (d *Duration) UnmarshalText(b []byte) error { return d.set(string(b)) }

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Port:          "8080",
		DBMigrate:     true,
		MigrationsDir: "db/migrations",
		LogLevel:      "info",
		RateRPS:       10,
		RateBurst:     20,
		CacheTTL:      Duration(time.Hour),
		Optimizer: Optimizer{
			Algorithm:       "auto",
			TimeBudgetMs:    0,
			MaxTimeBudgetMs: 30000,
			Restarts:        4,
			MaxRestarts:     64,
			MaxStops:        500,
			ExactThreshold:  12,
		},
		Export: Export{
			MaxAttempts: 10,
			Timeout:     Duration(5 * time.Second),
		},
	}
}

// Load reads path (if not empty) over the defaults, then applies the
// environment. The file format follows the extension: .yaml, .yml or .toml.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return fmt.Errorf("config: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays the variables the service has always honoured.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("DATABASE_URL", &c.DatabaseURL)
	str("REDIS_URL", &c.RedisURL)
	str("LOG_LEVEL", &c.LogLevel)
	str("MIGRATIONS_DIR", &c.MigrationsDir)
	str("EXPORT_WEBHOOK_URL", &c.Export.WebhookURL)
	str("EXPORT_WEBHOOK_SECRET", &c.Export.WebhookSecret)
	str("OPTIMIZER_ALGORITHM", &c.Optimizer.Algorithm)

	if v, ok := lookup("DB_MIGRATE"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: DB_MIGRATE: %w", err)
		}
		c.DBMigrate = b
	}
	if v, ok := lookup("RATE_RPS"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("config: RATE_RPS: %w", err)
		}
		c.RateRPS = f
	}
	if v, ok := lookup("CACHE_TTL"); ok && v != "" {
		if err := c.CacheTTL.set(v); err != nil {
			return fmt.Errorf("config: CACHE_TTL: %w", err)
		}
	}
	for key, dst := range map[string]*int{
		"RATE_BURST":            &c.RateBurst,
		"WEBHOOK_MAX_ATTEMPTS":  &c.Export.MaxAttempts,
		"OPTIMIZER_MAX_STOPS":   &c.Optimizer.MaxStops,
		"OPTIMIZER_RESTARTS":    &c.Optimizer.Restarts,
		"OPTIMIZER_PARALLELISM": &c.Optimizer.Parallelism,
		"OPTIMIZER_TIME_BUDGET": &c.Optimizer.TimeBudgetMs,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects settings the server cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Port == "":
		return fmt.Errorf("config: port is empty")
	case c.RateRPS < 0 || c.RateBurst < 0:
		return fmt.Errorf("config: rate limits must not be negative")
	case c.Optimizer.MaxStops < 2:
		return fmt.Errorf("config: optimizer.maxStops must be at least 2")
	case c.Optimizer.Restarts < 0 || c.Optimizer.MaxRestarts < 1:
		return fmt.Errorf("config: optimizer restarts out of range")
	case c.Optimizer.TimeBudgetMs < 0 || c.Optimizer.MaxTimeBudgetMs < 0:
		return fmt.Errorf("config: optimizer time budgets must not be negative")
	case c.Export.MaxAttempts < 1:
		return fmt.Errorf("config: export.maxAttempts must be at least 1")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
