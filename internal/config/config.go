// Package config loads shelfimport settings from flags, environment and an optional config file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/lehigh-university-libraries/shelfimport/internal/reconcile"
)

// EnvPrefix prefixes every environment variable, e.g. SHELFIMPORT_DB.
const EnvPrefix = "SHELFIMPORT"

// Keys understood by Load.
const (
	KeyDB               = "db"
	KeyThreshold        = "threshold"
	KeyScorer           = "scorer"
	KeyStoreTimeout     = "store_timeout"
	KeyWriteConcurrency = "write_concurrency"
	KeyPort             = "port"
)

// Config holds the resolved settings.
type Config struct {
	DBPath           string
	Threshold        float64
	Scorer           string
	StoreTimeout     time.Duration
	WriteConcurrency int
	Port             string
}

// Init prepares v: defaults, env binding and the optional config file.
// A .env file in the working directory is loaded first if present.
func Init(v *viper.Viper, configFile string) error {
	// Load .env file if present (ignore errors)
	_ = godotenv.Load()

	v.SetDefault(KeyDB, "")
	v.SetDefault(KeyThreshold, reconcile.DefaultThreshold)
	v.SetDefault(KeyScorer, "token")
	v.SetDefault(KeyStoreTimeout, reconcile.DefaultStoreTimeout)
	v.SetDefault(KeyWriteConcurrency, reconcile.DefaultWriteConcurrency)
	v.SetDefault(KeyPort, "8888")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile == "" {
		return nil
	}
	v.SetConfigFile(ExpandPath(configFile))
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// Load resolves a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DBPath:           ExpandPath(v.GetString(KeyDB)),
		Threshold:        v.GetFloat64(KeyThreshold),
		Scorer:           v.GetString(KeyScorer),
		StoreTimeout:     v.GetDuration(KeyStoreTimeout),
		WriteConcurrency: v.GetInt(KeyWriteConcurrency),
		Port:             v.GetString(KeyPort),
	}

	if cfg.Threshold <= 0 || cfg.Threshold > 1 {
		return nil, fmt.Errorf("threshold must be in (0, 1], got %v", cfg.Threshold)
	}
	if _, err := reconcile.ScorerByName(cfg.Scorer); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout <= 0 {
		return nil, fmt.Errorf("store timeout must be positive, got %s", cfg.StoreTimeout)
	}
	if cfg.WriteConcurrency <= 0 {
		return nil, fmt.Errorf("write concurrency must be positive, got %d", cfg.WriteConcurrency)
	}

	return cfg, nil
}

// ExpandPath expands a leading ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return os.ExpandEnv(path)
}
