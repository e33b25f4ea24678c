package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

// Overlap policies for programs that land on the same date.
const (
	OverlapLastWriteWins  = "last_write_wins"
	OverlapFirstWriteWins = "first_write_wins"
)

// Config is the top-level application configuration.
//
// Values come from the YAML file first; PROGCAL_* environment variables
// override individual keys afterwards.
type Config struct {
	// Listen is the HTTP listen address for the API and calendar view.
	Listen string `yaml:"listen" json:"listen" env:"PROGCAL_LISTEN"`

	// Timezone is the single fixed zone all program times are interpreted in.
	Timezone string `yaml:"timezone" json:"timezone" env:"PROGCAL_TIMEZONE"`

	LogLevel  string `yaml:"log_level" json:"log_level" env:"PROGCAL_LOG_LEVEL"`
	LogFormat string `yaml:"log_format" json:"log_format" env:"PROGCAL_LOG_FORMAT"`

	// CatalogPath points at a YAML/JSON program list. Empty means the
	// catalog embedded in the binary.
	CatalogPath string `yaml:"catalog_path" json:"catalog_path" env:"PROGCAL_CATALOG_PATH"`

	// CatalogURL, if set, takes precedence over CatalogPath. The body is
	// cached under CatalogCacheDir and reused when the origin is down.
	CatalogURL      string `yaml:"catalog_url" json:"catalog_url" env:"PROGCAL_CATALOG_URL"`
	CatalogCacheDir string `yaml:"catalog_cache_dir" json:"catalog_cache_dir" env:"PROGCAL_CATALOG_CACHE_DIR"`

	// RegistrationURL is the upstream endpoint registrations are POSTed to.
	RegistrationURL      string `yaml:"registration_url" json:"registration_url" env:"PROGCAL_REGISTRATION_URL"`
	SubmitTimeoutSeconds int    `yaml:"submit_timeout_seconds" json:"submit_timeout_seconds" env:"PROGCAL_SUBMIT_TIMEOUT_SECONDS"`

	// ProductID is written to PRODID in exported ICS files.
	ProductID string `yaml:"product_id" json:"product_id" env:"PROGCAL_PRODUCT_ID"`

	// OverlapPolicy decides which program keeps a date shared by two
	// programs: "last_write_wins" (default) or "first_write_wins".
	OverlapPolicy string `yaml:"overlap_policy" json:"overlap_policy" env:"PROGCAL_OVERLAP_POLICY"`

	// ShowOverflowEvents decorates previous/next month cells with programs.
	ShowOverflowEvents bool `yaml:"show_overflow_events" json:"show_overflow_events" env:"PROGCAL_SHOW_OVERFLOW_EVENTS"`

	// CacheResetCron clears rendered month grids so "today" moves forward.
	CacheResetCron string `yaml:"cache_reset_cron" json:"cache_reset_cron" env:"PROGCAL_CACHE_RESET_CRON"`

	SessionTTLMinutes int    `yaml:"session_ttl_minutes" json:"session_ttl_minutes" env:"PROGCAL_SESSION_TTL_MINUTES"`
	SessionPruneCron  string `yaml:"session_prune_cron" json:"session_prune_cron" env:"PROGCAL_SESSION_PRUNE_CRON"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:               "127.0.0.1:8080",
		Timezone:             "America/New_York",
		LogLevel:             "info",
		LogFormat:            "console",
		CatalogCacheDir:      "./var/catalog-cache",
		SubmitTimeoutSeconds: 15,
		ProductID:            "-//Progcal//Program Calendar//EN",
		OverlapPolicy:        OverlapLastWriteWins,
		CacheResetCron:       "0 0 * * *",
		SessionTTLMinutes:    60,
		SessionPruneCron:     "*/5 * * * *",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		c.LogFormat = def.LogFormat
	}
	if c.CatalogCacheDir == "" {
		c.CatalogCacheDir = def.CatalogCacheDir
	}
	if c.SubmitTimeoutSeconds <= 0 {
		c.SubmitTimeoutSeconds = def.SubmitTimeoutSeconds
	}
	if c.ProductID == "" {
		c.ProductID = def.ProductID
	}
	switch c.OverlapPolicy {
	case OverlapLastWriteWins, OverlapFirstWriteWins:
	default:
		// Unknown value; keep the documented default.
		c.OverlapPolicy = OverlapLastWriteWins
	}
	if c.CacheResetCron == "" {
		c.CacheResetCron = def.CacheResetCron
	}
	if c.SessionTTLMinutes <= 0 {
		c.SessionTTLMinutes = def.SessionTTLMinutes
	}
	if c.SessionPruneCron == "" {
		c.SessionPruneCron = def.SessionPruneCron
	}
}

// Location resolves Timezone, falling back to time.Local.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) SubmitTimeout() time.Duration {
	return time.Duration(c.SubmitTimeoutSeconds) * time.Second
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - If the file exists, it is unmarshalled and normalized.
//   - In both cases PROGCAL_* environment variables are applied last.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, applyEnv(cfg)
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: env overrides: %w", err)
	}
	cfg.Normalize()
	return nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".progcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
