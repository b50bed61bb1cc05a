package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. AGENDASH_LISTEN.
const EnvPrefix = "AGENDASH"

// Source kinds.
const (
	SourceNone     = "none"
	SourcePostgres = "postgres"
	SourceICS      = "ics"
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for event ids and logging.
	ID string `yaml:"id" json:"id"`
	// Category is applied to VEVENTs whose category cannot be inferred.
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
}

// SourceConfig selects and configures the remote event source.
type SourceConfig struct {
	// Kind is one of "postgres", "ics" or "none".
	Kind string `yaml:"kind" json:"kind"`
	// DatabaseURL is the Postgres connection string.
	DatabaseURL string `yaml:"database_url,omitempty" json:"-"`
	// Table holds the institutional events, optionally schema-qualified.
	Table string `yaml:"table" json:"table"`
	// ICS lists feeds used when Kind is "ics".
	ICS []ICSConfig `yaml:"ics" json:"ics"`
	// CacheDir stores fetched feed bodies and validators.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
	// HorizonDays bounds recurrence expansion for ICS feeds.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`
}

// StoreConfig locates the personal task slot.
type StoreConfig struct {
	Dir string `yaml:"dir" json:"dir"`
	Key string `yaml:"key" json:"key"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the dashboard and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA zone that defines "today" and task creation dates.
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart is the first day of the Weekly view window. Supported values:
	//   - "sunday" (default)
	//   - "monday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for periodic remote refresh. Empty means one fetch at start only.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// MonthTabs are the months offered by the Monthly view, in order.
	MonthTabs []string `yaml:"month_tabs" json:"month_tabs"`

	Store  StoreConfig  `yaml:"store" json:"store"`
	Source SourceConfig `yaml:"source" json:"source"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled"`
	LogLevel       string `yaml:"log_level" json:"log_level"`
	LogJSON        bool   `yaml:"log_json" json:"log_json"`
}

var defaultMonthTabs = []string{"January", "February", "March", "April", "May"}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "Asia/Kolkata",
		WeekStart:   "sunday",
		RefreshCron: "",
		MonthTabs:   append([]string(nil), defaultMonthTabs...),
		Store: StoreConfig{
			Dir: "./var/store",
			Key: "personal_events",
		},
		Source: SourceConfig{
			Kind:        SourceNone,
			Table:       "events",
			ICS:         []ICSConfig{},
			CacheDir:    "./var/ics-cache",
			HorizonDays: 180,
		},
		MetricsEnabled: true,
		LogLevel:       "info",
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	d := DefaultConfig()

	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.Timezone == "" {
		c.Timezone = d.Timezone
	}
	c.WeekStart = strings.ToLower(strings.TrimSpace(c.WeekStart))
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		c.WeekStart = d.WeekStart
	}
	// An empty refresh schedule leaves the scheduler off.
	c.RefreshCron = strings.TrimSpace(c.RefreshCron)
	if len(c.MonthTabs) == 0 {
		c.MonthTabs = d.MonthTabs
	}

	if c.Store.Dir == "" {
		c.Store.Dir = d.Store.Dir
	}
	if c.Store.Key == "" {
		c.Store.Key = d.Store.Key
	}

	c.Source.Kind = strings.ToLower(strings.TrimSpace(c.Source.Kind))
	switch c.Source.Kind {
	case SourcePostgres, SourceICS, SourceNone:
	default:
		c.Source.Kind = SourceNone
	}
	if c.Source.Table == "" {
		c.Source.Table = d.Source.Table
	}
	if c.Source.ICS == nil {
		c.Source.ICS = []ICSConfig{}
	}
	if c.Source.CacheDir == "" {
		c.Source.CacheDir = d.Source.CacheDir
	}
	if c.Source.HorizonDays <= 0 {
		c.Source.HorizonDays = d.Source.HorizonDays
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
}

// Location resolves Timezone, falling back to UTC when the zone is unknown.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FirstWeekday maps WeekStart to a time.Weekday.
func (c *Config) FirstWeekday() time.Weekday {
	if c.WeekStart == "monday" {
		return time.Monday
	}
	return time.Sunday
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is decoded and normalized.
//
// Environment overrides (AGENDASH_*) are applied last and never persisted.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			ApplyEnv(cfg)
			cfg.Normalize()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	ApplyEnv(&cfg)
	cfg.Normalize()

	return &cfg, nil
}

// ApplyEnv overrides scalar settings from AGENDASH_* environment variables.
func ApplyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)

	str := func(key string, dst *string) {
		_ = v.BindEnv(key)
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}

	str("listen", &cfg.Listen)
	str("timezone", &cfg.Timezone)
	str("week_start", &cfg.WeekStart)
	str("refresh", &cfg.RefreshCron)
	str("log_level", &cfg.LogLevel)
	str("store_dir", &cfg.Store.Dir)
	str("store_key", &cfg.Store.Key)
	str("source_kind", &cfg.Source.Kind)
	str("database_url", &cfg.Source.DatabaseURL)
	str("source_table", &cfg.Source.Table)

	_ = v.BindEnv("month_tabs")
	if s := v.GetString("month_tabs"); s != "" {
		var tabs []string
		for _, t := range strings.Split(s, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tabs = append(tabs, t)
			}
		}
		cfg.MonthTabs = tabs
	}

	_ = v.BindEnv("metrics_enabled")
	if s := v.GetString("metrics_enabled"); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			cfg.MetricsEnabled = b
		}
	}
}

// Save writes the given configuration to the specified path atomically via a
// temp file + rename, with final permissions 0600.
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

	tmp, err := os.CreateTemp(dir, ".agendash-config-*.tmp")
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
