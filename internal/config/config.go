package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobfeed.
type Config struct {
	Database     DatabaseConfig
	Cache        CacheConfig
	Collect      CollectConfig
	Schedule     ScheduleConfig
	Providers    []ProviderConfig
	Summary      SummaryConfig
	Notification NotificationConfig
	Metrics      MetricsConfig
}

// DatabaseConfig selects listing storage. A non-empty URL means Postgres.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite file
	URL  string `yaml:"url"`  // postgres:// DSN
}

// Driver reports which store the config selects.
func (d DatabaseConfig) Driver() string {
	if d.URL != "" {
		return "postgres"
	}
	return "sqlite"
}

// CacheConfig controls the raw response cache.
type CacheConfig struct {
	TTL      time.Duration
	RedisURL string // when set, entries live in Redis instead of the database
}

// CollectConfig bounds a single collection run.
type CollectConfig struct {
	MaxPages       int
	MaxRequests    int
	Sleep          time.Duration            // minimum gap between calls to one provider
	SleepOverrides map[string]time.Duration // per-provider, keyed by provider name
	MaxRetries     int                      // 0 disables retries
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
}

// SleepFor returns the configured delay for the given provider, falling back to Sleep.
func (c CollectConfig) SleepFor(provider string) time.Duration {
	if d, ok := c.SleepOverrides[provider]; ok {
		return d
	}
	return c.Sleep
}

// ScheduleConfig holds cron specs for the daemon.
type ScheduleConfig struct {
	Collect string `yaml:"collect"`
	Digest  string `yaml:"digest"` // empty disables the digest
}

// ProviderConfig describes one job source.
type ProviderConfig struct {
	Name     string   `yaml:"name"` // adzuna, remoteok or jsearch
	Enabled  bool     `yaml:"enabled"`
	Queries  []string `yaml:"queries"`
	Regions  []string `yaml:"regions"`   // country codes; ignored by remoteok
	MaxPages int      `yaml:"max_pages"` // 0 means collect.max_pages

	AppID  string `yaml:"app_id"`  // adzuna
	AppKey string `yaml:"app_key"` // adzuna
	APIKey string `yaml:"api_key"` // jsearch

	ResultsPerPage int    `yaml:"results_per_page"` // adzuna
	SalaryMin      int    `yaml:"salary_min"`       // adzuna
	Where          string `yaml:"where"`            // adzuna
	DatePosted     string `yaml:"date_posted"`      // jsearch
	Location       string `yaml:"location"`         // jsearch
}

// SummaryConfig is the default summary query, used by the digest.
type SummaryConfig struct {
	Region     string   `yaml:"region"`
	Tags       []string `yaml:"tags"`
	PeriodDays int      `yaml:"period_days"`
	Limit      int      `yaml:"limit"`
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// MetricsConfig controls the Prometheus endpoint of the daemon.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

var defaultQueries = []string{"developer", "python", "javascript", "react", "node", "fullstack", "backend", "frontend"}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: DefaultDBPath()},
		Cache:    CacheConfig{TTL: 24 * time.Hour},
		Collect: CollectConfig{
			MaxPages:       2,
			MaxRequests:    40,
			Sleep:          1500 * time.Millisecond,
			SleepOverrides: map[string]time.Duration{},
			RetryBaseDelay: 2 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Schedule: ScheduleConfig{Collect: "0 9 * * *", Digest: "30 9 * * *"},
		Providers: []ProviderConfig{
			{
				Name:           "adzuna",
				Enabled:        true,
				Queries:        defaultQueries,
				Regions:        []string{"gb", "us", "ca", "au"},
				ResultsPerPage: 50,
				SalaryMin:      30000,
			},
			{Name: "remoteok", Enabled: true, Queries: []string{""}},
			{Name: "jsearch", Enabled: true, Queries: []string{"developer"}, Regions: []string{"us"}, DatePosted: "week", Location: "remote"},
		},
		Summary:      SummaryConfig{PeriodDays: 1, Limit: 50},
		Notification: NotificationConfig{Type: "log"},
	}
}

// DefaultDBPath is the SQLite file under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, "jobfeed", "jobfeed.db")
}

// DefaultPath resolves the config file: flag, then JOBFEED_CONFIG, then ./config.yaml.
// It returns "" when nothing exists and no path was given explicitly.
func DefaultPath(flagValue string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := getenv("JOBFEED_CONFIG"); p != "" {
		return p
	}
	if _, err := os.Stat("config.yaml"); err == nil {
		return "config.yaml"
	}
	return ""
}

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Database     DatabaseConfig     `yaml:"database"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Collect      rawCollectConfig   `yaml:"collect"`
	Schedule     *ScheduleConfig    `yaml:"schedule"`
	Providers    []ProviderConfig   `yaml:"providers"`
	Summary      SummaryConfig      `yaml:"summary"`
	Notification NotificationConfig `yaml:"notification"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

type rawCacheConfig struct {
	TTL      string `yaml:"ttl"`
	RedisURL string `yaml:"redis_url"`
}

type rawCollectConfig struct {
	MaxPages       int               `yaml:"max_pages"`
	MaxRequests    int               `yaml:"max_requests"`
	Sleep          string            `yaml:"sleep"`
	SleepOverrides map[string]string `yaml:"sleep_overrides"`
	MaxRetries     int               `yaml:"max_retries"`
	RetryBaseDelay string            `yaml:"retry_base_delay"`
	RequestTimeout string            `yaml:"request_timeout"`
}

// Load reads and parses the YAML config file at path over the defaults,
// validates it, and returns Config. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, validate(cfg)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if raw.Database.Path != "" {
		cfg.Database.Path = raw.Database.Path
	}
	cfg.Database.URL = raw.Database.URL

	if err := parseDuration("cache.ttl", raw.Cache.TTL, &cfg.Cache.TTL); err != nil {
		return nil, err
	}
	cfg.Cache.RedisURL = raw.Cache.RedisURL

	if raw.Collect.MaxPages != 0 {
		cfg.Collect.MaxPages = raw.Collect.MaxPages
	}
	if raw.Collect.MaxRequests != 0 {
		cfg.Collect.MaxRequests = raw.Collect.MaxRequests
	}
	cfg.Collect.MaxRetries = raw.Collect.MaxRetries
	if err := parseDuration("collect.sleep", raw.Collect.Sleep, &cfg.Collect.Sleep); err != nil {
		return nil, err
	}
	if err := parseDuration("collect.retry_base_delay", raw.Collect.RetryBaseDelay, &cfg.Collect.RetryBaseDelay); err != nil {
		return nil, err
	}
	if err := parseDuration("collect.request_timeout", raw.Collect.RequestTimeout, &cfg.Collect.RequestTimeout); err != nil {
		return nil, err
	}
	for name, v := range raw.Collect.SleepOverrides {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse collect.sleep_overrides[%q]: %w", name, err)
		}
		cfg.Collect.SleepOverrides[name] = d
	}

	if raw.Schedule != nil {
		if raw.Schedule.Collect != "" {
			cfg.Schedule.Collect = raw.Schedule.Collect
		}
		cfg.Schedule.Digest = raw.Schedule.Digest
	}

	if raw.Providers != nil {
		cfg.Providers = raw.Providers
	}

	if raw.Summary.PeriodDays != 0 {
		cfg.Summary.PeriodDays = raw.Summary.PeriodDays
	}
	if raw.Summary.Limit != 0 {
		cfg.Summary.Limit = raw.Summary.Limit
	}
	cfg.Summary.Region = raw.Summary.Region
	cfg.Summary.Tags = raw.Summary.Tags

	if raw.Notification.Type != "" {
		cfg.Notification = raw.Notification
	}
	cfg.Metrics = raw.Metrics

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseDuration(field, value string, dst *time.Duration) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	*dst = d
	return nil
}

// ApplyEnv overlays well-known environment variables onto cfg and re-validates it.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := getenv("CACHE_TTL_HOURS"); v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CACHE_TTL_HOURS %q: %w", v, err)
		}
		cfg.Cache.TTL = time.Duration(h) * time.Hour
	}
	if v := getenv("COLLECT_MAX_PAGES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse COLLECT_MAX_PAGES %q: %w", v, err)
		}
		cfg.Collect.MaxPages = n
	}
	if v := getenv("COLLECT_MAX_REQUESTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse COLLECT_MAX_REQUESTS %q: %w", v, err)
		}
		cfg.Collect.MaxRequests = n
	}
	if v := getenv("COLLECT_SLEEP_SECONDS"); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse COLLECT_SLEEP_SECONDS %q: %w", v, err)
		}
		cfg.Collect.Sleep = time.Duration(secs * float64(time.Second))
	}
	if v := getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Notification.WebhookURL = v
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		switch p.Name {
		case "adzuna":
			if v := getenv("ADZUNA_APP_ID"); v != "" {
				p.AppID = v
			}
			if v := getenv("ADZUNA_APP_KEY"); v != "" {
				p.AppKey = v
			}
		case "jsearch":
			if v := getenv("JSEARCH_API_KEY"); v != "" {
				p.APIKey = v
			}
		}
	}

	return validate(cfg)
}

// MissingCredentials names the credential fields an enabled provider lacks.
func (p ProviderConfig) MissingCredentials() []string {
	var missing []string
	switch p.Name {
	case "adzuna":
		if p.AppID == "" {
			missing = append(missing, "app_id")
		}
		if p.AppKey == "" {
			missing = append(missing, "app_key")
		}
	case "jsearch":
		if p.APIKey == "" {
			missing = append(missing, "api_key")
		}
	}
	return missing
}

var knownProviders = map[string]bool{"adzuna": true, "remoteok": true, "jsearch": true}

func validate(cfg *Config) error {
	if cfg.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive, got %v", cfg.Cache.TTL)
	}
	if cfg.Collect.MaxPages < 1 {
		return fmt.Errorf("collect.max_pages must be at least 1, got %d", cfg.Collect.MaxPages)
	}
	if cfg.Collect.MaxRequests < 1 {
		return fmt.Errorf("collect.max_requests must be at least 1, got %d", cfg.Collect.MaxRequests)
	}
	if cfg.Collect.Sleep < 0 {
		return fmt.Errorf("collect.sleep must not be negative, got %v", cfg.Collect.Sleep)
	}
	if cfg.Collect.MaxRetries < 0 {
		return fmt.Errorf("collect.max_retries must not be negative, got %d", cfg.Collect.MaxRetries)
	}

	enabled := 0
	seen := make(map[string]bool)
	for _, p := range cfg.Providers {
		if !knownProviders[p.Name] {
			return fmt.Errorf("providers: unknown provider %q", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("providers: %q listed twice", p.Name)
		}
		seen[p.Name] = true
		if p.MaxPages < 0 {
			return fmt.Errorf("providers[%s].max_pages must not be negative", p.Name)
		}
		if p.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one provider must be enabled")
	}

	if cfg.Summary.PeriodDays < 1 {
		return fmt.Errorf("summary.period_days must be at least 1, got %d", cfg.Summary.PeriodDays)
	}
	if cfg.Summary.Limit < 1 {
		return fmt.Errorf("summary.limit must be at least 1, got %d", cfg.Summary.Limit)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	return nil
}
