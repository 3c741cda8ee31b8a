package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
database:
  path: /tmp/feed.db
cache:
  ttl: 12h
collect:
  max_pages: 3
  max_requests: 10
  sleep: 500ms
  sleep_overrides:
    jsearch: 3s
providers:
  - name: adzuna
    enabled: true
    app_id: id
    app_key: key
    queries: [golang]
    regions: [gb]
    results_per_page: 25
  - name: remoteok
    enabled: false
summary:
  region: remote
  tags: [go]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/feed.db" || cfg.Database.Driver() != "sqlite" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Cache.TTL != 12*time.Hour {
		t.Errorf("Cache.TTL = %v, want 12h", cfg.Cache.TTL)
	}
	if cfg.Collect.MaxPages != 3 || cfg.Collect.MaxRequests != 10 || cfg.Collect.Sleep != 500*time.Millisecond {
		t.Errorf("Collect = %+v", cfg.Collect)
	}
	if got := cfg.Collect.SleepFor("jsearch"); got != 3*time.Second {
		t.Errorf("SleepFor(jsearch) = %v, want 3s", got)
	}
	if got := cfg.Collect.SleepFor("adzuna"); got != 500*time.Millisecond {
		t.Errorf("SleepFor(adzuna) = %v, want 500ms", got)
	}
	if len(cfg.Providers) != 2 || cfg.Providers[0].ResultsPerPage != 25 || cfg.Providers[0].Queries[0] != "golang" {
		t.Errorf("Providers = %+v", cfg.Providers)
	}
	if cfg.Summary.Region != "remote" || cfg.Summary.PeriodDays != 1 || cfg.Summary.Limit != 50 {
		t.Errorf("Summary = %+v (defaults should fill period and limit)", cfg.Summary)
	}
	if cfg.Notification.Type != "log" {
		t.Errorf("Notification.Type = %q, want log", cfg.Notification.Type)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Cache.TTL != 24*time.Hour {
		t.Errorf("Cache.TTL = %v, want 24h", cfg.Cache.TTL)
	}
	if cfg.Collect.MaxPages != 2 || cfg.Collect.MaxRequests != 40 || cfg.Collect.Sleep != 1500*time.Millisecond {
		t.Errorf("Collect = %+v", cfg.Collect)
	}
	if cfg.Collect.MaxRetries != 0 {
		t.Errorf("retries should be off by default, got %d", cfg.Collect.MaxRetries)
	}
	if len(cfg.Providers) != 3 {
		t.Errorf("Providers = %d, want 3", len(cfg.Providers))
	}
	if js := cfg.Providers[2]; js.Name != "jsearch" || js.Location != "remote" {
		t.Errorf("jsearch defaults = %+v, want location remote", js)
	}
	if filepath.Base(cfg.Database.Path) != "jobfeed.db" {
		t.Errorf("Database.Path = %q", cfg.Database.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Load: expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "cache: [broken")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "collect:\n  sleep: soon\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for invalid duration")
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("JOBFEED_TEST_DSN", "postgres://u:p@localhost/jobs")
	path := writeConfig(t, "database:\n  url: ${JOBFEED_TEST_DSN}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Driver() != "postgres" || cfg.Database.URL != "postgres://u:p@localhost/jobs" {
		t.Errorf("Database = %+v", cfg.Database)
	}
}

func TestLoad_NoEnabledProviders(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: remoteok
    enabled: false
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error when no provider is enabled")
	}
}

func TestLoad_UnknownProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  - name: monster
    enabled: true
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected validation error for unknown provider")
	}
}

func TestLoad_SlackRequiresWebhook(t *testing.T) {
	path := writeConfig(t, "notification:\n  type: slack\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for slack without webhook")
	}

	path = writeConfig(t, "notification:\n  type: slack\n  webhook_url: https://example.com/hook\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load: expected error for non-slack webhook host")
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	err := ApplyEnv(cfg, envMap(map[string]string{
		"DATABASE_URL":          "postgres://localhost/jobs",
		"REDIS_URL":             "redis://localhost:6379/0",
		"CACHE_TTL_HOURS":       "6",
		"COLLECT_MAX_PAGES":     "4",
		"COLLECT_MAX_REQUESTS":  "12",
		"COLLECT_SLEEP_SECONDS": "0.25",
		"ADZUNA_APP_ID":         "id",
		"ADZUNA_APP_KEY":        "key",
		"JSEARCH_API_KEY":       "rapid",
	}))
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}

	if cfg.Database.Driver() != "postgres" {
		t.Errorf("Driver = %q, want postgres", cfg.Database.Driver())
	}
	if cfg.Cache.RedisURL != "redis://localhost:6379/0" || cfg.Cache.TTL != 6*time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Collect.MaxPages != 4 || cfg.Collect.MaxRequests != 12 || cfg.Collect.Sleep != 250*time.Millisecond {
		t.Errorf("Collect = %+v", cfg.Collect)
	}
	for _, p := range cfg.Providers {
		if missing := p.MissingCredentials(); len(missing) != 0 {
			t.Errorf("provider %s still missing %v", p.Name, missing)
		}
	}
}

func TestApplyEnv_InvalidNumber(t *testing.T) {
	if err := ApplyEnv(Default(), envMap(map[string]string{"COLLECT_MAX_PAGES": "many"})); err == nil {
		t.Fatal("ApplyEnv: expected error for non-numeric value")
	}
	if err := ApplyEnv(Default(), envMap(map[string]string{"COLLECT_MAX_PAGES": "0"})); err == nil {
		t.Fatal("ApplyEnv: expected validation error for zero pages")
	}
}

func TestMissingCredentials(t *testing.T) {
	tests := []struct {
		p    ProviderConfig
		want int
	}{
		{ProviderConfig{Name: "adzuna"}, 2},
		{ProviderConfig{Name: "adzuna", AppID: "x"}, 1},
		{ProviderConfig{Name: "jsearch"}, 1},
		{ProviderConfig{Name: "remoteok"}, 0},
	}
	for _, tt := range tests {
		if got := len(tt.p.MissingCredentials()); got != tt.want {
			t.Errorf("%s: missing = %d, want %d", tt.p.Name, got, tt.want)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath("flag.yaml", envMap(map[string]string{"JOBFEED_CONFIG": "env.yaml"})); got != "flag.yaml" {
		t.Errorf("flag should win, got %q", got)
	}
	if got := DefaultPath("", envMap(map[string]string{"JOBFEED_CONFIG": "env.yaml"})); got != "env.yaml" {
		t.Errorf("env should win over cwd, got %q", got)
	}

	t.Chdir(t.TempDir())
	if got := DefaultPath("", envMap(nil)); got != "" {
		t.Errorf("no file should yield \"\", got %q", got)
	}
	if err := os.WriteFile("config.yaml", []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if got := DefaultPath("", envMap(nil)); got != "config.yaml" {
		t.Errorf("cwd file should be found, got %q", got)
	}
}
