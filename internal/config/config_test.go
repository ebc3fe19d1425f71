package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
env: development
log_level: debug

server:
  port: 9090
  public_url: https://assignments.example.com/
  read_timeout: 5s

output:
  root: /var/lib/takehome

jobs:
  max_concurrent: 2
  default_language: English
  assignments: 3

llm:
  base_url: https://openrouter.ai/api/v1/
  model: openai/gpt-4o-mini
  timeout: 90s
  max_retries: 5
  requests_per_minute: 10
  temperatures:
    design: 0.5

search:
  recent_months: 3
  results: 5

archive:
  driver: sqlite
  dsn: takehome.db

retention:
  schedule: "0 3 * * *"
  max_age: 48h
`

const fullTOML = `
env = "production"

[server]
port = 7070
read_timeout = "7s"

[llm]
model = "minimaxai/minimax-m2"

[llm.temperatures]
styling = 0.3

[retention]
max_age = "24h"
`

// clearEnv unsets every variable the loader reads so tests are hermetic.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"NVIDIA_API_KEY", "OPENROUTER_API_KEY", "GOOGLE_API_KEY", "GOOGLE_CSE_ID",
		"SLACK_BOT_TOKEN", "DISCORD_BOT_TOKEN", "GITHUB_TOKEN", "APP_ENV", "LOG_LEVEL",
		"PORT", "PUBLIC_URL", "OUTPUT_DIR", "NVIDIA_BASE_URL", "DEFAULT_MODEL",
		"OPENROUTER_SITE_URL", "OPENROUTER_APP_NAME", "OPENAI_TEMPERATURE",
		"RECENT_MONTHS", "NATS_URL",
	} {
		t.Setenv(key, "")
	}
}

func TestParse_FullConfig(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.PublicURL != "https://assignments.example.com" {
		t.Errorf("Server.PublicURL = %q, want trailing slash trimmed", cfg.Server.PublicURL)
	}
	if cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Output.Root != "/var/lib/takehome" {
		t.Errorf("Output.Root = %q", cfg.Output.Root)
	}
	if cfg.Jobs.MaxConcurrent != 2 {
		t.Errorf("Jobs.MaxConcurrent = %d, want 2", cfg.Jobs.MaxConcurrent)
	}
	if cfg.Jobs.DefaultLanguage != "English" {
		t.Errorf("Jobs.DefaultLanguage = %q, want English", cfg.Jobs.DefaultLanguage)
	}
	if cfg.LLM.BaseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Timeout.Duration != 90*time.Second {
		t.Errorf("LLM.Timeout = %v, want 90s", cfg.LLM.Timeout.Duration)
	}
	if got := cfg.LLM.Temperature("design"); got != 0.5 {
		t.Errorf("Temperature(design) = %v, want 0.5", got)
	}
	if got := cfg.LLM.Temperature("starter"); got != 0.2 {
		t.Errorf("Temperature(starter) = %v, want default 0.2", got)
	}
	if cfg.Search.RecentMonths != 3 || cfg.Search.Results != 5 {
		t.Errorf("Search = %+v", cfg.Search)
	}
	if cfg.Archive.DSN != "takehome.db" {
		t.Errorf("Archive.DSN = %q", cfg.Archive.DSN)
	}
	if cfg.Retention.Schedule != "0 3 * * *" {
		t.Errorf("Retention.Schedule = %q", cfg.Retention.Schedule)
	}
	if cfg.Retention.MaxAge.Duration != 48*time.Hour {
		t.Errorf("Retention.MaxAge = %v, want 48h", cfg.Retention.MaxAge.Duration)
	}
}

func TestParse_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("Env = %q, want production", cfg.Env)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.PublicURL != "http://localhost:8080" {
		t.Errorf("Server.PublicURL = %q", cfg.Server.PublicURL)
	}
	if cfg.Output.Root != "output" {
		t.Errorf("Output.Root = %q, want output", cfg.Output.Root)
	}
	if cfg.Jobs.MaxConcurrent != 0 {
		t.Errorf("Jobs.MaxConcurrent = %d, want 0 (unbounded)", cfg.Jobs.MaxConcurrent)
	}
	if cfg.Jobs.DefaultLanguage != "Korean" {
		t.Errorf("Jobs.DefaultLanguage = %q, want Korean", cfg.Jobs.DefaultLanguage)
	}
	if cfg.Jobs.Assignments != 5 {
		t.Errorf("Jobs.Assignments = %d, want 5", cfg.Jobs.Assignments)
	}
	if cfg.LLM.BaseURL != "https://integrate.api.nvidia.com/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "minimaxai/minimax-m2" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.Search.RecentMonths != 6 {
		t.Errorf("Search.RecentMonths = %d, want 6", cfg.Search.RecentMonths)
	}
	if cfg.Search.Results != 8 {
		t.Errorf("Search.Results = %d, want 8", cfg.Search.Results)
	}
	if cfg.Archive.Driver != "sqlite" {
		t.Errorf("Archive.Driver = %q, want sqlite", cfg.Archive.Driver)
	}
	if cfg.Notify.NATSSubject != "jobs.complete" {
		t.Errorf("Notify.NATSSubject = %q", cfg.Notify.NATSSubject)
	}
	if cfg.Publish.Enabled() {
		t.Error("publishing should be disabled by default")
	}
}

func TestTemperature_Defaults(t *testing.T) {
	var l LLMConfig
	tests := map[string]float64{"research": 0, "design": 0.35, "starter": 0.2, "styling": 0.1, "other": 0.7}
	for stage, want := range tests {
		if got := l.Temperature(stage); got != want {
			t.Errorf("Temperature(%s) = %v, want %v", stage, got, want)
		}
	}
}

func TestParseTOML(t *testing.T) {
	clearEnv(t)
	cfg, err := ParseTOML([]byte(fullTOML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Duration != 7*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 7s", cfg.Server.ReadTimeout.Duration)
	}
	if got := cfg.LLM.Temperature("styling"); got != 0.3 {
		t.Errorf("Temperature(styling) = %v, want 0.3", got)
	}
	if cfg.Retention.MaxAge.Duration != 24*time.Hour {
		t.Errorf("Retention.MaxAge = %v, want 24h", cfg.Retention.MaxAge.Duration)
	}
}

func TestParse_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "3000")
	t.Setenv("DEFAULT_MODEL", "meta/llama-3.1-70b-instruct")
	t.Setenv("NVIDIA_BASE_URL", "http://llm.internal/v1")
	t.Setenv("OPENAI_TEMPERATURE", "0.9")
	t.Setenv("RECENT_MONTHS", "2")
	t.Setenv("OUTPUT_DIR", "/tmp/out")

	cfg, err := Parse([]byte("server:\n  port: 9090\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("Server.Port = %d, want env override 3000", cfg.Server.Port)
	}
	if cfg.LLM.Model != "meta/llama-3.1-70b-instruct" {
		t.Errorf("LLM.Model = %q", cfg.LLM.Model)
	}
	if cfg.LLM.BaseURL != "http://llm.internal/v1" {
		t.Errorf("LLM.BaseURL = %q", cfg.LLM.BaseURL)
	}
	for _, stage := range []string{"research", "design", "starter", "styling"} {
		if got := cfg.LLM.Temperature(stage); got != 0.9 {
			t.Errorf("Temperature(%s) = %v, want 0.9", stage, got)
		}
	}
	if cfg.Search.RecentMonths != 2 {
		t.Errorf("Search.RecentMonths = %d, want 2", cfg.Search.RecentMonths)
	}
	if cfg.Output.Root != "/tmp/out" {
		t.Errorf("Output.Root = %q", cfg.Output.Root)
	}
}

func TestParse_Secrets(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "or-key")
	t.Setenv("GOOGLE_API_KEY", "g-key")

	cfg, err := Parse([]byte("{}"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Secrets.LLMAPIKey != "or-key" {
		t.Errorf("LLMAPIKey = %q, want OPENROUTER_API_KEY fallback", cfg.Secrets.LLMAPIKey)
	}
	if err := cfg.Secrets.RequireLLM(); err != nil {
		t.Errorf("RequireLLM: %v", err)
	}
	err = cfg.Secrets.RequireSearch()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("RequireSearch error = %v, want ErrMissingCredential", err)
	}
	if !strings.Contains(err.Error(), "GOOGLE_CSE_ID") {
		t.Errorf("error = %q, want to name GOOGLE_CSE_ID", err.Error())
	}
	if strings.Contains(err.Error(), "GOOGLE_API_KEY") {
		t.Errorf("error = %q, should not name the key that is set", err.Error())
	}
}

func TestSecrets_RequireLLM_Missing(t *testing.T) {
	err := Secrets{}.RequireLLM()
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("error = %v, want ErrMissingCredential", err)
	}
	if !strings.Contains(err.Error(), "NVIDIA_API_KEY") {
		t.Errorf("error = %q, want to name NVIDIA_API_KEY", err.Error())
	}
}

func TestParse_ValidationErrors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"bad port", "server:\n  port: 70000\n", "server.port"},
		{"negative concurrency", "jobs:\n  max_concurrent: -1\n", "jobs.max_concurrent"},
		{"too many assignments", "jobs:\n  assignments: 11\n", "jobs.assignments"},
		{"months", "search:\n  recent_months: 13\n", "search.recent_months"},
		{"results", "search:\n  results: 11\n", "search.results"},
		{"temperature", "llm:\n  temperatures:\n    design: 3\n", "llm.temperatures.design"},
		{"driver", "archive:\n  driver: postgres\n", "archive.driver"},
		{"publish token", "publish:\n  owner: acme\n  repo: portals\n", "GITHUB_TOKEN"},
		{"slack token", "notify:\n  slack_channel: C123\n", "SLACK_BOT_TOKEN"},
		{"discord token", "notify:\n  discord_channel_id: \"42\"\n", "DISCORD_BOT_TOKEN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), "validation failed") {
				t.Errorf("error = %q, want validation failure", err.Error())
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParse_InvalidDuration(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte("server:\n  read_timeout: soon\n"))
	if err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
	if !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("error = %q, want config: parse prefix", err.Error())
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unterminated"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_ByExtension(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "takehome.yaml")
	if err := os.WriteFile(yamlPath, []byte("server:\n  port: 9191\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load yaml: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("yaml port = %d, want 9191", cfg.Server.Port)
	}

	tomlPath := filepath.Join(dir, "takehome.toml")
	if err := os.WriteFile(tomlPath, []byte("[server]\nport = 9292\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(tomlPath)
	if err != nil {
		t.Fatalf("Load toml: %v", err)
	}
	if cfg.Server.Port != 9292 {
		t.Errorf("toml port = %d, want 9292", cfg.Server.Port)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "config: read") {
		t.Errorf("error = %q, want config: read prefix", err.Error())
	}
}

func TestLoadOrDefault(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	cfg, err := LoadOrDefault("")
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want default 8080", cfg.Server.Port)
	}

	if _, err := LoadOrDefault("custom.yaml"); err == nil {
		t.Error("expected error for explicit missing path")
	}
}

func TestLoadEnvFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	// godotenv.Load never overrides a variable that exists, even when empty.
	os.Unsetenv("GOOGLE_CSE_ID")

	os.WriteFile(".env", []byte("DEFAULT_MODEL=base-model\nGOOGLE_CSE_ID=cse\n"), 0o644)
	os.WriteFile(".env.staging", []byte("DEFAULT_MODEL=staging-model\n"), 0o644)

	if err := LoadEnvFiles("", "staging"); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	cfg := Default()
	if cfg.LLM.Model != "staging-model" {
		t.Errorf("LLM.Model = %q, want profile override", cfg.LLM.Model)
	}
	if cfg.Secrets.GoogleCSEID != "cse" {
		t.Errorf("GoogleCSEID = %q, want value from .env", cfg.Secrets.GoogleCSEID)
	}

	if err := LoadEnvFiles("missing.env", ""); err == nil {
		t.Error("expected error for explicit missing env file")
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration{Duration: 90 * time.Second}
	out, err := d.MarshalText()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "1m30s" {
		t.Errorf("MarshalText = %q, want 1m30s", out)
	}
}
