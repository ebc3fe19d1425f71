// Package config provides YAML/TOML configuration loading for the generator,
// with secrets and overrides taken from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when no path is given.
const DefaultPath = "takehome.yaml"

// ErrMissingCredential marks configuration errors caused by an unset secret.
var ErrMissingCredential = errors.New("missing credential")

// Config is the top-level configuration, loaded from takehome.yaml.
type Config struct {
	Env       string          `yaml:"env" toml:"env"`
	LogLevel  string          `yaml:"log_level" toml:"log_level"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Output    OutputConfig    `yaml:"output" toml:"output"`
	Jobs      JobsConfig      `yaml:"jobs" toml:"jobs"`
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Search    SearchConfig    `yaml:"search" toml:"search"`
	Portal    PortalConfig    `yaml:"portal" toml:"portal"`
	Archive   ArchiveConfig   `yaml:"archive" toml:"archive"`
	Retention RetentionConfig `yaml:"retention" toml:"retention"`
	Notify    NotifyConfig    `yaml:"notify" toml:"notify"`
	Publish   PublishConfig   `yaml:"publish" toml:"publish"`

	// Secrets are read from the environment only.
	Secrets Secrets `yaml:"-" toml:"-"`
}

// ServerConfig holds the HTTP front door settings.
type ServerConfig struct {
	Port            int      `yaml:"port" toml:"port"`
	PublicURL       string   `yaml:"public_url" toml:"public_url"`
	ReadTimeout     Duration `yaml:"read_timeout" toml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// OutputConfig locates generated artifacts.
type OutputConfig struct {
	Root string `yaml:"root" toml:"root"`
}

// JobsConfig controls job execution.
type JobsConfig struct {
	// MaxConcurrent bounds running pipelines; 0 means one goroutine per job
	// with no limit.
	MaxConcurrent   int    `yaml:"max_concurrent" toml:"max_concurrent"`
	DefaultLanguage string `yaml:"default_language" toml:"default_language"`
	Assignments     int    `yaml:"assignments" toml:"assignments"`
}

// LLMConfig configures the OpenAI-compatible chat endpoint.
type LLMConfig struct {
	BaseURL        string             `yaml:"base_url" toml:"base_url"`
	Model          string             `yaml:"model" toml:"model"`
	Timeout        Duration           `yaml:"timeout" toml:"timeout"`
	MaxRetries     int                `yaml:"max_retries" toml:"max_retries"`
	RequestsPerMin int                `yaml:"requests_per_minute" toml:"requests_per_minute"`
	MaxTokens      int                `yaml:"max_tokens" toml:"max_tokens"`
	Temperatures   map[string]float64 `yaml:"temperatures" toml:"temperatures"`
	SiteURL        string             `yaml:"site_url" toml:"site_url"`
	AppName        string             `yaml:"app_name" toml:"app_name"`
}

// SearchConfig configures the Google Custom Search client.
type SearchConfig struct {
	BaseURL      string   `yaml:"base_url" toml:"base_url"`
	RecentMonths int      `yaml:"recent_months" toml:"recent_months"`
	Results      int      `yaml:"results" toml:"results"`
	Timeout      Duration `yaml:"timeout" toml:"timeout"`
}

// PortalConfig holds the copy rendered into index.html.
type PortalConfig struct {
	Company    string `yaml:"company" toml:"company"`
	SiteURL    string `yaml:"site_url" toml:"site_url"`
	CareersURL string `yaml:"careers_url" toml:"careers_url"`
}

// ArchiveConfig enables the finished-job history store. An empty DSN
// disables it.
type ArchiveConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
}

// RetentionConfig schedules the output directory sweep. An empty schedule
// disables it.
type RetentionConfig struct {
	Schedule string   `yaml:"schedule" toml:"schedule"`
	MaxAge   Duration `yaml:"max_age" toml:"max_age"`
}

// NotifyConfig lists the job-finished notification targets.
type NotifyConfig struct {
	SlackChannel     string `yaml:"slack_channel" toml:"slack_channel"`
	DiscordChannelID string `yaml:"discord_channel_id" toml:"discord_channel_id"`
	NATSURL          string `yaml:"nats_url" toml:"nats_url"`
	NATSSubject      string `yaml:"nats_subject" toml:"nats_subject"`
}

// PublishConfig enables pushing finished portals to a GitHub repository.
type PublishConfig struct {
	Owner      string `yaml:"owner" toml:"owner"`
	Repo       string `yaml:"repo" toml:"repo"`
	Branch     string `yaml:"branch" toml:"branch"`
	PathPrefix string `yaml:"path_prefix" toml:"path_prefix"`
}

// Enabled reports whether a target repository is configured.
func (p PublishConfig) Enabled() bool {
	return p.Owner != "" && p.Repo != ""
}

// Secrets are credentials read from the environment.
type Secrets struct {
	LLMAPIKey    string
	GoogleAPIKey string
	GoogleCSEID  string
	SlackToken   string
	DiscordToken string
	GitHubToken  string
}

// RequireLLM reports a configuration error when no LLM key is set.
func (s Secrets) RequireLLM() error {
	if s.LLMAPIKey == "" {
		return fmt.Errorf("%w: NVIDIA_API_KEY or OPENROUTER_API_KEY must be set", ErrMissingCredential)
	}
	return nil
}

// RequireSearch reports a configuration error when the Google CSE
// credentials are incomplete.
func (s Secrets) RequireSearch() error {
	var missing []string
	if s.GoogleAPIKey == "" {
		missing = append(missing, "GOOGLE_API_KEY")
	}
	if s.GoogleCSEID == "" {
		missing = append(missing, "GOOGLE_CSE_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s must be set", ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// Default returns a Config with every default applied and the environment
// overlaid.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML or TOML (by .toml extension) config file from path and
// returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return ParseTOML(data)
	}
	return Parse(data)
}

// LoadOrDefault loads path, falling back to defaults when path is the
// default location and the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && path == DefaultPath {
		cfg := Default()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(path)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	return finish(&cfg)
}

// ParseTOML unmarshals TOML bytes into a validated Config.
func ParseTOML(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse toml: %w", err)
	}
	return finish(&cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnvFiles loads .env from the working directory when present, then the
// explicit envFile (which must exist) and .env.<profile> when present. Later
// files override earlier ones; the real environment is never overridden by
// .env itself.
func LoadEnvFiles(envFile, profile string) error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return fmt.Errorf("config: load .env: %w", err)
		}
	}
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil {
			return fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}
	if profile != "" {
		name := ".env." + profile
		if _, err := os.Stat(name); err == nil {
			if err := godotenv.Overload(name); err != nil {
				return fmt.Errorf("config: load %s: %w", name, err)
			}
		}
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// applyEnv reads secrets and the supported environment overrides.
func (c *Config) applyEnv(lookup lookupFunc) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	c.Secrets = Secrets{
		LLMAPIKey:    get("NVIDIA_API_KEY"),
		GoogleAPIKey: get("GOOGLE_API_KEY"),
		GoogleCSEID:  get("GOOGLE_CSE_ID"),
		SlackToken:   get("SLACK_BOT_TOKEN"),
		DiscordToken: get("DISCORD_BOT_TOKEN"),
		GitHubToken:  get("GITHUB_TOKEN"),
	}
	if c.Secrets.LLMAPIKey == "" {
		c.Secrets.LLMAPIKey = get("OPENROUTER_API_KEY")
	}

	if v := get("APP_ENV"); v != "" {
		c.Env = v
	}
	if v := get("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if n, ok := envInt(get("PORT")); ok {
		c.Server.Port = n
	}
	if v := get("PUBLIC_URL"); v != "" {
		c.Server.PublicURL = v
	}
	if v := get("OUTPUT_DIR"); v != "" {
		c.Output.Root = v
	}
	if v := get("NVIDIA_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := get("DEFAULT_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := get("OPENROUTER_SITE_URL"); v != "" {
		c.LLM.SiteURL = v
	}
	if v := get("OPENROUTER_APP_NAME"); v != "" {
		c.LLM.AppName = v
	}
	if v := get("OPENAI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.LLM.Temperatures = map[string]float64{}
			for stage := range defaultTemperatures {
				c.LLM.Temperatures[stage] = f
			}
		}
	}
	if n, ok := envInt(get("RECENT_MONTHS")); ok {
		c.Search.RecentMonths = n
	}
	if v := get("NATS_URL"); v != "" {
		c.Notify.NATSURL = v
	}
}

func envInt(v string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// defaultTemperatures are the sampling temperatures per LLM-backed stage.
var defaultTemperatures = map[string]float64{
	"research": 0,
	"design":   0.35,
	"starter":  0.2,
	"styling":  0.1,
}

// Temperature returns the sampling temperature for a stage.
func (l LLMConfig) Temperature(stage string) float64 {
	if t, ok := l.Temperatures[stage]; ok {
		return t
	}
	if t, ok := defaultTemperatures[stage]; ok {
		return t
	}
	return 0.7
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "production"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.PublicURL = strings.TrimRight(c.Server.PublicURL, "/")
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 15 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		c.Server.WriteTimeout.Duration = 60 * time.Second
	}
	if c.Server.ShutdownTimeout.Duration == 0 {
		c.Server.ShutdownTimeout.Duration = 10 * time.Second
	}
	if c.Output.Root == "" {
		c.Output.Root = "output"
	}
	if c.Jobs.DefaultLanguage == "" {
		c.Jobs.DefaultLanguage = "Korean"
	}
	if c.Jobs.Assignments == 0 {
		c.Jobs.Assignments = 5
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://integrate.api.nvidia.com/v1"
	}
	c.LLM.BaseURL = strings.TrimRight(c.LLM.BaseURL, "/")
	if c.LLM.Model == "" {
		c.LLM.Model = "minimaxai/minimax-m2"
	}
	if c.LLM.Timeout.Duration == 0 {
		c.LLM.Timeout.Duration = 180 * time.Second
	}
	if c.LLM.MaxRetries == 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.RequestsPerMin == 0 {
		c.LLM.RequestsPerMin = 40
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 8192
	}
	if c.Search.BaseURL == "" {
		c.Search.BaseURL = "https://www.googleapis.com/customsearch/v1"
	}
	if c.Search.RecentMonths == 0 {
		c.Search.RecentMonths = 6
	}
	if c.Search.Results == 0 {
		c.Search.Results = 8
	}
	if c.Search.Timeout.Duration == 0 {
		c.Search.Timeout.Duration = 30 * time.Second
	}
	if c.Portal.Company == "" {
		c.Portal.Company = "Myrealtrip OTA Company"
	}
	if c.Portal.SiteURL == "" {
		c.Portal.SiteURL = "https://www.myrealtrip.com"
	}
	if c.Portal.CareersURL == "" {
		c.Portal.CareersURL = "https://www.myrealtrip.com/careers"
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "sqlite"
	}
	if c.Retention.MaxAge.Duration == 0 {
		c.Retention.MaxAge.Duration = 7 * 24 * time.Hour
	}
	if c.Notify.NATSSubject == "" {
		c.Notify.NATSSubject = "jobs.complete"
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = "main"
	}
}

// validate checks that all fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.Jobs.MaxConcurrent < 0 {
		errs = append(errs, "jobs.max_concurrent must not be negative")
	}
	if c.Jobs.Assignments < 1 || c.Jobs.Assignments > 10 {
		errs = append(errs, "jobs.assignments must be between 1 and 10")
	}
	if c.LLM.MaxRetries < 0 {
		errs = append(errs, "llm.max_retries must not be negative")
	}
	if c.LLM.RequestsPerMin < 0 {
		errs = append(errs, "llm.requests_per_minute must not be negative")
	}
	for stage, t := range c.LLM.Temperatures {
		if t < 0 || t > 2 {
			errs = append(errs, fmt.Sprintf("llm.temperatures.%s must be between 0 and 2", stage))
		}
	}
	if c.Search.RecentMonths < 1 || c.Search.RecentMonths > 12 {
		errs = append(errs, "search.recent_months must be between 1 and 12")
	}
	if c.Search.Results < 1 || c.Search.Results > 10 {
		errs = append(errs, "search.results must be between 1 and 10")
	}
	switch c.Archive.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("archive.driver %q must be sqlite or mysql", c.Archive.Driver))
	}
	if c.Publish.Enabled() && c.Secrets.GitHubToken == "" {
		errs = append(errs, "publish requires GITHUB_TOKEN")
	}
	if c.Notify.SlackChannel != "" && c.Secrets.SlackToken == "" {
		errs = append(errs, "notify.slack_channel requires SLACK_BOT_TOKEN")
	}
	if c.Notify.DiscordChannelID != "" && c.Secrets.DiscordToken == "" {
		errs = append(errs, "notify.discord_channel_id requires DISCORD_BOT_TOKEN")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Duration is a time.Duration that decodes from strings such as "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}
