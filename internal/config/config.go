package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Fetcher    FetcherConfig    `yaml:"fetcher"`
	Filter     FilterConfig     `yaml:"filter"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Rewrite    RewriteConfig    `yaml:"rewrite"`
	Automation AutomationConfig `yaml:"automation"`
	Publish    PublishConfig    `yaml:"publish"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Server     ServerConfig     `yaml:"server"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// ScheduleConfig configures the periodic jobs.
type ScheduleConfig struct {
	FetchInterval    string `yaml:"fetch_interval"`
	ScrapeInterval   string `yaml:"scrape_interval"`
	AutomateInterval string `yaml:"automate_interval"`
	CleanupInterval  string `yaml:"cleanup_interval"`
	JobTimeout       string `yaml:"job_timeout"`
}

// ParseJobTimeout returns the per-job wall clock budget.
func (s ScheduleConfig) ParseJobTimeout() time.Duration {
	d, err := time.ParseDuration(s.JobTimeout)
	if err != nil {
		return 10 * time.Minute
	}
	return d
}

// FetcherConfig configures feed fetching and retention.
type FetcherConfig struct {
	Timeout          string `yaml:"timeout"`
	InterSourceDelay string `yaml:"inter_source_delay"`
	ExcerptMaxLen    int    `yaml:"excerpt_max_len"`
	ErrorThreshold   int    `yaml:"error_threshold"`
	CleanupDays      int    `yaml:"cleanup_days"`
	ExpireDays       int    `yaml:"expire_days"`
}

// ParseTimeout returns the per-feed fetch timeout.
func (f FetcherConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// ParseInterSourceDelay returns the politeness delay between sources.
func (f FetcherConfig) ParseInterSourceDelay() time.Duration {
	d, err := time.ParseDuration(f.InterSourceDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// FilterConfig configures the dedup/relevance engine.
type FilterConfig struct {
	Keywords            []string      `yaml:"keywords"`
	AcceptThreshold     float64       `yaml:"accept_threshold"`
	FlagThreshold       float64       `yaml:"flag_threshold"`
	TierAdjustment      float64       `yaml:"tier_adjustment"`
	SourceTiers         map[int64]int `yaml:"source_tiers"`
	StalenessWindow     string        `yaml:"staleness_window"`
	FingerprintCapacity int           `yaml:"fingerprint_capacity"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	BurstLimit          int           `yaml:"burst_limit"`
	BurstWindow         string        `yaml:"burst_window"`
}

// ParseStalenessWindow returns how far back a published timestamp may lie.
func (f FilterConfig) ParseStalenessWindow() time.Duration {
	d, err := time.ParseDuration(f.StalenessWindow)
	if err != nil {
		return 72 * time.Hour
	}
	return d
}

// ParseBurstWindow returns the per-source burst tracking window.
func (f FilterConfig) ParseBurstWindow() time.Duration {
	d, err := time.ParseDuration(f.BurstWindow)
	if err != nil {
		return time.Hour
	}
	return d
}

// ClassifierConfig configures per-item category classification.
type ClassifierConfig struct {
	MinConfidence   float64             `yaml:"min_confidence"`
	TitleWeight     float64             `yaml:"title_weight"`
	ExcerptWeight   float64             `yaml:"excerpt_weight"`
	MixedCategories []string            `yaml:"mixed_categories"`
	Categories      map[string][]string `yaml:"categories"` // slug -> keywords
}

// ScraperConfig configures full-content scraping.
type ScraperConfig struct {
	Timeout          string   `yaml:"timeout"`
	MaxRetries       int      `yaml:"max_retries"`
	RetryBackoff     string   `yaml:"retry_backoff"`
	RequestDelay     string   `yaml:"request_delay"`
	MinContentLength int      `yaml:"min_content_length"`
	UserAgents       []string `yaml:"user_agents"`
}

// ParseTimeout returns the per-page fetch timeout.
func (s ScraperConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 20 * time.Second
	}
	return d
}

// ParseRetryBackoff returns the base backoff between fetch attempts.
func (s ScraperConfig) ParseRetryBackoff() time.Duration {
	d, err := time.ParseDuration(s.RetryBackoff)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// ParseRequestDelay returns the politeness delay between scrapes.
func (s ScraperConfig) ParseRequestDelay() time.Duration {
	d, err := time.ParseDuration(s.RequestDelay)
	if err != nil {
		return 3 * time.Second
	}
	return d
}

// RewriteConfig configures the local AI rewrite endpoint.
type RewriteConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// ParseTimeout returns the model call timeout.
func (r RewriteConfig) ParseTimeout() time.Duration {
	d, err := time.ParseDuration(r.Timeout)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// AutomationConfig configures the publication pipeline.
type AutomationConfig struct {
	MaxRetries      int               `yaml:"max_retries"`
	SocialDelay     string            `yaml:"social_delay"`
	DefaultCategory string            `yaml:"default_category"`
	AuthorID        int64             `yaml:"author_id"`
	CategoryIDs     map[string]int64  `yaml:"category_ids"`    // slug -> platform category id
	FallbackImages  map[string]string `yaml:"fallback_images"` // slug -> image URL
	SiteBaseURL     string            `yaml:"site_base_url"`
}

// ParseSocialDelay returns the delay before a published article is
// offered to the social integration.
func (a AutomationConfig) ParseSocialDelay() time.Duration {
	d, err := time.ParseDuration(a.SocialDelay)
	if err != nil {
		return 5 * time.Minute
	}
	return d
}

// PublishConfig configures the fire-and-forget publish announcement.
type PublishConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Secret  string `yaml:"secret"`
}

// AlertsConfig configures operator alert destinations.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig for Slack webhook alerts.
type SlackConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// DiscordConfig for Discord webhook alerts.
type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	WebhookURL string `yaml:"webhook_url"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./hudhud.db"},
		Logging:  LoggingConfig{Level: "info", Format: "console"},
		Schedule: ScheduleConfig{
			FetchInterval:    "15m",
			ScrapeInterval:   "5m",
			AutomateInterval: "10m",
			CleanupInterval:  "24h",
			JobTimeout:       "10m",
		},
		Fetcher: FetcherConfig{
			Timeout:          "30s",
			InterSourceDelay: "2s",
			ExcerptMaxLen:    200,
			ErrorThreshold:   5,
			CleanupDays:      7,
			ExpireDays:       30,
		},
		Filter: FilterConfig{
			Keywords:            DefaultRelevanceKeywords,
			AcceptThreshold:     30,
			FlagThreshold:       15,
			TierAdjustment:      10,
			StalenessWindow:     "72h",
			FingerprintCapacity: 500,
			SimilarityThreshold: 0.85,
			BurstLimit:          10,
			BurstWindow:         "1h",
		},
		Classifier: ClassifierConfig{
			MinConfidence:   0.15,
			TitleWeight:     2.0,
			ExcerptWeight:   1.0,
			MixedCategories: []string{"mixed", "general", "متنوع"},
			Categories:      DefaultCategoryKeywords,
		},
		Scraper: ScraperConfig{
			Timeout:          "20s",
			MaxRetries:       3,
			RetryBackoff:     "2s",
			RequestDelay:     "3s",
			MinContentLength: 300,
			UserAgents:       DefaultUserAgents,
		},
		Rewrite: RewriteConfig{
			Enabled: true,
			BaseURL: "http://localhost:11434",
			Model:   "qwen2.5:7b",
			Timeout: "90s",
		},
		Automation: AutomationConfig{
			MaxRetries:      3,
			SocialDelay:     "5m",
			DefaultCategory: "news",
			AuthorID:        1,
			SiteBaseURL:     "https://example.com",
		},
		Publish: PublishConfig{},
		Alerts:  AlertsConfig{},
		Server:  ServerConfig{Port: 8080},
	}
}

// Load reads configuration from a YAML file and applies env var overrides.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// applyEnvOverrides overrides config values with environment variables.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HUDHUD_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HUDHUD_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Rewrite.BaseURL = v
		cfg.Rewrite.Enabled = true
	}
	if v := os.Getenv("PUBLISH_WEBHOOK_URL"); v != "" {
		cfg.Publish.URL = v
		cfg.Publish.Enabled = true
	}
	if v := os.Getenv("PUBLISH_WEBHOOK_SECRET"); v != "" {
		cfg.Publish.Secret = v
	}
	if v := os.Getenv("SLACK_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Slack.WebhookURL = v
		cfg.Alerts.Slack.Enabled = true
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.Alerts.Discord.WebhookURL = v
		cfg.Alerts.Discord.Enabled = true
	}
}
