package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/joho/godotenv"
)

// Providers accepted in LLM_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Webhook payload flavors accepted in WEBHOOK_FORMAT.
const (
	WebhookDiscord = "discord"
	WebhookSlack   = "slack"
)

type Config struct {
	// pipeline
	Feeds         []Feed
	FeedsFile     string
	FeedMaxItems  int
	FetchTimeout  time.Duration
	WebhookURL    string
	WebhookFormat string
	DryRun        bool
	Timezone      string
	DedupeURLs    bool

	LLMProvider     string
	LLMModel        string
	LLMTimeout      time.Duration
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AnthropicAPIKey string

	RunTimeout time.Duration
	LogLevel   string

	// daemon only
	AppPort       string
	CronSpec      string
	PostgresDSN   string
	RedisAddr     string
	BasicAuthUser string
	BasicAuthPass string
	RunOnStart    bool
	StartupDelay  time.Duration
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	// set the level first so warnings raised while reading the environment honour it
	logging.Init(getEnv("LOG_LEVEL", "info"))

	cfg := &Config{
		FeedsFile:     getEnv("FEEDS_FILE", ""),
		FeedMaxItems:  getInt("FEED_MAX_ITEMS", 10),
		FetchTimeout:  getDuration("FETCH_TIMEOUT", 15*time.Second),
		WebhookURL:    getEnv("WEBHOOK_URL", getEnv("DISCORD_WEBHOOK_URL", "")),
		WebhookFormat: strings.ToLower(getEnv("WEBHOOK_FORMAT", WebhookDiscord)),
		DryRun:        getBool("DRY_RUN", false),
		Timezone:      getEnv("BRIEFING_TZ", "Local"),
		DedupeURLs:    getBool("DEDUPE_URLS", false),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		LLMModel:        getEnv("LLM_MODEL", ""),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 2*time.Minute),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", getEnv("GOOGLE_API_KEY", "")),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),

		RunTimeout: getDuration("RUN_TIMEOUT", 5*time.Minute),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		AppPort:       getEnv("APP_PORT", "9000"),
		CronSpec:      getEnv("CRON_SPEC", "30 7 * * *"),
		PostgresDSN:   getEnv("POSTGRES_DSN", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		BasicAuthUser: getEnv("APP_BASIC_USER", ""),
		BasicAuthPass: getEnv("APP_BASIC_PASS", ""),
		RunOnStart:    getBool("RUN_ON_START", false),
		StartupDelay:  getDuration("STARTUP_DELAY", 15*time.Second),
	}

	if cfg.FeedsFile != "" {
		feeds, err := LoadFeeds(cfg.FeedsFile)
		if err != nil {
			return nil, err
		}
		cfg.Feeds = feeds
	} else {
		cfg.Feeds = DefaultFeeds()
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.Info("config loaded",
		"feeds", len(cfg.Feeds),
		"provider", cfg.LLMProvider,
		"webhook_format", cfg.WebhookFormat,
		"dry_run", cfg.DryRun,
		"cron", cfg.CronSpec)
	return cfg, nil
}

// Validate checks everything a run needs before any network I/O happens.
func (c *Config) Validate() error {
	if err := ValidateFeeds(c.Feeds); err != nil {
		return err
	}
	if c.FeedMaxItems <= 0 {
		return fmt.Errorf("FEED_MAX_ITEMS must be positive, got %d", c.FeedMaxItems)
	}
	if c.WebhookURL == "" && !c.DryRun {
		return fmt.Errorf("WEBHOOK_URL is required")
	}
	switch c.WebhookFormat {
	case WebhookDiscord, WebhookSlack:
	default:
		return fmt.Errorf("unknown WEBHOOK_FORMAT %q", c.WebhookFormat)
	}
	if c.APIKey() == "" {
		switch c.LLMProvider {
		case ProviderGemini:
			return fmt.Errorf("GEMINI_API_KEY is required for provider %q", c.LLMProvider)
		case ProviderOpenAI:
			return fmt.Errorf("OPENAI_API_KEY is required for provider %q", c.LLMProvider)
		case ProviderAnthropic:
			return fmt.Errorf("ANTHROPIC_API_KEY is required for provider %q", c.LLMProvider)
		default:
			return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid BRIEFING_TZ %q: %w", c.Timezone, err)
	}
	return nil
}

// APIKey returns the key of the selected provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKey
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderAnthropic:
		return c.AnthropicAPIKey
	}
	return ""
}

// Location resolves BRIEFING_TZ.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logging.Warn("ignoring invalid integer env", "key", key, "value", v)
		return def
	}
	return n
}

func getBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logging.Warn("ignoring invalid boolean env", "key", key, "value", v)
		return def
	}
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logging.Warn("ignoring invalid duration env", "key", key, "value", v)
		return def
	}
	return d
}
