package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone   = "UTC"
	defaultConfigPath = "config/config.yaml"
	configPathEnv     = "NEWSDIGEST_CONFIG"
	dataDirEnv        = "NEWSDIGEST_DATA_DIR"
	s3BucketEnv       = "NEWSDIGEST_S3_BUCKET"
	logLevelEnv       = "LOG_LEVEL"
	providerEnv       = "LLM_PROVIDER"
	openAIKeyEnv      = "OPENAI_API_KEY"
	openAIModelEnv    = "OPENAI_MODEL"
	claudeKeyEnv      = "ANTHROPIC_API_KEY"
	geminiProjectEnv  = "GEMINI_PROJECT_ID"
	geminiLocationEnv = "GEMINI_LOCATION"
	cohereKeyEnv      = "COHERE_API_KEY"
	serviceKeyEnv     = "SUMMARY_SERVICE_API_KEY"
	databaseDSNEnv    = "DATABASE_DSN"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Storage       StorageConfig      `yaml:"storage"`
	Scan          ScanConfig         `yaml:"scan"`
	Deduplication DedupConfig        `yaml:"deduplication"`
	LLM           LLMConfig          `yaml:"llm"`
	Enrichment    EnrichmentConfig   `yaml:"enrichment"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Archive       ArchiveConfig      `yaml:"archive"`
	Notifications NotificationConfig `yaml:"notifications"`
	Digest        DigestConfig       `yaml:"digest"`
	Sources       []SourceConfig     `yaml:"sources"`
}

// LoggingConfig selects the slog level and handler format (text or json).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// StorageConfig says where day stores live. A non-empty S3 bucket wins over
// the local directory.
type StorageConfig struct {
	Dir string   `yaml:"dir"`
	S3  S3Config `yaml:"s3"`
}

// S3Config locates day objects in a bucket.
type S3Config struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Profile      string `yaml:"profile"`
	UsePathStyle bool   `yaml:"usePathStyle"`
}

// ScanConfig bounds what the collector pulls per source.
type ScanConfig struct {
	RequestTimeout       time.Duration `yaml:"requestTimeout"`
	MaxArticlesPerSource int           `yaml:"maxArticlesPerSource"`
	MaxAgeHours          int           `yaml:"maxAgeHours"`
	UserAgent            string        `yaml:"userAgent"`
	MaxDescriptionLength int           `yaml:"maxDescriptionLength"`
}

// DedupConfig tunes the duplicate grouper.
type DedupConfig struct {
	TitleSimilarityThreshold float64 `yaml:"titleSimilarityThreshold"`
	UseLLMCheck              bool    `yaml:"useLlmCheck"`
	BorderlineFloor          float64 `yaml:"borderlineFloor"`
}

// LLMConfig picks the summarization backend and carries per-provider settings.
type LLMConfig struct {
	Provider string        `yaml:"provider"`
	OpenAI   ChatGPTConfig `yaml:"openai"`
	Claude   ClaudeConfig  `yaml:"claude"`
	Gemini   GeminiConfig  `yaml:"gemini"`
	Cohere   CohereConfig  `yaml:"cohere"`
	Service  ServiceConfig `yaml:"service"`
}

// ChatGPTConfig defines how to contact an OpenAI-compatible chat API.
type ChatGPTConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Model        string `yaml:"model"`
	APIKey       string `yaml:"apiKey"`
	SystemPrompt string `yaml:"systemPrompt"`
	MaxRPM       int    `yaml:"maxRpm"`
}

// ClaudeConfig defines how to contact the Anthropic messages API.
type ClaudeConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	MaxRPM   int    `yaml:"maxRpm"`
}

// GeminiConfig selects a Vertex AI project and model.
type GeminiConfig struct {
	ProjectID string `yaml:"projectId"`
	Location  string `yaml:"location"`
	Model     string `yaml:"model"`
	MaxRPM    int    `yaml:"maxRpm"`
}

// CohereConfig defines how to contact Cohere chat.
type CohereConfig struct {
	Model  string `yaml:"model"`
	APIKey string `yaml:"apiKey"`
	MaxRPM int    `yaml:"maxRpm"`
}

// ServiceConfig describes a self-hosted summarization service.
type ServiceConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"apiKey"`
	MaxRPM   int    `yaml:"maxRpm"`
}

// EnrichmentConfig tunes the enrichment pass.
type EnrichmentConfig struct {
	MaxAttempts  int           `yaml:"maxAttempts"`
	CallTimeout  time.Duration `yaml:"callTimeout"`
	FetchTimeout time.Duration `yaml:"fetchTimeout"`
	ContentLimit int           `yaml:"contentLimit"`
	PromptLimit  int           `yaml:"promptLimit"`
	FetchContent bool          `yaml:"fetchContent"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression"`
	Timezone       string         `yaml:"timezone"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// ArchiveConfig enables the Postgres archive when DSN is set.
type ArchiveConfig struct {
	DSN string `yaml:"dsn"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// DigestConfig shapes the rendered digest.
type DigestConfig struct {
	MaxArticles   int    `yaml:"maxArticles"`
	DashboardURL  string `yaml:"dashboardUrl"`
	SummaryLength int    `yaml:"summaryLength"`
}

// SourceConfig describes one news source.
type SourceConfig struct {
	Name     string `yaml:"name"`
	URL      string `yaml:"url"`
	RSSURL   string `yaml:"rssUrl"`
	Category string `yaml:"category"`
	Method   string `yaml:"method"`
	Enabled  *bool  `yaml:"enabled"`
}

// IsEnabled treats an omitted flag as enabled.
func (s SourceConfig) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// ScanMethod defaults to rss.
func (s SourceConfig) ScanMethod() string {
	if s.Method == "" {
		return "rss"
	}
	return s.Method
}

// Load reads .env and the YAML file (explicit path, $NEWSDIGEST_CONFIG, or
// config/config.yaml when present) over the defaults, then applies
// environment overrides. A named file that cannot be read or parsed is an
// error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := defaultConfig()

	explicit := path != ""
	if !explicit {
		path = os.Getenv(configPathEnv)
		explicit = path != ""
	}
	if !explicit {
		path = defaultConfigPath
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings no stage can run with.
func (c Config) Validate() error {
	t := c.Deduplication.TitleSimilarityThreshold
	if t < 0 || t > 1 {
		return fmt.Errorf("config: titleSimilarityThreshold %v outside [0,1]", t)
	}
	if c.Deduplication.UseLLMCheck && (c.Deduplication.BorderlineFloor < 0 || c.Deduplication.BorderlineFloor > t) {
		return fmt.Errorf("config: borderlineFloor %v must lie in [0,%v]", c.Deduplication.BorderlineFloor, t)
	}
	if c.Enrichment.MaxAttempts < 1 {
		return fmt.Errorf("config: enrichment maxAttempts must be at least 1")
	}
	if c.Storage.Dir == "" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("config: storage dir or s3 bucket is required")
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(dataDirEnv); v != "" {
		c.Storage.Dir = v
	}

	if v := os.Getenv(s3BucketEnv); v != "" {
		c.Storage.S3.Bucket = v
	}

	if v := os.Getenv(providerEnv); v != "" {
		c.LLM.Provider = v
	}

	if v := os.Getenv(openAIKeyEnv); v != "" {
		c.LLM.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.LLM.OpenAI.Model = v
	}

	if v := os.Getenv(claudeKeyEnv); v != "" {
		c.LLM.Claude.APIKey = v
	}

	if v := os.Getenv(geminiProjectEnv); v != "" {
		c.LLM.Gemini.ProjectID = v
	}

	if v := os.Getenv(geminiLocationEnv); v != "" {
		c.LLM.Gemini.Location = v
	}

	if v := os.Getenv(cohereKeyEnv); v != "" {
		c.LLM.Cohere.APIKey = v
	}

	if v := os.Getenv(serviceKeyEnv); v != "" {
		c.LLM.Service.APIKey = v
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Archive.DSN = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}

	if v := os.Getenv("DEDUP_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Deduplication.TitleSimilarityThreshold = f
		} else {
			log.Printf("config: ignoring DEDUP_THRESHOLD=%q: %v", v, err)
		}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Storage: StorageConfig{Dir: "data/articles", S3: S3Config{Prefix: "articles"}},
		Scan: ScanConfig{
			RequestTimeout:       15 * time.Second,
			MaxArticlesPerSource: 20,
			MaxAgeHours:          24,
			UserAgent:            "NewsDigest/1.0 (RSS Reader)",
			MaxDescriptionLength: 1000,
		},
		Deduplication: DedupConfig{
			TitleSimilarityThreshold: 0.8,
			BorderlineFloor:          0.6,
		},
		LLM: LLMConfig{
			Provider: "gemini",
			OpenAI: ChatGPTConfig{
				Endpoint:     "https://api.openai.com/v1/chat/completions",
				Model:        "gpt-4o-mini",
				SystemPrompt: "You are a cybersecurity and AI news analyst.",
				MaxRPM:       60,
			},
			Claude: ClaudeConfig{
				Endpoint: "https://api.anthropic.com/v1/messages",
				Model:    "claude-3-5-haiku-latest",
				MaxRPM:   50,
			},
			Gemini:  GeminiConfig{Location: "us-central1", Model: "gemini-1.5-flash", MaxRPM: 15},
			Cohere:  CohereConfig{Model: "command-r", MaxRPM: 20},
			Service: ServiceConfig{Endpoint: "http://localhost:8090", MaxRPM: 60},
		},
		Enrichment: EnrichmentConfig{
			MaxAttempts:  2,
			CallTimeout:  60 * time.Second,
			FetchTimeout: 15 * time.Second,
			ContentLimit: 8000,
			PromptLimit:  6000,
			FetchContent: true,
		},
		Scheduler: SchedulerConfig{CronExpression: "0 6 * * *", Timezone: defaultTimezone, location: tz},
		Digest:    DigestConfig{MaxArticles: 30, SummaryLength: 160},
	}
}
