package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP server
	HTTPAddr string

	// Database
	DatabaseURL string

	// Gemini
	GeminiAPIKey string
	ModelName    string
	LLMTimeout   time.Duration

	// Notion
	NotionToken          string
	NotionTransactionsDB string
	NotionUploadsDB      string
	NotionSyncLogDB      string
	NotionWebhookSecret  string

	// Telegram
	TelegramToken string

	// Statement handling
	ArchiveBucket string // empty disables the GCS archive

	// Worker
	WorkerCount int

	// Misc
	DefaultUserID string
	LogLevel      string
}

// Load reads the environment into a Config. A .env file in the working
// directory is merged in first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/finsense?sslmode=disable"),

		GeminiAPIKey: getEnv("GEMINI_API_KEY", ""),
		ModelName:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:   getEnvDuration("LLM_TIMEOUT", 15*time.Second),

		NotionToken:          getEnv("NOTION_TOKEN", ""),
		NotionTransactionsDB: getEnv("NOTION_TRANSACTIONS_DB_ID", ""),
		NotionUploadsDB:      getEnv("NOTION_UPLOADS_DB_ID", ""),
		NotionSyncLogDB:      getEnv("NOTION_SYNC_LOGS_DB_ID", ""),
		NotionWebhookSecret:  getEnv("NOTION_WEBHOOK_SECRET", ""),

		TelegramToken: getEnv("TELEGRAM_BOT_TOKEN", ""),

		ArchiveBucket: getEnv("GCS_BUCKET", ""),

		WorkerCount: getEnvInt("WORKER_COUNT", 2),

		DefaultUserID: getEnv("DEFAULT_USER_ID", "local"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the fields every binary depends on. Transport-specific
// requirements (Telegram token, Notion databases) are enforced by the
// binaries that need them.
func (c *Config) Validate() error {
	var errs []string

	if c.HTTPAddr == "" {
		errs = append(errs, "HTTP address cannot be empty")
	}

	if parsed, err := url.Parse(c.DatabaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid database URL %q: %v", c.DatabaseURL, err))
	} else if parsed.Scheme != "postgres" && parsed.Scheme != "postgresql" {
		errs = append(errs, fmt.Sprintf("invalid database URL scheme %q: must be postgres or postgresql", parsed.Scheme))
	}

	if c.LLMTimeout < time.Second {
		errs = append(errs, fmt.Sprintf("invalid LLM timeout %v: must be at least 1 second", c.LLMTimeout))
	} else if c.LLMTimeout > 5*time.Minute {
		errs = append(errs, fmt.Sprintf("invalid LLM timeout %v: must be at most 5 minutes", c.LLMTimeout))
	}

	if c.WorkerCount < 1 {
		errs = append(errs, fmt.Sprintf("invalid worker count %d: must be at least 1", c.WorkerCount))
	} else if c.WorkerCount > 64 {
		errs = append(errs, fmt.Sprintf("invalid worker count %d: must be at most 64", c.WorkerCount))
	}

	if c.NotionToken != "" && c.NotionTransactionsDB == "" {
		errs = append(errs, "NOTION_TRANSACTIONS_DB_ID is required when NOTION_TOKEN is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

// RequireNotion checks the fields the sync runner needs.
func (c *Config) RequireNotion() error {
	var missing []string
	if c.NotionToken == "" {
		missing = append(missing, "NOTION_TOKEN")
	}
	if c.NotionTransactionsDB == "" {
		missing = append(missing, "NOTION_TRANSACTIONS_DB_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RequireTelegram checks the fields the Telegram listener needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("missing required configuration: TELEGRAM_BOT_TOKEN")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
