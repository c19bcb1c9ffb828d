package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wikithread/talkparse/internal/thread"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Permastore connection (optional; identity persistence is skipped
	// when no URL is configured)
	StoreURL    string
	StoreAPIKey string

	// Wiki link resolution
	ArticlePath    string
	UserNamespaces []string
	ContribsPages  []string

	// Locale
	DateFormat string
	Timezone   string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8091"),

		APIKey: os.Getenv("TALKPARSE_API_KEY"),

		StoreURL:    os.Getenv("STORE_URL"),
		StoreAPIKey: os.Getenv("STORE_API_KEY"),

		ArticlePath:    envOr("ARTICLE_PATH", "/wiki/$1"),
		UserNamespaces: envList("USER_NAMESPACES", []string{"User", "User talk"}),
		ContribsPages:  envList("CONTRIBS_PAGES", []string{"Special:Contributions"}),

		DateFormat: envOr("DATE_FORMAT", "H:i, j F Y"),
		Timezone:   envOr("TIMEZONE", "UTC"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TALKPARSE_API_KEY is required")
	}
	if !strings.Contains(c.ArticlePath, "$1") {
		return fmt.Errorf("ARTICLE_PATH must contain $1")
	}
	return nil
}

// ParserConfig builds the immutable parse configuration from the service
// settings. The locale starts from the English tables and applies the
// configured date format and timezone on top.
func (c Config) ParserConfig() (thread.Config, error) {
	pc := thread.DefaultConfig()
	pc.ArticlePath = c.ArticlePath
	pc.UserNamespaces = c.UserNamespaces
	pc.ContribsPages = c.ContribsPages
	pc.Locale.DateFormat = c.DateFormat

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return thread.Config{}, fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	pc.Locale.Location = loc
	return pc, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
