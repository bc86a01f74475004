package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Local registry: outline YAML/CSV files next to their source text.
	RegistryDir string

	// Remote registry, consulted for documents not held locally.
	RegistryURL    string
	RegistryAPIKey string

	// Upload limits
	MaxUploadBytes int64

	// Normalized-view cache
	ViewCacheSize int
	ViewCacheTTL  time.Duration

	// Documents searched in parallel by one ask request.
	AskConcurrency int

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		RegistryDir: os.Getenv("REGISTRY_DIR"),

		RegistryURL:    os.Getenv("REGISTRY_URL"),
		RegistryAPIKey: os.Getenv("REGISTRY_API_KEY"),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		ViewCacheSize: envInt("VIEW_CACHE_SIZE", 64),
		ViewCacheTTL:  envDuration("VIEW_CACHE_TTL", 30*time.Minute),

		AskConcurrency: envInt("ASK_CONCURRENCY", 4),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ViewCacheSize <= 0 {
		cfg.ViewCacheSize = 64
	}
	if cfg.ViewCacheTTL <= 0 {
		cfg.ViewCacheTTL = 30 * time.Minute
	}
	if cfg.AskConcurrency <= 0 {
		cfg.AskConcurrency = 4
	}

	return cfg
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.RegistryAPIKey != "" && c.RegistryURL == "" {
		return fmt.Errorf("REGISTRY_API_KEY is set but REGISTRY_URL is empty")
	}
	if c.RegistryDir != "" {
		info, err := os.Stat(c.RegistryDir)
		if err != nil {
			return fmt.Errorf("REGISTRY_DIR: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("REGISTRY_DIR %s is not a directory", c.RegistryDir)
		}
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
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

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
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
