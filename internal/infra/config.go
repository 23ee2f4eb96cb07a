package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	Port               string
	LayerAPIURL        string
	LayerAPIKey        string
	LayerWorkspaceID   string
	GeminiAPIKey       string
	GeminiModel        string
	MinCreditsRequired int
	PollTimeout        time.Duration
	MaxImageDimension  int
	MaxPlayableBytes   int64
	OutputDir          string
	HTTPReadTimeout    time.Duration
	HTTPWriteTimeout   time.Duration
	HTTPIdleTimeout    time.Duration
	RateLimitPerMin    int
	AllowedOrigins     []string
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		LayerAPIURL:        getEnv("LAYER_API_URL", "https://api.app.layer.ai/v1/graphql"),
		LayerAPIKey:        os.Getenv("LAYER_API_KEY"),
		LayerWorkspaceID:   os.Getenv("LAYER_WORKSPACE_ID"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MinCreditsRequired: getEnvInt("MIN_CREDITS_REQUIRED", 50),
		PollTimeout:        time.Second * time.Duration(getEnvInt("POLL_TIMEOUT_SECONDS", 60)),
		MaxImageDimension:  getEnvInt("MAX_IMAGE_DIMENSION", 512),
		MaxPlayableBytes:   int64(getEnvInt("MAX_PLAYABLE_SIZE_MB", 5)) * 1024 * 1024,
		OutputDir:          getEnv("OUTPUT_DIR", "./output"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:    getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:     getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if cfg.LayerWorkspaceID == "" {
		return nil, fmt.Errorf("LAYER_WORKSPACE_ID is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
