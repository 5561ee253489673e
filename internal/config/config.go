package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

const (
	ClassifierMock   = "mock"
	ClassifierOpenAI = "openai"
)

type Config struct {
	Environment string
	Port        string
	LogLevel    string
	Classifier  string
	OpenAI      OpenAIConfig
	Upload      UploadConfig
	Session     SessionConfig
}

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	ModelText  string
	ModelImage string
}

type UploadConfig struct {
	MaxBytes        int64
	PreviewMaxPixel int
}

type SessionConfig struct {
	TTL time.Duration
}

func Load() *Config {
	maxUploadMB, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil || maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	previewMax, err := strconv.Atoi(getEnv("PREVIEW_MAX_PX", "640"))
	if err != nil || previewMax <= 0 {
		previewMax = 640
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "30m"))
	if err != nil || ttl <= 0 {
		ttl = 30 * time.Minute
	}

	return &Config{
		Environment: getEnv("ENV", "development"),
		Port:        getEnv("PORT", "8000"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Classifier:  getEnv("CLASSIFIER", ClassifierMock),
		OpenAI: OpenAIConfig{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			BaseURL:    getEnv("OPENAI_BASE_URL", ""),
			ModelText:  getEnv("OPENAI_MODEL_TEXT", "gpt-4o-mini"),
			ModelImage: getEnv("OPENAI_MODEL_IMAGE", "gpt-4o-mini"),
		},
		Upload: UploadConfig{
			MaxBytes:        int64(maxUploadMB) << 20,
			PreviewMaxPixel: previewMax,
		},
		Session: SessionConfig{
			TTL: ttl,
		},
	}
}

// Validate reports configuration that would fail at request time.
func (c *Config) Validate() error {
	switch c.Classifier {
	case ClassifierMock:
	case ClassifierOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is not set")
		}
	default:
		return errors.New("CLASSIFIER must be one of: mock, openai")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
