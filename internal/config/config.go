package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Service configuration
	ServiceName string
	HTTPAddr    string

	// NATS configuration
	NatsURL           string
	NatsSubjectPrefix string
	NatsTimeout       time.Duration

	// Storage configuration
	RedisURL          string
	BoltPath          string
	StorageKeyPrefix  string
	SummaryKeyPrefix  string
	FallbackKeyPrefix string
	IndexKeyPrefix    string
	MaxMessages       int
	FallbackMaxBytes  int
	HistoryRetention  time.Duration
	StorageOpTimeout  time.Duration

	// Conversation configuration
	DefaultLanguage       string
	DefaultCharacter      string
	CharactersFile        string
	AdultMode             bool
	SummaryThreshold      int
	SummaryPriorMessages  int
	SummaryInputMessages  int
	ContextWithSummary    int
	ContextWithoutSummary int

	// LLM configuration
	LLMProvider        string
	LLMAPIKey          string
	LLMModel           string
	LLMBaseURL         string
	LLMTimeout         time.Duration
	ReplyMaxTokens     int
	ReplyTemperature   float64
	SummaryMaxTokens   int
	SummaryTemperature float64
}

func Load() (*Config, error) {
	cfg := &Config{
		// Service settings
		ServiceName: getEnv("SERVICE_NAME", "companion-chat"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),

		// NATS settings
		NatsURL:           getEnv("NATS_URL", ""),
		NatsSubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "chat"),
		NatsTimeout:       getDurationEnv("NATS_TIMEOUT", 30*time.Second),

		// Storage settings
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379/0"),
		BoltPath:          getEnv("BOLT_PATH", ".companion/fallback.bolt"),
		StorageKeyPrefix:  getEnv("STORAGE_KEY_PREFIX", "crushie_chat_"),
		SummaryKeyPrefix:  getEnv("SUMMARY_KEY_PREFIX", "crushie_summary_"),
		FallbackKeyPrefix: getEnv("FALLBACK_KEY_PREFIX", "crushie_chat_history_"),
		IndexKeyPrefix:    getEnv("INDEX_KEY_PREFIX", "crushie_chat_index_"),
		MaxMessages:       getIntEnv("MAX_MESSAGES", 500),
		FallbackMaxBytes:  getIntEnv("FALLBACK_MAX_BYTES", 4000),
		HistoryRetention:  getDurationEnv("HISTORY_RETENTION", 365*24*time.Hour),
		StorageOpTimeout:  getDurationEnv("STORAGE_TIMEOUT", 5*time.Second),

		// Conversation settings
		DefaultLanguage:       getEnv("DEFAULT_LANGUAGE", "zh-TW"),
		DefaultCharacter:      getEnv("DEFAULT_CHARACTER", "ethan"),
		CharactersFile:        getEnv("CHARACTERS_FILE", ""),
		AdultMode:             getBoolEnv("ADULT_MODE", false),
		SummaryThreshold:      getIntEnv("SUMMARY_THRESHOLD", 20),
		SummaryPriorMessages:  getIntEnv("SUMMARY_PRIOR_MESSAGES", 10),
		SummaryInputMessages:  getIntEnv("SUMMARY_INPUT_MESSAGES", 30),
		ContextWithSummary:    getIntEnv("CONTEXT_WITH_SUMMARY", 10),
		ContextWithoutSummary: getIntEnv("CONTEXT_WITHOUT_SUMMARY", 15),

		// LLM settings
		LLMProvider:        strings.ToLower(getEnv("LLM_PROVIDER", "deepseek")),
		LLMModel:           getEnv("LLM_MODEL", ""),
		LLMBaseURL:         getEnv("LLM_BASE_URL", ""),
		LLMTimeout:         getDurationEnv("LLM_TIMEOUT", 30*time.Second),
		ReplyMaxTokens:     getIntEnv("REPLY_MAX_TOKENS", 200),
		ReplyTemperature:   getFloatEnv("REPLY_TEMPERATURE", 0.7),
		SummaryMaxTokens:   getIntEnv("SUMMARY_MAX_TOKENS", 100),
		SummaryTemperature: getFloatEnv("SUMMARY_TEMPERATURE", 0.3),
	}

	cfg.LLMAPIKey = getEnv("LLM_API_KEY", providerKey(cfg.LLMProvider))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the conversation core cannot run with.
// A missing LLM API key is not an error: replies and summaries degrade
// to their local fallbacks.
func (c *Config) Validate() error {
	if c.MaxMessages <= 0 {
		return fmt.Errorf("MAX_MESSAGES must be positive, got %d", c.MaxMessages)
	}
	if c.FallbackMaxBytes <= 0 {
		return fmt.Errorf("FALLBACK_MAX_BYTES must be positive, got %d", c.FallbackMaxBytes)
	}
	if c.SummaryThreshold <= 0 {
		return fmt.Errorf("SUMMARY_THRESHOLD must be positive, got %d", c.SummaryThreshold)
	}
	if c.ContextWithSummary <= 0 || c.ContextWithoutSummary <= 0 {
		return fmt.Errorf("context window sizes must be positive")
	}
	if c.HistoryRetention <= 0 {
		return fmt.Errorf("HISTORY_RETENTION must be positive, got %s", c.HistoryRetention)
	}
	prefixes := map[string]string{
		"STORAGE_KEY_PREFIX":  c.StorageKeyPrefix,
		"SUMMARY_KEY_PREFIX":  c.SummaryKeyPrefix,
		"FALLBACK_KEY_PREFIX": c.FallbackKeyPrefix,
		"INDEX_KEY_PREFIX":    c.IndexKeyPrefix,
	}
	for name, value := range prefixes {
		if value == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

// providerKey returns the provider-specific API key variable
func providerKey(provider string) string {
	switch provider {
	case "openai":
		return os.Getenv("OPENAI_API_KEY")
	case "anthropic":
		return os.Getenv("ANTHROPIC_API_KEY")
	case "gemini":
		return os.Getenv("GEMINI_API_KEY")
	default:
		return os.Getenv("DEEPSEEK_API_KEY")
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
