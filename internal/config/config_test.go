package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.MaxMessages)
	assert.Equal(t, 4000, cfg.FallbackMaxBytes)
	assert.Equal(t, 365*24*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, 20, cfg.SummaryThreshold)
	assert.Equal(t, 10, cfg.ContextWithSummary)
	assert.Equal(t, 15, cfg.ContextWithoutSummary)
	assert.Equal(t, "deepseek", cfg.LLMProvider)
	assert.Empty(t, cfg.LLMAPIKey)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("MAX_MESSAGES", "50")
	t.Setenv("HISTORY_RETENTION", "48h")
	t.Setenv("LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("REPLY_TEMPERATURE", "0.2")
	t.Setenv("ADULT_MODE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.MaxMessages)
	assert.Equal(t, 48*time.Hour, cfg.HistoryRetention)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "sk-ant", cfg.LLMAPIKey)
	assert.InDelta(t, 0.2, cfg.ReplyTemperature, 1e-9)
	assert.True(t, cfg.AdultMode)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("SUMMARY_THRESHOLD", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestMalformedValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("MAX_MESSAGES", "lots")
	t.Setenv("LLM_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.MaxMessages)
	assert.Equal(t, 30*time.Second, cfg.LLMTimeout)
}
