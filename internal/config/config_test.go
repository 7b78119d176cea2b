package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/logicloom/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := config.FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := config.FromEnv(envOf(map[string]string{
		"OPENAI_API_KEY":            "sk-test",
		"LLM_MODEL":                 "deepseek-ai/DeepSeek-V3",
		"LOGICLOOM_REDIS_ADDR":      "localhost:6379",
		"LOGICLOOM_REDIS_DB":        "2",
		"LOGICLOOM_SESSION_TTL":     "24h",
		"LOGICLOOM_REQUEST_TIMEOUT": "30s",
		"LOGICLOOM_LLM_RPS":         "2.5",
		"LOGICLOOM_MAX_INPUT_SIZE":  "1024",
	}))
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "deepseek-ai/DeepSeek-V3", cfg.ModelName)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2.5, cfg.LLMRPS)
	assert.Equal(t, 1024, cfg.MaxInputSize)
}

func TestFromEnv_SessionProtection(t *testing.T) {
	cfg, err := config.FromEnv(envOf(map[string]string{
		"LOGICLOOM_SESSION_KEY":           "a2V5",
		"LOGICLOOM_SESSION_FALLBACK_KEYS": "b2xk, ,b2xkZXI=",
		"LOGICLOOM_MASK_PII":              "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, "a2V5", cfg.SessionKey)
	assert.Equal(t, []string{"b2xk", "b2xkZXI="}, cfg.SessionFallbackKeys)
	assert.True(t, cfg.MaskPII)

	_, err = config.FromEnv(envOf(map[string]string{"LOGICLOOM_MASK_PII": "maybe"}))
	assert.ErrorContains(t, err, "LOGICLOOM_MASK_PII")
}

func TestFromEnv_Invalid(t *testing.T) {
	_, err := config.FromEnv(envOf(map[string]string{
		"LOGICLOOM_REDIS_DB":    "two",
		"LOGICLOOM_SESSION_TTL": "forever",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOGICLOOM_REDIS_DB")
	assert.Contains(t, err.Error(), "LOGICLOOM_SESSION_TTL")

	_, err = config.FromEnv(envOf(map[string]string{"LOGICLOOM_REDIS_DB": "-1"}))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("LOGICLOOM_TEST_DOTENV=from-file\nLOGICLOOM_TEST_PRESET=from-file\n"), 0o600))
	t.Setenv("LOGICLOOM_TEST_PRESET", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("LOGICLOOM_TEST_DOTENV") })

	require.NoError(t, config.LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("LOGICLOOM_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("LOGICLOOM_TEST_PRESET"))

	assert.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
