// Package config reads runtime settings from the environment, optionally seeded by a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every environment-driven setting.
type Config struct {
	APIKey      string
	APIBase     string
	ModelName   string // LLM_MODEL; overrides every prompt's model when set
	PromptsDir  string `validate:"required"`
	DBPath      string
	SessionsDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int           `validate:"gte=0"`
	SessionTTL    time.Duration `validate:"gte=0"`

	// SessionKey is a base64 AES-256 key; when set, stored sessions are encrypted.
	SessionKey          string
	SessionFallbackKeys []string
	MaskPII             bool

	RequestTimeout time.Duration `validate:"gte=0"`
	LLMRPS         float64       `validate:"gte=0"`
	Python         string        `validate:"required"`
	MaxInputSize   int           `validate:"gte=0"`
}

// Defaults returns the configuration used when no variable is set.
func Defaults() Config {
	return Config{
		APIBase:        "https://api.siliconflow.cn/v1",
		PromptsDir:     "prompts",
		SessionsDir:    ".logicloom/sessions",
		RequestTimeout: 120 * time.Second,
		Python:         "python3",
	}
}

// LoadDotEnv loads the given .env files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv reads the configuration through getenv, falling back to Defaults.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	str("OPENAI_API_KEY", &cfg.APIKey)
	str("OPENAI_API_BASE", &cfg.APIBase)
	str("LLM_MODEL", &cfg.ModelName)
	str("LOGICLOOM_PROMPTS_DIR", &cfg.PromptsDir)
	str("LOGICLOOM_DB_PATH", &cfg.DBPath)
	str("LOGICLOOM_SESSIONS_DIR", &cfg.SessionsDir)
	str("LOGICLOOM_REDIS_ADDR", &cfg.RedisAddr)
	str("LOGICLOOM_REDIS_PASSWORD", &cfg.RedisPassword)
	num("LOGICLOOM_REDIS_DB", &cfg.RedisDB)
	dur("LOGICLOOM_SESSION_TTL", &cfg.SessionTTL)
	dur("LOGICLOOM_REQUEST_TIMEOUT", &cfg.RequestTimeout)
	str("LOGICLOOM_PYTHON", &cfg.Python)
	num("LOGICLOOM_MAX_INPUT_SIZE", &cfg.MaxInputSize)
	str("LOGICLOOM_SESSION_KEY", &cfg.SessionKey)

	if v := getenv("LOGICLOOM_SESSION_FALLBACK_KEYS"); v != "" {
		for _, k := range strings.Split(v, ",") {
			if k = strings.TrimSpace(k); k != "" {
				cfg.SessionFallbackKeys = append(cfg.SessionFallbackKeys, k)
			}
		}
	}
	if v := getenv("LOGICLOOM_MASK_PII"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOGICLOOM_MASK_PII: %w", err))
		} else {
			cfg.MaskPII = b
		}
	}

	if v := getenv("LOGICLOOM_LLM_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("LOGICLOOM_LLM_RPS: %w", err))
		} else {
			cfg.LLMRPS = f
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := LoadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromEnv(os.Getenv)
}
