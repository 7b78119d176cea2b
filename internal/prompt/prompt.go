// Package prompt loads the per-handler prompt configuration files and renders their templates.
package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/logicloom/pkg/domain"
	"github.com/aretw0/logicloom/pkg/ports"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults applied to model settings a prompt file leaves out.
const (
	DefaultModel       = "Qwen/Qwen3-8B"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

// FinalChallengeKey is the auxiliary prompt appended when the transfer quiz bank is exhausted.
const FinalChallengeKey = "final_challenge"

var extensions = []string{".yaml", ".yml", ".json"}

// fileModel mirrors ports.ModelConfig with optional fields so defaults can be told apart
// from explicit zero values.
type fileModel struct {
	Name        string   `yaml:"name" json:"name"`
	Temperature *float32 `yaml:"temperature" json:"temperature"`
	MaxTokens   *int     `yaml:"max_tokens" json:"max_tokens"`
}

type fileConfig struct {
	System    string             `yaml:"system" json:"system"`
	User      string             `yaml:"user" json:"user"`
	Model     fileModel          `yaml:"model" json:"model"`
	Quizzes   []domain.QuizEntry `yaml:"quizzes" json:"quizzes"`
	Auxiliary map[string]string  `yaml:"auxiliary" json:"auxiliary"`
}

// Set is an immutable collection of prompt configurations keyed by handler.
// It implements ports.PromptSource and is safe for concurrent use.
type Set struct {
	configs map[domain.HandlerID]ports.PromptConfig
}

// NewSet builds a Set from already loaded configurations, validating each one.
func NewSet(configs ...ports.PromptConfig) (*Set, error) {
	s := &Set{configs: make(map[domain.HandlerID]ports.PromptConfig, len(configs))}
	for _, cfg := range configs {
		if err := Validate(cfg); err != nil {
			return nil, err
		}
		s.configs[domain.HandlerID(cfg.Name)] = cfg
	}
	return s, nil
}

// LoadDir reads <handler>.yaml (or .yml, .json) for every handler found in dir.
// Handlers without a file are simply absent; Prompt reports them as not found.
func LoadDir(dir string) (*Set, error) {
	var configs []ports.PromptConfig
	for _, h := range domain.Handlers {
		path, err := find(dir, string(h))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}
		cfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg.Name = string(h)
		configs = append(configs, cfg)
	}
	if len(configs) == 0 {
		return nil, fmt.Errorf("no prompt files in %s: %w", dir, fs.ErrNotExist)
	}
	return NewSet(configs...)
}

func find(dir, name string) (string, error) {
	for _, ext := range extensions {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
	return "", fs.ErrNotExist
}

// LoadFile parses one prompt file (YAML, or JSON by extension) and fills model defaults.
func LoadFile(path string) (ports.PromptConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ports.PromptConfig{}, fmt.Errorf("failed to read prompt file: %w", err)
	}

	var raw fileConfig
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return ports.PromptConfig{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return ports.PromptConfig{}, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	cfg := ports.PromptConfig{
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		System:    raw.System,
		User:      raw.User,
		Quizzes:   raw.Quizzes,
		Auxiliary: raw.Auxiliary,
		Model: ports.ModelConfig{
			Model:       raw.Model.Name,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
	}
	if cfg.Model.Model == "" {
		cfg.Model.Model = DefaultModel
	}
	if raw.Model.Temperature != nil {
		cfg.Model.Temperature = *raw.Model.Temperature
	}
	if raw.Model.MaxTokens != nil {
		cfg.Model.MaxTokens = *raw.Model.MaxTokens
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks a configuration's required fields, model bounds, quiz entries and
// that both templates parse.
func Validate(cfg ports.PromptConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid prompt %q: %w", cfg.Name, err)
	}
	if _, err := parse(cfg.Name+".system", cfg.System); err != nil {
		return fmt.Errorf("invalid prompt %q: %w", cfg.Name, err)
	}
	if _, err := parse(cfg.Name+".user", cfg.User); err != nil {
		return fmt.Errorf("invalid prompt %q: %w", cfg.Name, err)
	}
	return nil
}

// Prompt returns the configuration for handler.
func (s *Set) Prompt(handler string) (ports.PromptConfig, error) {
	cfg, ok := s.configs[domain.HandlerID(handler)]
	if !ok {
		return ports.PromptConfig{}, fmt.Errorf("%s: %w", handler, domain.ErrPromptNotFound)
	}
	return cfg, nil
}

// Handlers returns the handlers that have a configuration, in routing-table order.
func (s *Set) Handlers() []domain.HandlerID {
	var out []domain.HandlerID
	for _, h := range domain.Handlers {
		if _, ok := s.configs[h]; ok {
			out = append(out, h)
		}
	}
	return out
}
