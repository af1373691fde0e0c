package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/applypilot/internal/cache"
	"github.com/amishk599/applypilot/internal/model"
)

// Config is the root configuration for ApplyPilot.
type Config struct {
	Profile model.UserProfile
	AI      AIConfig
	Cache   CacheConfig
	Fill    FillConfig
}

// AIConfig controls the completion endpoint and retry behavior.
type AIConfig struct {
	BaseURL         string        // defaults to the Gemini v1beta models endpoint
	Model           string        // e.g. "gemini-2.0-flash"
	APIKey          string        // expanded from env var by Load
	Timeout         time.Duration // per-request timeout
	MaxRetries      int           // total attempts per completion call
	RetryDelay      time.Duration // linear backoff unit
	Temperature     float64
	TopK            int
	TopP            float64
	MaxOutputTokens int
	SafetyThreshold string
}

// CacheConfig controls the answer cache.
type CacheConfig struct {
	Path               string  // sqlite file; empty = in-memory only
	PreviewThreshold   float64 // similarity floor for suggestions
	AutoApplyThreshold float64 // similarity floor for silent reuse
}

// FillConfig controls how answers are written into the form.
type FillConfig struct {
	SimulateTyping bool
	FieldDelay     time.Duration
	SkipFilled     bool
}

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// rawConfig is used for YAML unmarshaling (snake_case fields and durations
// as strings).
type rawConfig struct {
	Profile rawProfile `yaml:"profile"`
	AI      rawAI      `yaml:"ai"`
	Cache   rawCache   `yaml:"cache"`
	Fill    rawFill    `yaml:"fill"`
}

type rawProfile struct {
	FirstName       string   `yaml:"first_name"`
	LastName        string   `yaml:"last_name"`
	Email           string   `yaml:"email"`
	Phone           string   `yaml:"phone"`
	YearsExperience int      `yaml:"years_experience"`
	Skills          []string `yaml:"skills"`
	Summary         string   `yaml:"summary"`
	CurrentTitle    string   `yaml:"current_title"`
	Education       string   `yaml:"education"`
	DesiredSalary   string   `yaml:"desired_salary"`
}

type rawAI struct {
	BaseURL         string  `yaml:"base_url"`
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	Timeout         string  `yaml:"timeout"`
	MaxRetries      int     `yaml:"max_retries"`
	RetryDelay      string  `yaml:"retry_delay"`
	Temperature     float64 `yaml:"temperature"`
	TopK            int     `yaml:"top_k"`
	TopP            float64 `yaml:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	SafetyThreshold string  `yaml:"safety_threshold"`
}

type rawCache struct {
	Path               string   `yaml:"path"`
	PreviewThreshold   *float64 `yaml:"preview_threshold"`
	AutoApplyThreshold *float64 `yaml:"auto_apply_threshold"`
}

type rawFill struct {
	SimulateTyping bool   `yaml:"simulate_typing"`
	FieldDelay     string `yaml:"field_delay"`
	SkipFilled     bool   `yaml:"skip_filled"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Environment variables in the file are expanded, so
// api_key can be written as "${GEMINI_API_KEY}".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	aiTimeout := 30 * time.Second // default
	if raw.AI.Timeout != "" {
		aiTimeout, err = time.ParseDuration(raw.AI.Timeout)
		if err != nil {
			return nil, fmt.Errorf("parse ai.timeout %q: %w", raw.AI.Timeout, err)
		}
	}

	retryDelay := 1 * time.Second // default
	if raw.AI.RetryDelay != "" {
		retryDelay, err = time.ParseDuration(raw.AI.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("parse ai.retry_delay %q: %w", raw.AI.RetryDelay, err)
		}
	}

	fieldDelay := time.Duration(0)
	if raw.Fill.FieldDelay != "" {
		fieldDelay, err = time.ParseDuration(raw.Fill.FieldDelay)
		if err != nil {
			return nil, fmt.Errorf("parse fill.field_delay %q: %w", raw.Fill.FieldDelay, err)
		}
	}

	baseURL := raw.AI.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	maxRetries := raw.AI.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}
	temperature := raw.AI.Temperature
	if temperature == 0 {
		temperature = 0.7
	}
	topK := raw.AI.TopK
	if topK == 0 {
		topK = 40
	}
	topP := raw.AI.TopP
	if topP == 0 {
		topP = 0.95
	}
	maxTokens := raw.AI.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}
	safety := raw.AI.SafetyThreshold
	if safety == "" {
		safety = "BLOCK_MEDIUM_AND_ABOVE"
	}

	previewThreshold := cache.DefaultPreviewThreshold
	if raw.Cache.PreviewThreshold != nil {
		previewThreshold = *raw.Cache.PreviewThreshold
	}
	autoApplyThreshold := cache.DefaultAutoApplyThreshold
	if raw.Cache.AutoApplyThreshold != nil {
		autoApplyThreshold = *raw.Cache.AutoApplyThreshold
	}

	cfg := &Config{
		Profile: model.UserProfile{
			FirstName:       raw.Profile.FirstName,
			LastName:        raw.Profile.LastName,
			Email:           raw.Profile.Email,
			Phone:           raw.Profile.Phone,
			YearsExperience: raw.Profile.YearsExperience,
			Skills:          raw.Profile.Skills,
			Summary:         raw.Profile.Summary,
			CurrentTitle:    raw.Profile.CurrentTitle,
			Education:       raw.Profile.Education,
			DesiredSalary:   raw.Profile.DesiredSalary,
		},
		AI: AIConfig{
			BaseURL:         baseURL,
			Model:           raw.AI.Model,
			APIKey:          raw.AI.APIKey,
			Timeout:         aiTimeout,
			MaxRetries:      maxRetries,
			RetryDelay:      retryDelay,
			Temperature:     temperature,
			TopK:            topK,
			TopP:            topP,
			MaxOutputTokens: maxTokens,
			SafetyThreshold: safety,
		},
		Cache: CacheConfig{
			Path:               raw.Cache.Path,
			PreviewThreshold:   previewThreshold,
			AutoApplyThreshold: autoApplyThreshold,
		},
		Fill: FillConfig{
			SimulateTyping: raw.Fill.SimulateTyping,
			FieldDelay:     fieldDelay,
			SkipFilled:     raw.Fill.SkipFilled,
		},
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key is required (set GEMINI_API_KEY or put it in the config)")
	}
	if cfg.AI.Model == "" {
		return fmt.Errorf("ai.model is required")
	}
	if cfg.AI.MaxRetries < 1 {
		return fmt.Errorf("ai.max_retries must be at least 1, got %d", cfg.AI.MaxRetries)
	}
	if cfg.Cache.PreviewThreshold < 0 || cfg.Cache.PreviewThreshold > 1 {
		return fmt.Errorf("cache.preview_threshold must be in [0,1], got %v", cfg.Cache.PreviewThreshold)
	}
	if cfg.Cache.AutoApplyThreshold < 0 || cfg.Cache.AutoApplyThreshold > 1 {
		return fmt.Errorf("cache.auto_apply_threshold must be in [0,1], got %v", cfg.Cache.AutoApplyThreshold)
	}
	return nil
}
