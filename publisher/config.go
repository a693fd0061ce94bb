package publisher

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultBinary      = "manim"
	DefaultOutputDir   = "out"
	DefaultWorkers     = 4
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config is loaded once at startup and handed to constructors.
type Config struct {
	LLM       LLMConfig        `yaml:"llm"`
	Validator ValidatorConfig  `yaml:"validator"`
	Retry     RetryConfig      `yaml:"retry"`
	Reference *ReferenceConfig `yaml:"reference,omitempty"`
	OutputDir string           `yaml:"output_dir" validate:"required"`
}

// LLMConfig 选择生成模型的 provider；mock 模式下 Replies 作为离线回复脚本。
type LLMConfig struct {
	Provider    string   `yaml:"provider" validate:"required,oneof=openai deepseek gemini mock"`
	Model       string   `yaml:"model" validate:"required_unless=Provider mock"`
	APIKey      string   `yaml:"api_key" validate:"required_unless=Provider mock"`
	APIKeyEnv   string   `yaml:"api_key_env,omitempty"`
	BaseURL     string   `yaml:"base_url,omitempty" validate:"required_if=Provider deepseek"`
	Temperature float64  `yaml:"temperature" validate:"gte=0,lte=2"`
	Replies     []string `yaml:"replies,omitempty" validate:"required_if=Provider mock"`
}

type ValidatorConfig struct {
	Binary  string        `yaml:"binary" validate:"required"`
	Args    []string      `yaml:"args"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
	Workers int           `yaml:"workers" validate:"gte=1"`
	TempDir string        `yaml:"temp_dir,omitempty"`
}

type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts" validate:"gte=1"`
}

// ReferenceConfig 配置文档查询（context7），有 API key 时才启用。
type ReferenceConfig struct {
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env,omitempty"`
	LibraryID string        `yaml:"library_id,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"`
}

// Enabled reports whether lookups can be made.
func (r *ReferenceConfig) Enabled() bool {
	return r != nil && r.APIKey != ""
}

// DefaultConfig returns the settings used for anything the file leaves out.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{Provider: "openai", Temperature: 0.2},
		Validator: ValidatorConfig{
			Binary:  DefaultBinary,
			Args:    []string{"--dry_run"},
			Timeout: DefaultTimeout,
			Workers: DefaultWorkers,
		},
		Retry:     RetryConfig{MaxAttempts: DefaultMaxAttempts},
		OutputDir: DefaultOutputDir,
	}
}

// LoadConfig reads YAML config from disk. JSON files work too.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.resolveEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) resolveEnv() {
	if c.LLM.APIKey == "" && c.LLM.APIKeyEnv != "" {
		c.LLM.APIKey = os.Getenv(c.LLM.APIKeyEnv)
	}
	if c.Reference != nil && c.Reference.APIKey == "" && c.Reference.APIKeyEnv != "" {
		c.Reference.APIKey = os.Getenv(c.Reference.APIKeyEnv)
	}
}

// Validate checks the struct tags and reports every problem at once.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.ActualTag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}
