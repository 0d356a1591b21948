// Package config loads the host configuration from defaults, an optional
// YAML file and DREAMER_* environment variables, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/hupe1980/dreamer/channels"
	"github.com/hupe1980/dreamer/logging"
)

// EnvPrefix is the prefix of environment variables overriding file values.
// DREAMER_MODEL_BASE_URL maps to model.base_url.
const EnvPrefix = "DREAMER_"

// DefaultMemoriesPath is the knowledge base file, relative to the working
// directory, shared by chat sessions and the memories commands.
const DefaultMemoriesPath = "dreamer.db"

// Config is the root configuration.
type Config struct {
	Log       LogConfig       `koanf:"log"`
	Model     ModelConfig     `koanf:"model"`
	Agent     AgentConfig     `koanf:"agent"`
	Channels  ChannelsConfig  `koanf:"channels"`
	Memories  MemoriesConfig  `koanf:"memories"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json, text
}

// ModelConfig selects and tunes the backend.
type ModelConfig struct {
	Provider    string  `koanf:"provider"` // openai, anthropic, ollama
	Name        string  `koanf:"name"`
	BaseURL     string  `koanf:"base_url"` // empty selects the provider default
	APIKey      string  `koanf:"api_key"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int     `koanf:"max_tokens"`
	Stream      bool    `koanf:"stream"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	InstructionFile     string `koanf:"instruction_file"`
	AfterObservation    string `koanf:"after_observation"` // stay_busy, go_idle
	MaxConsecutiveCalls int    `koanf:"max_consecutive_calls"`
	DescribeTools       bool   `koanf:"describe_tools"`
}

// ChannelsConfig bounds the channel fabric.
type ChannelsConfig struct {
	Capacity int    `koanf:"capacity"` // 0 = unbounded
	Overflow string `koanf:"overflow"` // block, drop_oldest, reject
}

// MemoriesConfig configures the knowledge_base tool.
type MemoriesConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"` // empty or :memory: keeps it in memory
}

// TelemetryConfig selects the metric exporter.
type TelemetryConfig struct {
	Exporter string        `koanf:"exporter"` // none, stdout
	Interval time.Duration `koanf:"interval"`
}

var defaults = map[string]any{
	"log.level":                   "info",
	"log.format":                  "text",
	"model.provider":              "ollama",
	"model.name":                  "llama3.1",
	"model.base_url":              "",
	"model.temperature":           0.7,
	"model.max_tokens":            1024,
	"model.stream":                false,
	"agent.after_observation":     "stay_busy",
	"agent.max_consecutive_calls": 16,
	"agent.describe_tools":        true,
	"channels.capacity":           0,
	"channels.overflow":           "block",
	"memories.enabled":            true,
	"memories.path":               DefaultMemoriesPath,
	"telemetry.exporter":          "none",
	"telemetry.interval":          "1m",
}

// Load reads defaults, then the YAML file at path (if non-empty), then the
// environment. The result is validated.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	for key, v := range defaults {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("config: default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envKey maps DREAMER_SECTION_SOME_KEY to section.some_key.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, key, ok := strings.Cut(s, "_")
	if !ok {
		return section
	}
	return section + "." + key
}

// Validate rejects unknown enum values and out-of-range numbers.
func (c *Config) Validate() error {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format: unknown format %q", c.Log.Format)
	}

	switch c.Model.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("config: model.provider: unknown provider %q", c.Model.Provider)
	}
	if c.Model.Name == "" {
		return fmt.Errorf("config: model.name must not be empty")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 2 {
		return fmt.Errorf("config: model.temperature %v out of range [0, 2]", c.Model.Temperature)
	}
	if c.Model.MaxTokens < 0 {
		return fmt.Errorf("config: model.max_tokens must not be negative")
	}

	switch c.Agent.AfterObservation {
	case "stay_busy", "go_idle":
	default:
		return fmt.Errorf("config: agent.after_observation: unknown policy %q", c.Agent.AfterObservation)
	}
	if c.Agent.MaxConsecutiveCalls < 0 {
		return fmt.Errorf("config: agent.max_consecutive_calls must not be negative")
	}

	if c.Channels.Capacity < 0 {
		return fmt.Errorf("config: channels.capacity must not be negative")
	}
	if _, err := channels.ParseOverflow(c.Channels.Overflow); err != nil {
		return fmt.Errorf("config: channels.overflow: %w", err)
	}

	switch c.Telemetry.Exporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("config: telemetry.exporter: unknown exporter %q", c.Telemetry.Exporter)
	}

	return nil
}

// LoggerConfig converts the log section for logging.NewLogger.
func (c LogConfig) LoggerConfig() *logging.LoggerConfig {
	level, _ := logging.ParseLevel(c.Level)
	return &logging.LoggerConfig{Level: level, Format: c.Format, Output: os.Stderr, Component: "dreamer"}
}

// Instruction returns the contents of instruction_file, or "" when unset.
func (c AgentConfig) Instruction() (string, error) {
	if c.InstructionFile == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.InstructionFile)
	if err != nil {
		return "", fmt.Errorf("config: read instruction file: %w", err)
	}
	return string(b), nil
}

// ChannelOptions converts the channels section for channels.Create.
func (c ChannelsConfig) ChannelOptions() func(o *channels.Options) {
	overflow, _ := channels.ParseOverflow(c.Overflow)
	return func(o *channels.Options) {
		o.Capacity = c.Capacity
		o.Overflow = overflow
	}
}
