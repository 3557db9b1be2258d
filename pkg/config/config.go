package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// FlexibleStringSlice is a []string that also accepts JSON numbers,
// so allow_from can contain both "123" and 123.
type FlexibleStringSlice []string

func (f *FlexibleStringSlice) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	result := make([]string, 0, len(raw))
	for _, v := range raw {
		switch val := v.(type) {
		case string:
			result = append(result, val)
		case float64:
			result = append(result, fmt.Sprintf("%.0f", val))
		default:
			result = append(result, fmt.Sprintf("%v", val))
		}
	}
	*f = result
	return nil
}

type Config struct {
	Bot      BotConfig      `json:"bot"`
	Memory   MemoryConfig   `json:"memory"`
	Provider ProviderConfig `json:"provider"`
	Channels ChannelsConfig `json:"channels"`
}

// BotConfig describes the companion persona used when building prompts.
type BotConfig struct {
	Name  string `json:"name" env:"LUNA_BOT_NAME"`
	Age   int    `json:"age" env:"LUNA_BOT_AGE"`
	Style string `json:"style" env:"LUNA_BOT_STYLE"`
}

type MemoryConfig struct {
	DataDir        string `json:"data_dir" env:"LUNA_MEMORY_DATA_DIR"`
	ExcerptNotes   int    `json:"excerpt_notes" env:"LUNA_MEMORY_EXCERPT_NOTES"`
	ExcerptTasks   int    `json:"excerpt_tasks" env:"LUNA_MEMORY_EXCERPT_TASKS"`
	ArchiveEnabled bool   `json:"archive_enabled" env:"LUNA_MEMORY_ARCHIVE_ENABLED"`
}

type ProviderConfig struct {
	APIBase     string  `json:"api_base" env:"LUNA_PROVIDER_API_BASE"`
	APIKey      string  `json:"api_key" env:"LUNA_PROVIDER_API_KEY"`
	Model       string  `json:"model" env:"LUNA_PROVIDER_MODEL"`
	MaxTokens   int     `json:"max_tokens" env:"LUNA_PROVIDER_MAX_TOKENS"`
	Temperature float64 `json:"temperature" env:"LUNA_PROVIDER_TEMPERATURE"`
}

type ChannelsConfig struct {
	Discord DiscordConfig `json:"discord"`
}

type DiscordConfig struct {
	Token     string              `json:"token" env:"LUNA_CHANNELS_DISCORD_TOKEN"`
	AllowFrom FlexibleStringSlice `json:"allow_from" env:"LUNA_CHANNELS_DISCORD_ALLOW_FROM"`
}

func DefaultConfig() *Config {
	return &Config{
		Bot: BotConfig{
			Name:  "Luna",
			Age:   21,
			Style: "warm, natural, like a close friend",
		},
		Memory: MemoryConfig{
			DataDir:        "~/.luna/data",
			ExcerptNotes:   3,
			ExcerptTasks:   3,
			ArchiveEnabled: true,
		},
		Provider: ProviderConfig{
			APIBase:     "http://localhost:11434/v1",
			Model:       "qwen2.5",
			MaxTokens:   500,
			Temperature: 0.8,
		},
		Channels: ChannelsConfig{
			Discord: DiscordConfig{
				Token:     "",
				AllowFrom: FlexibleStringSlice{},
			},
		},
	}
}

// LoadConfig reads the JSON config at path, falling back to defaults when the
// file does not exist. Environment variables override file values either way.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, fmt.Errorf("parsing environment: %w", err)
			}
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns ~/.luna/config.json.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".luna", "config.json")
}

// DataDir returns the memory data directory with a leading ~ expanded.
func (c *Config) DataDir() string {
	return expandHome(c.Memory.DataDir)
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) == 1 {
		return home
	}
	if path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
