package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	StaticDir string `mapstructure:"static_dir"`
}

type SandboxConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	DBPath    string `mapstructure:"db_path"`
	WebAppURL string `mapstructure:"webapp_url"`
}

type QuestionsConfig struct {
	SheetURL     string        `mapstructure:"sheet_url"`
	WorkbookPath string        `mapstructure:"workbook_path"`
	SnapshotPath string        `mapstructure:"snapshot_path"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
}

type AIConfig struct {
	BaseURL     string   `mapstructure:"base_url"`
	APIKeys     []string `mapstructure:"api_keys"`
	Model       string   `mapstructure:"model"`
	PromptsPath string   `mapstructure:"prompts_path"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Questions QuestionsConfig `mapstructure:"questions"`
	AI        AIConfig        `mapstructure:"ai"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("lualab")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.lualab")

	v.SetDefault("server.port", 5000)
	v.SetDefault("server.static_dir", "static")
	v.SetDefault("sandbox.timeout", 5*time.Second)
	v.SetDefault("storage.db_path", filepath.Join(os.Getenv("HOME"), ".lualab", "lualab.db"))
	v.SetDefault("questions.snapshot_path", "questions.json")
	v.SetDefault("questions.cache_ttl", 30*time.Minute)
	v.SetDefault("ai.base_url", "https://generativelanguage.googleapis.com/v1beta/openai/")
	v.SetDefault("ai.model", "gemini-2.0-flash")

	if err := v.ReadInConfig(); err != nil {
		// Defaults are enough to run without a config file.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// Expand ${VAR} references in API keys. A single env var may also hold a
	// comma-separated key list.
	var keys []string
	for _, k := range cfg.AI.APIKeys {
		if strings.HasPrefix(k, "${") && strings.HasSuffix(k, "}") {
			k = os.Getenv(k[2 : len(k)-1])
		}
		for _, part := range strings.Split(k, ",") {
			if part = strings.TrimSpace(part); part != "" {
				keys = append(keys, part)
			}
		}
	}
	cfg.AI.APIKeys = keys

	return &cfg, nil
}
