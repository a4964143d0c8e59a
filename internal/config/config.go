package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	Agent         struct {
		URL    string `json:"url"`
		Binary string `json:"binary"`
	} `json:"agent"`
	Sync struct {
		StuckThresholdMs int `json:"stuck_threshold_ms"`
		ReplyTimeoutMs   int `json:"reply_timeout_ms"`
	} `json:"sync"`
}

// Load reads the config file at path, writing defaults first if it does not
// exist. A .env file in the working directory is loaded before env
// overrides are applied; env has the highest precedence.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".sketchd"),
		LogLevel:      "info",
		MaxConcurrent: 4,
	}
	cfg.Agent.Binary = "opencode"
	cfg.Sync.StuckThresholdMs = 3000
	cfg.Sync.ReplyTimeoutMs = 30000

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if v := os.Getenv("SKETCHD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("SKETCHD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("SKETCHD_AGENT_URL"); v != "" {
		cfg.Agent.URL = v
	}
	if v := os.Getenv("SKETCHD_AGENT_BINARY"); v != "" {
		cfg.Agent.Binary = v
	}
	if v := os.Getenv("SKETCHD_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrent = n
		}
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
