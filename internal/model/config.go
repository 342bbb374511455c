package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// AppConfig is the top-level client configuration.
type AppConfig struct {
	// APIBaseURL is the root URL of the backend REST API.
	APIBaseURL string `mapstructure:"api_base_url" yaml:"api_base_url"`

	// SocketURL is the WebSocket endpoint used for push events.
	SocketURL string `mapstructure:"socket_url" yaml:"socket_url"`

	// StatePath is where the local state database (watermarks, client
	// flags) lives on disk.
	StatePath string `mapstructure:"state_path" yaml:"state_path"`

	// MessagePollSec is how often (in seconds) watched team message
	// lists are refreshed in the background.
	MessagePollSec int `mapstructure:"message_poll_sec" yaml:"message_poll_sec"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/taskflow/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskflow", "config.yaml")
}

// DefaultStatePath returns the default location of the local state
// database.
func DefaultStatePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "state.db")
	}
	return filepath.Join(home, ".config", "taskflow", "state.db")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		APIBaseURL:     "http://localhost:5000/api/v1",
		SocketURL:      "ws://localhost:5000/ws",
		StatePath:      DefaultStatePath(),
		MessagePollSec: 15,
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper. If the file does not exist, it returns a default
// configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetDefault("api_base_url", "http://localhost:5000/api/v1")
	v.SetDefault("socket_url", "ws://localhost:5000/ws")
	v.SetDefault("state_path", DefaultStatePath())
	v.SetDefault("message_poll_sec", 15)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.MessagePollSec <= 0 {
		cfg.MessagePollSec = 15
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("api_base_url", cfg.APIBaseURL)
	v.Set("socket_url", cfg.SocketURL)
	v.Set("state_path", cfg.StatePath)
	v.Set("message_poll_sec", cfg.MessagePollSec)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
