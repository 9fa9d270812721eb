package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
}

type Config struct {
	FootagePath    string        `yaml:"footage_path"`
	Port           string        `yaml:"port"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	Watch          bool          `yaml:"watch"`
	WatchDebounce  time.Duration `yaml:"watch_debounce"`
	HighlightLimit int           `yaml:"highlight_limit"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	UploadDir      string        `yaml:"upload_dir"`
	MQTT           MQTTConfig    `yaml:"mqtt"`
}

// LoadConfig reads the optional YAML file at path, then applies environment
// overrides and defaults. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{Watch: true}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FOOTAGE_PATH"); v != "" {
		cfg.FootagePath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v := os.Getenv("WATCH_FOOTAGE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watch = b
		}
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		cfg.UploadDir = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		cfg.MQTT.Broker = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.FootagePath == "" {
		cfg.FootagePath = "/footage"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.WatchDebounce <= 0 {
		cfg.WatchDebounce = 2 * time.Second
	}
	if cfg.HighlightLimit <= 0 {
		cfg.HighlightLimit = 3
	}
	if cfg.MaxUploadBytes <= 0 {
		// TeslaCam event folders are roughly 10 minutes of 4-9 cameras.
		cfg.MaxUploadBytes = 8 << 30
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "teslacam"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "teslacam/library"
	}
}
