package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Auth     AuthConfig     `yaml:"auth"`
	Limits   LimitsConfig   `yaml:"limits"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Storage  StorageConfig  `yaml:"storage"`
}

type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

type AuthConfig struct {
	Token          string   `yaml:"token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type LimitsConfig struct {
	MaxConnections int `yaml:"max_connections"` // 0 = unlimited
	SendBuffer     int `yaml:"send_buffer"`
	// MaxClosedSessions caps how many closed sessions stay visible via the
	// sessions endpoint before the oldest are evicted. 0 = unlimited.
	MaxClosedSessions int `yaml:"max_closed_sessions"`
}

type PipelineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// Stages maps additional pipeline stage names to progress event types,
	// merged over the built-in table.
	Stages map[string]string `yaml:"stages"`
}

type StorageConfig struct {
	Driver    string `yaml:"driver"` // "memory" or "libsql"
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Limits: LimitsConfig{
			SendBuffer:        64,
			MaxClosedSessions: 256,
		},
		Pipeline: PipelineConfig{
			Timeout: 5 * time.Minute,
		},
		Storage: StorageConfig{
			Driver: "memory",
		},
	}
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory":
	case "libsql":
		if c.Storage.URL == "" {
			return fmt.Errorf("storage.url is required for the libsql driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.Pipeline.Timeout <= 0 {
		return fmt.Errorf("pipeline.timeout must be positive")
	}

	return nil
}
