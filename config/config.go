// Package config loads the service configuration from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingAPIKey is returned when no source provides an LLM API key.
var ErrMissingAPIKey = errors.New("llm api key missing; set the env var named by llm.api_key_env, llm.api_key, or the admin settings key")

// Config is the root of config.yaml.
type Config struct {
	DataDir   string    `yaml:"data_dir"`
	Server    Server    `yaml:"server"`
	LLM       LLM       `yaml:"llm"`
	Autopilot Autopilot `yaml:"autopilot"`
	Store     Store     `yaml:"store"`
	State     State     `yaml:"state"`
}

// Server holds the admin API listener.
type Server struct {
	Addr string `yaml:"addr"`
}

// LLM configures the research, editor and image clients.
type LLM struct {
	Provider          string `yaml:"provider"`
	Model             string `yaml:"model"`
	ImageModel        string `yaml:"image_model"`
	APIKey            string `yaml:"api_key"`
	APIKeyEnv         string `yaml:"api_key_env"`
	BaseURL           string `yaml:"base_url"`
	SystemInstruction string `yaml:"system_instruction"`
	TimeoutSeconds    int    `yaml:"timeout_seconds"`
}

// Autopilot tunes the orchestrator loop.
type Autopilot struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
	Author    string        `yaml:"author"`
}

// Store selects the article database.
type Store struct {
	Driver     string `yaml:"driver"`
	DSN        string `yaml:"dsn"`
	SQLitePath string `yaml:"sqlite_path"`
}

// State selects the autopilot key-value store.
type State struct {
	Driver        string `yaml:"driver"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Namespace     string `yaml:"namespace"`
	SQLitePath    string `yaml:"sqlite_path"`
}

// Load reads path (a missing file yields defaults), applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv(os.Getenv)
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Store.DSN = v
		if c.Store.Driver == "" || c.Store.Driver == DriverSQLite {
			c.Store.Driver = DriverPostgres
		}
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.State.RedisAddr = v
		c.State.Driver = DriverRedis
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

func (c *Config) normalize() {
	def := Default()
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	c.State.Driver = strings.ToLower(strings.TrimSpace(c.State.Driver))
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Server.Addr == "" {
		c.Server.Addr = def.Server.Addr
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.APIKeyEnv == "" {
		c.LLM.APIKeyEnv = def.LLM.APIKeyEnv
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = def.LLM.TimeoutSeconds
	}
	if c.Autopilot.Interval <= 0 {
		c.Autopilot.Interval = def.Autopilot.Interval
	}
	if c.Autopilot.BatchSize <= 0 {
		c.Autopilot.BatchSize = def.Autopilot.BatchSize
	}
	if c.Autopilot.Author == "" {
		c.Autopilot.Author = def.Autopilot.Author
	}
	if c.Store.Driver == "" {
		c.Store.Driver = def.Store.Driver
	}
	if c.Store.SQLitePath == "" {
		c.Store.SQLitePath = filepath.Join(c.DataDir, "news.db")
	}
	if c.State.Driver == "" {
		c.State.Driver = def.State.Driver
	}
	if c.State.Namespace == "" {
		c.State.Namespace = def.State.Namespace
	}
	if c.State.SQLitePath == "" {
		c.State.SQLitePath = filepath.Join(c.DataDir, "state.db")
	}
}

// LLMTimeout is the per-call deadline for model requests.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ResolveAPIKey picks the LLM key: the environment variable named by
// llm.api_key_env, then llm.api_key, then the key saved in admin settings.
func (c Config) ResolveAPIKey(getenv func(string) string, settingsKey string) (string, error) {
	if c.LLM.APIKeyEnv != "" {
		if v := strings.TrimSpace(getenv(c.LLM.APIKeyEnv)); v != "" {
			return v, nil
		}
	}
	if v := strings.TrimSpace(c.LLM.APIKey); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(settingsKey); v != "" {
		return v, nil
	}
	return "", ErrMissingAPIKey
}
