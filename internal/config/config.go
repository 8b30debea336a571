// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`

	// JobTTL bounds both the registry entry and, together with StreamTTL,
	// how long results stay readable. StreamTTL must be >= JobTTL or a slow
	// reader can lose the terminal event before the registry expires.
	JobTTL    time.Duration `yaml:"job_ttl"`
	StreamTTL time.Duration `yaml:"stream_ttl"`

	BlockTimeout      time.Duration `yaml:"block_timeout"`      // XREAD block per poll
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"` // SSE keepalive cadence
}

type AIConfig struct {
	Provider        string `yaml:"provider"` // openai|gemini|noop
	OpenAIKey       string `yaml:"openai_key"`
	GeminiKey       string `yaml:"gemini_key"`
	GeminiURL       string `yaml:"gemini_url"`
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

type JobsConfig struct {
	Queue        string        `yaml:"queue"`
	Workers      int           `yaml:"workers"`
	Budget       time.Duration `yaml:"budget"`         // max wall-clock per job
	MaxTurnLoops int           `yaml:"max_turn_loops"` // Decide visits per turn
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Jobs     JobsConfig     `yaml:"jobs"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required")
	}
	switch cfg.AI.Provider {
	case "openai":
		if cfg.AI.OpenAIKey == "" {
			return nil, errors.New("ai.openai_key is required for provider openai")
		}
	case "gemini":
		if cfg.AI.GeminiKey == "" {
			return nil, errors.New("ai.gemini_key is required for provider gemini")
		}
	case "noop":
	default:
		return nil, fmt.Errorf("unknown ai.provider %q", cfg.AI.Provider)
	}
	if cfg.Redis.StreamTTL < cfg.Redis.JobTTL {
		return nil, errors.New("redis.stream_ttl must be >= redis.job_ttl")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.JobTTL <= 0 {
		cfg.Redis.JobTTL = time.Hour
	}
	if cfg.Redis.StreamTTL <= 0 {
		cfg.Redis.StreamTTL = cfg.Redis.JobTTL
	}
	if cfg.Redis.BlockTimeout <= 0 {
		cfg.Redis.BlockTimeout = time.Second
	}
	if cfg.Redis.KeepaliveInterval <= 0 {
		cfg.Redis.KeepaliveInterval = 15 * time.Second
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "openai"
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o-mini"
	}
	if cfg.AI.MaxOutputTokens <= 0 {
		cfg.AI.MaxOutputTokens = 2048
	}
	if cfg.Jobs.Queue == "" {
		cfg.Jobs.Queue = "chat_jobs"
	}
	if cfg.Jobs.Workers <= 0 {
		cfg.Jobs.Workers = 4
	}
	if cfg.Jobs.Budget <= 0 {
		cfg.Jobs.Budget = 5 * time.Minute
	}
	if cfg.Jobs.MaxTurnLoops <= 0 {
		cfg.Jobs.MaxTurnLoops = 8
	}
}
