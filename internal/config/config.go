// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port          int           `yaml:"port"`
	AuthSecret    string        `yaml:"auth_secret"`   // empty disables auth
	AuthPassword  string        `yaml:"auth_password"` // gate for the login endpoint
	SessionTTL    time.Duration `yaml:"session_ttl"`
	SecureCookies bool          `yaml:"secure_cookies"`
	Workers       int           `yaml:"workers"` // estimation worker pool size
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type JiraConfig struct {
	Host            string `yaml:"host"` // e.g. yourteam.atlassian.net
	Email           string `yaml:"email"`
	APIToken        string `yaml:"api_token"`
	StoryPointField string `yaml:"story_point_field"`
}

type GitHubConfig struct {
	Token string `yaml:"token"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables the sprint cache
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	GeminiKey    string `yaml:"gemini_key"`
	GeminiURL    string `yaml:"gemini_url"`
	OpenAIKey    string `yaml:"openai_key"`
	DefaultModel string `yaml:"default_model"`
}

type EstimationConfig struct {
	SprintCount   int           `yaml:"sprint_count"`
	JobTTL        time.Duration `yaml:"job_ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Jira       JiraConfig       `yaml:"jira"`
	GitHub     GitHubConfig     `yaml:"github"`
	Redis      RedisConfig      `yaml:"redis"`
	AI         AIConfig         `yaml:"ai"`
	Estimation EstimationConfig `yaml:"estimation"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Workers <= 0 {
		cfg.Server.Workers = 4
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Jira.StoryPointField == "" {
		cfg.Jira.StoryPointField = "customfield_10016"
	}
	if cfg.AI.DefaultModel == "" {
		cfg.AI.DefaultModel = "gemini-2.0-flash"
	}
	if cfg.Estimation.SprintCount <= 0 {
		cfg.Estimation.SprintCount = 10
	}
	if cfg.Estimation.JobTTL <= 0 {
		cfg.Estimation.JobTTL = 10 * time.Minute
	}
	if cfg.Estimation.SweepInterval <= 0 {
		cfg.Estimation.SweepInterval = time.Minute
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)

	// Minimal validation
	if cfg.Jira.Host == "" || cfg.Jira.Email == "" || cfg.Jira.APIToken == "" {
		return nil, errors.New("jira.host, jira.email and jira.api_token are required")
	}
	if cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		return nil, errors.New("at least one of ai.gemini_key or ai.openai_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
