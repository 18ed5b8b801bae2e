package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Questions     int    `yaml:"questions"`     // questions per attempt, default 6
		QuestionTimer string `yaml:"questionTimer"` // per-question countdown, default 20s
		Points        int    `yaml:"points"`        // award per correct answer, default 5
		CacheTTL      string `yaml:"cacheTtl"`      // daily question set cache, default 24h
	} `yaml:"quiz"`
	AI struct {
		APIKey  string `yaml:"apiKey"`
		APIURL  string `yaml:"apiUrl"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"ai"`
	Admin struct {
		Secret string `yaml:"secret"`
	} `yaml:"admin"`
}

// Load reads YAML config from path. The AI key and admin secret may also come
// from the environment so they stay out of checked-in config files.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := os.Getenv("ADMIN_SECRET"); v != "" {
		cfg.Admin.Secret = v
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty or
// malformed.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// IntOr returns v unless it is zero or negative.
func IntOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}
