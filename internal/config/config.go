package config

import (
	"errors"
	"io/fs"
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
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		QuestionCount int    `yaml:"question_count"`
		MaxAge        string `yaml:"max_age"`
		VocabDir      string `yaml:"vocab_dir"`
	} `yaml:"quiz"`
	Session struct {
		CookieName string `yaml:"cookie_name"`
	} `yaml:"session"`
	Log struct {
		Mode       string `yaml:"mode"`
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"log"`
}

const (
	DefaultQuestionCount = 15
	DefaultMaxAge        = 120 * time.Minute
	DefaultCookieName    = "quiz_session_id"
	DefaultVocabDir      = "vocabulary"
)

// Load reads YAML config from path. A missing file yields defaults so the
// service can run with environment variables alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("VOCAB_DIR"); v != "" {
		cfg.Quiz.VocabDir = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Quiz.QuestionCount <= 0 {
		cfg.Quiz.QuestionCount = DefaultQuestionCount
	}
	if cfg.Quiz.VocabDir == "" {
		cfg.Quiz.VocabDir = DefaultVocabDir
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = DefaultCookieName
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "dev"
	}
}

// MaxAge is how long a session stays valid after creation.
func (c Config) MaxAge() time.Duration {
	return TTLDuration(c.Quiz.MaxAge, DefaultMaxAge)
}

// SessionTTL is the sliding expiry applied by the Redis store.
func (c Config) SessionTTL() time.Duration {
	return TTLDuration(c.Redis.TTL, c.MaxAge())
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
