package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		Token          string `yaml:"token"`
		Debug          bool   `yaml:"debug"`
		PollTimeout    int    `yaml:"poll_timeout"`
		RequestTimeout string `yaml:"request_timeout"`
	} `yaml:"telegram"`
	Quiz struct {
		Interval         string `yaml:"interval"`
		QuestionsDir     string `yaml:"questions_dir"`
		BankTTL          string `yaml:"bank_ttl"`
		SendTimeout      string `yaml:"send_timeout"`
		MaxParallelSends int    `yaml:"max_parallel_sends"`
	} `yaml:"quiz"`
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
}

// Load reads YAML config from path. A missing file yields defaults; the bot
// token may come from TELEGRAM_BOT_TOKEN or BOT_TOKEN instead.
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

	for _, env := range []string{"TELEGRAM_BOT_TOKEN", "BOT_TOKEN"} {
		if token := os.Getenv(env); token != "" {
			cfg.Telegram.Token = token
			break
		}
	}
	if cfg.Quiz.QuestionsDir == "" {
		cfg.Quiz.QuestionsDir = "data"
	}
	if cfg.Telegram.PollTimeout == 0 {
		cfg.Telegram.PollTimeout = 60
	}
	return cfg, nil
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
