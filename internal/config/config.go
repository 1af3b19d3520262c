// Package config assembles the process configuration from YAML files and
// environment overrides.
package config

import (
	"errors"
	"os"
	"time"

	"mailpilot/internal/llm"
	"mailpilot/pkg/circuitbreaker"
	pkgconfig "mailpilot/pkg/config"
)

type DraftConfig struct {
	// MaxMessageChars bounds each thread message's body in draft prompts.
	MaxMessageChars int `yaml:"max_message_chars"`
}

type DedupConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type HistoryConfig struct {
	TTL time.Duration `yaml:"ttl"`
	// MaxEmails bounds the earlier emails summarized per sender.
	MaxEmails int `yaml:"max_emails"`
}

type OutboxConfig struct {
	Interval   time.Duration `yaml:"interval"`
	BatchSize  int           `yaml:"batch_size"`
	MaxRetries int           `yaml:"max_retries"`
}

type WorkerConfig struct {
	Queue      string        `yaml:"queue"`
	MaxRetries int64         `yaml:"max_retries"`
	RetryTTL   time.Duration `yaml:"retry_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	DB      pkgconfig.DBConfig     `yaml:"db"`
	MQ      pkgconfig.MQConfig     `yaml:"mq"`
	Redis   pkgconfig.RedisConfig  `yaml:"redis"`
	JWT     pkgconfig.JWTConfig    `yaml:"jwt"`
	Server  pkgconfig.ServerConfig `yaml:"server"`
	Agent   llm.ClientConfig       `yaml:"agent"`
	Draft   DraftConfig            `yaml:"draft"`
	Dedup   DedupConfig            `yaml:"dedup"`
	History HistoryConfig          `yaml:"history"`
	Outbox  OutboxConfig           `yaml:"outbox"`
	Worker  WorkerConfig           `yaml:"worker"`
	Log     LogConfig              `yaml:"log"`
}

// Default returns the settings used for anything the files leave out.
func Default() Config {
	return Config{
		DB: pkgconfig.DBConfig{
			Host:               "localhost",
			Port:               5432,
			SSLMode:            "disable",
			MaxConns:           10,
			MinConns:           2,
			SlowQueryThreshold: 200 * time.Millisecond,
		},
		Redis:  pkgconfig.RedisConfig{Addr: "localhost:6379"},
		Server: pkgconfig.ServerConfig{Port: ":8080"},
		Agent: llm.ClientConfig{
			Timeout:        30 * time.Second,
			CircuitBreaker: circuitbreaker.DefaultConfig(),
		},
		Draft:   DraftConfig{MaxMessageChars: llm.DefaultMaxEmailChars},
		Dedup:   DedupConfig{TTL: 24 * time.Hour},
		History: HistoryConfig{TTL: 7 * 24 * time.Hour, MaxEmails: 10},
		Outbox: OutboxConfig{
			Interval:   5 * time.Second,
			BatchSize:  100,
			MaxRetries: 5,
		},
		Worker: WorkerConfig{
			Queue:      "mailpilot.email.received.q",
			MaxRetries: 3,
			RetryTTL:   time.Hour,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads base.yaml and <env>.yaml from dir over Default, then applies
// environment overrides. An empty env uses CONFIG_ENV.
func Load(env, dir string) (*Config, error) {
	if env == "" {
		env = pkgconfig.GetConfigEnv()
	}

	cfg := Default()
	if err := pkgconfig.Decode(env, dir, &cfg); err != nil {
		return nil, err
	}

	pkgconfig.OverrideDBFromEnv(&cfg.DB)
	pkgconfig.OverrideMQFromEnv(&cfg.MQ)
	pkgconfig.OverrideRedisFromEnv(&cfg.Redis)
	pkgconfig.OverrideJWTFromEnv(&cfg.JWT)
	pkgconfig.OverrideServerFromEnv(&cfg.Server)
	if url := os.Getenv("AGENT_SERVICE_URL"); url != "" {
		cfg.Agent.BaseURL = url
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings every process needs.
func (c *Config) Validate() error {
	var errs []error
	if c.DB.Name == "" {
		errs = append(errs, errors.New("db.name is required"))
	}
	if c.MQ.URL == "" {
		errs = append(errs, errors.New("mq.url is required"))
	}
	if c.Draft.MaxMessageChars <= 0 {
		errs = append(errs, errors.New("draft.max_message_chars must be positive"))
	}
	return errors.Join(errs...)
}
