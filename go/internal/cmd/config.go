package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tableforge/tableforge/go/internal/session"
)

// Config tunes the session transport and the external-broadcast bridge.
// Every field has a usable default; the YAML file is optional.
type Config struct {
	Session struct {
		PingIntervalSec int   `yaml:"ping_interval_sec"`
		ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
		WriteTimeoutSec int   `yaml:"write_timeout_sec"`
		MaxMessageSize  int64 `yaml:"max_message_size"`
		SendBufferSize  int   `yaml:"send_buffer_size"`
		ChatBacklog     int32 `yaml:"chat_backlog"`
	} `yaml:"session"`
	NATS struct {
		Enabled       bool   `yaml:"enabled"`
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`
}

func loadConfig(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		config.NATS.Enabled = true
		config.NATS.URL = url
	}
	if config.NATS.SubjectPrefix == "" {
		config.NATS.SubjectPrefix = "campaign.events"
	}
	return &config, nil
}

func (c *Config) sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	if c.Session.PingIntervalSec > 0 {
		cfg.Connection.PingInterval = time.Duration(c.Session.PingIntervalSec) * time.Second
	}
	if c.Session.ReadTimeoutSec > 0 {
		cfg.Connection.ReadTimeout = time.Duration(c.Session.ReadTimeoutSec) * time.Second
	}
	if c.Session.WriteTimeoutSec > 0 {
		cfg.Connection.WriteTimeout = time.Duration(c.Session.WriteTimeoutSec) * time.Second
	}
	if c.Session.MaxMessageSize > 0 {
		cfg.Connection.MaxMessageSize = c.Session.MaxMessageSize
	}
	if c.Session.SendBufferSize > 0 {
		cfg.Connection.SendBufferSize = c.Session.SendBufferSize
	}
	if c.Session.ChatBacklog > 0 {
		cfg.ChatBacklog = c.Session.ChatBacklog
	}
	return cfg
}

func (c *Config) bridgeConfig() session.BridgeConfig {
	cfg := session.DefaultBridgeConfig()
	if c.NATS.URL != "" {
		cfg.URL = c.NATS.URL
	}
	cfg.SubjectPrefix = c.NATS.SubjectPrefix
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
