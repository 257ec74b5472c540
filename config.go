package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// config is the full server configuration. Values come from an optional
// YAML file with ${VAR} expansion, then flag overrides on top.
type config struct {
	Addr        string        `yaml:"addr"`
	Origin      string        `yaml:"origin"`
	Heartbeat   time.Duration `yaml:"heartbeat"`
	StopTimeout time.Duration `yaml:"stop_timeout"`
	KillTimeout time.Duration `yaml:"kill_timeout"`
	LogLevel    string        `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Addr:        ":8082",
		Heartbeat:   defaultHeartbeat,
		StopTimeout: 10 * time.Second,
		KillTimeout: time.Second,
		LogLevel:    "info",
	}
}

// loadConfig reads a YAML config file and expands ${VAR} references
// from the environment. An empty path yields the defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, nil
}

// validate runs after flag overrides are applied, so it sees the final
// values.
func (c config) validate() error {
	if c.Addr == "" {
		return errors.New("addr: must not be empty")
	}
	if c.Heartbeat < time.Second {
		return fmt.Errorf("heartbeat: %s is below the 1s minimum", c.Heartbeat)
	}
	if c.StopTimeout <= 0 {
		return fmt.Errorf("stop_timeout: %s must be positive", c.StopTimeout)
	}
	if c.KillTimeout <= 0 {
		return fmt.Errorf("kill_timeout: %s must be positive", c.KillTimeout)
	}
	if _, err := c.slogLevel(); err != nil {
		return err
	}
	return nil
}

func (c config) slogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("log_level: unknown level %q", c.LogLevel)
}
