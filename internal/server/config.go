// Package server exposes the game engine over HTTP and websockets.
package server

import (
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds runtime-tunable server settings.
type Config struct {
	Addr              string        `json:"addr"`
	DefaultDifficulty string        `json:"default_difficulty"`
	MaxGames          int           `json:"max_games"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	HistoryLimit      int           `json:"history_limit"`
}

// DefaultConfig returns the server defaults before env overrides.
func DefaultConfig() Config {
	return Config{
		Addr:              ":8080",
		DefaultDifficulty: "medium",
		MaxGames:          256,
		ShutdownTimeout:   5 * time.Second,
		HistoryLimit:      50,
	}
}

// ConfigFromEnv layers environment overrides on top of the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := os.Getenv("SHOGI_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("SHOGI_DIFFICULTY"); v != "" {
		cfg.DefaultDifficulty = v
	}
	if v := os.Getenv("SHOGI_MAX_GAMES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxGames = n
		}
	}
	return cfg
}

// ConfigStore guards the live configuration.
type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func NewConfigStore(cfg Config) *ConfigStore {
	return &ConfigStore{config: cfg}
}

func (c *ConfigStore) Get() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.config
}

func (c *ConfigStore) Update(newConfig Config) {
	c.mu.Lock()
	c.config = newConfig
	c.mu.Unlock()
}
