package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the fields skein needs from skeind's config.
type Config struct {
	LogDir       string
	RedisAddr    string
	ExpectedHops int
	HistoryLimit int
}

const (
	defaultConfigPath   = "~/.config/skeind/config.toml"
	defaultLogDir       = "~/.local/share/skeind/logs"
	defaultRedisAddr    = "127.0.0.1:6379"
	defaultExpectedHops = 3
	defaultHistoryLimit = 2000
)

// Load locates and parses the skeind config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		RedisAddr:    defaultRedisAddr,
		ExpectedHops: defaultExpectedHops,
		HistoryLimit: defaultHistoryLimit,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.LogDir = mustExpand(defaultLogDir)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		LogDir       string `toml:"log_dir"`
		RedisAddr    string `toml:"redis_addr"`
		ExpectedHops int    `toml:"expected_hops"`
		HistoryLimit int    `toml:"history_limit"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg.RedisAddr = strings.TrimSpace(raw.RedisAddr)
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = defaultRedisAddr
	}

	cfg.LogDir = strings.TrimSpace(raw.LogDir)
	if cfg.LogDir == "" {
		cfg.LogDir = defaultLogDir
	}
	cfg.LogDir = mustExpand(cfg.LogDir)

	if raw.ExpectedHops > 0 {
		cfg.ExpectedHops = raw.ExpectedHops
	}
	if raw.HistoryLimit > 0 {
		cfg.HistoryLimit = raw.HistoryLimit
	}

	return cfg, nil
}

// ClientLogPath returns the path to skeind's client-mode log file.
func (c Config) ClientLogPath() string {
	return c.logPath("client.log")
}

// RelayLogPath returns the path to skeind's relay-mode log file.
func (c Config) RelayLogPath() string {
	return c.logPath("relay.log")
}

func (c Config) logPath(name string) string {
	if strings.TrimSpace(c.LogDir) == "" {
		return mustExpand(defaultLogDir + "/" + name)
	}
	return filepath.Join(c.LogDir, name)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
