// Package config loads ~/.heartx/config.json and applies HEARTX_* environment
// overrides on top of it.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/transport"
)

type Config struct {
	Session   SessionConfig   `json:"session"`
	Remote    RemoteConfig    `json:"remote"`
	Service   ServiceConfig   `json:"service"`
	Providers ProvidersConfig `json:"providers"`
	Log       LogConfig       `json:"log"`
	Trace     TraceConfig     `json:"trace"`
}

type SessionConfig struct {
	Mode string `json:"mode" env:"HEARTX_MODE"`
}

// RemoteConfig points the client at a translation service. An empty URL
// runs every session offline against the local phrase table.
type RemoteConfig struct {
	URL            string `json:"url" env:"HEARTX_REMOTE_URL"`
	TimeoutSeconds int    `json:"timeout_seconds" env:"HEARTX_REMOTE_TIMEOUT"`
	Fingerprint    string `json:"fingerprint" env:"HEARTX_REMOTE_FINGERPRINT"`
	Proxy          string `json:"proxy,omitempty" env:"HEARTX_REMOTE_PROXY"`
	CompressAbove  int64  `json:"compress_above,omitempty" env:"HEARTX_REMOTE_COMPRESS_ABOVE"`
}

type ServiceConfig struct {
	Listen         string   `json:"listen" env:"HEARTX_LISTEN"`
	AllowedOrigins []string `json:"allowed_origins" env:"HEARTX_ALLOWED_ORIGINS" envSeparator:","`
	HistoryLimit   int      `json:"history_limit" env:"HEARTX_HISTORY_LIMIT"`
	CatalogPath    string   `json:"catalog_path,omitempty" env:"HEARTX_CATALOG"`
	// Provider selects the LLM backend: "openai", "anthropic", "compat" or
	// "" for rules only.
	Provider string `json:"provider" env:"HEARTX_PROVIDER"`
}

type ProvidersConfig struct {
	OpenAI    ProviderConfig `json:"openai" envPrefix:"OPENAI_"`
	Anthropic ProviderConfig `json:"anthropic" envPrefix:"ANTHROPIC_"`
	Compat    ProviderConfig `json:"compat" envPrefix:"HEARTX_COMPAT_"`
}

type ProviderConfig struct {
	APIKey  string `json:"api_key" env:"API_KEY"`
	APIBase string `json:"api_base,omitempty" env:"API_BASE"`
	Model   string `json:"model,omitempty" env:"MODEL"`
}

type LogConfig struct {
	Level string `json:"level" env:"HEARTX_LOG_LEVEL"`
	File  string `json:"file,omitempty" env:"HEARTX_LOG_FILE"`
	JSON  bool   `json:"json,omitempty" env:"HEARTX_LOG_JSON"`
	// Transcript appends every entry as JSONL. Empty disables it.
	Transcript string `json:"transcript,omitempty" env:"HEARTX_TRANSCRIPT"`
}

type TraceConfig struct {
	// File receives stdout-exporter spans. Empty disables tracing.
	File string `json:"file,omitempty" env:"HEARTX_TRACE_FILE"`
}

const (
	DefaultListen       = "127.0.0.1:8000"
	DefaultRemoteURL    = "http://127.0.0.1:8000"
	DefaultHistoryLimit = 50
	DefaultTimeout      = 10
)

func DefaultConfig() *Config {
	return &Config{
		Session: SessionConfig{Mode: string(session.DefaultMode)},
		Remote: RemoteConfig{
			URL:            DefaultRemoteURL,
			TimeoutSeconds: DefaultTimeout,
		},
		Service: ServiceConfig{
			Listen:         DefaultListen,
			AllowedOrigins: []string{"http://localhost:3000", "http://127.0.0.1:3000"},
			HistoryLimit:   DefaultHistoryLimit,
		},
		Providers: ProvidersConfig{
			OpenAI:    ProviderConfig{Model: "gpt-4o-mini"},
			Anthropic: ProviderConfig{Model: "claude-sonnet-4-5"},
		},
		Log: LogConfig{Level: "info"},
	}
}

// HomeDir is the per-user state directory. Tests override it.
var HomeDir = func() string {
	if dir := strings.TrimSpace(os.Getenv("HEARTX_HOME")); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".heartx"
	}
	return filepath.Join(home, ".heartx")
}

func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.json")
}

// LoadConfig reads path over the defaults and then applies environment
// overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		logger.DebugCF("config", "No config file, using defaults", map[string]interface{}{"path": path})
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// API keys live in this file.
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

// Validate checks the fields whose bad values would otherwise surface as
// confusing runtime errors.
func (c *Config) Validate() error {
	if _, err := session.ParseMode(c.Session.Mode); err != nil {
		return fmt.Errorf("session.mode: %w", err)
	}
	if u := strings.TrimSpace(c.Remote.URL); u != "" {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("remote.url: %q is not an http(s) URL", u)
		}
	}
	if c.Remote.TimeoutSeconds < 0 {
		return fmt.Errorf("remote.timeout_seconds: must not be negative")
	}
	if c.Remote.CompressAbove < 0 {
		return fmt.Errorf("remote.compress_above: must not be negative")
	}
	if _, err := transport.ParseFingerprint(c.Remote.Fingerprint); err != nil {
		return fmt.Errorf("remote.fingerprint: %w", err)
	}
	if c.Service.HistoryLimit < 0 {
		return fmt.Errorf("service.history_limit: must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Service.Provider)) {
	case "", "openai", "anthropic", "claude", "compat":
	default:
		return fmt.Errorf("service.provider: unknown provider %q", c.Service.Provider)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

func (c *Config) SessionMode() session.Mode {
	m, err := session.ParseMode(c.Session.Mode)
	if err != nil {
		return session.DefaultMode
	}
	return m
}

// RemoteTimeout falls back to DefaultTimeout when unset.
func (c *Config) RemoteTimeout() time.Duration {
	if c.Remote.TimeoutSeconds <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.Remote.TimeoutSeconds) * time.Second
}

// TransportOptions converts the remote section for transport.NewClient.
func (c *Config) TransportOptions() transport.Options {
	fp, _ := transport.ParseFingerprint(c.Remote.Fingerprint)
	return transport.Options{
		Fingerprint:   fp,
		Timeout:       c.RemoteTimeout(),
		Proxy:         c.Remote.Proxy,
		CompressAbove: c.Remote.CompressAbove,
	}
}
