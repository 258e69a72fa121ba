package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/transport"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SessionMode() != session.ModeMatrix {
		t.Errorf("default mode = %q", cfg.SessionMode())
	}
	if cfg.Remote.URL != DefaultRemoteURL {
		t.Errorf("default remote url = %q", cfg.Remote.URL)
	}
	if cfg.Service.HistoryLimit != DefaultHistoryLimit {
		t.Errorf("default history limit = %d", cfg.Service.HistoryLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Service.Listen != DefaultListen {
		t.Fatalf("listen = %q", cfg.Service.Listen)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.Session.Mode = string(session.ModeDefense)
	cfg.Remote.URL = "https://heartx.example.com"
	cfg.Providers.Compat.Model = "llama3.1"

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config perms = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got.SessionMode() != session.ModeDefense {
		t.Errorf("mode = %q", got.SessionMode())
	}
	if got.Remote.URL != "https://heartx.example.com" {
		t.Errorf("remote url = %q", got.Remote.URL)
	}
	if got.Providers.Compat.Model != "llama3.1" {
		t.Errorf("compat model not round-tripped")
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"remote":{"url":"http://10.0.0.5:8000"},"session":{"mode":"attack"}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HEARTX_REMOTE_URL", "http://127.0.0.1:9999")
	t.Setenv("HEARTX_ALLOWED_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("HEARTX_COMPAT_API_BASE", "http://llm.local/v1")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Remote.URL != "http://127.0.0.1:9999" {
		t.Errorf("remote url = %q, want env override", cfg.Remote.URL)
	}
	if cfg.SessionMode() != session.ModeAttack {
		t.Errorf("mode = %q, want file value", cfg.SessionMode())
	}
	if strings.Join(cfg.Service.AllowedOrigins, " ") != "http://a.test http://b.test" {
		t.Errorf("origins = %v", cfg.Service.AllowedOrigins)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-env" {
		t.Errorf("openai key = %q", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.Compat.APIBase != "http://llm.local/v1" {
		t.Errorf("compat base = %q", cfg.Providers.Compat.APIBase)
	}
}

func TestLoadConfig_BadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"remote":`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad mode", func(c *Config) { c.Session.Mode = "purple" }, "session.mode"},
		{"bad url scheme", func(c *Config) { c.Remote.URL = "ftp://host" }, "remote.url"},
		{"negative timeout", func(c *Config) { c.Remote.TimeoutSeconds = -1 }, "remote.timeout_seconds"},
		{"bad fingerprint", func(c *Config) { c.Remote.Fingerprint = "firefox" }, "remote.fingerprint"},
		{"bad provider", func(c *Config) { c.Service.Provider = "gemini" }, "service.provider"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestValidate_EmptyRemoteIsOffline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.URL = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty remote url should be allowed: %v", err)
	}
}

func TestTransportOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Fingerprint = "chrome"
	cfg.Remote.CompressAbove = 4096

	opts := cfg.TransportOptions()
	if opts.Fingerprint != transport.FingerprintChrome {
		t.Errorf("fingerprint = %q", opts.Fingerprint)
	}
	if opts.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", opts.Timeout)
	}
	if opts.CompressAbove != 4096 {
		t.Errorf("compress above = %d", opts.CompressAbove)
	}
}
