package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// clearEnv detaches the test from ambient override variables. t.Setenv
// registers the restore; Unsetenv makes the variable truly absent.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_BOT_TOKEN", "ADMIN_ID", "ARTISTS_FILE", "PORT"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSON(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{
		"telegram": {"token": "123:abc", "admin_chat_id": "900", "poll_timeout": "15s"},
		"http": {"port": 8080, "rate_per_sec": 5},
		"registry": {"path": "/data/artists.json", "flush_every": "@every 30s"},
		"audit": {"driver": "sqlite", "path": "/data/audit.db"},
		"logging": {"level": "debug", "console": true}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.Telegram.AdminChatID != "900" {
		t.Fatalf("telegram: %+v", cfg.Telegram)
	}
	if cfg.HTTP.Port != 8080 || cfg.HTTP.RatePerSec != 5 {
		t.Fatalf("http: %+v", cfg.HTTP)
	}
	if cfg.Registry.Path != "/data/artists.json" || cfg.Registry.FlushEvery != "@every 30s" {
		t.Fatalf("registry: %+v", cfg.Registry)
	}
	if cfg.Audit.Driver != "sqlite" {
		t.Fatalf("audit: %+v", cfg.Audit)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging: %+v", cfg.Logging)
	}
}

func TestLoadYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
http:
  port: 8080
logging:
  level: warn
  console: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" || cfg.HTTP.Port != 8080 || cfg.Logging.Level != "warn" {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestLoadMissingFileEnvOnly(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env:token")
	t.Setenv("ARTISTS_FILE", "/env/artists.json")
	t.Setenv("PORT", "9000")
	t.Setenv("ADMIN_ID", "42")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env:token" || cfg.Telegram.AdminChatID != "42" {
		t.Fatalf("telegram: %+v", cfg.Telegram)
	}
	if cfg.Registry.Path != "/env/artists.json" || cfg.HTTP.Port != 9000 {
		t.Fatalf("cfg: %+v", cfg)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env:token")
	t.Setenv("PORT", "9000")

	path := writeFile(t, "config.json", `{"telegram": {"token": "file:token"}, "http": {"port": 8080}}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env:token" {
		t.Fatalf("token = %q, env must win", cfg.Telegram.Token)
	}
	if cfg.HTTP.Port != 9000 {
		t.Fatalf("port = %d, env must win", cfg.HTTP.Port)
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Registry.Path != DefaultRegistryPath {
		t.Errorf("registry path = %q", cfg.Registry.Path)
	}
	if cfg.Registry.FlushEvery != DefaultFlushEvery {
		t.Errorf("flush spec = %q", cfg.Registry.FlushEvery)
	}
	if cfg.HTTP.Port != DefaultHTTPPort {
		t.Errorf("port = %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.RatePerSec != 10 {
		t.Errorf("rate = %d", cfg.HTTP.RatePerSec)
	}
	if cfg.Logging.Level != "info" || !cfg.Logging.Console {
		t.Errorf("logging defaults: %+v", cfg.Logging)
	}
}

func TestMissingTokenFails(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !strings.Contains(err.Error(), "token") {
		t.Fatalf("err = %v, want token validation error", err)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	path := writeFile(t, "config.json", `{"telegram": {"token": "x"}, "typo_section": {}}`)
	if _, err := Load(path); err == nil {
		t.Fatal("unknown top-level field must be rejected")
	}
}

func TestMalformedFileFails(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	path := writeFile(t, "config.json", `{"telegram":`)
	if _, err := Load(path); err == nil {
		t.Fatal("malformed config must fail loudly")
	}
}

func TestTrailingDataRejected(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	path := writeFile(t, "config.json", `{"telegram": {"token": "x"}}{"extra": 1}`)
	if _, err := Load(path); err == nil {
		t.Fatal("trailing JSON document must be rejected")
	}
}
