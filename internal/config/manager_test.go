package config

import (
	"context"
	"os"
	"testing"
	"time"

	logx "limbobot/pkg/logx"
)

func TestManagerLoadAndGet(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"telegram": {"token": "123:abc"}}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Get must return the committed config")
	}
}

func TestManagerWatchReload(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"telegram": {"token": "123:abc", "admin_chat_id": "1"}}`)

	m := NewManager(path)
	m.SetLogger(logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	changed := make(chan *Config, 1)
	m.OnChange(func(cfg *Config) { changed <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to install before mutating the file.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"telegram": {"token": "123:abc", "admin_chat_id": "2"}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-changed:
		if cfg.Telegram.AdminChatID != "2" {
			t.Fatalf("reloaded admin = %q", cfg.Telegram.AdminChatID)
		}
		if m.Get().Telegram.AdminChatID != "2" {
			t.Fatal("Get must observe the reloaded config")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload not observed")
	}
}

func TestManagerWatchKeepsPreviousOnBadReload(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "config.json", `{"telegram": {"token": "123:abc"}}`)

	m := NewManager(path)
	m.SetLogger(logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	changed := make(chan *Config, 1)
	m.OnChange(func(cfg *Config) { changed <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changed:
		t.Fatal("broken config must not trigger onChange")
	case <-time.After(700 * time.Millisecond):
	}
	if m.Get().Telegram.Token != "123:abc" {
		t.Fatal("previous config lost")
	}
}

func TestManagerWatchMissingFileBlocks(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	m := NewManager("/nonexistent/config.json")
	m.SetLogger(logx.Nop())
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Watch(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("Watch returned early: %v", err)
	case <-time.After(200 * time.Millisecond):
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not stop on cancel")
	}
}
