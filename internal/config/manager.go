package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "limbobot/pkg/logx"
)

// Manager holds the committed config and reloads it when the file changes.
// Only runtime-adjustable settings (logging, admin identity) take effect on
// reload; transport and listener settings require a restart.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg *Config

	log      logx.Logger
	onChange func(*Config)
}

func NewManager(path string) *Manager {
	return &Manager{path: path}
}

func (m *Manager) SetLogger(log logx.Logger) { m.log = log }

// OnChange installs a hook called with each successfully reloaded config.
func (m *Manager) OnChange(fn func(*Config)) { m.onChange = fn }

func (m *Manager) Load() (*Config, error) {
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.commit(cfg)
	return cfg, nil
}

func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) commit(cfg *Config) {
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
}

// Watch blocks until ctx is done, reloading the config file on change.
// Reload failures keep the previous config and log a warning. Events are
// debounced to avoid reacting to partial editor writes.
func (m *Manager) Watch(ctx context.Context) error {
	if _, err := os.Stat(m.path); os.IsNotExist(err) {
		// Nothing to watch; env-only configuration.
		<-ctx.Done()
		return nil
	}

	dir := filepath.Dir(m.path)
	file := filepath.Base(m.path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	reload := func() {
		cfg, err := Load(m.path)
		if err != nil {
			m.log.Warn("config reload failed; keeping previous", logx.String("path", m.path), logx.Err(err))
			return
		}
		m.commit(cfg)
		m.log.Info("config reloaded", logx.String("path", m.path))
		if m.onChange != nil {
			m.onChange(cfg)
		}
	}
	debounce := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(250*time.Millisecond, reload)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if strings.EqualFold(filepath.Base(ev.Name), file) &&
				ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) != 0 {
				debounce()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				m.log.Warn("config watch error", logx.Err(err))
			}
		}
	}
}
