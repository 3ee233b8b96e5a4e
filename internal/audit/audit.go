// Package audit keeps a durable trail of notification delivery attempts.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "limbobot/pkg/logx"
)

var ErrDisabled = errors.New("audit disabled")

// Config configures the audit trail.
//
// Driver values:
//   - "sqlite": SQLite database file
//
// If Driver is empty or "none", the trail is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// Entry records one dispatch outcome. Keep it compact and schema-stable.
type Entry struct {
	At          time.Time
	Username    string
	RecipientID string
	Status      string
	Detail      string
	WorkTitle   string
	TookMS      int64
}

// Store is the minimal audit API used by the dispatcher and commands.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if the audit trail is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown audit driver: " + driver)
	}
}
