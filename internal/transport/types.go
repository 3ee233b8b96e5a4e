package transport

import (
	"context"
	"errors"
	"fmt"
)

// Update is a single inbound chat event: who sent what, from where.
//
// ChatID is the transport-specific channel address as an opaque string; the
// rest of the system never interprets it beyond equality and storage.
type Update struct {
	ChatID   string
	Username string // sender handle without marker; empty if the sender has none
	Text     string
}

// Adapter is the narrow contract the core depends on. The Telegram
// implementation lives in transport/telegram.
type Adapter interface {
	// Start begins delivering inbound updates to out until ctx is canceled.
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	// SendText delivers text to the given channel address. Delivery failures
	// are returned as *SendError with an enumerated kind.
	SendText(ctx context.Context, to string, text string) error
}

// ErrorKind classifies a delivery failure. The classification is decided at
// the adapter boundary; business logic only ever switches on the kind.
type ErrorKind string

const (
	// KindBlocked: the recipient blocked the bot.
	KindBlocked ErrorKind = "blocked"
	// KindForbidden: the recipient or chat is otherwise permanently
	// unreachable (deactivated account, deleted chat).
	KindForbidden ErrorKind = "forbidden"
	// KindOther: transient or unclassified (network, rate limit, ...).
	KindOther ErrorKind = "other"
)

// SendError wraps a transport delivery failure with its kind.
type SendError struct {
	Kind ErrorKind
	Err  error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send failed (%s): %v", e.Kind, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Permanent reports whether the recipient should be considered unreachable
// for good, i.e. the registry binding is stale.
func (e *SendError) Permanent() bool {
	return e.Kind == KindBlocked || e.Kind == KindForbidden
}

// IsPermanent reports whether err carries a permanent delivery failure.
func IsPermanent(err error) bool {
	var se *SendError
	return errors.As(err, &se) && se.Permanent()
}
