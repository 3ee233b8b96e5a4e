package registry

import (
	"errors"
	"sync"
	"time"

	logx "limbobot/pkg/logx"
)

// ErrNotFound is returned for usernames that are not part of the roster.
var ErrNotFound = errors.New("artist not found")

// Registry is the authoritative in-memory roster state. It is the sole
// owner and sole writer of the backing snapshot store.
//
// Mutations (Register, Invalidate, Flush) are serialized under the write
// lock, and the durable save happens inside that critical section so every
// snapshot reflects a single consistent point-in-time view. Reads share the
// read lock and return copies.
//
// A failed save never fails the in-flight operation: in-memory state stays
// authoritative, the failure is logged, and the dirty flag schedules a
// re-save (next mutation or the periodic flush job).
type Registry struct {
	store Store
	log   logx.Logger

	mu      sync.RWMutex
	artists []*Artist          // roster insertion order, stable for reporting
	index   map[string]*Artist // normalized username -> record
	dirty   bool
}

// Open loads the roster from store. A corrupt snapshot is a hard error; a
// missing one yields an empty registry that is persisted immediately.
func Open(store Store, log logx.Logger) (*Registry, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	artists, err := store.Load()
	if err != nil {
		return nil, err
	}
	created := artists == nil

	r := &Registry{
		store: store,
		log:   log,
		index: make(map[string]*Artist, len(artists)),
	}
	for i := range artists {
		a := artists[i]
		r.artists = append(r.artists, &a)
		r.index[NormalizeUsername(a.Username)] = &a
	}

	if created {
		r.mu.Lock()
		r.persistLocked()
		r.mu.Unlock()
		log.Info("no roster snapshot found; created empty registry")
		return r, nil
	}

	log.Info("roster loaded", logx.Int("artists", len(r.artists)))
	for _, a := range r.artists {
		log.Info("roster entry",
			logx.String("name", a.Name),
			logx.String("username", a.Username),
			logx.Bool("registered", a.Registered()),
		)
	}
	return r, nil
}

// FindByUsername looks up an artist by handle. The raw value is normalized
// first, so lookups are case- and marker-insensitive.
func (r *Registry) FindByUsername(raw string) (Artist, bool) {
	key := NormalizeUsername(raw)
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.index[key]
	if !ok {
		return Artist{}, false
	}
	return *a, true
}

// FindByRecipientID looks up an artist by its delivery address.
func (r *Registry) FindByRecipientID(id string) (Artist, bool) {
	if id == "" {
		return Artist{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.artists {
		if a.RecipientID == id {
			return *a, true
		}
	}
	return Artist{}, false
}

// Register binds username to recipientID.
//
// Re-registration with the same recipient is an idempotent no-op (changed
// is false and nothing is persisted). A different recipient overwrites the
// binding and refreshes RegisteredAt — the user re-added the bot under the
// same account.
func (r *Registry) Register(rawUsername, recipientID string) (Artist, bool, error) {
	if recipientID == "" {
		return Artist{}, false, errors.New("empty recipient id")
	}
	key := NormalizeUsername(rawUsername)

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.index[key]
	if !ok {
		return Artist{}, false, ErrNotFound
	}
	if a.RecipientID == recipientID {
		return *a, false, nil
	}

	now := time.Now().UTC()
	a.RecipientID = recipientID
	a.RegisteredAt = &now
	r.persistLocked()

	r.log.Info("artist registered",
		logx.String("username", a.Username),
		logx.String("recipient_id", recipientID),
	)
	return *a, true, nil
}

// Invalidate clears the delivery binding for username. Unknown usernames
// return ErrNotFound; an already-unregistered artist is an Ok no-op.
func (r *Registry) Invalidate(rawUsername string) error {
	key := NormalizeUsername(rawUsername)

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.index[key]
	if !ok {
		return ErrNotFound
	}
	if !a.Registered() {
		return nil
	}

	a.RecipientID = ""
	a.RegisteredAt = nil
	r.persistLocked()

	r.log.Info("artist invalidated", logx.String("username", a.Username))
	return nil
}

// List returns the roster in insertion order.
func (r *Registry) List() []Artist {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Artist, 0, len(r.artists))
	for _, a := range r.artists {
		out = append(out, *a)
	}
	return out
}

// Counts reports (registered, total).
func (r *Registry) Counts() (int, int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg := 0
	for _, a := range r.artists {
		if a.Registered() {
			reg++
		}
	}
	return reg, len(r.artists)
}

// Dirty reports whether the last save attempt failed and a re-save is due.
func (r *Registry) Dirty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dirty
}

// Flush persists the current snapshot. Used by the periodic retry job and
// on shutdown.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked()
}

func (r *Registry) persistLocked() error {
	snap := make([]Artist, 0, len(r.artists))
	for _, a := range r.artists {
		snap = append(snap, *a)
	}
	if err := r.store.Save(snap); err != nil {
		r.dirty = true
		r.log.Warn("registry save failed; in-memory state kept", logx.Err(err))
		return err
	}
	r.dirty = false
	return nil
}
