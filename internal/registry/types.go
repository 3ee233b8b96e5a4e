package registry

import (
	"strings"
	"time"
)

// Artist is one roster record. Identity fields (Name, Username, Slug) come
// from the external roster and are read-only here; only the registration
// binding (RecipientID + RegisteredAt) ever changes.
//
// The JSON tags match the roster snapshot file: the recipient ID is
// serialized as "telegramId" for compatibility with the existing file.
type Artist struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Slug     string `json:"slug"`

	RecipientID  string     `json:"telegramId,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
}

// Registered reports whether the artist has an active delivery binding.
func (a Artist) Registered() bool { return a.RecipientID != "" }

// NormalizeUsername folds a raw handle to the lookup key: marker characters
// stripped, lowercased. "@Vasya", "vasya" and "@vasya" all map to "vasya".
func NormalizeUsername(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "@")
	return strings.ToLower(s)
}

// CanonicalUsername returns the storage form of a handle: a single leading
// marker, original case preserved.
func CanonicalUsername(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, "@")
	if s == "" {
		return ""
	}
	return "@" + s
}
