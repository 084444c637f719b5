package model

import "time"

// Statuses shown for an API key on the dashboard.
const (
	StatusActive  = "Active"
	StatusRevoked = "Revoked"
)

// APIKey is a named, revocable API key issued from the dashboard. The raw
// secret is never stored; only its SHA-256 hash is persisted.
type APIKey struct {
	ID        int64     `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	KeyHash   string    `json:"-" db:"key_hash"` // SHA-256 hash, never expose
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Status reports the dashboard label for the key.
func (k APIKey) Status() string {
	if k.Active {
		return StatusActive
	}
	return StatusRevoked
}
