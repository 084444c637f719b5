package model

import "time"

// KeyType selects the expiration policy of a registry key.
type KeyType string

const (
	KeyTypeHour     KeyType = "hour"
	KeyTypeDay      KeyType = "day"
	KeyTypeMonth    KeyType = "month"
	KeyTypeLifetime KeyType = "lifetime"
)

// KeyTypes lists every accepted key type in display order.
var KeyTypes = []KeyType{KeyTypeHour, KeyTypeDay, KeyTypeMonth, KeyTypeLifetime}

// ParseKeyType returns the KeyType named by s. Matching is exact.
func ParseKeyType(s string) (KeyType, bool) {
	for _, t := range KeyTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Key is a license key held in the registry. A nil Expiration means the key
// never expires.
type Key struct {
	Key        string     `json:"key" db:"key"`
	Type       KeyType    `json:"type" db:"type"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	Expiration *time.Time `json:"expiration,omitempty" db:"expiration"`
}

// ExpiredAt reports whether the key is past its expiration at the given
// instant. The expiration instant itself is still valid.
func (k Key) ExpiredAt(now time.Time) bool {
	return k.Expiration != nil && k.Expiration.Before(now)
}
