package service

import (
	"time"

	"github.com/keydesk/keydesk/internal/model"
)

// ExpirationFor computes the expiration of a key of type t created at now.
// A month is a calendar-month step on the day number, so Jan 31 lands in
// early March. Lifetime keys never expire and yield nil.
func ExpirationFor(t model.KeyType, now time.Time) *time.Time {
	var exp time.Time
	switch t {
	case model.KeyTypeHour:
		exp = now.Add(time.Hour)
	case model.KeyTypeDay:
		exp = now.Add(24 * time.Hour)
	case model.KeyTypeMonth:
		exp = now.AddDate(0, 1, 0)
	default:
		return nil
	}
	return &exp
}
