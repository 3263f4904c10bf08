// Package models holds the persistent records shared by repositories and
// services.
package models

import "time"

// ToMillis converts t to the unix millisecond form stored in the database.
func ToMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// FromMillis is the inverse of ToMillis.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
