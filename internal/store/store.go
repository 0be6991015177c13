package store

import (
	"fmt"
)

// Store is the local durable key/value store. Values are JSON encoded.
// Reads never fail: missing keys, I/O errors and undecodable values all
// report absence. Calls are synchronous and never touch the network.
type Store interface {
	// Write persists value under key, replacing any previous value.
	Write(key string, value any) error

	// ReadInto decodes the value stored under key into dst and reports
	// whether it succeeded.
	ReadInto(key string, dst any) bool

	// Remove deletes key. Removing a missing key is not an error.
	Remove(key string) error

	// ClearAll removes every listed key.
	ClearAll(keys []string) error
}

// Read returns the value stored under key, or def when it is absent or
// cannot be decoded.
func Read[T any](s Store, key string, def T) T {
	var v T
	if s.ReadInto(key, &v) {
		return v
	}
	return def
}

// PersistenceError reports a failed local write. Callers log it and carry on
// with in-memory state only.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
