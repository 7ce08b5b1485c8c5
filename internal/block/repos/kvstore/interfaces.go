// Package kvstore defines the persisted key-value store shared with the
// extension. Values are raw JSON documents; every successful write that
// changes a value is broadcast to subscribers as a domain.Change.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/haukened/siteblock/internal/block/domain"
)

// ErrInvalidJSON is returned by Set when the value is not a JSON document.
var ErrInvalidJSON = errors.New("kvstore: value is not valid JSON")

// ErrEmptyKey is returned when a key is blank.
var ErrEmptyKey = errors.New("kvstore: empty key")

// Store is an async-capable key-value store with change notifications.
type Store interface {
	// Get returns the stored value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value json.RawMessage, ok bool, err error)
	// Set stores value under key and notifies subscribers after commit.
	Set(ctx context.Context, key string, value json.RawMessage) error
	// Subscribe registers fn for change notifications and returns a function
	// that removes it.
	// Delete removes key; subscribers see a nil NewValue. Deleting an absent
	// key is a no-op.
	Delete(ctx context.Context, key string) error
	Subscribe(fn func(domain.Change)) (unsubscribe func())
	Close() error
}

// CheckWrite validates a Set call's arguments.
func CheckWrite(key string, value json.RawMessage) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !json.Valid(value) {
		return ErrInvalidJSON
	}
	return nil
}
