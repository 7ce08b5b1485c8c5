package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"

	"github.com/haukened/siteblock/internal/block/domain"
	"github.com/haukened/siteblock/internal/block/repos/kvstore"
)

var bucketKV = []byte("kv")

// boltStore implements kvstore.Store using bbolt. Each key is one entry in
// a single bucket holding the raw JSON value.
type boltStore struct {
	db       *bbolt.DB
	notifier kvstore.Notifier
}

// New opens (or creates) a Bolt database at path and ensures the bucket exists.
func New(path string) (kvstore.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketKV)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

func (s *boltStore) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var out json.RawMessage
	err := s.db.View(func(tx *bbolt.Tx) error {
		out = clone(tx.Bucket(bucketKV).Get([]byte(key)))
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return out, out != nil, nil
}

func (s *boltStore) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := kvstore.CheckWrite(key, value); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	next := clone(value)
	var old json.RawMessage
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKV)
		old = clone(b.Get([]byte(key)))
		return b.Put([]byte(key), next)
	})
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	s.notifier.Notify(key, old, next)
	return nil
}

func (s *boltStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return kvstore.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var old json.RawMessage
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketKV)
		old = clone(b.Get([]byte(key)))
		if old == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	if old != nil {
		s.notifier.Notify(key, old, nil)
	}
	return nil
}

func (s *boltStore) Subscribe(fn func(domain.Change)) func() {
	return s.notifier.Subscribe(fn)
}

// clone copies a value out of a bbolt page; returned slices are only valid
// inside the transaction.
func clone(b []byte) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
