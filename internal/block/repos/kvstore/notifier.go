package kvstore

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/haukened/siteblock/internal/block/domain"
)

type subscription struct {
	id int
	fn func(domain.Change)
}

// Notifier fans out changes to subscribers in registration order.
// The zero value is ready to use.
type Notifier struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription
}

// Subscribe registers fn and returns its unsubscribe function.
func (n *Notifier) Subscribe(fn func(domain.Change)) func() {
	n.mu.Lock()
	n.nextID++
	id := n.nextID
	n.subs = append(n.subs, subscription{id: id, fn: fn})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			for i, s := range n.subs {
				if s.id == id {
					n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Notify delivers a change for key unless old and next are byte-identical.
// Subscribers run on the caller's goroutine, outside the lock.
func (n *Notifier) Notify(key string, old, next json.RawMessage) {
	if old != nil && bytes.Equal(old, next) {
		return
	}
	n.mu.Lock()
	subs := make([]subscription, len(n.subs))
	copy(subs, n.subs)
	n.mu.Unlock()

	c := domain.Change{Key: key, OldValue: old, NewValue: next}
	for _, s := range subs {
		s.fn(c)
	}
}
