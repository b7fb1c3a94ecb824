package library

import (
	"context"
	"sync"
)

// Change describes a successful mutation of the catalog.
type Change struct {
	Kind   string
	BookID int64
}

// Change kinds.
const (
	ChangeAdded    = "added"
	ChangeBorrowed = "borrowed"
	ChangeReturned = "returned"
	ChangeDeleted  = "deleted"
)

// Trigger is a monotonically increasing refresh signal. Every Bump means
// "the catalog changed, re-fetch".
type Trigger struct {
	mu      sync.Mutex
	n       uint64
	changed chan struct{}
}

func NewTrigger() *Trigger {
	return &Trigger{changed: make(chan struct{})}
}

// Bump increments the value, wakes all waiters and returns the new value.
func (t *Trigger) Bump() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.n++
	close(t.changed)
	t.changed = make(chan struct{})
	return t.n
}

func (t *Trigger) Value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.n
}

// Wait blocks until the value differs from since, then returns it.
func (t *Trigger) Wait(ctx context.Context, since uint64) (uint64, error) {
	for {
		t.mu.Lock()
		n, ch := t.n, t.changed
		t.mu.Unlock()
		if n != since {
			return n, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return since, ctx.Err()
		}
	}
}
