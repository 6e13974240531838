// Package lock provides in-process mutual exclusion per key.
package lock

import (
	"context"
	"errors"
	"sync"
)

var ErrTimeout = errors.New("lock wait timed out")

type entry struct {
	ch   chan struct{}
	refs int
}

// Keyed hands out one mutex per key. Entries are dropped once nobody holds
// or waits on them.
type Keyed struct {
	mu      sync.Mutex
	entries map[int64]*entry
}

func NewKeyed() *Keyed {
	return &Keyed{entries: make(map[int64]*entry)}
}

// Lock blocks until key is free or ctx is done. The returned func releases
// the lock and is safe to call more than once.
func (k *Keyed) Lock(ctx context.Context, key int64) (func(), error) {
	e := k.ref(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.unref(key)
		})
	}, nil
}

// Held reports the number of keys currently locked or waited on.
func (k *Keyed) Held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.entries)
}

func (k *Keyed) ref(key int64) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	return e
}

func (k *Keyed) unref(key int64) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e := k.entries[key]
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}
