package inventory

import (
	"context"
	"sync"
)

// MutexKeyLocker is an in-process KeyLocker. Entries are reference counted
// and dropped once nobody holds or waits on the key.
type MutexKeyLocker struct {
	mu    sync.Mutex
	slots map[string]*keySlot
}

type keySlot struct {
	ch   chan struct{}
	refs int
}

// NewMutexKeyLocker creates a new MutexKeyLocker
func NewMutexKeyLocker() *MutexKeyLocker {
	return &MutexKeyLocker{slots: make(map[string]*keySlot)}
}

// Lock blocks until key is free or ctx is done
func (l *MutexKeyLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = &keySlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	l.mu.Unlock()

	select {
	case slot.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-slot.ch
			l.release(key, slot)
		})
	}, nil
}

func (l *MutexKeyLocker) release(key string, slot *keySlot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

var _ KeyLocker = (*MutexKeyLocker)(nil)
