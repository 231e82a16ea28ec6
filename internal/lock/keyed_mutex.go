package lock

import (
	"context"
	"sync"

	"github.com/Domenick1991/rentwheels/internal/domain"
)

// KeyedMutex serialises work per vehicle inside one process.
type KeyedMutex struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{slots: make(map[string]*slot)}
}

// LockVehicle blocks until the vehicle's lock is free or ctx is done.
func (k *KeyedMutex) LockVehicle(ctx context.Context, vehicleID string) (func(), error) {
	k.mu.Lock()
	s, ok := k.slots[vehicleID]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.slots[vehicleID] = s
	}
	s.refs++
	k.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(vehicleID, s)
		return nil, domain.ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			k.release(vehicleID, s)
		})
	}, nil
}

func (k *KeyedMutex) release(vehicleID string, s *slot) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(k.slots, vehicleID)
	}
}
