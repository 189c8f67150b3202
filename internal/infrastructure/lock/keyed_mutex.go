package lock

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// KeyedMutex - блокировка лотов внутри одного процесса. Мьютекс создаётся
// на первый запрос и удаляется, когда его больше никто не держит и не ждёт.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*entry
}

type entry struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[uuid.UUID]*entry)}
}

// Lock ждёт освобождения лота или отмены ctx.
func (k *KeyedMutex) Lock(ctx context.Context, listingID uuid.UUID) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[listingID]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		k.locks[listingID] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(listingID, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(listingID, e)
		})
	}, nil
}

func (k *KeyedMutex) release(listingID uuid.UUID, e *entry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, listingID)
	}
}

// held - число лотов, по которым кто-то держит или ждёт блокировку.
func (k *KeyedMutex) held() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
