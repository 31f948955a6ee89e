package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

var _ inventory.KeyLocker = (*LocalLocker)(nil)

// LocalLocker exclusión mutua por llave dentro del proceso. Cada llave tiene un semáforo
// de peso 1 que se libera de la tabla cuando nadie lo usa.
type LocalLocker struct {
	timeout time.Duration

	mu      sync.Mutex
	entries map[entity.StockKey]*localEntry
}

type localEntry struct {
	sem  *semaphore.Weighted
	refs int
}

// NewLocalLocker crea el locker. timeout es la espera máxima por llave.
func NewLocalLocker(timeout time.Duration) *LocalLocker {
	return &LocalLocker{
		timeout: timeout,
		entries: make(map[entity.StockKey]*localEntry),
	}
}

// Lock toma las llaves en orden canónico. Si no se obtienen antes del timeout devuelve
// domain.ErrContention y libera las ya tomadas.
func (l *LocalLocker) Lock(ctx context.Context, keys ...entity.StockKey) (func(), error) {
	ordered := entity.SortKeys(keys)
	if len(ordered) == 0 {
		return func() {}, nil
	}

	waitCtx := ctx
	if l.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	held := make([]entity.StockKey, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			l.release(held[i])
		}
	}
	for _, key := range ordered {
		e := l.acquireEntry(key)
		if err := e.sem.Acquire(waitCtx, 1); err != nil {
			l.dropEntry(key)
			release()
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("llave %s: %w", key, domain.ErrContention)
			}
			return nil, err
		}
		held = append(held, key)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func (l *LocalLocker) acquireEntry(key entity.StockKey) *localEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		e = &localEntry{sem: semaphore.NewWeighted(1)}
		l.entries[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) dropEntry(key entity.StockKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

func (l *LocalLocker) release(key entity.StockKey) {
	l.mu.Lock()
	e, ok := l.entries[key]
	l.mu.Unlock()
	if !ok {
		return
	}
	e.sem.Release(1)
	l.dropEntry(key)
}

// size llaves con bloqueo tomado o en espera.
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
