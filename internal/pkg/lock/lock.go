// Package lock fornece o ponto de serialização por marca usado pela alocação FIFO
// e pelos registros de perda/transferência.
package lock

import (
	"context"
	"sync"
)

// Unlock libera o lock adquirido. Chamadas repetidas são ignoradas.
type Unlock func()

// BrandLocker serializa mutações de estoque de uma mesma marca.
type BrandLocker interface {
	Lock(ctx context.Context, brand string) (Unlock, error)
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker é um mutex por chave dentro do processo.
// Entradas sem interessados são removidas para não crescer indefinidamente.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryLocker cria um MemoryLocker vazio.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

// Lock bloqueia até obter a marca ou até o contexto terminar.
func (l *MemoryLocker) Lock(ctx context.Context, brand string) (Unlock, error) {
	l.mu.Lock()
	e, ok := l.entries[brand]
	if !ok {
		e = &memoryEntry{ch: make(chan struct{}, 1)}
		l.entries[brand] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(brand, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			l.release(brand, e)
		})
	}, nil
}

func (l *MemoryLocker) release(brand string, e *memoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, brand)
	}
}

// size devolve o número de marcas com interessados (usado nos testes).
func (l *MemoryLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
