// Package idempotency evita procesar dos veces el mismo evento de Stripe.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const DefaultTTL = 72 * time.Hour

// Store es lo mínimo que necesita el guard.
type Store interface {
	SetNX(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
}

type Guard struct {
	store Store
	ttl   time.Duration
	scope string
}

func NewGuard(store Store, ttl time.Duration, scope string) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &Guard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark devuelve true si el evento ya había sido marcado.
func (g *Guard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	set, err := g.store.SetNX(ctx, g.key(eventID), g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Release borra la marca para que un reintento vuelva a procesar el evento.
func (g *Guard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.key(eventID))
}

func (g *Guard) key(eventID string) string {
	return fmt.Sprintf("%s:idempotency:%s:%s", keyNamespace, g.scope, eventID)
}

// MemoryStore se usa cuando no hay Redis configurado (una sola instancia).
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: map[string]time.Time{}, now: time.Now}
}

func (m *MemoryStore) SetNX(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.entries[key]; ok && (exp.IsZero() || now.Before(exp)) {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	m.entries[key] = exp
	return true, nil
}

func (m *MemoryStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}
