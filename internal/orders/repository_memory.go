package orders

import (
	"context"
	"sort"
	"sync"
)

type MemoryRepository struct {
	mu     sync.RWMutex
	orders map[string]Order
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{orders: make(map[string]Order)}
}

func (r *MemoryRepository) Save(_ context.Context, o Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.CartID]; ok {
		return ErrDuplicate
	}
	r.orders[o.CartID] = o
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, cartID string) (Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[cartID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// ListBySession returns the session's orders, newest first.
func (r *MemoryRepository) ListBySession(_ context.Context, sessionID string) ([]Order, error) {
	r.mu.RLock()
	out := make([]Order, 0)
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			out = append(out, o)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
