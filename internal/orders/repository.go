package orders

import "context"

// Repository is the ledger contract; checkout depends only on it.
type Repository interface {
	Save(ctx context.Context, o Order) error
	Get(ctx context.Context, cartID string) (Order, error)
	ListBySession(ctx context.Context, sessionID string) ([]Order, error)
}
