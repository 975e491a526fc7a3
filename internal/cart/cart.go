// Package cart builds the line item handed to the shop cart when a
// configuration is confirmed, and publishes it.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hydrakit/internal/model"
)

var ErrInvalidItem = errors.New("invalid cart line item")

// BuildLineItem snapshots a confirmed configuration into a cart line item.
// total must be the pricing engine's total for configuration.
func BuildLineItem(line model.ProductLine, name string, total float64, configuration any, pdf model.Artifact, now time.Time) (model.CartLineItem, error) {
	if !line.Valid() {
		return model.CartLineItem{}, fmt.Errorf("product line %q: %w", line, ErrInvalidItem)
	}
	snap, err := json.Marshal(configuration)
	if err != nil {
		return model.CartLineItem{}, fmt.Errorf("snapshot configuration: %w", err)
	}
	return model.CartLineItem{
		CartID:        uuid.NewString(),
		Type:          line,
		Name:          name,
		TotalPrice:    model.Price(total),
		Quantity:      1,
		PDFArtifact:   pdf,
		Configuration: snap,
		CreatedAt:     now.UTC().UnixMilli(),
	}, nil
}

// Validate checks the fields the cart collaborator relies on.
func Validate(item model.CartLineItem) error {
	switch {
	case item.CartID == "":
		return fmt.Errorf("missing cart id: %w", ErrInvalidItem)
	case !item.Type.Valid():
		return fmt.Errorf("type %q: %w", item.Type, ErrInvalidItem)
	case item.Quantity != 1:
		return fmt.Errorf("quantity %d: %w", item.Quantity, ErrInvalidItem)
	case !json.Valid(item.Configuration):
		return fmt.Errorf("configuration snapshot: %w", ErrInvalidItem)
	}
	return nil
}

// Publisher hands a line item to the cart.
type Publisher interface {
	Publish(ctx context.Context, item model.CartLineItem) error
	Close() error
}

// MemoryPublisher collects items in process.
type MemoryPublisher struct {
	mu    sync.Mutex
	items []model.CartLineItem
}

func (m *MemoryPublisher) Publish(_ context.Context, item model.CartLineItem) error {
	if err := Validate(item); err != nil {
		return err
	}
	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()
	return nil
}

func (m *MemoryPublisher) Items() []model.CartLineItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CartLineItem(nil), m.items...)
}

func (m *MemoryPublisher) Close() error { return nil }
