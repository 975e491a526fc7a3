// Package orders keeps a ledger of confirmed configurations.
package orders

import (
	"encoding/json"
	"errors"
	"time"

	"hydrakit/internal/model"
)

var (
	ErrNotFound  = errors.New("order not found")
	ErrDuplicate = errors.New("order already recorded")
)

// Order is one confirmed configuration, keyed by its cart id.
type Order struct {
	CartID        string            `json:"cartId"`
	SessionID     string            `json:"sessionId"`
	Line          model.ProductLine `json:"line"`
	Name          string            `json:"name"`
	Total         float64           `json:"total"`
	ProductIDs    []string          `json:"productIds"`
	PDFURL        string            `json:"pdfUrl"`
	Configuration json.RawMessage   `json:"configuration"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// FromLineItem turns a published cart line item into a ledger entry.
func FromLineItem(sessionID string, item model.CartLineItem, productIDs []string) Order {
	ids := make([]string, 0, len(productIDs))
	ids = append(ids, productIDs...)
	return Order{
		CartID:        item.CartID,
		SessionID:     sessionID,
		Line:          item.Type,
		Name:          item.Name,
		Total:         item.TotalPrice.Float(),
		ProductIDs:    ids,
		PDFURL:        item.PDFArtifact.URL,
		Configuration: item.Configuration,
		CreatedAt:     time.UnixMilli(item.CreatedAt).UTC(),
	}
}
