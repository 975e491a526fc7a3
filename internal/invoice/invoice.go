// Package invoice builds ad-hoc supplier invoices from catalog products and
// hands them to the mail service.
package invoice

import (
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"hydrakit/internal/catalog"
)

// GSTRate is applied after the discount.
const GSTRate = 0.10

// DueAfter is the payment term printed on every invoice.
const DueAfter = 30 * 24 * time.Hour

var (
	ErrNoItems         = errors.New("invoice has no items")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidCustomer = errors.New("invalid customer")
)

type Customer struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
}

type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	Amount    float64 `json:"amount"`
}

type Totals struct {
	Subtotal        float64 `json:"subtotal"`
	DiscountPercent float64 `json:"discountPercent"`
	Discount        float64 `json:"discount"`
	GST             float64 `json:"gst"`
	Total           float64 `json:"total"`
}

type Invoice struct {
	Number   string    `json:"number"`
	Customer Customer  `json:"customer"`
	IssuedAt time.Time `json:"issuedAt"`
	DueAt    time.Time `json:"dueAt"`
	Items    []Item    `json:"items"`
	Totals
	Notes string `json:"notes,omitempty"`
}

// Line is a requested product and quantity.
type Line struct {
	Product  catalog.Product
	Quantity int
}

func cents(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return math.Round(v*100) / 100
}

// ComputeTotals prices subtotal x (1 - discount%) x (1 + GST) and rounds
// once, at the end. The discount is clamped to [0,100] percent. Discount
// and GST are derived from the rounded total so the rows add up to it.
func ComputeTotals(subtotal, discountPercent float64) Totals {
	if math.IsNaN(discountPercent) {
		discountPercent = 0
	}
	d := math.Min(math.Max(discountPercent, 0), 100)
	sub := cents(subtotal)
	total := cents(sub * (1 - d/100) * (1 + GSTRate))
	taxable := math.Min(cents(sub*(1-d/100)), total)
	return Totals{
		Subtotal:        sub,
		DiscountPercent: d,
		Discount:        cents(sub - taxable),
		GST:             cents(total - taxable),
		Total:           total,
	}
}

// Build prices lines at their catalog price. Repeated products are merged.
func Build(c Customer, lines []Line, discountPercent float64, notes string, now time.Time) (Invoice, error) {
	if strings.TrimSpace(c.Name) == "" {
		return Invoice{}, fmt.Errorf("name: %w", ErrInvalidCustomer)
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return Invoice{}, fmt.Errorf("email %q: %w", c.Email, ErrInvalidCustomer)
	}
	if len(lines) == 0 {
		return Invoice{}, ErrNoItems
	}

	items := make([]Item, 0, len(lines))
	index := make(map[string]int)
	var subtotal float64
	for _, l := range lines {
		if l.Quantity <= 0 {
			return Invoice{}, fmt.Errorf("%s: %w", l.Product.ID, ErrInvalidQuantity)
		}
		unit := cents(l.Product.Price)
		if i, ok := index[l.Product.ID]; ok {
			items[i].Quantity += l.Quantity
			items[i].Amount = cents(float64(items[i].Quantity) * unit)
		} else {
			index[l.Product.ID] = len(items)
			items = append(items, Item{
				ProductID: l.Product.ID,
				Name:      l.Product.Name,
				SKU:       l.Product.SKU,
				Quantity:  l.Quantity,
				UnitPrice: unit,
				Amount:    cents(float64(l.Quantity) * unit),
			})
		}
	}
	for _, it := range items {
		subtotal += it.Amount
	}

	issued := now.UTC()
	return Invoice{
		Number:   Number(issued),
		Customer: c,
		IssuedAt: issued,
		DueAt:    issued.Add(DueAfter),
		Items:    items,
		Totals:   ComputeTotals(subtotal, discountPercent),
		Notes:    notes,
	}, nil
}

// Number returns a fresh invoice number such as INV-20260304-1A2B3C4D.
func Number(t time.Time) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "INV-" + t.UTC().Format("20060102") + "-" + id[:8]
}
