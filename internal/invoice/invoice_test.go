package invoice

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hydrakit/internal/catalog"
)

var now = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

var customer = Customer{Name: "Jo Farmer", Email: "jo@example.com"}

func TestComputeTotals(t *testing.T) {
	cases := []struct {
		sub, pct float64
		want     Totals
	}{
		{1000, 0, Totals{Subtotal: 1000, DiscountPercent: 0, Discount: 0, GST: 100, Total: 1100}},
		{1000, 10, Totals{Subtotal: 1000, DiscountPercent: 10, Discount: 100, GST: 90, Total: 990}},
		{1000, 150, Totals{Subtotal: 1000, DiscountPercent: 100, Discount: 1000, GST: 0, Total: 0}},
		{1000, -5, Totals{Subtotal: 1000, DiscountPercent: 0, Discount: 0, GST: 100, Total: 1100}},
		{99.99, 12.5, Totals{Subtotal: 99.99, DiscountPercent: 12.5, Discount: 12.5, GST: 8.75, Total: 96.24}},
		{math.NaN(), math.NaN(), Totals{}},
	}
	for _, c := range cases {
		if got := ComputeTotals(c.sub, c.pct); got != c.want {
			t.Fatalf("ComputeTotals(%v, %v) = %+v, want %+v", c.sub, c.pct, got, c.want)
		}
	}
}

func TestComputeTotals_RoundsOnce(t *testing.T) {
	cases := []struct{ sub, pct, total float64 }{
		{0.05, 10, 0.05},
		{0.05, 5, 0.05},
		{0.04, 12.5, 0.04},
	}
	for _, c := range cases {
		if got := ComputeTotals(c.sub, c.pct); got.Total != c.total {
			t.Fatalf("ComputeTotals(%v, %v).Total = %v, want %v", c.sub, c.pct, got.Total, c.total)
		}
	}
}

func TestComputeTotals_RowsAddUp(t *testing.T) {
	for _, pct := range []float64{0, 5, 10, 12.5, 15, 100} {
		for c := 1; c <= 20000; c++ {
			sub := float64(c) / 100
			got := ComputeTotals(sub, pct)
			want := math.Round(sub*(1-pct/100)*(1+GSTRate)*100) / 100
			if got.Total != want {
				t.Fatalf("ComputeTotals(%v, %v).Total = %v, want %v", sub, pct, got.Total, want)
			}
			if got.Discount < 0 || got.GST < 0 {
				t.Fatalf("negative row: %+v", got)
			}
			if math.Abs(got.Subtotal-got.Discount+got.GST-got.Total) > 0.001 {
				t.Fatalf("rows do not add up: %+v", got)
			}
		}
	}
}

func TestBuild(t *testing.T) {
	valve := catalog.Product{ID: "p1", Name: "2 bank valve", SKU: "MB-2", Price: 410.5}
	coupler := catalog.Product{ID: "p2", Name: "Coupler", SKU: "QC-FF-12", Price: 95}
	inv, err := Build(customer, []Line{
		{Product: valve, Quantity: 1},
		{Product: coupler, Quantity: 2},
		{Product: valve, Quantity: 1},
	}, 10, "pickup Friday", now)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(inv.Items) != 2 || inv.Items[0].Quantity != 2 || inv.Items[0].Amount != 821 {
		t.Fatalf("items: %+v", inv.Items)
	}
	want := Totals{Subtotal: 1011, DiscountPercent: 10, Discount: 101.1, GST: 90.99, Total: 1000.89}
	if inv.Totals != want {
		t.Fatalf("totals: %+v", inv.Totals)
	}
	if !strings.HasPrefix(inv.Number, "INV-20260304-") || len(inv.Number) != len("INV-20260304-")+8 {
		t.Fatalf("number: %s", inv.Number)
	}
	if !inv.DueAt.Equal(now.Add(DueAfter)) {
		t.Fatalf("due: %v", inv.DueAt)
	}
}

func TestBuild_Rejects(t *testing.T) {
	p := catalog.Product{ID: "p1", Price: 10}
	if _, err := Build(customer, nil, 0, "", now); !errors.Is(err, ErrNoItems) {
		t.Fatalf("want ErrNoItems, got %v", err)
	}
	if _, err := Build(customer, []Line{{Product: p, Quantity: 0}}, 0, "", now); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity, got %v", err)
	}
	if _, err := Build(Customer{Name: "x", Email: "not-an-email"}, []Line{{Product: p, Quantity: 1}}, 0, "", now); !errors.Is(err, ErrInvalidCustomer) {
		t.Fatalf("want ErrInvalidCustomer, got %v", err)
	}
}

func TestHTTPDispatcher_Send(t *testing.T) {
	var got Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	inv, _ := Build(customer, []Line{{Product: catalog.Product{ID: "p1", Name: "Valve", Price: 100}, Quantity: 1}}, 0, "", now)
	if err := NewHTTPDispatcher(srv.URL, nil).Send(context.Background(), inv); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got.To != "jo@example.com" || got.Invoice.Number != inv.Number || got.Invoice.Total != 110 {
		t.Fatalf("posted: %+v", got)
	}
}

func TestHTTPDispatcher_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "mailbox full", http.StatusInternalServerError)
	}))
	defer srv.Close()
	err := NewHTTPDispatcher(srv.URL, nil).Send(context.Background(), Invoice{Number: "INV-1"})
	if err == nil || !strings.Contains(err.Error(), "mailbox full") {
		t.Fatalf("want status error, got %v", err)
	}
}
