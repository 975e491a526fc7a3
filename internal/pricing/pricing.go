// Package pricing turns a configuration into an itemized price breakdown.
// Every function here is pure: same configuration in, same breakdown out.
// No arithmetic lets a non-finite or negative amount reach a total.
package pricing

import (
	"math"

	"hydrakit/internal/model"
	"hydrakit/internal/registry"
)

// OperationBasePrice is charged once an operation type is chosen.
const OperationBasePrice = 800.0

// Line kinds.
const (
	KindBase      = "base"
	KindCircuits  = "circuits"
	KindAddon     = "addon"
	KindSubOption = "sub-option"
	KindComponent = "component"
)

type Line struct {
	Kind   string  `json:"kind"`
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Breakdown is the itemized price. For TRAC360, Base excludes circuits and
// BaseCircuitPrice includes them; AddonsTotal includes sub-option deltas,
// which are also reported on their own in SubOptionsTotal.
type Breakdown struct {
	Base             float64 `json:"base"`
	CircuitsPrice    float64 `json:"circuitsPrice"`
	BaseCircuitPrice float64 `json:"baseCircuitPrice"`
	AddonsTotal      float64 `json:"addonsTotal"`
	SubOptionsTotal  float64 `json:"subOptionsTotal"`
	ComponentsTotal  float64 `json:"componentsTotal"`
	Total            float64 `json:"total"`
	Lines            []Line  `json:"lines"`
}

// finite clamps NaN, infinities and negative amounts to zero.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

func add(a, b float64) float64 {
	return finite(finite(a) + finite(b))
}

func Trac360(cfg *model.Trac360Config) Breakdown {
	b := Breakdown{Lines: make([]Line, 0)}
	if cfg == nil {
		return b
	}

	if cfg.OperationType != nil {
		b.Base = OperationBasePrice
		b.Lines = append(b.Lines, Line{Kind: KindBase, ID: cfg.OperationType.ID, Name: cfg.OperationType.Name, Amount: b.Base})
	}
	if cfg.Circuits != nil {
		b.CircuitsPrice = finite(cfg.Circuits.Price.Float())
		b.Lines = append(b.Lines, Line{Kind: KindCircuits, ID: cfg.Circuits.ID, Name: cfg.Circuits.Name, Amount: b.CircuitsPrice})
	}
	b.BaseCircuitPrice = add(b.Base, b.CircuitsPrice)

	for _, a := range cfg.Addons {
		base := finite(a.BasePrice.Float())
		b.Lines = append(b.Lines, Line{Kind: KindAddon, ID: a.ID, Name: a.Name, Amount: base})
		b.AddonsTotal = add(b.AddonsTotal, base)

		if so, ok := a.Selected(); ok {
			delta := finite(so.AdditionalPrice.Float())
			b.Lines = append(b.Lines, Line{Kind: KindSubOption, ID: a.ID + "/" + so.ID, Name: so.Name, Amount: delta})
			b.SubOptionsTotal = add(b.SubOptionsTotal, delta)
			b.AddonsTotal = add(b.AddonsTotal, delta)
		}
	}

	b.Total = add(b.BaseCircuitPrice, b.AddonsTotal)
	return b
}

func Function360(cfg *model.Function360Config) Breakdown {
	b := Breakdown{Lines: make([]Line, 0)}
	if cfg == nil {
		return b
	}
	for _, k := range model.ComponentKeys {
		if !cfg.SelectedComponents.Get(k) {
			continue
		}
		amount := finite(cfg.ComponentPrices[k].Float())
		b.Lines = append(b.Lines, Line{Kind: KindComponent, ID: string(k), Name: string(k), Amount: amount})
		b.ComponentsTotal = add(b.ComponentsTotal, amount)
	}
	b.Total = b.ComponentsTotal
	return b
}

// ProductIDsTrac360 lists catalog ids for every priced selection: the
// operation kit, the circuit pack, each add-on and the components of each
// chosen sub-option.
func ProductIDsTrac360(cfg *model.Trac360Config) []string {
	out := make([]string, 0)
	if cfg == nil {
		return out
	}
	if cfg.OperationType != nil && cfg.OperationType.ProductID != "" {
		out = append(out, cfg.OperationType.ProductID)
	}
	if cfg.Circuits != nil && cfg.Circuits.ProductID != "" {
		out = append(out, cfg.Circuits.ProductID)
	}
	for _, a := range cfg.Addons {
		if a.ProductID != "" {
			out = append(out, a.ProductID)
		}
		if so, ok := a.Selected(); ok {
			out = append(out, so.Components...)
		}
	}
	return out
}

// Resolver resolves FUNCTION360 component variants; *registry.Registry
// implements it.
type Resolver interface {
	ResolveComponent(k model.ComponentKey, key registry.VariantKey) (registry.ComponentVariant, bool)
}

// ProductIDsFunction360 lists the variant product ids of selected components.
func ProductIDsFunction360(cfg *model.Function360Config, r Resolver) []string {
	out := make([]string, 0)
	if cfg == nil || r == nil {
		return out
	}
	key := registry.VariantFor(cfg.Equipment)
	for _, k := range model.ComponentKeys {
		if !cfg.SelectedComponents.Get(k) {
			continue
		}
		if v, ok := r.ResolveComponent(k, key); ok && v.ProductID != "" {
			out = append(out, v.ProductID)
		}
	}
	return out
}
