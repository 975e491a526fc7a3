// Package summary builds the order summary shown on the last step and sent
// to the PDF service at checkout.
package summary

import (
	"fmt"
	"strings"
	"time"

	"hydrakit/internal/model"
	"hydrakit/internal/pricing"
	"hydrakit/internal/registry"
	"hydrakit/internal/router"
)

// Field is one label/value row of the document header.
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Item is a priced line of the document.
type Item struct {
	Kind      string   `json:"kind"`
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ProductID string   `json:"productId,omitempty"`
	Amount    float64  `json:"amount"`
	Image     string   `json:"image,omitempty"`
	Specs     []string `json:"specs,omitempty"`
}

type Note struct {
	Step model.StepID `json:"step"`
	Text string       `json:"text"`
}

type Document struct {
	SessionID  string            `json:"sessionId"`
	Line       model.ProductLine `json:"line"`
	Title      string            `json:"title"`
	CreatedAt  time.Time         `json:"createdAt"`
	Header     []Field           `json:"header"`
	Items      []Item            `json:"items"`
	Notes      []Note            `json:"notes"`
	Skipped    []model.StepID    `json:"skipped"`
	Breakdown  pricing.Breakdown `json:"breakdown"`
	Total      float64           `json:"total"`
	ProductIDs []string          `json:"productIds"`
}

// Title is the product name used on the summary and in the cart.
func Title(line model.ProductLine) string {
	switch line {
	case model.LineTrac360:
		return "TRAC360 hydraulic kit"
	case model.LineFunction360:
		return "FUNCTION360 hydraulic kit"
	}
	return string(line)
}

func newDocument(sessionID string, line model.ProductLine, now time.Time) Document {
	return Document{
		SessionID:  sessionID,
		Line:       line,
		Title:      Title(line),
		CreatedAt:  now.UTC(),
		Header:     make([]Field, 0),
		Items:      make([]Item, 0),
		Notes:      make([]Note, 0),
		Skipped:    make([]model.StepID, 0),
		ProductIDs: make([]string, 0),
	}
}

func field(h []Field, label, value string) []Field {
	if strings.TrimSpace(value) == "" {
		return h
	}
	return append(h, Field{Label: label, Value: value})
}

// annotate collects notes and skipped steps in the order the flow visits them.
func annotate(d *Document, steps []model.StepID, state map[model.StepID]model.StepState) {
	for _, s := range steps {
		st, ok := state[s]
		if !ok {
			continue
		}
		if st.NotRequired {
			d.Skipped = append(d.Skipped, s)
		}
		if strings.TrimSpace(st.Note) != "" {
			d.Notes = append(d.Notes, Note{Step: s, Text: st.Note})
		}
	}
}

func Trac360(sessionID string, cfg *model.Trac360Config, now time.Time) Document {
	d := newDocument(sessionID, model.LineTrac360, now)
	if cfg == nil {
		d.Breakdown = pricing.Trac360(nil)
		return d
	}

	ti := cfg.TractorInfo
	d.Header = field(d.Header, "Brand", ti.Brand)
	d.Header = field(d.Header, "Model", ti.Model)
	d.Header = field(d.Header, "Drive type", ti.DriveType)
	d.Header = field(d.Header, "Protection", ti.ProtectionType)
	if vs := cfg.ValveSetup; vs != nil {
		d.Header = field(d.Header, "Valve setup", fmt.Sprintf("%s (%s)", vs.Name, vs.Code))
	}
	if op := cfg.OperationType; op != nil {
		d.Header = field(d.Header, "Operation", op.Name)
	}

	d.Breakdown = pricing.Trac360(cfg)
	products := trac360Products(cfg)
	for _, l := range d.Breakdown.Lines {
		d.Items = append(d.Items, Item{
			Kind:      l.Kind,
			ID:        l.ID,
			Name:      l.Name,
			ProductID: products[l.Kind+":"+l.ID],
			Amount:    l.Amount,
		})
	}

	annotate(&d, router.Steps(model.LineTrac360, cfg), cfg.Steps)
	d.Total = d.Breakdown.Total
	d.ProductIDs = append(d.ProductIDs, pricing.ProductIDsTrac360(cfg)...)
	return d
}

// trac360Products maps "kind:id" of each breakdown line to its catalog id.
func trac360Products(cfg *model.Trac360Config) map[string]string {
	out := make(map[string]string)
	if op := cfg.OperationType; op != nil {
		out[pricing.KindBase+":"+op.ID] = op.ProductID
	}
	if c := cfg.Circuits; c != nil {
		out[pricing.KindCircuits+":"+c.ID] = c.ProductID
	}
	for _, a := range cfg.Addons {
		out[pricing.KindAddon+":"+a.ID] = a.ProductID
		if so, ok := a.Selected(); ok {
			out[pricing.KindSubOption+":"+a.ID+"/"+so.ID] = strings.Join(so.Components, ",")
		}
	}
	return out
}

// Function360 resolves the picture and specs of every selected component
// with the same variant key the live pages use.
func Function360(sessionID string, cfg *model.Function360Config, r *registry.Registry, now time.Time) Document {
	d := newDocument(sessionID, model.LineFunction360, now)
	if cfg == nil {
		d.Breakdown = pricing.Function360(nil)
		return d
	}

	d.Header = field(d.Header, "Horsepower", horsepowerLabel(cfg.Equipment.Horsepower))
	d.Header = field(d.Header, "Function type", functionTypeLabel(cfg.Equipment.FunctionType))

	d.Breakdown = pricing.Function360(cfg)
	key := registry.VariantFor(cfg.Equipment)
	for _, l := range d.Breakdown.Lines {
		it := Item{Kind: l.Kind, ID: l.ID, Name: l.Name, Amount: l.Amount}
		k := model.ComponentKey(l.ID)
		if c, ok := r.Component(k); ok {
			it.Name = c.Name
		}
		if v, ok := r.ResolveComponent(k, key); ok {
			it.ProductID = v.ProductID
			it.Image = v.Image
			it.Specs = append([]string(nil), v.Specs...)
		}
		d.Items = append(d.Items, it)
	}

	annotate(&d, router.Steps(model.LineFunction360, nil), cfg.Steps)
	d.Total = d.Breakdown.Total
	d.ProductIDs = append(d.ProductIDs, pricing.ProductIDsFunction360(cfg, r)...)
	return d
}

func horsepowerLabel(h model.Horsepower) string {
	switch h {
	case model.HPBelow50:
		return "Below 50 hp"
	case model.HPAbove50:
		return "Above 50 hp"
	}
	return string(h)
}

func functionTypeLabel(f model.FunctionType) string {
	switch f {
	case model.FunctionElectric3rd:
		return "Electric 3rd function"
	case model.FunctionElectric3rd4th:
		return "Electric 3rd and 4th function"
	}
	return string(f)
}
