package configurator

import (
	"fmt"
	"sync"

	"hydrakit/internal/changelog"
	"hydrakit/internal/model"
	"hydrakit/internal/pricing"
	"hydrakit/internal/registry"
)

type Function360Snapshot struct {
	Config    *model.Function360Config
	Breakdown pricing.Breakdown
}

type Function360Store struct {
	mu   sync.Mutex
	s    *session
	cfg  *model.Function360Config
	subs listeners[Function360Snapshot]
}

func OpenFunction360(sessionID string, d Deps) (*Function360Store, error) {
	s, err := newSession(sessionID, model.LineFunction360, d)
	if err != nil {
		return nil, err
	}
	cfg := &model.Function360Config{}
	seq, ok := s.load(cfg, func() int { return cfg.Version })
	if !ok {
		cfg = model.NewFunction360Config()
	}
	cfg.Normalize()
	if seq > cfg.Seq {
		cfg.Seq = seq
	}
	return &Function360Store{s: s, cfg: cfg}, nil
}

func (f *Function360Store) SessionID() string { return f.s.id }

func (f *Function360Store) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.degraded
}

func (f *Function360Store) Config() *model.Function360Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.Clone()
}

func (f *Function360Store) Breakdown() pricing.Breakdown {
	f.mu.Lock()
	defer f.mu.Unlock()
	return pricing.Function360(f.cfg)
}

func (f *Function360Store) Subscribe(fn func(Function360Snapshot)) func() {
	return f.subs.add(fn)
}

func (f *Function360Store) commit(op changelog.Op, mutation string, next *model.Function360Config) Function360Snapshot {
	next.Seq = f.cfg.Seq + 1
	next.Version = model.SchemaVersion
	b := pricing.Function360(next)
	next.TotalPrice = model.Price(b.Total)
	next.ProductIDs = pricing.ProductIDsFunction360(next, f.s.deps.Registry)
	f.cfg = next
	f.s.persist(op, mutation, next.Seq, b.Total, next)
	return Function360Snapshot{Config: next.Clone(), Breakdown: b}
}

func (f *Function360Store) mutate(mutation string, fn func(c *model.Function360Config) error) error {
	f.mu.Lock()
	next := f.cfg.Clone()
	if err := fn(next); err != nil {
		f.s.rejected(mutation)
		f.mu.Unlock()
		return fmt.Errorf("%s: %w", mutation, err)
	}
	snap := f.commit(changelog.OpPut, mutation, next)
	f.mu.Unlock()
	f.subs.notify(snap)
	return nil
}

func (f *Function360Store) Reset() {
	f.mu.Lock()
	snap := f.commit(changelog.OpReset, "reset", model.NewFunction360Config())
	f.s.clearUI()
	f.mu.Unlock()
	f.subs.notify(snap)
}

func (f *Function360Store) ReminderPosition() (model.ReminderPosition, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.s.reminder()
}

func (f *Function360Store) SetReminderPosition(pos model.ReminderPosition) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.s.setReminder(pos)
}

// resolvePrice caches the variant-correct price of component k.
func (f *Function360Store) resolvePrice(c *model.Function360Config, k model.ComponentKey) {
	v, ok := f.s.deps.Registry.ResolveComponent(k, registry.VariantFor(c.Equipment))
	if !ok {
		delete(c.ComponentPrices, k)
		return
	}
	c.ComponentPrices[k] = v.Price
}

// SetEquipment records the tractor class and re-prices every selected
// component for the new variant.
func (f *Function360Store) SetEquipment(hp model.Horsepower, ft model.FunctionType) error {
	return f.mutate("set-equipment", func(c *model.Function360Config) error {
		if hp != model.HPBelow50 && hp != model.HPAbove50 {
			return fmt.Errorf("horsepower %q: %w", hp, ErrInvalidEquipment)
		}
		if ft != model.FunctionElectric3rd && ft != model.FunctionElectric3rd4th {
			return fmt.Errorf("function type %q: %w", ft, ErrInvalidEquipment)
		}
		c.Equipment = model.Equipment{Horsepower: hp, FunctionType: ft}
		for _, k := range model.ComponentKeys {
			if c.SelectedComponents.Get(k) {
				f.resolvePrice(c, k)
			}
		}
		return nil
	})
}

// ToggleComponent switches a component on or off. Switching on always
// re-resolves the price; switching off drops the cached price.
func (f *Function360Store) ToggleComponent(k model.ComponentKey, on bool) error {
	comp, ok := f.s.deps.Registry.Component(k)
	if !ok {
		f.s.rejected("toggle-component")
		return fmt.Errorf("toggle-component %q: %w", k, ErrUnknownComponent)
	}
	return f.mutate("toggle-component", func(c *model.Function360Config) error {
		c.SelectedComponents.Set(k, on)
		if on {
			f.resolvePrice(c, k)
			revokeSkip(c.Steps, comp.Step)
		} else {
			delete(c.ComponentPrices, k)
		}
		return nil
	})
}

// optionalStep resolves a step that accepts not-required, notes and
// confirmation: a component step or additional-notes.
func (f *Function360Store) optionalStep(step model.StepID) (registry.Component, bool, error) {
	if step == model.StepAdditionalNotes {
		return registry.Component{}, false, nil
	}
	comp, ok := f.s.deps.Registry.ComponentForStep(step)
	if !ok {
		return registry.Component{}, false, fmt.Errorf("%s: %w", step, ErrUnknownStep)
	}
	return comp, true, nil
}

// MarkNotRequired skips a step and switches its component off. Components
// the catalog marks mandatory refuse.
func (f *Function360Store) MarkNotRequired(step model.StepID) error {
	return f.mutate("mark-not-required", func(c *model.Function360Config) error {
		comp, isComponent, err := f.optionalStep(step)
		if err != nil {
			return err
		}
		if isComponent {
			if !comp.AllowNotRequired {
				return fmt.Errorf("%s: %w", comp.Key, ErrNotRequiredUnavailable)
			}
			c.SelectedComponents.Set(comp.Key, false)
			delete(c.ComponentPrices, comp.Key)
		}
		st := c.Steps[step]
		st.NotRequired = true
		st.Confirmed = false
		c.Steps[step] = st
		return nil
	})
}

func (f *Function360Store) SetStepNote(step model.StepID, text string) error {
	return f.mutate("set-step-note", func(c *model.Function360Config) error {
		if _, _, err := f.optionalStep(step); err != nil {
			return err
		}
		c.Steps[step] = model.StepState{Note: text}
		if step == model.StepAdditionalNotes {
			c.AdditionalNotes = text
		}
		return nil
	})
}

func (f *Function360Store) SetAdditionalNotes(text string) error {
	return f.SetStepNote(model.StepAdditionalNotes, text)
}

func (f *Function360Store) ConfirmStep(step model.StepID) error {
	return f.mutate("confirm-step", func(c *model.Function360Config) error {
		if _, _, err := f.optionalStep(step); err != nil {
			return err
		}
		st := c.Steps[step]
		st.Confirmed = true
		c.Steps[step] = st
		return nil
	})
}
