package configurator

import (
	"fmt"
	"sync"

	"hydrakit/internal/changelog"
	"hydrakit/internal/model"
	"hydrakit/internal/pricing"
	"hydrakit/internal/router"
)

// Trac360Snapshot is what subscribers receive after each mutation.
type Trac360Snapshot struct {
	Config    *model.Trac360Config
	Breakdown pricing.Breakdown
}

type Trac360Store struct {
	mu   sync.Mutex
	s    *session
	cfg  *model.Trac360Config
	subs listeners[Trac360Snapshot]
}

// OpenTrac360 loads the session's TRAC360 record, falling back to defaults
// when it is absent or unreadable.
func OpenTrac360(sessionID string, d Deps) (*Trac360Store, error) {
	s, err := newSession(sessionID, model.LineTrac360, d)
	if err != nil {
		return nil, err
	}
	cfg := &model.Trac360Config{}
	seq, ok := s.load(cfg, func() int { return cfg.Version })
	if !ok {
		cfg = model.NewTrac360Config()
	}
	cfg.Normalize()
	if seq > cfg.Seq {
		cfg.Seq = seq
	}
	return &Trac360Store{s: s, cfg: cfg}, nil
}

func (t *Trac360Store) SessionID() string { return t.s.id }

// Degraded reports whether writes fell back to memory.
func (t *Trac360Store) Degraded() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.degraded
}

// Config returns a deep copy of the current configuration.
func (t *Trac360Store) Config() *model.Trac360Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg.Clone()
}

func (t *Trac360Store) Breakdown() pricing.Breakdown {
	t.mu.Lock()
	defer t.mu.Unlock()
	return pricing.Trac360(t.cfg)
}

// Subscribe registers fn for every committed change. The returned func
// removes it.
func (t *Trac360Store) Subscribe(fn func(Trac360Snapshot)) func() {
	return t.subs.add(fn)
}

// derive rewrites the derived fields from scratch.
func derive(c *model.Trac360Config) pricing.Breakdown {
	b := pricing.Trac360(c)
	c.TotalPrice = model.Price(b.Total)
	c.ProductIDs = pricing.ProductIDsTrac360(c)
	c.Version = model.SchemaVersion
	return b
}

func (t *Trac360Store) commit(op changelog.Op, mutation string, next *model.Trac360Config) Trac360Snapshot {
	next.Seq = t.cfg.Seq + 1
	b := derive(next)
	t.cfg = next
	t.s.persist(op, mutation, next.Seq, b.Total, next)
	return Trac360Snapshot{Config: next.Clone(), Breakdown: b}
}

func (t *Trac360Store) mutate(mutation string, fn func(c *model.Trac360Config) error) error {
	t.mu.Lock()
	next := t.cfg.Clone()
	if err := fn(next); err != nil {
		t.s.rejected(mutation)
		t.mu.Unlock()
		return fmt.Errorf("%s: %w", mutation, err)
	}
	snap := t.commit(changelog.OpPut, mutation, next)
	t.mu.Unlock()
	t.subs.notify(snap)
	return nil
}

// Reset replaces the configuration with defaults and drops the reminder
// position. The sequence keeps counting so replay order is preserved.
func (t *Trac360Store) Reset() {
	t.mu.Lock()
	snap := t.commit(changelog.OpReset, "reset", model.NewTrac360Config())
	t.s.clearUI()
	t.mu.Unlock()
	t.subs.notify(snap)
}

func (t *Trac360Store) ReminderPosition() (model.ReminderPosition, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.s.reminder()
}

func (t *Trac360Store) SetReminderPosition(pos model.ReminderPosition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.s.setReminder(pos)
}

func (t *Trac360Store) SetTractorInfo(ti model.TractorInfo) error {
	return t.mutate("set-tractor-info", func(c *model.Trac360Config) error {
		c.TractorInfo = ti
		return nil
	})
}

// circuitOffered reports whether the circuits step is visited and lists
// circuitID for the chosen setup and operation.
func circuitOffered(c *model.Trac360Config, circuitID string, variant func(id string) (string, bool)) bool {
	if c.ValveSetup == nil || c.OperationType == nil || !router.RoutesToCircuits(c) {
		return false
	}
	v, ok := variant(circuitID)
	return ok && v == string(router.CircuitVariant(c.ValveSetup.Code, c.OperationType.ID))
}

func (t *Trac360Store) circuitVariant(id string) (string, bool) {
	ci, ok := t.s.deps.Registry.Circuit(id)
	return string(ci.Variant), ok
}

// pruneCircuits drops a circuit choice the current selections no longer offer.
func (t *Trac360Store) pruneCircuits(c *model.Trac360Config) {
	if c.Circuits != nil && !circuitOffered(c, c.Circuits.ID, t.circuitVariant) {
		c.Circuits = nil
	}
}

// SetValveSetup accepts a setup id or code. An operation type the new setup
// does not support is dropped together with its circuits.
func (t *Trac360Store) SetValveSetup(idOrCode string) error {
	vs, ok := t.s.deps.Registry.ValveSetup(idOrCode)
	if !ok {
		t.s.rejected("set-valve-setup")
		return fmt.Errorf("set-valve-setup %q: %w", idOrCode, ErrUnknownValveSetup)
	}
	return t.mutate("set-valve-setup", func(c *model.Trac360Config) error {
		c.ValveSetup = vs.Selection()
		if c.OperationType != nil && !c.ValveSetup.Supports(c.OperationType.ID) {
			c.OperationType = nil
		}
		t.pruneCircuits(c)
		return nil
	})
}

func (t *Trac360Store) SetOperationType(id string) error {
	op, ok := t.s.deps.Registry.OperationType(id)
	if !ok {
		t.s.rejected("set-operation-type")
		return fmt.Errorf("set-operation-type %q: %w", id, ErrUnknownOperation)
	}
	return t.mutate("set-operation-type", func(c *model.Trac360Config) error {
		if c.ValveSetup == nil {
			return ErrNoValveSetup
		}
		if !c.ValveSetup.Supports(op.ID) {
			return fmt.Errorf("%s on setup %s: %w", op.ID, c.ValveSetup.Code, ErrIncompatibleOperation)
		}
		c.OperationType = op.Selection()
		t.pruneCircuits(c)
		return nil
	})
}

func (t *Trac360Store) SetCircuits(id string) error {
	ci, ok := t.s.deps.Registry.Circuit(id)
	if !ok {
		t.s.rejected("set-circuits")
		return fmt.Errorf("set-circuits %q: %w", id, ErrUnknownCircuit)
	}
	return t.mutate("set-circuits", func(c *model.Trac360Config) error {
		if !circuitOffered(c, ci.ID, t.circuitVariant) {
			return fmt.Errorf("%s: %w", ci.ID, ErrCircuitNotOffered)
		}
		c.Circuits = ci.Selection()
		return nil
	})
}

func (t *Trac360Store) ClearCircuits() error {
	return t.mutate("clear-circuits", func(c *model.Trac360Config) error {
		c.Circuits = nil
		return nil
	})
}

// AddAddon selects an add-on. Selecting revokes a "not required" on its step.
func (t *Trac360Store) AddAddon(id string) error {
	a, ok := t.s.deps.Registry.Addon(id)
	if !ok {
		t.s.rejected("add-addon")
		return fmt.Errorf("add-addon %q: %w", id, ErrUnknownAddon)
	}
	return t.mutate("add-addon", func(c *model.Trac360Config) error {
		if c.Addon(id) < 0 {
			c.Addons = append(c.Addons, a.Record())
		}
		revokeSkip(c.Steps, a.Step)
		return nil
	})
}

// RemoveAddon deselects an add-on; removing one that is not selected is a no-op.
func (t *Trac360Store) RemoveAddon(id string) error {
	if _, ok := t.s.deps.Registry.Addon(id); !ok {
		t.s.rejected("remove-addon")
		return fmt.Errorf("remove-addon %q: %w", id, ErrUnknownAddon)
	}
	return t.mutate("remove-addon", func(c *model.Trac360Config) error {
		if i := c.Addon(id); i >= 0 {
			c.Addons = append(c.Addons[:i], c.Addons[i+1:]...)
		}
		return nil
	})
}

// SetAddonSubOption picks a sub-option of a selected add-on. An empty
// subID clears the choice.
func (t *Trac360Store) SetAddonSubOption(addonID, subID string) error {
	return t.mutate("set-addon-sub-option", func(c *model.Trac360Config) error {
		i := c.Addon(addonID)
		if i < 0 {
			return fmt.Errorf("%s: %w", addonID, ErrAddonNotSelected)
		}
		if subID == "" {
			c.Addons[i].SelectedSubOption = nil
			return nil
		}
		if _, ok := c.Addons[i].SubOption(subID); !ok {
			return fmt.Errorf("%s/%s: %w", addonID, subID, ErrUnknownSubOption)
		}
		id := subID
		c.Addons[i].SelectedSubOption = &id
		return nil
	})
}

func revokeSkip(steps map[model.StepID]model.StepState, step model.StepID) {
	if st, ok := steps[step]; ok && st.NotRequired {
		st.NotRequired = false
		steps[step] = st
	}
}

func trac360Optional(step model.StepID) bool {
	switch step {
	case model.StepValveAdaptors, model.StepHoseProtection, model.StepAccessories, model.StepAdditionalInfo:
		return true
	}
	return false
}

// MarkNotRequired skips an optional step, deselecting its add-ons.
func (t *Trac360Store) MarkNotRequired(step model.StepID) error {
	return t.mutate("mark-not-required", func(c *model.Trac360Config) error {
		if !trac360Optional(step) {
			return fmt.Errorf("%s: %w", step, ErrUnknownStep)
		}
		kept := c.Addons[:0]
		for _, a := range c.Addons {
			if a.Step != step {
				kept = append(kept, a)
			}
		}
		c.Addons = kept
		st := c.Steps[step]
		st.NotRequired = true
		st.Confirmed = false
		c.Steps[step] = st
		return nil
	})
}

// SetStepNote stores the free text of an optional step. Typing revokes
// "not required" and any earlier confirmation.
func (t *Trac360Store) SetStepNote(step model.StepID, text string) error {
	return t.mutate("set-step-note", func(c *model.Trac360Config) error {
		if !trac360Optional(step) {
			return fmt.Errorf("%s: %w", step, ErrUnknownStep)
		}
		c.Steps[step] = model.StepState{Note: text}
		if step == model.StepAdditionalInfo {
			c.AdditionalInfo = text
		}
		return nil
	})
}

func (t *Trac360Store) SetAdditionalInfo(text string) error {
	return t.SetStepNote(model.StepAdditionalInfo, text)
}

func (t *Trac360Store) ConfirmStep(step model.StepID) error {
	return t.mutate("confirm-step", func(c *model.Trac360Config) error {
		if !trac360Optional(step) {
			return fmt.Errorf("%s: %w", step, ErrUnknownStep)
		}
		st := c.Steps[step]
		st.Confirmed = true
		c.Steps[step] = st
		return nil
	})
}
