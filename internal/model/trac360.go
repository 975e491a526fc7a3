package model

type TractorInfo struct {
	Brand          string `json:"brand"`
	Model          string `json:"model"`
	DriveType      string `json:"driveType"`
	ProtectionType string `json:"protectionType"`
}

// ValveSetupSelection is the chosen installation location (codes A-D).
type ValveSetupSelection struct {
	ID                   string   `json:"id"`
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	CompatibleOperations []string `json:"compatibleOperations"`
}

func (v *ValveSetupSelection) Supports(operationID string) bool {
	if v == nil {
		return false
	}
	for _, id := range v.CompatibleOperations {
		if id == operationID {
			return true
		}
	}
	return false
}

// OperationSelection is the chosen control method. Control is one of
// direct, lever, joystick or handles.
type OperationSelection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Control   string `json:"control"`
	ProductID string `json:"productId"`
}

type CircuitSelection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Count     int    `json:"count"`
	Price     Price  `json:"price"`
	ProductID string `json:"productId"`
}

type SubOption struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	AdditionalPrice Price    `json:"additionalPrice"`
	Components      []string `json:"components"`
}

// AddonRecord is a selected add-on together with the sub-option catalog
// snapshot needed to price it without consulting the registry again.
type AddonRecord struct {
	ID                string      `json:"id"`
	Name              string      `json:"name"`
	Description       string      `json:"description"`
	Step              StepID      `json:"step"`
	ProductID         string      `json:"productId"`
	BasePrice         Price       `json:"basePrice"`
	SubOptions        []SubOption `json:"subOptions"`
	SelectedSubOption *string     `json:"selectedSubOption"`
}

// SubOption looks up a sub-option in the record's snapshot.
func (a AddonRecord) SubOption(id string) (SubOption, bool) {
	for _, so := range a.SubOptions {
		if so.ID == id {
			return so, true
		}
	}
	return SubOption{}, false
}

// Selected returns the chosen sub-option. A selection that does not match
// the snapshot counts as no selection.
func (a AddonRecord) Selected() (SubOption, bool) {
	if a.SelectedSubOption == nil {
		return SubOption{}, false
	}
	return a.SubOption(*a.SelectedSubOption)
}

// Trac360Config is the incremental TRAC360 configuration. TotalPrice and
// ProductIDs are derived and rewritten after every mutation.
type Trac360Config struct {
	Version        int                  `json:"version"`
	Seq            int64                `json:"seq"`
	TractorInfo    TractorInfo          `json:"tractorInfo"`
	ValveSetup     *ValveSetupSelection `json:"valveSetup"`
	OperationType  *OperationSelection  `json:"operationType"`
	Circuits       *CircuitSelection    `json:"circuits"`
	Addons         []AddonRecord        `json:"addons"`
	Steps          map[StepID]StepState `json:"steps"`
	AdditionalInfo string               `json:"additionalInfo"`
	TotalPrice     Price                `json:"totalPrice"`
	ProductIDs     []string             `json:"productIds"`
}

func NewTrac360Config() *Trac360Config {
	return &Trac360Config{
		Version:    SchemaVersion,
		Addons:     make([]AddonRecord, 0),
		Steps:      make(map[StepID]StepState),
		ProductIDs: make([]string, 0),
	}
}

// Normalize replaces nil collections left by decoding hand-written or
// older records so callers never branch on nil.
func (c *Trac360Config) Normalize() {
	if c.Addons == nil {
		c.Addons = make([]AddonRecord, 0)
	}
	for i := range c.Addons {
		if c.Addons[i].SubOptions == nil {
			c.Addons[i].SubOptions = make([]SubOption, 0)
		}
		for j := range c.Addons[i].SubOptions {
			if c.Addons[i].SubOptions[j].Components == nil {
				c.Addons[i].SubOptions[j].Components = make([]string, 0)
			}
		}
	}
	if c.Steps == nil {
		c.Steps = make(map[StepID]StepState)
	}
	if c.ProductIDs == nil {
		c.ProductIDs = make([]string, 0)
	}
	if c.ValveSetup != nil && c.ValveSetup.CompatibleOperations == nil {
		c.ValveSetup.CompatibleOperations = make([]string, 0)
	}
}

// Addon returns the index of the selected add-on with the given id, or -1.
func (c *Trac360Config) Addon(id string) int {
	for i := range c.Addons {
		if c.Addons[i].ID == id {
			return i
		}
	}
	return -1
}

// AddonsForStep returns the selected add-ons belonging to a step.
func (c *Trac360Config) AddonsForStep(step StepID) []AddonRecord {
	var out []AddonRecord
	for _, a := range c.Addons {
		if a.Step == step {
			out = append(out, a)
		}
	}
	return out
}

func (c *Trac360Config) Step(id StepID) StepState {
	return c.Steps[id]
}

// Clone returns a deep copy that shares no memory with c.
func (c *Trac360Config) Clone() *Trac360Config {
	out := *c
	if c.ValveSetup != nil {
		vs := *c.ValveSetup
		vs.CompatibleOperations = append(make([]string, 0, len(vs.CompatibleOperations)), vs.CompatibleOperations...)
		out.ValveSetup = &vs
	}
	if c.OperationType != nil {
		op := *c.OperationType
		out.OperationType = &op
	}
	if c.Circuits != nil {
		cs := *c.Circuits
		out.Circuits = &cs
	}
	out.Addons = make([]AddonRecord, 0, len(c.Addons))
	for _, a := range c.Addons {
		out.Addons = append(out.Addons, a.Clone())
	}
	out.Steps = make(map[StepID]StepState, len(c.Steps))
	for k, v := range c.Steps {
		out.Steps[k] = v
	}
	out.ProductIDs = append(make([]string, 0, len(c.ProductIDs)), c.ProductIDs...)
	return &out
}

func (a AddonRecord) Clone() AddonRecord {
	out := a
	out.SubOptions = make([]SubOption, 0, len(a.SubOptions))
	for _, so := range a.SubOptions {
		so.Components = append(make([]string, 0, len(so.Components)), so.Components...)
		out.SubOptions = append(out.SubOptions, so)
	}
	if a.SelectedSubOption != nil {
		id := *a.SelectedSubOption
		out.SelectedSubOption = &id
	}
	return out
}
