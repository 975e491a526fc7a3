// Package registry is the read-only catalog of valve setups, operation
// types, circuits, add-ons and FUNCTION360 components. It is loaded from the
// bundled data files and consulted by id.
package registry

import (
	"embed"
	"encoding/json"
	"fmt"

	"hydrakit/internal/model"
)

//go:embed data/*.json
var bundled embed.FS

type ValveSetup struct {
	ID                   string   `json:"id"`
	Code                 string   `json:"code"`
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	CompatibleOperations []string `json:"compatibleOperations"`
}

// Selection snapshots the setup into the configuration record.
func (v ValveSetup) Selection() *model.ValveSetupSelection {
	return &model.ValveSetupSelection{
		ID:                   v.ID,
		Code:                 v.Code,
		Name:                 v.Name,
		CompatibleOperations: append(make([]string, 0, len(v.CompatibleOperations)), v.CompatibleOperations...),
	}
}

type OperationType struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Control   string `json:"control"`
	ProductID string `json:"productId"`
}

func (o OperationType) Selection() *model.OperationSelection {
	return &model.OperationSelection{ID: o.ID, Name: o.Name, Control: o.Control, ProductID: o.ProductID}
}

// CircuitVariant partitions circuit options by the controls they ship with.
type CircuitVariant string

const (
	CircuitsStandard CircuitVariant = "standard"
	CircuitsHandles  CircuitVariant = "handles"
	CircuitsJoystick CircuitVariant = "joystick"
)

type Circuit struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Count     int            `json:"count"`
	Price     model.Price    `json:"price"`
	ProductID string         `json:"productId"`
	Variant   CircuitVariant `json:"variant"`
}

func (c Circuit) Selection() *model.CircuitSelection {
	return &model.CircuitSelection{ID: c.ID, Name: c.Name, Count: c.Count, Price: c.Price, ProductID: c.ProductID}
}

type Addon struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Step        model.StepID      `json:"step"`
	ProductID   string            `json:"productId"`
	BasePrice   model.Price       `json:"basePrice"`
	SubOptions  []model.SubOption `json:"subOptions"`
}

// Record builds the add-on record stored in a configuration, including a
// private copy of the sub-option catalog.
func (a Addon) Record() model.AddonRecord {
	rec := model.AddonRecord{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Step:        a.Step,
		ProductID:   a.ProductID,
		BasePrice:   a.BasePrice,
		SubOptions:  make([]model.SubOption, 0, len(a.SubOptions)),
	}
	for _, so := range a.SubOptions {
		so.Components = append(make([]string, 0, len(so.Components)), so.Components...)
		rec.SubOptions = append(rec.SubOptions, so)
	}
	return rec
}

type trac360Data struct {
	ValveSetups    []ValveSetup    `json:"valveSetups"`
	OperationTypes []OperationType `json:"operationTypes"`
	Circuits       []Circuit       `json:"circuits"`
	Addons         []Addon         `json:"addons"`
}

type function360Data struct {
	Components []Component `json:"components"`
}

// Registry is immutable after Load and safe for concurrent use.
type Registry struct {
	trac360     trac360Data
	function360 function360Data

	setups     map[string]ValveSetup
	operations map[string]OperationType
	circuits   map[string]Circuit
	addons     map[string]Addon
	components map[model.ComponentKey]Component
}

// Bundled loads the catalog compiled into the binary.
func Bundled() (*Registry, error) {
	trac, err := bundled.ReadFile("data/trac360.json")
	if err != nil {
		return nil, fmt.Errorf("read trac360 data: %w", err)
	}
	fn, err := bundled.ReadFile("data/function360.json")
	if err != nil {
		return nil, fmt.Errorf("read function360 data: %w", err)
	}
	return Load(trac, fn)
}

// MustBundled is Bundled for composition roots and tests.
func MustBundled() *Registry {
	r, err := Bundled()
	if err != nil {
		panic(err)
	}
	return r
}

// Load parses and cross-checks both catalog documents.
func Load(trac360JSON, function360JSON []byte) (*Registry, error) {
	r := &Registry{
		setups:     make(map[string]ValveSetup),
		operations: make(map[string]OperationType),
		circuits:   make(map[string]Circuit),
		addons:     make(map[string]Addon),
		components: make(map[model.ComponentKey]Component),
	}
	if err := json.Unmarshal(trac360JSON, &r.trac360); err != nil {
		return nil, fmt.Errorf("unmarshal trac360 data: %w", err)
	}
	if err := json.Unmarshal(function360JSON, &r.function360); err != nil {
		return nil, fmt.Errorf("unmarshal function360 data: %w", err)
	}

	for _, op := range r.trac360.OperationTypes {
		r.operations[op.ID] = op
	}
	for _, vs := range r.trac360.ValveSetups {
		for _, opID := range vs.CompatibleOperations {
			if _, ok := r.operations[opID]; !ok {
				return nil, fmt.Errorf("valve setup %s: unknown operation %q", vs.ID, opID)
			}
		}
		r.setups[vs.ID] = vs
	}
	for _, c := range r.trac360.Circuits {
		switch c.Variant {
		case CircuitsStandard, CircuitsHandles, CircuitsJoystick:
		default:
			return nil, fmt.Errorf("circuit %s: unknown variant %q", c.ID, c.Variant)
		}
		r.circuits[c.ID] = c
	}
	for _, a := range r.trac360.Addons {
		seen := make(map[string]bool, len(a.SubOptions))
		for _, so := range a.SubOptions {
			if seen[so.ID] {
				return nil, fmt.Errorf("addon %s: duplicate sub-option %q", a.ID, so.ID)
			}
			seen[so.ID] = true
		}
		r.addons[a.ID] = a
	}
	for _, c := range r.function360.Components {
		if !knownComponent(c.Key) {
			return nil, fmt.Errorf("unknown component key %q", c.Key)
		}
		if len(c.Variants) == 0 {
			return nil, fmt.Errorf("component %s has no variants", c.Key)
		}
		r.components[c.Key] = c
	}
	return r, nil
}

func knownComponent(k model.ComponentKey) bool {
	for _, c := range model.ComponentKeys {
		if c == k {
			return true
		}
	}
	return false
}

func (r *Registry) ValveSetups() []ValveSetup {
	return append([]ValveSetup(nil), r.trac360.ValveSetups...)
}

// ValveSetup finds a setup by id ("setup-b") or by code ("B").
func (r *Registry) ValveSetup(idOrCode string) (ValveSetup, bool) {
	if vs, ok := r.setups[idOrCode]; ok {
		return vs, true
	}
	for _, vs := range r.trac360.ValveSetups {
		if vs.Code == idOrCode {
			return vs, true
		}
	}
	return ValveSetup{}, false
}

func (r *Registry) OperationType(id string) (OperationType, bool) {
	op, ok := r.operations[id]
	return op, ok
}

// OperationTypesFor lists the operation types a setup supports, in setup order.
func (r *Registry) OperationTypesFor(setupID string) []OperationType {
	vs, ok := r.ValveSetup(setupID)
	if !ok {
		return nil
	}
	out := make([]OperationType, 0, len(vs.CompatibleOperations))
	for _, id := range vs.CompatibleOperations {
		out = append(out, r.operations[id])
	}
	return out
}

func (r *Registry) Circuit(id string) (Circuit, bool) {
	c, ok := r.circuits[id]
	return c, ok
}

// Circuits lists the options of one variant in catalog order.
func (r *Registry) Circuits(v CircuitVariant) []Circuit {
	var out []Circuit
	for _, c := range r.trac360.Circuits {
		if c.Variant == v {
			out = append(out, c)
		}
	}
	return out
}

func (r *Registry) Addon(id string) (Addon, bool) {
	a, ok := r.addons[id]
	return a, ok
}

func (r *Registry) AddonsForStep(step model.StepID) []Addon {
	var out []Addon
	for _, a := range r.trac360.Addons {
		if a.Step == step {
			out = append(out, a)
		}
	}
	return out
}

// AddonSteps lists the distinct add-on steps in catalog order.
func (r *Registry) AddonSteps() []model.StepID {
	var out []model.StepID
	seen := make(map[model.StepID]bool)
	for _, a := range r.trac360.Addons {
		if !seen[a.Step] {
			seen[a.Step] = true
			out = append(out, a.Step)
		}
	}
	return out
}
