package registry

import "hydrakit/internal/model"

// Defaults used when the equipment step has not been completed yet.
const (
	DefaultHorsepower   = model.HPBelow50
	DefaultFunctionType = model.FunctionElectric3rd
)

// VariantKey selects a component variant. Build it with VariantFor so the
// live pages and the summary share the same fallback.
type VariantKey struct {
	Horsepower   model.Horsepower
	FunctionType model.FunctionType
}

// VariantFor turns equipment answers into a resolution key, substituting
// DefaultHorsepower and DefaultFunctionType for missing answers.
func VariantFor(eq model.Equipment) VariantKey {
	k := VariantKey{Horsepower: eq.Horsepower, FunctionType: eq.FunctionType}
	if k.Horsepower == "" {
		k.Horsepower = DefaultHorsepower
	}
	if k.FunctionType == "" {
		k.FunctionType = DefaultFunctionType
	}
	return k
}

// ComponentVariant is one priced, pictured build of a component. Empty
// Horsepower or FunctionType means the variant applies to any value.
type ComponentVariant struct {
	Horsepower   model.Horsepower   `json:"horsepower"`
	FunctionType model.FunctionType `json:"functionType"`
	Price        model.Price        `json:"price"`
	ProductID    string             `json:"productId"`
	Image        string             `json:"image"`
	Specs        []string           `json:"specs"`
}

type Component struct {
	Key              model.ComponentKey `json:"key"`
	Step             model.StepID       `json:"step"`
	Name             string             `json:"name"`
	AllowNotRequired bool               `json:"allowNotRequired"`
	Variants         []ComponentVariant `json:"variants"`
}

func (r *Registry) Components() []Component {
	return append([]Component(nil), r.function360.Components...)
}

func (r *Registry) Component(k model.ComponentKey) (Component, bool) {
	c, ok := r.components[k]
	return c, ok
}

// ComponentForStep maps a FUNCTION360 component step to its component.
func (r *Registry) ComponentForStep(step model.StepID) (Component, bool) {
	for _, c := range r.function360.Components {
		if c.Step == step {
			return c, true
		}
	}
	return Component{}, false
}

// ResolveComponent picks the variant of k for the given key. The most
// specific match wins: exact, then horsepower only, then function type
// only, then a variant that applies to everything.
func (r *Registry) ResolveComponent(k model.ComponentKey, key VariantKey) (ComponentVariant, bool) {
	c, ok := r.components[k]
	if !ok {
		return ComponentVariant{}, false
	}
	best, bestScore := -1, -1
	for i, v := range c.Variants {
		score := 0
		if v.Horsepower != "" {
			if v.Horsepower != key.Horsepower {
				continue
			}
			score += 2
		}
		if v.FunctionType != "" {
			if v.FunctionType != key.FunctionType {
				continue
			}
			score++
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return ComponentVariant{}, false
	}
	return c.Variants[best], true
}
