package model

type Horsepower string

const (
	HPBelow50 Horsepower = "below_50hp"
	HPAbove50 Horsepower = "above_50hp"
)

type FunctionType string

const (
	FunctionElectric3rd    FunctionType = "electric_3rd"
	FunctionElectric3rd4th FunctionType = "electric_3rd_4th"
)

type Equipment struct {
	Horsepower   Horsepower   `json:"horsepower"`
	FunctionType FunctionType `json:"functionType"`
}

// ComponentKey names one of the fixed FUNCTION360 optional components.
type ComponentKey string

const (
	ComponentDiverterValve    ComponentKey = "diverterValve"
	ComponentQuickCouplings   ComponentKey = "quickCouplings"
	ComponentAdaptors         ComponentKey = "adaptors"
	ComponentHydraulicHoses   ComponentKey = "hydraulicHoses"
	ComponentElectrical       ComponentKey = "electrical"
	ComponentMountingBrackets ComponentKey = "mountingBrackets"
)

// ComponentKeys lists every component in flow order.
var ComponentKeys = []ComponentKey{
	ComponentDiverterValve,
	ComponentQuickCouplings,
	ComponentAdaptors,
	ComponentHydraulicHoses,
	ComponentElectrical,
	ComponentMountingBrackets,
}

type SelectedComponents struct {
	DiverterValve    bool `json:"diverterValve"`
	QuickCouplings   bool `json:"quickCouplings"`
	Adaptors         bool `json:"adaptors"`
	HydraulicHoses   bool `json:"hydraulicHoses"`
	Electrical       bool `json:"electrical"`
	MountingBrackets bool `json:"mountingBrackets"`
}

func (s SelectedComponents) Get(k ComponentKey) bool {
	switch k {
	case ComponentDiverterValve:
		return s.DiverterValve
	case ComponentQuickCouplings:
		return s.QuickCouplings
	case ComponentAdaptors:
		return s.Adaptors
	case ComponentHydraulicHoses:
		return s.HydraulicHoses
	case ComponentElectrical:
		return s.Electrical
	case ComponentMountingBrackets:
		return s.MountingBrackets
	}
	return false
}

// Set flips the flag for k. It reports false for an unknown key.
func (s *SelectedComponents) Set(k ComponentKey, on bool) bool {
	switch k {
	case ComponentDiverterValve:
		s.DiverterValve = on
	case ComponentQuickCouplings:
		s.QuickCouplings = on
	case ComponentAdaptors:
		s.Adaptors = on
	case ComponentHydraulicHoses:
		s.HydraulicHoses = on
	case ComponentElectrical:
		s.Electrical = on
	case ComponentMountingBrackets:
		s.MountingBrackets = on
	default:
		return false
	}
	return true
}

// Function360Config is the incremental FUNCTION360 configuration.
// ComponentPrices caches the variant price resolved when a component was
// switched on; entries for switched-off components are removed.
type Function360Config struct {
	Version            int                    `json:"version"`
	Seq                int64                  `json:"seq"`
	Equipment          Equipment              `json:"equipment"`
	SelectedComponents SelectedComponents     `json:"selectedComponents"`
	ComponentPrices    map[ComponentKey]Price `json:"componentPrices"`
	Steps              map[StepID]StepState   `json:"steps"`
	AdditionalNotes    string                 `json:"additionalNotes"`
	TotalPrice         Price                  `json:"totalPrice"`
	ProductIDs         []string               `json:"productIds"`
}

func NewFunction360Config() *Function360Config {
	return &Function360Config{
		Version:         SchemaVersion,
		ComponentPrices: make(map[ComponentKey]Price),
		Steps:           make(map[StepID]StepState),
		ProductIDs:      make([]string, 0),
	}
}

func (c *Function360Config) Normalize() {
	if c.ComponentPrices == nil {
		c.ComponentPrices = make(map[ComponentKey]Price)
	}
	if c.Steps == nil {
		c.Steps = make(map[StepID]StepState)
	}
	if c.ProductIDs == nil {
		c.ProductIDs = make([]string, 0)
	}
}

func (c *Function360Config) Step(id StepID) StepState {
	return c.Steps[id]
}

func (c *Function360Config) Clone() *Function360Config {
	out := *c
	out.ComponentPrices = make(map[ComponentKey]Price, len(c.ComponentPrices))
	for k, v := range c.ComponentPrices {
		out.ComponentPrices[k] = v
	}
	out.Steps = make(map[StepID]StepState, len(c.Steps))
	for k, v := range c.Steps {
		out.Steps[k] = v
	}
	out.ProductIDs = append(make([]string, 0, len(c.ProductIDs)), c.ProductIDs...)
	return &out
}
