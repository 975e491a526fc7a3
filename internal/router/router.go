// Package router computes step-to-step navigation for both configurator
// flows from an explicit transition table.
package router

import (
	"hydrakit/internal/model"
	"hydrakit/internal/registry"
)

// Any matches every setup code or operation id in a Guard.
const Any = "*"

// Guard restricts a transition to a valve-setup code and operation id.
type Guard struct {
	SetupCode   string
	OperationID string
}

// specificity scores how closely g matches (setup, op), or -1 if it does not.
func (g Guard) specificity(setup, op string) int {
	score := 0
	switch g.SetupCode {
	case Any:
	case setup:
		score += 2
	default:
		return -1
	}
	switch g.OperationID {
	case Any:
	case op:
		score++
	default:
		return -1
	}
	return score
}

type Transition struct {
	From  model.StepID
	Guard Guard
	To    model.StepID
}

var always = Guard{SetupCode: Any, OperationID: Any}

var trac360Table = []Transition{
	{model.StepTractorInfo, always, model.StepValveSetup},
	{model.StepValveSetup, always, model.StepOperationType},

	{model.StepOperationType, Guard{"A", Any}, model.StepValveAdaptors},
	{model.StepOperationType, Guard{"B", "direct-mechanical"}, model.StepValveAdaptors},
	{model.StepOperationType, Guard{"B", "direct-cable"}, model.StepValveAdaptors},
	{model.StepOperationType, Guard{"B", "lever-cable"}, model.StepCircuits},
	{model.StepOperationType, Guard{"B", "joystick-cable"}, model.StepCircuits},
	{model.StepOperationType, Guard{"C", "joystick-cable"}, model.StepValveAdaptors},
	{model.StepOperationType, Guard{"C", "electric-joystick"}, model.StepValveAdaptors},
	{model.StepOperationType, Guard{"C", "lever-cable"}, model.StepCircuits},
	{model.StepOperationType, Guard{"D", Any}, model.StepCircuits},
	{model.StepOperationType, always, model.StepCircuits},

	{model.StepCircuits, always, model.StepValveAdaptors},
	{model.StepValveAdaptors, always, model.StepHoseProtection},
	{model.StepHoseProtection, always, model.StepAccessories},
	{model.StepAccessories, always, model.StepAdditionalInfo},
	{model.StepAdditionalInfo, always, model.StepSummary},
}

var function360Table = []Transition{
	{model.StepEquipment, always, model.StepDiverterValve},
	{model.StepDiverterValve, always, model.StepQuickCouplings},
	{model.StepQuickCouplings, always, model.StepAdaptors},
	{model.StepAdaptors, always, model.StepHydraulicHoses},
	{model.StepHydraulicHoses, always, model.StepElectrical},
	{model.StepElectrical, always, model.StepMountingBrackets},
	{model.StepMountingBrackets, always, model.StepAdditionalNotes},
	{model.StepAdditionalNotes, always, model.StepSummary},
}

// Transitions returns a copy of the table for line.
func Transitions(line model.ProductLine) []Transition {
	switch line {
	case model.LineTrac360:
		return append([]Transition(nil), trac360Table...)
	case model.LineFunction360:
		return append([]Transition(nil), function360Table...)
	}
	return nil
}

// First is the landing step of a flow.
func First(line model.ProductLine) model.StepID {
	if line == model.LineFunction360 {
		return model.StepEquipment
	}
	return model.StepTractorInfo
}

func next(table []Transition, from model.StepID, setup, op string) (model.StepID, bool) {
	var to model.StepID
	best := -1
	for _, t := range table {
		if t.From != from {
			continue
		}
		if s := t.Guard.specificity(setup, op); s > best {
			to, best = t.To, s
		}
	}
	return to, best >= 0
}

func selectors(cfg *model.Trac360Config) (setup, op string) {
	if cfg == nil {
		return "", ""
	}
	if cfg.ValveSetup != nil {
		setup = cfg.ValveSetup.Code
	}
	if cfg.OperationType != nil {
		op = cfg.OperationType.ID
	}
	return setup, op
}

// NextTrac360 returns the step after from. It reports false at the summary
// or for a step the flow does not know.
func NextTrac360(from model.StepID, cfg *model.Trac360Config) (model.StepID, bool) {
	setup, op := selectors(cfg)
	return next(trac360Table, from, setup, op)
}

func NextFunction360(from model.StepID) (model.StepID, bool) {
	return next(function360Table, from, "", "")
}

// Steps lists the steps cfg will visit, in order, from the first step to
// the summary.
func Steps(line model.ProductLine, cfg *model.Trac360Config) []model.StepID {
	out := []model.StepID{First(line)}
	for len(out) <= len(trac360Table)+1 {
		var (
			to model.StepID
			ok bool
		)
		if line == model.LineFunction360 {
			to, ok = NextFunction360(out[len(out)-1])
		} else {
			to, ok = NextTrac360(out[len(out)-1], cfg)
		}
		if !ok {
			break
		}
		out = append(out, to)
	}
	return out
}

// Previous returns the step the back button leads to. For a step the
// current selections skip, it falls back to the first table row leading to it.
func Previous(line model.ProductLine, at model.StepID, cfg *model.Trac360Config) (model.StepID, bool) {
	path := Steps(line, cfg)
	for i, s := range path {
		if s == at {
			if i == 0 {
				return "", false
			}
			return path[i-1], true
		}
	}
	for _, t := range Transitions(line) {
		if t.To == at {
			return t.From, true
		}
	}
	return "", false
}

// Path renders the page path of a step.
func Path(line model.ProductLine, step model.StepID) string {
	return "/" + string(line) + "/" + string(step)
}

// CircuitVariant picks the circuit option set offered on the circuits step.
func CircuitVariant(setupCode, operationID string) registry.CircuitVariant {
	if setupCode == "D" {
		switch operationID {
		case "electric-handles":
			return registry.CircuitsHandles
		case "electric-joystick":
			return registry.CircuitsJoystick
		}
	}
	return registry.CircuitsStandard
}

// CircuitLister is implemented by *registry.Registry.
type CircuitLister interface {
	Circuits(v registry.CircuitVariant) []registry.Circuit
}

// CircuitOptions lists the circuits offered for a setup/operation pair.
func CircuitOptions(c CircuitLister, setupCode, operationID string) []registry.Circuit {
	out := c.Circuits(CircuitVariant(setupCode, operationID))
	if out == nil {
		return make([]registry.Circuit, 0)
	}
	return out
}

// RoutesToCircuits reports whether cfg's selections visit the circuits step.
func RoutesToCircuits(cfg *model.Trac360Config) bool {
	to, _ := NextTrac360(model.StepOperationType, cfg)
	return to == model.StepCircuits
}
