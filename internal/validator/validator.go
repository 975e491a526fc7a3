// Package validator decides whether a configurator step may be left with
// Continue. Every check is a pure function of the configuration.
package validator

import (
	"strings"

	"hydrakit/internal/model"
	"hydrakit/internal/registry"
)

// Components exposes the FUNCTION360 component catalog. *registry.Registry
// implements it.
type Components interface {
	ComponentForStep(step model.StepID) (registry.Component, bool)
}

type Validator struct {
	components Components
}

func New(c Components) *Validator {
	return &Validator{components: c}
}

func filled(s ...string) bool {
	for _, v := range s {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// acted reports whether the user dismissed or confirmed an optional step.
// Typing a note resets both flags, so a stale skip never counts.
func acted(st model.StepState) bool {
	return st.NotRequired || st.Confirmed
}

// CanProceedTrac360 gates Continue on a TRAC360 step. Unknown steps report false.
func (v *Validator) CanProceedTrac360(step model.StepID, cfg *model.Trac360Config) bool {
	if cfg == nil {
		return false
	}
	switch step {
	case model.StepTractorInfo:
		ti := cfg.TractorInfo
		return filled(ti.Brand, ti.Model, ti.DriveType, ti.ProtectionType)
	case model.StepValveSetup:
		return cfg.ValveSetup != nil && filled(cfg.ValveSetup.ID)
	case model.StepOperationType:
		return cfg.OperationType != nil && filled(cfg.OperationType.ID)
	case model.StepCircuits:
		return cfg.Circuits != nil && filled(cfg.Circuits.ID)
	case model.StepValveAdaptors, model.StepHoseProtection, model.StepAccessories:
		return addonStepDone(cfg, step)
	case model.StepAdditionalInfo:
		return acted(cfg.Step(step))
	case model.StepSummary:
		return true
	}
	return false
}

// addonStepDone is true when the step has an explicit skip/confirm, or at
// least one add-on selection and every selected add-on carrying sub-options
// has one of them chosen.
func addonStepDone(cfg *model.Trac360Config, step model.StepID) bool {
	if acted(cfg.Step(step)) {
		return true
	}
	addons := cfg.AddonsForStep(step)
	for _, a := range addons {
		if len(a.SubOptions) == 0 {
			continue
		}
		if _, ok := a.Selected(); !ok {
			return false
		}
	}
	return len(addons) > 0
}

// CanProceedFunction360 gates Continue on a FUNCTION360 step. A component
// step passes with a selection or an explicit confirmation; "not required"
// counts only on components the catalog allows to be skipped.
func (v *Validator) CanProceedFunction360(step model.StepID, cfg *model.Function360Config) bool {
	if cfg == nil {
		return false
	}
	switch step {
	case model.StepEquipment:
		return validHorsepower(cfg.Equipment.Horsepower) && validFunctionType(cfg.Equipment.FunctionType)
	case model.StepAdditionalNotes:
		return acted(cfg.Step(step))
	case model.StepSummary:
		return true
	}

	if v.components == nil {
		return false
	}
	c, ok := v.components.ComponentForStep(step)
	if !ok {
		return false
	}
	if cfg.SelectedComponents.Get(c.Key) {
		return true
	}
	st := cfg.Step(step)
	return st.Confirmed || (c.AllowNotRequired && st.NotRequired)
}

// NotRequiredAllowed reports whether a FUNCTION360 step offers "not required".
func (v *Validator) NotRequiredAllowed(step model.StepID) bool {
	if step == model.StepAdditionalNotes {
		return true
	}
	if v.components == nil {
		return false
	}
	c, ok := v.components.ComponentForStep(step)
	return ok && c.AllowNotRequired
}

func validHorsepower(h model.Horsepower) bool {
	return h == model.HPBelow50 || h == model.HPAbove50
}

func validFunctionType(f model.FunctionType) bool {
	return f == model.FunctionElectric3rd || f == model.FunctionElectric3rd4th
}
