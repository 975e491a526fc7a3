package registry

import (
	"testing"

	"hydrakit/internal/model"
)

func TestBundled_Loads(t *testing.T) {
	r, err := Bundled()
	if err != nil {
		t.Fatalf("bundled: %v", err)
	}
	if got := len(r.ValveSetups()); got != 4 {
		t.Fatalf("want 4 valve setups, got %d", got)
	}
	if got := len(r.Components()); got != len(model.ComponentKeys) {
		t.Fatalf("want %d components, got %d", len(model.ComponentKeys), got)
	}
	if got := len(r.Circuits(CircuitsHandles)); got != 6 {
		t.Fatalf("want 6 handles circuits, got %d", got)
	}
	if got := len(r.Circuits(CircuitsJoystick)); got != 5 {
		t.Fatalf("want 5 joystick circuits, got %d", got)
	}
}

func TestValveSetup_ByIDOrCode(t *testing.T) {
	r := MustBundled()
	a, ok := r.ValveSetup("setup-b")
	if !ok {
		t.Fatalf("missing setup-b")
	}
	b, ok := r.ValveSetup("B")
	if !ok || a.ID != b.ID {
		t.Fatalf("code lookup mismatch: %+v vs %+v", a, b)
	}
	if _, ok := r.ValveSetup("Z"); ok {
		t.Fatalf("unexpected setup Z")
	}
}

func TestAddonRecord_CopiesSubOptions(t *testing.T) {
	r := MustBundled()
	a, ok := r.Addon("hose-protection")
	if !ok {
		t.Fatalf("missing hose-protection")
	}
	rec := a.Record()
	rec.SubOptions[0].Components[0] = "mutated"
	again, _ := r.Addon("hose-protection")
	if again.SubOptions[0].Components[0] == "mutated" {
		t.Fatalf("record shares memory with the registry")
	}
	if rec.SelectedSubOption != nil {
		t.Fatalf("fresh record should have no sub-option selected")
	}
}

func TestResolveComponent_Specificity(t *testing.T) {
	r := MustBundled()
	key := VariantKey{Horsepower: model.HPAbove50, FunctionType: model.FunctionElectric3rd4th}

	dv, ok := r.ResolveComponent(model.ComponentDiverterValve, key)
	if !ok || dv.Price != 500 || dv.ProductID != "F360-DV-L34" {
		t.Fatalf("diverter valve: %+v ok=%v", dv, ok)
	}
	el, ok := r.ResolveComponent(model.ComponentElectrical, key)
	if !ok || el.Price != 500 {
		t.Fatalf("electrical: %+v ok=%v", el, ok)
	}
	hoses, ok := r.ResolveComponent(model.ComponentHydraulicHoses, key)
	if !ok || hoses.ProductID != "F360-HOSE-L" {
		t.Fatalf("hoses: %+v ok=%v", hoses, ok)
	}
	adp, ok := r.ResolveComponent(model.ComponentAdaptors, key)
	if !ok || adp.Price != 95 {
		t.Fatalf("adaptors: %+v ok=%v", adp, ok)
	}
}

func TestVariantFor_Defaults(t *testing.T) {
	k := VariantFor(model.Equipment{})
	if k.Horsepower != DefaultHorsepower || k.FunctionType != DefaultFunctionType {
		t.Fatalf("unexpected defaults: %+v", k)
	}
	k = VariantFor(model.Equipment{Horsepower: model.HPAbove50})
	if k.Horsepower != model.HPAbove50 || k.FunctionType != DefaultFunctionType {
		t.Fatalf("partial defaults: %+v", k)
	}
}

func TestLoad_RejectsUnknownOperation(t *testing.T) {
	trac := []byte(`{"valveSetups":[{"id":"x","code":"X","compatibleOperations":["nope"]}]}`)
	if _, err := Load(trac, []byte(`{"components":[]}`)); err == nil {
		t.Fatalf("expected error for unknown operation")
	}
}
