package router

import (
	"reflect"
	"testing"

	"hydrakit/internal/model"
	"hydrakit/internal/registry"
)

func trac(setup, op string) *model.Trac360Config {
	cfg := model.NewTrac360Config()
	if setup != "" {
		cfg.ValveSetup = &model.ValveSetupSelection{Code: setup}
	}
	if op != "" {
		cfg.OperationType = &model.OperationSelection{ID: op}
	}
	return cfg
}

func TestOperationType_DecisionTable(t *testing.T) {
	ops := []string{"", "direct-mechanical", "direct-cable", "lever-cable", "joystick-cable", "electric-joystick", "electric-handles", "mystery"}
	setups := []string{"", "A", "B", "C", "D", "Z"}

	want := func(setup, op string) model.StepID {
		switch setup {
		case "A":
			return model.StepValveAdaptors
		case "B":
			if op == "direct-mechanical" || op == "direct-cable" {
				return model.StepValveAdaptors
			}
		case "C":
			if op == "joystick-cable" || op == "electric-joystick" {
				return model.StepValveAdaptors
			}
		}
		return model.StepCircuits
	}

	for _, s := range setups {
		for _, op := range ops {
			got, ok := NextTrac360(model.StepOperationType, trac(s, op))
			if !ok || got != want(s, op) {
				t.Fatalf("setup=%q op=%q: got %q ok=%v want %q", s, op, got, ok, want(s, op))
			}
		}
	}
}

func TestSetupD_CircuitOptions(t *testing.T) {
	reg := registry.MustBundled()

	to, _ := NextTrac360(model.StepOperationType, trac("D", "electric-handles"))
	if to != model.StepCircuits {
		t.Fatalf("D+handles routed to %q", to)
	}
	handles := CircuitOptions(reg, "D", "electric-handles")
	if len(handles) != 6 {
		t.Fatalf("want 6 handles options, got %d", len(handles))
	}

	to, _ = NextTrac360(model.StepOperationType, trac("D", "electric-joystick"))
	if to != model.StepCircuits {
		t.Fatalf("D+joystick routed to %q", to)
	}
	joystick := CircuitOptions(reg, "D", "electric-joystick")
	if len(joystick) != 5 {
		t.Fatalf("want 5 joystick options, got %d", len(joystick))
	}

	seen := make(map[string]bool)
	for _, c := range handles {
		seen[c.ID] = true
	}
	for _, c := range joystick {
		if seen[c.ID] {
			t.Fatalf("option %s offered for both handles and joystick", c.ID)
		}
	}

	if got := CircuitVariant("B", "lever-cable"); got != registry.CircuitsStandard {
		t.Fatalf("B+lever variant=%q", got)
	}
}

func TestTableIsWellFormed(t *testing.T) {
	for _, line := range []model.ProductLine{model.LineTrac360, model.LineFunction360} {
		rows := Transitions(line)
		froms := make(map[model.StepID]bool)
		for _, r := range rows {
			froms[r.From] = true
			if r.To == "" {
				t.Fatalf("%s: empty target in %+v", line, r)
			}
		}
		for _, r := range rows {
			if r.To != model.StepSummary && !froms[r.To] {
				t.Fatalf("%s: %q is a dead end", line, r.To)
			}
		}
		if froms[model.StepSummary] {
			t.Fatalf("%s: summary must be terminal", line)
		}
		if _, ok := next(rows, model.StepSummary, "", ""); ok {
			t.Fatalf("%s: transition out of summary", line)
		}
	}
}

func TestFunction360_Linear(t *testing.T) {
	want := []model.StepID{
		model.StepEquipment, model.StepDiverterValve, model.StepQuickCouplings,
		model.StepAdaptors, model.StepHydraulicHoses, model.StepElectrical,
		model.StepMountingBrackets, model.StepAdditionalNotes, model.StepSummary,
	}
	got := Steps(model.LineFunction360, nil)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestSteps_Trac360Routes(t *testing.T) {
	short := Steps(model.LineTrac360, trac("A", "direct-cable"))
	for _, s := range short {
		if s == model.StepCircuits {
			t.Fatalf("setup A should skip circuits: %v", short)
		}
	}
	long := Steps(model.LineTrac360, trac("D", "electric-handles"))
	if len(long) != len(short)+1 || long[3] != model.StepCircuits {
		t.Fatalf("setup D path: %v", long)
	}
	if long[len(long)-1] != model.StepSummary {
		t.Fatalf("path must end at summary: %v", long)
	}
}

func TestPrevious(t *testing.T) {
	prev, ok := Previous(model.LineTrac360, model.StepValveAdaptors, trac("A", "direct-cable"))
	if !ok || prev != model.StepOperationType {
		t.Fatalf("A: back from adaptors = %q", prev)
	}
	prev, ok = Previous(model.LineTrac360, model.StepValveAdaptors, trac("B", "lever-cable"))
	if !ok || prev != model.StepCircuits {
		t.Fatalf("B+lever: back from adaptors = %q", prev)
	}
	if _, ok := Previous(model.LineTrac360, model.StepTractorInfo, nil); ok {
		t.Fatalf("first step has no previous")
	}
	prev, ok = Previous(model.LineTrac360, model.StepCircuits, trac("A", "direct-cable"))
	if !ok || prev != model.StepOperationType {
		t.Fatalf("skipped circuits: back = %q", prev)
	}
	prev, ok = Previous(model.LineFunction360, model.StepSummary, nil)
	if !ok || prev != model.StepAdditionalNotes {
		t.Fatalf("function360 back from summary = %q", prev)
	}
}

func TestPath(t *testing.T) {
	if got := Path(model.LineTrac360, model.StepValveAdaptors); got != "/trac360/valve-adaptors" {
		t.Fatalf("got %q", got)
	}
}

func TestUnknownStep(t *testing.T) {
	if _, ok := NextTrac360("warp-drive", nil); ok {
		t.Fatalf("unknown step should not route")
	}
	if to, ok := NextTrac360(model.StepOperationType, nil); !ok || to != model.StepCircuits {
		t.Fatalf("nil config falls back to circuits, got %q", to)
	}
}
