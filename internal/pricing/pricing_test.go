package pricing

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"hydrakit/internal/model"
	"hydrakit/internal/registry"
)

func strPtr(s string) *string { return &s }

func scenarioTrac360() *model.Trac360Config {
	cfg := model.NewTrac360Config()
	cfg.OperationType = &model.OperationSelection{ID: "lever-cable", Name: "Cable lever tower", Control: "lever"}
	cfg.Circuits = &model.CircuitSelection{ID: "circuits-3", Price: 950}
	cfg.Addons = []model.AddonRecord{
		{ID: "adaptor-kit-bsp", BasePrice: 120, SubOptions: []model.SubOption{}},
		{
			ID:                "hose-protection",
			BasePrice:         150,
			SelectedSubOption: strPtr("spiral"),
			SubOptions:        []model.SubOption{{ID: "spiral", AdditionalPrice: 40}},
		},
	}
	return cfg
}

func TestTrac360_Scenario(t *testing.T) {
	b := Trac360(scenarioTrac360())
	if b.Base != 800 || b.CircuitsPrice != 950 || b.BaseCircuitPrice != 1750 {
		t.Fatalf("unexpected base: %+v", b)
	}
	if b.AddonsTotal != 310 || b.SubOptionsTotal != 40 {
		t.Fatalf("unexpected addons: %+v", b)
	}
	if b.Total != 2060 {
		t.Fatalf("total=%v want 2060", b.Total)
	}
	if len(b.Lines) != 5 {
		t.Fatalf("want 5 lines, got %d: %+v", len(b.Lines), b.Lines)
	}
}

func TestTrac360_Idempotent(t *testing.T) {
	cfg := scenarioTrac360()
	a := Trac360(cfg)
	b := Trac360(cfg)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("breakdown differs between calls: %+v vs %+v", a, b)
	}
}

func TestTrac360_NoOperationNoBase(t *testing.T) {
	cfg := model.NewTrac360Config()
	cfg.Circuits = &model.CircuitSelection{ID: "circuits-2", Price: 650}
	b := Trac360(cfg)
	if b.Base != 0 || b.BaseCircuitPrice != 650 || b.Total != 650 {
		t.Fatalf("unexpected: %+v", b)
	}
}

func TestTrac360_DanglingSubOptionIsFree(t *testing.T) {
	cfg := model.NewTrac360Config()
	cfg.Addons = []model.AddonRecord{{
		ID:                "hose-protection",
		BasePrice:         150,
		SelectedSubOption: strPtr("kevlar"),
		SubOptions:        []model.SubOption{{ID: "spiral", AdditionalPrice: 40}},
	}}
	b := Trac360(cfg)
	if b.Total != 150 || b.SubOptionsTotal != 0 {
		t.Fatalf("dangling sub-option should cost nothing: %+v", b)
	}
}

func TestTrac360_NonFiniteAndNegativeClamp(t *testing.T) {
	cfg := model.NewTrac360Config()
	cfg.OperationType = &model.OperationSelection{ID: "x"}
	cfg.Circuits = &model.CircuitSelection{ID: "c", Price: model.Price(math.NaN())}
	cfg.Addons = []model.AddonRecord{
		{ID: "a", BasePrice: model.Price(math.Inf(1))},
		{ID: "b", BasePrice: -50},
		{ID: "c", BasePrice: 10, SelectedSubOption: strPtr("s"), SubOptions: []model.SubOption{{ID: "s", AdditionalPrice: model.Price(math.Inf(-1))}}},
	}
	b := Trac360(cfg)
	for name, v := range map[string]float64{
		"base": b.Base, "circuits": b.CircuitsPrice, "addons": b.AddonsTotal,
		"sub": b.SubOptionsTotal, "total": b.Total,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Fatalf("%s is not a finite non-negative number: %v", name, v)
		}
	}
	if b.Total != 810 {
		t.Fatalf("total=%v want 810", b.Total)
	}
}

func TestTrac360_MalformedPersistedNumbers(t *testing.T) {
	raw := `{
		"version": 1,
		"operationType": {"id": "lever-cable"},
		"circuits": {"id": "circuits-3", "price": "not a number"},
		"addons": [
			{"id": "a", "basePrice": "$120"},
			{"id": "b"},
			{"id": "c", "basePrice": null, "selectedSubOption": "s", "subOptions": [{"id": "s", "additionalPrice": "1,040.50"}]}
		]
	}`
	var cfg model.Trac360Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	b := Trac360(&cfg)
	if b.Total != 800+120+1040.5 {
		t.Fatalf("total=%v", b.Total)
	}
}

func TestFunction360_Scenario(t *testing.T) {
	cfg := model.NewFunction360Config()
	cfg.Equipment = model.Equipment{Horsepower: model.HPAbove50, FunctionType: model.FunctionElectric3rd4th}
	cfg.SelectedComponents.DiverterValve = true
	cfg.SelectedComponents.Electrical = true
	cfg.ComponentPrices[model.ComponentDiverterValve] = 500
	cfg.ComponentPrices[model.ComponentElectrical] = 500
	// stale price of a switched-off component must not count
	cfg.ComponentPrices[model.ComponentAdaptors] = 95

	b := Function360(cfg)
	if b.Total != 1000 || b.ComponentsTotal != 1000 {
		t.Fatalf("unexpected: %+v", b)
	}

	ids := ProductIDsFunction360(cfg, registry.MustBundled())
	want := []string{"F360-DV-L34", "F360-EL-2"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("product ids=%v want %v", ids, want)
	}
}

func TestFunction360_MissingCachedPrice(t *testing.T) {
	cfg := model.NewFunction360Config()
	cfg.SelectedComponents.HydraulicHoses = true
	b := Function360(cfg)
	if b.Total != 0 {
		t.Fatalf("missing price should count as 0: %+v", b)
	}
}

func TestProductIDsTrac360(t *testing.T) {
	cfg := scenarioTrac360()
	cfg.OperationType.ProductID = "T360-OP-LC"
	cfg.Circuits.ProductID = "T360-CIR-3"
	cfg.Addons[0].ProductID = "T360-ADP-BSP"
	cfg.Addons[1].ProductID = "T360-HP"
	cfg.Addons[1].SubOptions[0].Components = []string{"HP-SPR-25"}

	got := ProductIDsTrac360(cfg)
	want := []string{"T360-OP-LC", "T360-CIR-3", "T360-ADP-BSP", "T360-HP", "HP-SPR-25"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestNilConfigs(t *testing.T) {
	if b := Trac360(nil); b.Total != 0 || b.Lines == nil {
		t.Fatalf("nil trac360: %+v", b)
	}
	if b := Function360(nil); b.Total != 0 || b.Lines == nil {
		t.Fatalf("nil function360: %+v", b)
	}
}
