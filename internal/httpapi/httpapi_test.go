package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hydrakit/internal/configurator"
	"hydrakit/internal/metrics"
	"hydrakit/internal/model"
	"hydrakit/internal/registry"
	"hydrakit/internal/state"
)

const sessionID = "3f0c2b5e-8a71-4c1d-9f4e-2b6d7a8c9e10"

type fixture struct {
	store state.Store
	reg   *registry.Registry
	m     *metrics.Registry
}

func newFixture() fixture {
	return fixture{store: state.NewInMemoryStore(), reg: registry.MustBundled(), m: metrics.NewRegistry()}
}

func (f fixture) deps() configurator.Deps {
	return configurator.Deps{Store: f.store, Registry: f.reg, Metrics: f.m}
}

func (f fixture) get(t *testing.T, path string) (int, []byte) {
	t.Helper()
	app := New(Config{Store: f.store, Registry: f.reg, Metrics: f.m, Quiet: true})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}

func TestHealthz(t *testing.T) {
	code, body := newFixture().get(t, "/healthz")
	if code != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz: %d %s", code, body)
	}
}

func TestMetricsExposed(t *testing.T) {
	f := newFixture()
	st, err := configurator.OpenTrac360(sessionID, f.deps())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := st.SetValveSetup("A"); err != nil {
		t.Fatalf("set: %v", err)
	}
	code, body := f.get(t, "/metrics")
	if code != http.StatusOK || !strings.Contains(string(body), "kit_mutations_total") {
		t.Fatalf("metrics: %d %s", code, body)
	}
}

func TestSession_Trac360(t *testing.T) {
	f := newFixture()
	st, _ := configurator.OpenTrac360(sessionID, f.deps())
	_ = st.SetTractorInfo(model.TractorInfo{Brand: "Kubota", Model: "M7060", DriveType: "4WD", ProtectionType: "cab"})
	_ = st.SetValveSetup("D")
	_ = st.SetOperationType("electric-handles")

	code, body := f.get(t, "/sessions/trac360/"+sessionID)
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	var v SessionView
	if err := json.Unmarshal(body, &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if v.Seq != 3 || v.Breakdown.Total != 800 {
		t.Fatalf("view: %+v", v)
	}
	if v.NextStep != model.StepCircuits {
		t.Fatalf("next step %s, want circuits", v.NextStep)
	}
	if len(v.Steps) == 0 || v.Steps[0].Path != "/trac360/tractor-info" || !v.Steps[0].CanProceed {
		t.Fatalf("steps: %+v", v.Steps)
	}
}

func TestSession_Function360(t *testing.T) {
	f := newFixture()
	st, _ := configurator.OpenFunction360(sessionID, f.deps())
	_ = st.SetEquipment(model.HPAbove50, model.FunctionElectric3rd4th)
	_ = st.ToggleComponent(model.ComponentDiverterValve, true)

	code, body := f.get(t, "/sessions/function360/"+sessionID)
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	var v SessionView
	_ = json.Unmarshal(body, &v)
	if v.Breakdown.Total != 500 || v.NextStep != model.StepQuickCouplings {
		t.Fatalf("view: %+v", v)
	}
}

func TestSession_Errors(t *testing.T) {
	f := newFixture()
	if code, _ := f.get(t, "/sessions/tractor/"+sessionID); code != http.StatusNotFound {
		t.Fatalf("unknown line: %d", code)
	}
	if code, _ := f.get(t, "/sessions/trac360/bad"); code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", code)
	}
	if code, _ := f.get(t, "/sessions/trac360/"+sessionID); code != http.StatusNotFound {
		t.Fatalf("missing session: %d", code)
	}
	_ = f.store.Put(configurator.Key(sessionID, model.LineTrac360), []byte(`{"version":`))
	if code, _ := f.get(t, "/sessions/trac360/"+sessionID); code != http.StatusUnprocessableEntity {
		t.Fatalf("corrupt session: %d", code)
	}
}

func TestCircuitOptions(t *testing.T) {
	f := newFixture()
	code, body := f.get(t, "/options/trac360/circuits?setup=D&operation=electric-handles")
	if code != http.StatusOK {
		t.Fatalf("status %d: %s", code, body)
	}
	var out struct {
		Variant string             `json:"variant"`
		Options []registry.Circuit `json:"options"`
	}
	_ = json.Unmarshal(body, &out)
	if out.Variant != "handles" || len(out.Options) != 6 {
		t.Fatalf("options: %+v", out)
	}
	if code, _ := f.get(t, "/options/trac360/circuits?setup=Z&operation=electric-handles"); code != http.StatusBadRequest {
		t.Fatalf("unknown setup: %d", code)
	}
}
