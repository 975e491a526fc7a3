package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"hydrakit/internal/cart"
	"hydrakit/internal/configurator"
	"hydrakit/internal/metrics"
	"hydrakit/internal/model"
	"hydrakit/internal/orders"
	"hydrakit/internal/registry"
	"hydrakit/internal/state"
	"hydrakit/internal/storage"
	"hydrakit/internal/summary"
)

const sessionID = "3f0c2b5e-8a71-4c1d-9f4e-2b6d7a8c9e10"

type fakeRenderer struct {
	docs []summary.Document
	err  error
}

func (f *fakeRenderer) Render(_ context.Context, d summary.Document) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.docs = append(f.docs, d)
	return []byte("%PDF-1.7"), nil
}

type fixture struct {
	deps     configurator.Deps
	renderer *fakeRenderer
	uploads  *storage.MemoryUploader
	cart     *cart.MemoryPublisher
	orders   *orders.MemoryRepository
	metrics  *metrics.Registry
	svc      *Service
}

func newFixture() *fixture {
	reg := registry.MustBundled()
	m := metrics.NewRegistry()
	now := func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	f := &fixture{
		deps:     configurator.Deps{Store: state.NewInMemoryStore(), Registry: reg, Metrics: m, Now: now},
		renderer: &fakeRenderer{},
		uploads:  storage.NewMemoryUploader(),
		cart:     &cart.MemoryPublisher{},
		orders:   orders.NewMemoryRepository(),
		metrics:  m,
	}
	f.svc = New(Deps{
		Registry: reg,
		Renderer: f.renderer,
		Uploader: f.uploads,
		Cart:     f.cart,
		Orders:   f.orders,
		Metrics:  m,
		Now:      now,
	})
	return f
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func completeTrac360(t *testing.T, st *configurator.Trac360Store) {
	t.Helper()
	must(t, st.SetTractorInfo(model.TractorInfo{Brand: "Kubota", Model: "M7060", DriveType: "4WD", ProtectionType: "cab"}))
	must(t, st.SetValveSetup("B"))
	must(t, st.SetOperationType("lever-cable"))
	must(t, st.SetCircuits("circuits-3"))
	must(t, st.AddAddon("adaptor-kit-bsp"))
	must(t, st.AddAddon("hose-protection"))
	must(t, st.SetAddonSubOption("hose-protection", "spiral"))
	must(t, st.MarkNotRequired(model.StepAccessories))
	must(t, st.ConfirmStep(model.StepAdditionalInfo))
}

func TestCheckoutTrac360(t *testing.T) {
	f := newFixture()
	st, err := configurator.OpenTrac360(sessionID, f.deps)
	must(t, err)
	completeTrac360(t, st)
	st.SetReminderPosition(model.ReminderPosition{X: 10, Y: 20})

	res, err := f.svc.CheckoutTrac360(context.Background(), st)
	must(t, err)

	if res.Item.TotalPrice != 2060 || res.Item.Quantity != 1 || res.Item.Name != "TRAC360 hydraulic kit" {
		t.Fatalf("item: %+v", res.Item)
	}
	var snap model.Trac360Config
	if err := json.Unmarshal(res.Item.Configuration, &snap); err != nil || snap.TotalPrice != 2060 || snap.Circuits.ID != "circuits-3" {
		t.Fatalf("snapshot: %+v %v", snap, err)
	}
	if _, ok := f.uploads.Get(res.Item.PDFArtifact.Key); !ok {
		t.Fatalf("pdf not uploaded at %q", res.Item.PDFArtifact.Key)
	}
	if items := f.cart.Items(); len(items) != 1 || items[0].CartID != res.Item.CartID {
		t.Fatalf("cart: %+v", items)
	}
	o, err := f.orders.Get(context.Background(), res.Item.CartID)
	if err != nil || o.SessionID != sessionID || len(o.ProductIDs) != 5 {
		t.Fatalf("order: %+v %v", o, err)
	}
	if len(f.renderer.docs) != 1 || f.renderer.docs[0].Total != 2060 {
		t.Fatalf("rendered: %+v", f.renderer.docs)
	}

	after := st.Config()
	if after.TotalPrice != 0 || after.ValveSetup != nil || len(after.Addons) != 0 {
		t.Fatalf("session not reset: %+v", after)
	}
	if _, ok := st.ReminderPosition(); ok {
		t.Fatalf("reminder position survived checkout")
	}
	if got := testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues("trac360", "ok")); got != 1 {
		t.Fatalf("checkouts ok=%v", got)
	}
}

func TestCheckoutTrac360_Incomplete(t *testing.T) {
	f := newFixture()
	st, err := configurator.OpenTrac360(sessionID, f.deps)
	must(t, err)
	must(t, st.SetTractorInfo(model.TractorInfo{Brand: "Kubota", Model: "M7060", DriveType: "4WD", ProtectionType: "cab"}))
	must(t, st.SetValveSetup("B"))
	must(t, st.SetOperationType("lever-cable"))

	_, err = f.svc.CheckoutTrac360(context.Background(), st)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("want ErrIncomplete, got %v", err)
	}
	if len(f.renderer.docs) != 0 || len(f.cart.Items()) != 0 {
		t.Fatalf("collaborators called for incomplete config")
	}
	if st.Config().OperationType == nil {
		t.Fatalf("incomplete checkout reset the session")
	}
}

func TestCheckout_RenderFailureKeepsSession(t *testing.T) {
	f := newFixture()
	f.renderer.err = errors.New("pdf service down")
	st, err := configurator.OpenTrac360(sessionID, f.deps)
	must(t, err)
	completeTrac360(t, st)

	if _, err := f.svc.CheckoutTrac360(context.Background(), st); err == nil {
		t.Fatalf("expected render error")
	}
	if st.Config().TotalPrice != 2060 {
		t.Fatalf("session reset after failed checkout")
	}
	if len(f.cart.Items()) != 0 {
		t.Fatalf("item published after failed render")
	}
	if got := testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues("trac360", "failed")); got != 1 {
		t.Fatalf("checkouts failed=%v", got)
	}
}

func TestCheckoutFunction360(t *testing.T) {
	f := newFixture()
	st, err := configurator.OpenFunction360(sessionID, f.deps)
	must(t, err)
	must(t, st.SetEquipment(model.HPBelow50, model.FunctionElectric3rd))
	for _, k := range []model.ComponentKey{model.ComponentDiverterValve, model.ComponentQuickCouplings, model.ComponentAdaptors, model.ComponentMountingBrackets} {
		must(t, st.ToggleComponent(k, true))
	}
	must(t, st.MarkNotRequired(model.StepHydraulicHoses))
	must(t, st.MarkNotRequired(model.StepElectrical))

	if _, err := f.svc.CheckoutFunction360(context.Background(), st); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("notes step unconfirmed, want ErrIncomplete, got %v", err)
	}
	must(t, st.ConfirmStep(model.StepAdditionalNotes))

	res, err := f.svc.CheckoutFunction360(context.Background(), st)
	must(t, err)
	if res.Item.TotalPrice != 785 || res.Item.Type != model.LineFunction360 {
		t.Fatalf("item: %+v", res.Item)
	}
	if len(res.Document.Skipped) != 2 || len(res.Document.Items) != 4 {
		t.Fatalf("document: %+v", res.Document)
	}
	if st.Config().TotalPrice != 0 {
		t.Fatalf("session not reset")
	}
}
