// Package httpapi exposes the ops surface of kitctl serve: health, metrics
// and read-only inspection of stored sessions.
package httpapi

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"hydrakit/internal/configurator"
	"hydrakit/internal/metrics"
	"hydrakit/internal/model"
	"hydrakit/internal/pricing"
	"hydrakit/internal/registry"
	"hydrakit/internal/router"
	"hydrakit/internal/state"
	"hydrakit/internal/validator"
)

type Config struct {
	Store    state.Store
	Registry *registry.Registry
	Metrics  *metrics.Registry
	// Quiet drops the request logger; tests set it.
	Quiet bool
}

type StepView struct {
	ID         model.StepID `json:"id"`
	Path       string       `json:"path"`
	CanProceed bool         `json:"canProceed"`
}

type SessionView struct {
	SessionID string            `json:"sessionId"`
	Line      model.ProductLine `json:"line"`
	Seq       int64             `json:"seq"`
	Config    json.RawMessage   `json:"config"`
	Breakdown pricing.Breakdown `json:"breakdown"`
	Steps     []StepView        `json:"steps"`
	// NextStep is the first step that still blocks Continue, or summary.
	NextStep model.StepID `json:"nextStep"`
}

type handlers struct {
	store     state.Store
	registry  *registry.Registry
	validator *validator.Validator
}

func New(cfg Config) *fiber.App {
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(helmet.New())
	if !cfg.Quiet {
		app.Use(logger.New(logger.Config{
			Format: "${pid} | ${time} | ${latency} | [${ip}]:${port} | ${status} - ${method} ${path}\n",
		}))
	}

	h := &handlers{store: cfg.Store, registry: cfg.Registry, validator: validator.New(cfg.Registry)}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}
	app.Get("/sessions/:line/:id", h.session)
	app.Get("/options/trac360/circuits", h.circuits)
	return app
}

func (h *handlers) session(c *fiber.Ctx) error {
	line := model.ProductLine(c.Params("line"))
	id := c.Params("id")
	if !line.Valid() {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown product line"})
	}
	if !configurator.ValidSessionID(id) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid session id"})
	}
	rec, ok := h.store.Get(configurator.Key(id, line))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "session not found"})
	}

	view := SessionView{SessionID: id, Line: line, Seq: rec.Seq, Config: rec.Value, Steps: make([]StepView, 0)}
	var err error
	if line == model.LineTrac360 {
		err = h.trac360(rec.Value, &view)
	} else {
		err = h.function360(rec.Value, &view)
	}
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "stored configuration is unreadable"})
	}
	return c.JSON(view)
}

func (h *handlers) trac360(raw []byte, v *SessionView) error {
	cfg := &model.Trac360Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return err
	}
	cfg.Normalize()
	v.Breakdown = pricing.Trac360(cfg)
	for _, s := range router.Steps(model.LineTrac360, cfg) {
		v.Steps = append(v.Steps, StepView{ID: s, Path: router.Path(model.LineTrac360, s), CanProceed: h.validator.CanProceedTrac360(s, cfg)})
	}
	v.NextStep = nextStep(v.Steps)
	return nil
}

func (h *handlers) function360(raw []byte, v *SessionView) error {
	cfg := &model.Function360Config{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return err
	}
	cfg.Normalize()
	v.Breakdown = pricing.Function360(cfg)
	for _, s := range router.Steps(model.LineFunction360, nil) {
		v.Steps = append(v.Steps, StepView{ID: s, Path: router.Path(model.LineFunction360, s), CanProceed: h.validator.CanProceedFunction360(s, cfg)})
	}
	v.NextStep = nextStep(v.Steps)
	return nil
}

func nextStep(steps []StepView) model.StepID {
	for _, s := range steps {
		if !s.CanProceed {
			return s.ID
		}
	}
	return model.StepSummary
}

// circuits lists the circuit options offered for ?setup=&operation=.
func (h *handlers) circuits(c *fiber.Ctx) error {
	setup, op := c.Query("setup"), c.Query("operation")
	vs, ok := h.registry.ValveSetup(setup)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown valve setup"})
	}
	if _, ok := h.registry.OperationType(op); !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown operation type"})
	}
	return c.JSON(fiber.Map{
		"variant": router.CircuitVariant(vs.Code, op),
		"options": router.CircuitOptions(h.registry, vs.Code, op),
	})
}
