// Package checkout confirms a finished configuration: it renders the order
// summary, uploads the PDF, hands a line item to the cart, records the
// order and starts the session over.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"hydrakit/internal/cart"
	"hydrakit/internal/configurator"
	"hydrakit/internal/metrics"
	"hydrakit/internal/model"
	"hydrakit/internal/orders"
	"hydrakit/internal/registry"
	"hydrakit/internal/router"
	"hydrakit/internal/storage"
	"hydrakit/internal/summary"
	"hydrakit/internal/validator"
)

// ErrIncomplete is returned when a step on the configuration's path would
// still block Continue.
var ErrIncomplete = errors.New("configuration incomplete")

type Deps struct {
	Registry *registry.Registry
	Renderer summary.Renderer
	Uploader storage.Uploader
	Cart     cart.Publisher
	Orders   orders.Repository
	Metrics  *metrics.Registry
	Now      func() time.Time
}

type Service struct {
	d         Deps
	validator *validator.Validator
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Service{d: d, validator: validator.New(d.Registry)}
}

type Result struct {
	Item     model.CartLineItem
	Order    orders.Order
	Document summary.Document
}

// pending returns the first step on path that cannot be left yet.
func pending(path []model.StepID, ok func(model.StepID) bool) (model.StepID, bool) {
	for _, s := range path {
		if s == model.StepSummary {
			continue
		}
		if !ok(s) {
			return s, true
		}
	}
	return "", false
}

func (s *Service) CheckoutTrac360(ctx context.Context, st *configurator.Trac360Store) (Result, error) {
	cfg := st.Config()
	path := router.Steps(model.LineTrac360, cfg)
	if step, blocked := pending(path, func(id model.StepID) bool { return s.validator.CanProceedTrac360(id, cfg) }); blocked {
		s.observe(model.LineTrac360, "incomplete", time.Time{})
		return Result{}, fmt.Errorf("step %s: %w", step, ErrIncomplete)
	}
	doc := summary.Trac360(st.SessionID(), cfg, s.d.Now())
	res, err := s.confirm(ctx, doc, cfg)
	if err != nil {
		return Result{}, err
	}
	st.Reset()
	return res, nil
}

func (s *Service) CheckoutFunction360(ctx context.Context, st *configurator.Function360Store) (Result, error) {
	cfg := st.Config()
	path := router.Steps(model.LineFunction360, nil)
	if step, blocked := pending(path, func(id model.StepID) bool { return s.validator.CanProceedFunction360(id, cfg) }); blocked {
		s.observe(model.LineFunction360, "incomplete", time.Time{})
		return Result{}, fmt.Errorf("step %s: %w", step, ErrIncomplete)
	}
	doc := summary.Function360(st.SessionID(), cfg, s.d.Registry, s.d.Now())
	res, err := s.confirm(ctx, doc, cfg)
	if err != nil {
		return Result{}, err
	}
	st.Reset()
	return res, nil
}

// confirm runs the shared tail of both flows. Nothing is reset unless
// every collaborator succeeded.
func (s *Service) confirm(ctx context.Context, doc summary.Document, cfg any) (Result, error) {
	start := s.d.Now()
	fail := func(stage string, err error) (Result, error) {
		s.observe(doc.Line, "failed", start)
		log.Errorf("checkout: %s %s: %s: %v", doc.Line, doc.SessionID, stage, err)
		return Result{}, fmt.Errorf("%s: %w", stage, err)
	}

	item, err := cart.BuildLineItem(doc.Line, doc.Title, doc.Total, cfg, model.Artifact{}, start)
	if err != nil {
		return fail("build line item", err)
	}
	pdf, err := s.d.Renderer.Render(ctx, doc)
	if err != nil {
		return fail("render summary", err)
	}
	item.PDFArtifact, err = s.d.Uploader.Upload(ctx, storage.SummaryKey(doc.Line, doc.SessionID, item.CartID), summary.ContentTypePDF, pdf)
	if err != nil {
		return fail("upload summary", err)
	}
	if err := s.d.Cart.Publish(ctx, item); err != nil {
		return fail("publish cart item", err)
	}
	o := orders.FromLineItem(doc.SessionID, item, doc.ProductIDs)
	if err := s.d.Orders.Save(ctx, o); err != nil {
		// the cart already holds the item
		log.Warnf("checkout: record order %s: %v", item.CartID, err)
	}

	s.observe(doc.Line, "ok", start)
	log.Infof("checkout: %s %s cart=%s total=%.2f", doc.Line, doc.SessionID, item.CartID, doc.Total)
	return Result{Item: item, Order: o, Document: doc}, nil
}

func (s *Service) observe(line model.ProductLine, result string, start time.Time) {
	m := s.d.Metrics
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(string(line), result).Inc()
	if !start.IsZero() {
		m.CheckoutLatencySec.Observe(s.d.Now().Sub(start).Seconds())
	}
}
