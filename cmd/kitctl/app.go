package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2/log"

	"hydrakit/internal/cart"
	"hydrakit/internal/catalog"
	"hydrakit/internal/changelog"
	"hydrakit/internal/checkout"
	"hydrakit/internal/configurator"
	"hydrakit/internal/invoice"
	"hydrakit/internal/manifest"
	"hydrakit/internal/metrics"
	"hydrakit/internal/orders"
	"hydrakit/internal/registry"
	"hydrakit/internal/snapshot"
	"hydrakit/internal/state"
	"hydrakit/internal/storage"
	"hydrakit/internal/summary"
)

// app holds the collaborators shared by every subcommand. closers run in
// reverse order.
type app struct {
	cfg       Config
	store     state.Store
	changelog changelog.Writer
	clogPath  string
	registry  *registry.Registry
	metrics   *metrics.Registry
	closers   []func() error
}

func openApp(cfg Config) (*app, error) {
	reg, err := registry.Bundled()
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	a := &app{cfg: cfg, registry: reg, metrics: metrics.NewRegistry()}

	st, closeStore, err := state.Open(cfg.StateBackend, cfg.StateDir)
	if err != nil {
		return nil, fmt.Errorf("open %s state: %w", cfg.StateBackend, err)
	}
	a.store = st
	a.closers = append(a.closers, closeStore)

	if err := a.openChangelog(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) openChangelog() error {
	var ws []changelog.Writer
	if a.cfg.sinkHas(a.cfg.ChangelogSink, "file") {
		fw, err := changelog.NewFileWriter(a.cfg.ChangelogDir, changelog.DefaultFile)
		if err != nil {
			return fmt.Errorf("init changelog file: %w", err)
		}
		a.clogPath = fw.Path()
		ws = append(ws, fw)
	}
	if a.cfg.sinkHas(a.cfg.ChangelogSink, "kafka") {
		if a.cfg.KafkaBootstrap == "" {
			log.Warnf("changelog sink %s needs KIT_KAFKA_BOOTSTRAP, kafka writer disabled", a.cfg.ChangelogSink)
		} else {
			kw := changelog.NewKafkaWriter(a.cfg.KafkaBootstrap, a.cfg.TopicChangelog)
			a.closers = append(a.closers, kw.Close)
			ws = append(ws, kw)
		}
	}
	switch len(ws) {
	case 0:
		a.changelog = changelog.Discard{}
	case 1:
		a.changelog = ws[0]
	default:
		a.changelog = changelog.NewMultiWriter(ws...)
	}
	if a.clogPath == "" {
		a.clogPath = filepath.Join(a.cfg.ChangelogDir, changelog.DefaultFile)
	}
	return nil
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warnf("close: %v", err)
		}
	}
	a.closers = nil
}

func (a *app) deps() configurator.Deps {
	return configurator.Deps{
		Store:     a.store,
		Changelog: a.changelog,
		Registry:  a.registry,
		Metrics:   a.metrics,
	}
}

// manifestPublisher honours KIT_MANIFEST_SINK the same way the changelog
// sink is honoured.
func (a *app) manifestPublisher() manifest.Publisher {
	fs := manifest.NewFilesystemManifest(a.cfg.SnapshotDir)
	if !a.cfg.sinkHas(a.cfg.ManifestSink, "kafka") || a.cfg.KafkaBootstrap == "" {
		return fs
	}
	k := manifest.NewKafkaManifest(a.cfg.KafkaBootstrap, a.cfg.TopicSnapshots, manifest.DefaultKey)
	if a.cfg.ManifestSink == "kafka" {
		return k
	}
	return manifest.MultiPublisher(fs, k)
}

func (a *app) snapshotter() *snapshot.FilesystemSnapshotter {
	return snapshot.NewFilesystemSnapshotter(a.cfg.SnapshotDir)
}

var errNoPDFService = errors.New("KIT_PDF_URL is not set; summaries cannot be rendered")

// checkoutService wires the checkout collaborators. Unconfigured
// destinations fall back to in-memory ones so a local run still completes.
func (a *app) checkoutService(ctx context.Context) (*checkout.Service, error) {
	if a.cfg.PDFURL == "" {
		return nil, errNoPDFService
	}
	d := checkout.Deps{
		Registry: a.registry,
		Renderer: summary.NewHTTPRenderer(a.cfg.PDFURL, nil),
		Metrics:  a.metrics,
	}

	if a.cfg.S3.Bucket != "" {
		up, err := storage.NewS3Uploader(ctx, a.cfg.S3)
		if err != nil {
			return nil, err
		}
		d.Uploader = up
	} else {
		log.Warnf("S3_BUCKET not set, summaries are kept in memory only")
		d.Uploader = storage.NewMemoryUploader()
	}

	if a.cfg.KafkaBootstrap != "" {
		p, err := cart.NewKafkaPublisher(ctx, a.cfg.KafkaBootstrap, a.cfg.CartTopic, a.cfg.CartTxID)
		if err != nil {
			return nil, fmt.Errorf("cart publisher: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		d.Cart = p
	} else {
		log.Warnf("KIT_KAFKA_BOOTSTRAP not set, cart items are not published")
		d.Cart = &cart.MemoryPublisher{}
	}

	repo, err := a.orderRepository(ctx)
	if err != nil {
		return nil, err
	}
	d.Orders = repo
	return checkout.New(d), nil
}

func (a *app) orderRepository(ctx context.Context) (orders.Repository, error) {
	if a.cfg.DatabaseURL == "" {
		return orders.NewMemoryRepository(), nil
	}
	db, err := orders.Connect(ctx, a.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect orders db: %w", err)
	}
	a.closers = append(a.closers, func() error { db.Close(); return nil })
	return orders.NewPostgresRepository(db), nil
}

// The catalog and mail services need no local state, so they hang off
// Config rather than app.
func (c Config) catalogClient() (*catalog.Client, error) {
	if c.CatalogURL == "" {
		return nil, errors.New("KIT_CATALOG_URL is not set")
	}
	return catalog.NewClient(c.CatalogURL, nil), nil
}

func (c Config) dispatcher() invoice.Dispatcher {
	if c.MailURL == "" {
		return nil
	}
	return invoice.NewHTTPDispatcher(c.MailURL, nil)
}
