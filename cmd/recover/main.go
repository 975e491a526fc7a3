package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/joho/godotenv"

	"hydrakit/internal/changelog"
	"hydrakit/internal/httpapi"
	"hydrakit/internal/manifest"
	"hydrakit/internal/metrics"
	"hydrakit/internal/registry"
	"hydrakit/internal/restore"
	"hydrakit/internal/snapshot"
	"hydrakit/internal/state"
)

type Config struct {
	Bootstrap       string
	ManifestSource  string // file | kafka
	ChangelogSource string // file | kafka
	TopicSnapshots  string
	TopicChangelog  string
	SnapshotDir     string
	ChangelogPath   string
	StateBackend    string
	StateDir        string
	HTTPAddr        string
	Poll            time.Duration
	KafkaIdle       time.Duration
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func readFlags() Config {
	_ = godotenv.Load()
	var cfg Config
	flag.StringVar(&cfg.Bootstrap, "bootstrap", env("KIT_KAFKA_BOOTSTRAP", "localhost:19092"), "kafka bootstrap")
	flag.StringVar(&cfg.ManifestSource, "manifest-source", env("KIT_MANIFEST_SOURCE", "file"), "file|kafka")
	flag.StringVar(&cfg.ChangelogSource, "changelog-source", env("KIT_CHANGELOG_SOURCE", "file"), "file|kafka")
	flag.StringVar(&cfg.TopicSnapshots, "topic-snapshots", env("KIT_TOPIC_SNAPSHOTS", "kits.snapshots"), "manifest topic")
	flag.StringVar(&cfg.TopicChangelog, "topic-changelog", env("KIT_TOPIC_CHANGELOG", "kits.changelog"), "changelog topic")
	flag.StringVar(&cfg.SnapshotDir, "snapshot-dir", env("KIT_SNAPSHOT_DIR", "./data/snapshots"), "snapshot and manifest dir")
	flag.StringVar(&cfg.ChangelogPath, "changelog", filepath.Join(env("KIT_CHANGELOG_DIR", "./data/changelog"), changelog.DefaultFile), "changelog file for file mode")
	flag.StringVar(&cfg.StateBackend, "state", env("KIT_RECOVER_STATE_BACKEND", state.BackendMemory), "memory|pebble|badger")
	flag.StringVar(&cfg.StateDir, "state-dir", env("KIT_RECOVER_STATE_DIR", "./data/recovered"), "dir of a durable target store")
	flag.StringVar(&cfg.HTTPAddr, "http", env("KIT_RECOVER_HTTP_ADDR", ":9090"), "http listen for /healthz, /metrics and /sessions")
	flag.DurationVar(&cfg.Poll, "poll", 10*time.Second, "restore cycle interval; 0 restores once and exits")
	flag.DurationVar(&cfg.KafkaIdle, "kafka-idle", 3*time.Second, "stop replaying once the changelog topic is idle this long")
	flag.Parse()
	return cfg
}

func main() {
	cfg := readFlags()
	if err := run(cfg); err != nil {
		log.Fatalf("recover: %v", err)
	}
}

func run(cfg Config) error {
	log.Infof("recover: manifest=%s changelog=%s state=%s poll=%s", cfg.ManifestSource, cfg.ChangelogSource, cfg.StateBackend, cfg.Poll)

	st, closeStore, err := state.Open(cfg.StateBackend, cfg.StateDir)
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	defer closeStore()

	var mr manifest.Reader = manifest.NewFilesystemManifest(cfg.SnapshotDir)
	if cfg.ManifestSource == "kafka" {
		mr = manifest.NewKafkaReader(changelog.SplitBrokers(cfg.Bootstrap), cfg.TopicSnapshots, manifest.DefaultKey)
	}
	mreg := metrics.NewRegistry()
	r := restore.NewRestorer(st, snapshot.NewFilesystemSnapshotter(cfg.SnapshotDir), mr, cfg.ChangelogPath, mreg)

	if cfg.Poll <= 0 {
		res, err := cycle(cfg, r, mr, mreg)
		if err != nil {
			return err
		}
		log.Infof("recover: restored=%d applied=%d skipped=%d", res.Restored, res.Applied, res.Skipped)
		return nil
	}

	reg, err := registry.Bundled()
	if err != nil {
		return fmt.Errorf("load registry: %w", err)
	}
	srv := httpapi.New(httpapi.Config{Store: st, Registry: reg, Metrics: mreg})
	go func() {
		if err := srv.Listen(cfg.HTTPAddr); err != nil {
			log.Errorf("recover: http: %v", err)
		}
	}()
	defer srv.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()
	for {
		t1 := time.Now()
		res, err := cycle(cfg, r, mr, mreg)
		if err != nil {
			log.Errorf("recover: cycle: %v", err)
		} else {
			log.Infof("recovery cycle: restored=%d applied=%d skipped=%d ttr=%.3fs", res.Restored, res.Applied, res.Skipped, time.Since(t1).Seconds())
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// cycle runs one restore. The file changelog goes through RestoreAndReplay;
// the Kafka changelog is replayed from the manifest offset until idle.
func cycle(cfg Config, r *restore.Restorer, mr manifest.Reader, mreg *metrics.Registry) (restore.RestoreResult, error) {
	if cfg.ChangelogSource != "kafka" {
		return r.RestoreAndReplay()
	}

	t1 := time.Now()
	m, err := mr.ReadLatest()
	if err != nil && !errors.Is(err, manifest.ErrNoManifest) {
		return restore.RestoreResult{}, fmt.Errorf("read manifest: %w", err)
	}
	restored, err := r.RestoreFromSnapshot(m.SnapshotID)
	if err != nil {
		return restore.RestoreResult{}, fmt.Errorf("restore snapshot: %w", err)
	}
	rd := restore.NewKafkaChangelogReader(changelog.SplitBrokers(cfg.Bootstrap), cfg.TopicChangelog)
	res := r.ReplayChangelogKafka(rd, m.LastChangelogOffset, cfg.KafkaIdle)
	res.Restored = restored

	mreg.TTRSec.Set(time.Since(t1).Seconds())
	if m.CreatedAtEpochSecond > 0 {
		mreg.LastManifestAgeSec.Set(time.Since(time.Unix(m.CreatedAtEpochSecond, 0)).Seconds())
	}
	return res, res.Error
}
