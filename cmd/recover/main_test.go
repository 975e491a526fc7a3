package main

import (
	"path/filepath"
	"testing"
	"time"

	"hydrakit/internal/changelog"
	"hydrakit/internal/configurator"
	"hydrakit/internal/manifest"
	"hydrakit/internal/metrics"
	"hydrakit/internal/model"
	"hydrakit/internal/registry"
	"hydrakit/internal/restore"
	"hydrakit/internal/snapshot"
	"hydrakit/internal/state"
)

const sessionID = "3f0c2b5e-8a71-4c1d-9f4e-2b6d7a8c9e10"

func TestCycle_FileSnapshotPlusTail(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{
		ManifestSource:  "file",
		ChangelogSource: "file",
		SnapshotDir:     filepath.Join(dir, "snapshots"),
		ChangelogPath:   filepath.Join(dir, "changelog", changelog.DefaultFile),
	}

	fw, err := changelog.NewFileWriter(filepath.Dir(cfg.ChangelogPath), changelog.DefaultFile)
	if err != nil {
		t.Fatalf("changelog: %v", err)
	}
	live := state.NewInMemoryStore()
	st, err := configurator.OpenTrac360(sessionID, configurator.Deps{Store: live, Changelog: fw, Registry: registry.MustBundled()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_ = st.SetTractorInfo(model.TractorInfo{Brand: "Kubota", Model: "M7060", DriveType: "4WD", ProtectionType: "cab"})
	_ = st.SetValveSetup("D")

	snaps := snapshot.NewFilesystemSnapshotter(cfg.SnapshotDir)
	if _, err := restore.Checkpoint(live, snaps, manifest.NewFilesystemManifest(cfg.SnapshotDir), cfg.ChangelogPath, time.Now()); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	_ = st.SetOperationType("electric-handles")

	target := state.NewInMemoryStore()
	mr := manifest.NewFilesystemManifest(cfg.SnapshotDir)
	mreg := metrics.NewRegistry()
	res, err := cycle(cfg, restore.NewRestorer(target, snaps, mr, cfg.ChangelogPath, mreg), mr, mreg)
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if res.Restored != 1 || res.Applied != 1 || res.Skipped != 0 {
		t.Fatalf("result: %+v", res)
	}
	want, _ := live.Get(configurator.Key(sessionID, model.LineTrac360))
	got, ok := target.Get(configurator.Key(sessionID, model.LineTrac360))
	if !ok || got.Seq != want.Seq || string(got.Value) != string(want.Value) {
		t.Fatalf("restored %+v, want %+v", got, want)
	}
}

func TestRun_OnceWithoutManifest(t *testing.T) {
	dir := t.TempDir()
	err := run(Config{
		ManifestSource:  "file",
		ChangelogSource: "file",
		SnapshotDir:     filepath.Join(dir, "snapshots"),
		ChangelogPath:   filepath.Join(dir, "missing.jsonl"),
		StateBackend:    state.BackendMemory,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
}
