// Package snapshot dumps every session record of a state backend to disk
// and reads such dumps back.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"hydrakit/internal/model"
	"hydrakit/internal/state"
)

// FileName is the dump file inside <baseDir>/<snapshotID>/.
const FileName = "sessions.json"

type Snapshot struct {
	ID            string                  `json:"id"`
	SchemaVersion int                     `json:"schemaVersion"`
	CreatedAt     int64                   `json:"createdAt"`
	Records       map[string]state.Record `json:"records"`
}

type Snapshotter interface {
	WriteSnapshot(snapshotID string, st state.Store) (Snapshot, error)
}

type Loader interface {
	LoadSnapshot(snapshotID string) (Snapshot, error)
}

type FilesystemSnapshotter struct {
	baseDir string
	now     func() time.Time
}

func NewFilesystemSnapshotter(baseDir string) *FilesystemSnapshotter {
	return &FilesystemSnapshotter{baseDir: baseDir, now: time.Now}
}

// NewID names a snapshot after its creation time.
func NewID(t time.Time) string {
	return "snap-" + t.UTC().Format("20060102T150405.000Z")
}

func (f *FilesystemSnapshotter) path(snapshotID string) string {
	return filepath.Join(f.baseDir, snapshotID, FileName)
}

// WriteSnapshot writes the dump to a temp file and renames it into place,
// so a crash never leaves a truncated snapshot behind.
func (f *FilesystemSnapshotter) WriteSnapshot(snapshotID string, st state.Store) (Snapshot, error) {
	snap := Snapshot{
		ID:            snapshotID,
		SchemaVersion: model.SchemaVersion,
		CreatedAt:     f.now().UTC().Unix(),
		Records:       make(map[string]state.Record),
	}
	if err := st.Range(func(key string, rec state.Record) error {
		snap.Records[key] = rec
		return nil
	}); err != nil {
		return Snapshot{}, fmt.Errorf("range state: %w", err)
	}

	dir := filepath.Join(f.baseDir, snapshotID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Snapshot{}, fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return Snapshot{}, fmt.Errorf("create: %w", err)
	}
	// not indented: record values must round-trip byte for byte
	if err := json.NewEncoder(tmp).Encode(&snap); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return Snapshot{}, fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return Snapshot{}, fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(snapshotID)); err != nil {
		return Snapshot{}, fmt.Errorf("rename: %w", err)
	}
	return snap, nil
}

// LoadSnapshot reads a dump. A missing snapshot is reported with an error
// wrapping os.ErrNotExist.
func (f *FilesystemSnapshotter) LoadSnapshot(snapshotID string) (Snapshot, error) {
	data, err := os.ReadFile(f.path(snapshotID))
	if err != nil {
		return Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Records == nil {
		snap.Records = make(map[string]state.Record)
	}
	return snap, nil
}
