package restore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"hydrakit/internal/manifest"
	"hydrakit/internal/snapshot"
	"hydrakit/internal/state"
)

func writeLines(t *testing.T, path string, lines ...string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	var b []byte
	for _, l := range lines {
		b = append(b, l...)
		b = append(b, '\n')
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestRestoreAndReplay_MinimalFlow(t *testing.T) {
	base := t.TempDir()
	mf := manifest.NewFilesystemManifest(base)
	if err := mf.PublishLatest(manifest.Manifest{SnapshotID: "sid-test", LastChangelogOffset: 1}); err != nil {
		t.Fatalf("publish manifest: %v", err)
	}

	clPath := filepath.Join(base, "changelog", "sessions.jsonl")
	writeLines(t, clPath,
		`{"key":"s1#trac360","seq":1,"op":"put","line":"trac360","total":0,"ts":1,"config":{"totalPrice":0}}`,
		`{"key":"s2#trac360","seq":1,"op":"put","line":"trac360","total":800,"ts":2,"config":{"totalPrice":800}}`,
		`{"key":"s3#function360","seq":2,"op":"put","line":"function360","total":500,"ts":3,"config":{"totalPrice":500}}`,
	)

	st := state.NewInMemoryStore()
	r := NewRestorer(st, snapshot.NewFilesystemSnapshotter(base), mf, clPath, nil)
	res, err := r.RestoreAndReplay()
	if err != nil {
		t.Fatalf("RestoreAndReplay error: %v", err)
	}

	// with lastChangelogOffset=1 the first line is skipped
	if res.Applied != 2 || res.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, ok := st.Get("s1#trac360"); ok {
		t.Fatalf("line before the offset was applied")
	}
}

func TestRestoreAndReplay_NoManifestReplaysEverything(t *testing.T) {
	base := t.TempDir()
	clPath := filepath.Join(base, "sessions.jsonl")
	writeLines(t, clPath,
		`{"key":"s1#trac360","seq":1,"op":"put","config":{"totalPrice":0}}`,
		`{"key":"s1#trac360","seq":2,"op":"put","config":{"totalPrice":800}}`,
	)
	st := state.NewInMemoryStore()
	r := NewRestorer(st, snapshot.NewFilesystemSnapshotter(base), manifest.NewFilesystemManifest(base), clPath, nil)
	res, err := r.RestoreAndReplay()
	if err != nil || res.Applied != 2 {
		t.Fatalf("unexpected: %+v err=%v", res, err)
	}
	rec, _ := st.Get("s1#trac360")
	if rec.Seq != 2 || string(rec.Value) != `{"totalPrice":800}` {
		t.Fatalf("final record: %+v", rec)
	}
}

func TestRestoreFromSnapshot_LoadsState(t *testing.T) {
	base := t.TempDir()
	prep := state.NewInMemoryStore()
	_, _, _ = prep.Apply("s1#trac360", []byte(`{"totalPrice":2060}`), 3)
	_, _, _ = prep.Apply("s2#function360", []byte(`{"totalPrice":1000}`), 1)
	snaps := snapshot.NewFilesystemSnapshotter(base)
	if _, err := snaps.WriteSnapshot("sid-001", prep); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	st := state.NewInMemoryStore()
	_ = st.Put("leftover", []byte(`{}`))
	r := NewRestorer(st, snaps, manifest.NewFilesystemManifest(base), "", nil)
	n, err := r.RestoreFromSnapshot("sid-001")
	if err != nil || n != 2 {
		t.Fatalf("RestoreFromSnapshot: n=%d err=%v", n, err)
	}
	rec, ok := st.Get("s1#trac360")
	if !ok || rec.Seq != 3 || string(rec.Value) != `{"totalPrice":2060}` {
		t.Fatalf("bad record for s1#trac360: %+v", rec)
	}
	if _, ok := st.Get("leftover"); ok {
		t.Fatalf("snapshot restore must replace existing keys")
	}

	if n, err := r.RestoreFromSnapshot("missing"); err != nil || n != 0 {
		t.Fatalf("missing snapshot should be skipped: n=%d err=%v", n, err)
	}
}

// brokenStore refuses every bulk load.
type brokenStore struct {
	*state.InMemoryStore
}

var errDiskFull = errors.New("disk full")

func (brokenStore) LoadAll(map[string]state.Record) error { return errDiskFull }

func TestRestoreFromSnapshot_LoadFailure(t *testing.T) {
	base := t.TempDir()
	prep := state.NewInMemoryStore()
	_, _, _ = prep.Apply("s1#trac360", []byte(`{"totalPrice":2060}`), 3)
	snaps := snapshot.NewFilesystemSnapshotter(base)
	if _, err := snaps.WriteSnapshot("sid-001", prep); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	mf := manifest.NewFilesystemManifest(base)
	if err := mf.PublishLatest(manifest.Manifest{SnapshotID: "sid-001"}); err != nil {
		t.Fatalf("publish manifest: %v", err)
	}

	r := NewRestorer(brokenStore{state.NewInMemoryStore()}, snaps, mf, filepath.Join(base, "none.jsonl"), nil)
	if n, err := r.RestoreFromSnapshot("sid-001"); !errors.Is(err, errDiskFull) || n != 0 {
		t.Fatalf("want errDiskFull, got n=%d err=%v", n, err)
	}
	if _, err := r.RestoreAndReplay(); !errors.Is(err, errDiskFull) {
		t.Fatalf("RestoreAndReplay should surface the load failure, got %v", err)
	}
}

func TestReplayChangelog_IdempotencyAndGaps(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "changelog", "sessions.jsonl")
	// seq=1 apply, seq=1 duplicate skip, seq=3 gap apply, seq=2 lower-than-last skip
	writeLines(t, path,
		`{"key":"K","seq":1,"op":"put","config":{"n":1}}`,
		`{"key":"K","seq":1,"op":"put","config":{"n":999}}`,
		`{"key":"K","seq":3,"op":"reset","config":{"n":3}}`,
		`{"key":"K","seq":2,"op":"put","config":{"n":2}}`,
	)

	st := state.NewInMemoryStore()
	r := NewRestorer(st, nil, manifest.NewFilesystemManifest(base), path, nil)
	res := r.ReplayChangelog(path, 0)
	if res.Error != nil {
		t.Fatalf("replay error: %v", res.Error)
	}
	if res.Applied != 2 || res.Skipped != 2 {
		t.Fatalf("want applied=2 skipped=2, got %+v", res)
	}
	rec, ok := st.Get("K")
	if !ok || rec.Seq != 3 || string(rec.Value) != `{"n":3}` {
		t.Fatalf("unexpected final record: %+v", rec)
	}
}

func TestReplayChangelog_EmptyAndMalformed(t *testing.T) {
	base := t.TempDir()
	empty := filepath.Join(base, "empty.jsonl")
	writeLines(t, empty)
	st := state.NewInMemoryStore()
	r := NewRestorer(st, nil, manifest.NewFilesystemManifest(base), empty, nil)
	res := r.ReplayChangelog(empty, 0)
	if res.Error != nil || res.Applied != 0 || res.Skipped != 0 {
		t.Fatalf("empty file unexpected: %+v", res)
	}

	bad := filepath.Join(base, "bad.jsonl")
	writeLines(t, bad, `{"key":"A","seq":1,"config":{}}`, `{bad json}`)
	res = r.ReplayChangelog(bad, 0)
	if res.Error == nil {
		t.Fatalf("expected error for malformed JSONL, got nil")
	}
	if res.Applied != 1 {
		t.Fatalf("good line before the bad one should apply: %+v", res)
	}
}

type fakeReader struct {
	msgs []kafka.Message
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) Close() error { return nil }

func TestReplayChangelogKafka(t *testing.T) {
	fr := &fakeReader{msgs: []kafka.Message{
		{Value: []byte(`{"key":"K","seq":1,"config":{"n":1}}`)},
		{Value: []byte(`{"key":"K","seq":2,"config":{"n":2}}`)},
		{Value: []byte(`{"key":"K","seq":2,"config":{"n":22}}`)},
	}}
	st := state.NewInMemoryStore()
	r := NewRestorer(st, nil, nil, "", nil)
	res := r.ReplayChangelogKafka(fr, 1, 20*time.Millisecond)
	if res.Error != nil || res.Applied != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected: %+v", res)
	}
	rec, _ := st.Get("K")
	if string(rec.Value) != `{"n":2}` {
		t.Fatalf("final record: %+v", rec)
	}
}
