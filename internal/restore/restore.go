// Package restore rebuilds a state backend from the newest snapshot and the
// changelog events written after it, and takes new checkpoints.
package restore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/segmentio/kafka-go"

	"hydrakit/internal/changelog"
	"hydrakit/internal/manifest"
	"hydrakit/internal/metrics"
	"hydrakit/internal/snapshot"
	"hydrakit/internal/state"
)

type Restorer struct {
	stateStore     state.Store
	snapshots      snapshot.Loader
	manifestReader manifest.Reader
	changelogPath  string
	metrics        *metrics.Registry
}

// NewRestorer wires a restorer. m may be nil.
func NewRestorer(st state.Store, snaps snapshot.Loader, mr manifest.Reader, changelogPath string, m *metrics.Registry) *Restorer {
	return &Restorer{
		stateStore:     st,
		snapshots:      snaps,
		manifestReader: mr,
		changelogPath:  changelogPath,
		metrics:        m,
	}
}

type RestoreResult struct {
	Restored int
	Applied  int
	Skipped  int
	Error    error
}

// RestoreFromSnapshot replaces the store contents with a snapshot. An empty
// id or a missing snapshot leaves the store untouched.
func (r *Restorer) RestoreFromSnapshot(snapshotID string) (int, error) {
	if snapshotID == "" || r.snapshots == nil {
		return 0, nil
	}
	snap, err := r.snapshots.LoadSnapshot(snapshotID)
	if errors.Is(err, os.ErrNotExist) {
		log.Warnf("restore: snapshot %s not found, skipping", snapshotID)
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if err := r.stateStore.LoadAll(snap.Records); err != nil {
		return 0, fmt.Errorf("load snapshot %s: %w", snapshotID, err)
	}
	log.Infof("restore: loaded %d keys from snapshot %s", len(snap.Records), snapshotID)
	return len(snap.Records), nil
}

func (r *Restorer) apply(e changelog.Event, res *RestoreResult) error {
	ok, _, err := r.stateStore.Apply(e.Key, e.Config, e.Seq)
	if err != nil {
		return err
	}
	if ok {
		res.Applied++
		if r.metrics != nil {
			r.metrics.Applied.Inc()
		}
	} else {
		res.Skipped++
		if r.metrics != nil {
			r.metrics.Skipped.Inc()
		}
	}
	return nil
}

// ReplayChangelog applies events after line fromOffset. Events whose seq is
// not newer than the stored record are skipped, so replay is idempotent.
func (r *Restorer) ReplayChangelog(changelogPath string, fromOffset int64) RestoreResult {
	var res RestoreResult
	err := changelog.ReadFile(changelogPath, fromOffset, func(line int64, e changelog.Event) error {
		if err := r.apply(e, &res); err != nil {
			return fmt.Errorf("apply line %d: %w", line, err)
		}
		return nil
	})
	res.Error = err
	return res
}

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// NewKafkaChangelogReader opens partition 0 of the changelog topic.
func NewKafkaChangelogReader(brokers []string, topic string) kafkaMessageReader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:   brokers,
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
}

// ReplayChangelogKafka consumes events until the topic stays idle for
// idle, skipping the first fromOffset messages.
func (r *Restorer) ReplayChangelogKafka(rd kafkaMessageReader, fromOffset int64, idle time.Duration) RestoreResult {
	defer rd.Close()

	var res RestoreResult
	idx := int64(0)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), idle)
		m, err := rd.ReadMessage(ctx)
		timedOut := ctx.Err() != nil
		cancel()
		if err != nil {
			if timedOut {
				break
			}
			res.Error = fmt.Errorf("read kafka: %w", err)
			return res
		}
		idx++
		if idx <= fromOffset {
			continue
		}
		var e changelog.Event
		if err := json.Unmarshal(m.Value, &e); err != nil {
			res.Error = fmt.Errorf("unmarshal event: %w", err)
			return res
		}
		if err := r.apply(e, &res); err != nil {
			res.Error = fmt.Errorf("apply: %w", err)
			return res
		}
	}
	return res
}

// RestoreAndReplay loads the snapshot named by the latest manifest and
// replays the file changelog from the manifest's offset. Without a
// manifest the whole changelog is replayed onto the current store.
func (r *Restorer) RestoreAndReplay() (RestoreResult, error) {
	start := time.Now()
	m, err := r.manifestReader.ReadLatest()
	switch {
	case errors.Is(err, manifest.ErrNoManifest):
		log.Warnf("restore: no manifest, replaying full changelog")
	case err != nil:
		return RestoreResult{}, fmt.Errorf("read manifest: %w", err)
	}

	restored, err := r.RestoreFromSnapshot(m.SnapshotID)
	if err != nil {
		return RestoreResult{}, fmt.Errorf("restore snapshot: %w", err)
	}

	result := RestoreResult{Restored: restored}
	if _, statErr := os.Stat(r.changelogPath); statErr == nil {
		replayed := r.ReplayChangelog(r.changelogPath, m.LastChangelogOffset)
		result.Applied, result.Skipped, result.Error = replayed.Applied, replayed.Skipped, replayed.Error
	} else {
		log.Warnf("restore: changelog %s not found, snapshot only", r.changelogPath)
	}

	if r.metrics != nil {
		r.metrics.TTRSec.Set(time.Since(start).Seconds())
		if m.CreatedAtEpochSecond > 0 {
			r.metrics.LastManifestAgeSec.Set(float64(time.Now().Unix() - m.CreatedAtEpochSecond))
		}
	}
	return result, result.Error
}

// CountLines reports how many events the file changelog holds; a missing
// file counts as empty.
func CountLines(changelogPath string) (int64, error) {
	var n int64
	err := changelog.ReadFile(changelogPath, 0, func(line int64, _ changelog.Event) error {
		n = line
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	return n, err
}

// Checkpoint snapshots st and publishes a manifest covering every
// changelog line written so far.
func Checkpoint(st state.Store, snap snapshot.Snapshotter, pub manifest.Publisher, changelogPath string, now time.Time) (manifest.Manifest, error) {
	offset, err := CountLines(changelogPath)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("count changelog: %w", err)
	}
	id := snapshot.NewID(now)
	written, err := snap.WriteSnapshot(id, st)
	if err != nil {
		return manifest.Manifest{}, fmt.Errorf("write snapshot: %w", err)
	}
	m := manifest.Manifest{
		SnapshotID:           id,
		LastChangelogOffset:  offset,
		Sessions:             len(written.Records),
		CreatedAtEpochSecond: now.UTC().Unix(),
	}
	if err := pub.PublishLatest(m); err != nil {
		return manifest.Manifest{}, fmt.Errorf("publish manifest: %w", err)
	}
	return m, nil
}
