// Package manifest publishes and reads the pointer to the newest session
// snapshot and the changelog position it covers.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/segmentio/kafka-go"

	"hydrakit/internal/changelog"
)

// DefaultKey is the record key used on the compacted manifest topic.
const DefaultKey = "kit-manifest-latest"

const fileName = "manifest.latest.json"

// ErrNoManifest is returned when no manifest was ever published.
var ErrNoManifest = errors.New("no manifest published")

type Manifest struct {
	SnapshotID           string `json:"snapshotId"`
	LastChangelogOffset  int64  `json:"lastChangelogOffset"`
	Sessions             int    `json:"sessions"`
	CreatedAtEpochSecond int64  `json:"createdAt"`
}

type Publisher interface {
	PublishLatest(m Manifest) error
}

type Reader interface {
	ReadLatest() (Manifest, error)
}

// MultiPublisher writes to multiple publishers sequentially.
type MultiPublisherImpl struct {
	pubs []Publisher
}

func MultiPublisher(pubs ...Publisher) Publisher {
	return &MultiPublisherImpl{pubs: pubs}
}

func (m *MultiPublisherImpl) PublishLatest(man Manifest) error {
	for _, p := range m.pubs {
		if err := p.PublishLatest(man); err != nil {
			return err
		}
	}
	return nil
}

func stamp(m Manifest) Manifest {
	if m.CreatedAtEpochSecond == 0 {
		m.CreatedAtEpochSecond = time.Now().UTC().Unix()
	}
	return m
}

type FilesystemManifest struct {
	baseDir string
}

func NewFilesystemManifest(baseDir string) *FilesystemManifest {
	return &FilesystemManifest{baseDir: baseDir}
}

func (f *FilesystemManifest) PublishLatest(m Manifest) error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	m = stamp(m)
	b, err := json.MarshalIndent(&m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	tmp := filepath.Join(f.baseDir, fileName+".tmp")
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(f.baseDir, fileName)); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func (f *FilesystemManifest) ReadLatest() (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(f.baseDir, fileName))
	if errors.Is(err, os.ErrNotExist) {
		return Manifest{}, ErrNoManifest
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return m, nil
}

// KafkaManifest publishes manifest.latest as a compacted Kafka record.
type KafkaManifest struct {
	writer kafkaMessageWriter
	key    []byte
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaManifest creates a Kafka manifest publisher.
// bootstrap can be comma-separated brokers.
func NewKafkaManifest(bootstrap string, topic string, key string) *KafkaManifest {
	return &KafkaManifest{writer: &kafka.Writer{
		Addr:         kafka.TCP(changelog.SplitBrokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}, key: []byte(key)}
}

func (k *KafkaManifest) PublishLatest(m Manifest) error {
	b, err := json.Marshal(stamp(m))
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(context.Background(), kafka.Message{Key: k.key, Value: b})
}

// NewKafkaManifestWith is only for tests to inject a fake writer.
func NewKafkaManifestWith(w kafkaMessageWriter, key string) *KafkaManifest {
	return &KafkaManifest{writer: w, key: []byte(key)}
}

// kafkaMessageReader abstracts kafka.Reader for testability.
type kafkaMessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaReader reads the latest manifest record from a compacted topic by
// scanning partition 0 and keeping the last value seen for the key.
type KafkaReader struct {
	open    func() kafkaMessageReader
	key     []byte
	timeout time.Duration
}

func NewKafkaReader(brokers []string, topic string, key string) *KafkaReader {
	return &KafkaReader{
		open: func() kafkaMessageReader {
			return kafka.NewReader(kafka.ReaderConfig{
				Brokers:   brokers,
				Topic:     topic,
				Partition: 0,
				MinBytes:  1,
				MaxBytes:  10e6,
			})
		},
		key:     []byte(key),
		timeout: 10 * time.Second,
	}
}

// NewKafkaReaderWith is only for tests to inject a fake reader.
func NewKafkaReaderWith(r kafkaMessageReader, key string, timeout time.Duration) *KafkaReader {
	return &KafkaReader{open: func() kafkaMessageReader { return r }, key: []byte(key), timeout: timeout}
}

func (k *KafkaReader) ReadLatest() (Manifest, error) {
	r := k.open()
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), k.timeout)
	defer cancel()

	var last Manifest
	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return Manifest{}, fmt.Errorf("read kafka: %w", err)
		}
		if string(m.Key) != string(k.key) {
			continue
		}
		var man Manifest
		if err := json.Unmarshal(m.Value, &man); err != nil {
			return Manifest{}, fmt.Errorf("unmarshal kafka manifest: %w", err)
		}
		last = man
	}
	if last.SnapshotID == "" {
		return Manifest{}, ErrNoManifest
	}
	return last, nil
}
