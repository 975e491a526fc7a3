// Package changelog records every configuration mutation as an event so a
// lost state directory can be rebuilt from a snapshot plus replay.
package changelog

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"hydrakit/internal/model"
)

// DefaultFile is the JSONL changelog file name inside the changelog dir.
const DefaultFile = "sessions.jsonl"

type Op string

const (
	OpPut   Op = "put"
	OpReset Op = "reset"
)

// Event carries the full configuration after a mutation. Replaying the
// newest event per key reproduces the session exactly.
type Event struct {
	Key    string            `json:"key"`
	Seq    int64             `json:"seq"`
	Op     Op                `json:"op"`
	Line   model.ProductLine `json:"line"`
	Total  float64           `json:"total"`
	TS     int64             `json:"ts"`
	Config json.RawMessage   `json:"config"`
}

type Writer interface {
	Append(e Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Append(Event) error { return nil }

// MultiWriter fans out writes to multiple underlying writers.
type MultiWriter struct {
	writers []Writer
}

func NewMultiWriter(ws ...Writer) *MultiWriter {
	return &MultiWriter{writers: ws}
}

// Append writes to every writer and joins their errors.
func (m *MultiWriter) Append(e Event) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Append(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type FileWriter struct {
	mu   sync.Mutex
	path string
}

func NewFileWriter(dir string, filename string) (*FileWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileWriter{path: filepath.Join(dir, filename)}, nil
}

func (w *FileWriter) Path() string { return w.path }

func (w *FileWriter) Append(e Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(&e); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ReadFile streams events from a JSONL changelog, skipping the first
// fromOffset lines. fn receives the 1-based line number.
func ReadFile(path string, fromOffset int64, fn func(line int64, e Event) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open changelog: %w", err)
	}
	defer f.Close()
	return Read(f, fromOffset, fn)
}

func Read(r io.Reader, fromOffset int64, fn func(line int64, e Event) error) error {
	scanner := bufio.NewScanner(r)
	// a full configuration per line can exceed the default token size
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	var n int64
	for scanner.Scan() {
		n++
		if n <= fromOffset {
			continue
		}
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return fmt.Errorf("unmarshal line %d: %w", n, err)
		}
		if err := fn(n, e); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan changelog: %w", err)
	}
	return nil
}

// KafkaWriter publishes events to a Kafka topic keyed by session key.
type KafkaWriter struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// SplitBrokers turns a comma-separated bootstrap list into broker addresses.
func SplitBrokers(bootstrap string) []string {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			brokers = append(brokers, a)
		}
	}
	return brokers
}

// NewKafkaWriter creates a Kafka writer.
// bootstrap can be a comma-separated list of host:port.
func NewKafkaWriter(bootstrap string, topic string) *KafkaWriter {
	return &KafkaWriter{writer: &kafka.Writer{
		Addr:         kafka.TCP(SplitBrokers(bootstrap)...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

func (k *KafkaWriter) Append(e Event) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(
		context.Background(),
		kafka.Message{Key: []byte(e.Key), Value: b},
	)
}

// Close flushes and closes the underlying writer when it supports it.
func (k *KafkaWriter) Close() error {
	if c, ok := k.writer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NewKafkaWriterWith is only for tests to inject a fake writer.
func NewKafkaWriterWith(w kafkaMessageWriter) *KafkaWriter {
	return &KafkaWriter{writer: w}
}
