package state

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Record is one persisted value with the sequence number of the mutation
// that produced it.
type Record struct {
	Seq   int64           `json:"seq"`
	Value json.RawMessage `json:"value"`
}

// Store abstracts the session backend. Values must be JSON documents.
type Store interface {
	// Apply writes value if seq is newer than the stored record.
	Apply(key string, value []byte, seq int64) (applied bool, cur Record, err error)
	// Put writes value unconditionally with seq 0.
	Put(key string, value []byte) error
	Get(key string) (Record, bool)
	Delete(key string) error
	Range(fn func(key string, rec Record) error) error
	// LoadAll replaces the whole store with all.
	LoadAll(all map[string]Record) error
}

func encodeRecord(r Record) ([]byte, error) { return json.Marshal(r) }
func decodeRecord(val []byte) (Record, error) {
	var r Record
	if err := json.Unmarshal(val, &r); err != nil {
		return Record{}, err
	}
	return r, nil
}

func copyValue(v []byte) json.RawMessage {
	return append(json.RawMessage(nil), v...)
}

// InMemoryStore is a simple thread-safe map store.
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: make(map[string]Record)}
}

// LoadAll replaces the store contents with the provided snapshot.
func (s *InMemoryStore) LoadAll(all map[string]Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]Record, len(all))
	for k, v := range all {
		s.data[k] = Record{Seq: v.Seq, Value: copyValue(v.Value)}
	}
	return nil
}

func (s *InMemoryStore) Apply(key string, value []byte, seq int64) (bool, Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.data[key]
	if ok && seq <= cur.Seq {
		return false, cur, nil
	}
	// gaps are allowed; a reset session starts over from a higher seq
	cur = Record{Seq: seq, Value: copyValue(value)}
	s.data[key] = cur
	return true, cur, nil
}

func (s *InMemoryStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = Record{Value: copyValue(value)}
	return nil
}

func (s *InMemoryStore) Get(key string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[key]
	if !ok {
		return Record{}, false
	}
	return Record{Seq: r.Seq, Value: copyValue(r.Value)}, true
}

func (s *InMemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *InMemoryStore) Range(fn func(key string, rec Record) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.data {
		if err := fn(k, v); err != nil {
			return fmt.Errorf("range callback failed: %w", err)
		}
	}
	return nil
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendPebble = "pebble"
	BackendBadger = "badger"
)

// Open builds the named backend. The returned close func is never nil.
func Open(backend, dir string) (Store, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case "", BackendMemory:
		return NewInMemoryStore(), noop, nil
	case BackendPebble:
		p, err := NewPebbleStore(dir)
		if err != nil {
			return nil, noop, err
		}
		return p, p.Close, nil
	case BackendBadger:
		b, err := NewBadgerStore(dir)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	}
	return nil, noop, fmt.Errorf("unknown state backend %q", backend)
}
