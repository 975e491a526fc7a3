package state

import (
	"fmt"
	"path/filepath"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store using PebbleDB.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// session records are small and written one at a time
		MemTableSize:          16 << 20,
		L0CompactionThreshold: 4,
		L0StopWritesThreshold: 12,
	}
	d, err := pebble.Open(filepath.Clean(dir), opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open: %w", err)
	}
	return &PebbleStore{db: d}, nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }

func (p *PebbleStore) read(k []byte) (Record, bool, error) {
	v, closer, err := p.db.Get(k)
	if err == pebble.ErrNotFound {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	defer closer.Close()
	r, err := decodeRecord(v)
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

func (p *PebbleStore) Apply(key string, value []byte, seq int64) (bool, Record, error) {
	k := []byte(key)
	cur, ok, err := p.read(k)
	if err != nil {
		return false, Record{}, err
	}
	if ok && seq <= cur.Seq {
		return false, cur, nil
	}
	cur = Record{Seq: seq, Value: copyValue(value)}
	bytes, err := encodeRecord(cur)
	if err != nil {
		return false, Record{}, err
	}
	// every mutation must survive a reload
	if err := p.db.Set(k, bytes, pebble.Sync); err != nil {
		return false, Record{}, err
	}
	return true, cur, nil
}

func (p *PebbleStore) Put(key string, value []byte) error {
	bytes, err := encodeRecord(Record{Value: copyValue(value)})
	if err != nil {
		return err
	}
	return p.db.Set([]byte(key), bytes, pebble.Sync)
}

func (p *PebbleStore) Get(key string) (Record, bool) {
	r, ok, err := p.read([]byte(key))
	if err != nil {
		return Record{}, false
	}
	return r, ok
}

func (p *PebbleStore) Delete(key string) error {
	return p.db.Delete([]byte(key), pebble.Sync)
}

func (p *PebbleStore) Range(fn func(key string, rec Record) error) error {
	it, err := p.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer it.Close()
	for it.First(); it.Valid(); it.Next() {
		k := append([]byte(nil), it.Key()...)
		r, err := decodeRecord(it.Value())
		if err != nil {
			return err
		}
		if err := fn(string(k), r); err != nil {
			return err
		}
	}
	return nil
}

// LoadAll loads a full snapshot into Pebble by replacing all keys in one
// batch. Nothing is written unless every record encodes.
func (p *PebbleStore) LoadAll(all map[string]Record) error {
	var toDelete [][]byte
	it, err := p.db.NewIter(nil)
	if err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}
	for it.First(); it.Valid(); it.Next() {
		toDelete = append(toDelete, append([]byte(nil), it.Key()...))
	}
	if err := it.Close(); err != nil {
		return fmt.Errorf("pebble iter: %w", err)
	}

	wb := p.db.NewBatch()
	defer wb.Close()
	for _, k := range toDelete {
		if err := wb.Delete(k, nil); err != nil {
			return fmt.Errorf("pebble delete %q: %w", k, err)
		}
	}
	for k, r := range all {
		bytes, err := encodeRecord(r)
		if err != nil {
			return fmt.Errorf("encode %q: %w", k, err)
		}
		if err := wb.Set([]byte(k), bytes, nil); err != nil {
			return fmt.Errorf("pebble set %q: %w", k, err)
		}
	}
	if err := wb.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("pebble commit: %w", err)
	}
	return nil
}
