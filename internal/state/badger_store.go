package state

import (
	"errors"
	"fmt"
	"path/filepath"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store using BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(filepath.Clean(dir)).WithLogger(nil).WithSyncWrites(true)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func (b *BadgerStore) Close() error { return b.db.Close() }

func readTxn(txn *badger.Txn, key []byte) (Record, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	v, err := item.ValueCopy(nil)
	if err != nil {
		return Record{}, false, err
	}
	r, err := decodeRecord(v)
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

func (b *BadgerStore) Apply(key string, value []byte, seq int64) (bool, Record, error) {
	var applied bool
	var out Record
	err := b.db.Update(func(txn *badger.Txn) error {
		cur, ok, err := readTxn(txn, []byte(key))
		if err != nil {
			return err
		}
		if ok && seq <= cur.Seq {
			out = cur
			return nil
		}
		cur = Record{Seq: seq, Value: copyValue(value)}
		bytes, err := encodeRecord(cur)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(key), bytes); err != nil {
			return err
		}
		applied = true
		out = cur
		return nil
	})
	return applied, out, err
}

func (b *BadgerStore) Put(key string, value []byte) error {
	bytes, err := encodeRecord(Record{Value: copyValue(value)})
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

func (b *BadgerStore) Get(key string) (Record, bool) {
	var r Record
	var found bool
	err := b.db.View(func(txn *badger.Txn) error {
		var err error
		r, found, err = readTxn(txn, []byte(key))
		return err
	})
	if err != nil || !found {
		return Record{}, false
	}
	return r, true
}

func (b *BadgerStore) Delete(key string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (b *BadgerStore) Range(fn func(key string, rec Record) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			k := item.KeyCopy(nil)
			v, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			r, err := decodeRecord(v)
			if err != nil {
				return err
			}
			if err := fn(string(k), r); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadAll loads a full snapshot into Badger by replacing all keys.
func (b *BadgerStore) LoadAll(all map[string]Record) error {
	return b.db.Update(func(txn *badger.Txn) error {
		// collect keys first to avoid mutating while iterating
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var keysToDelete [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keysToDelete = append(keysToDelete, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range keysToDelete {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for k, r := range all {
			bytes, err := encodeRecord(r)
			if err != nil {
				return fmt.Errorf("encode %q: %w", k, err)
			}
			if err := txn.Set([]byte(k), bytes); err != nil {
				return err
			}
		}
		return nil
	})
}
