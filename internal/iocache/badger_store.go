package iocache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/huangsam/insight/internal/contract"
	"github.com/huangsam/insight/schema"
)

// entryHeaderSize is the version (uint32) plus the timestamp (int64) stored
// in front of every badger value.
const entryHeaderSize = 12

// BadgerStore keeps cache entries in an embedded badger database.
// Keys are namespaced with a prefix so one directory can hold several stores.
type BadgerStore struct {
	db     *badger.DB
	dir    string
	prefix string
}

var _ contract.CacheStore = &BadgerStore{} // Compile-time check

// NewBadgerStore opens (or creates) the badger database in dir.
func NewBadgerStore(dir, prefix string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger cache at %q: %w", dir, err)
	}
	return &BadgerStore{db: db, dir: dir, prefix: prefix}, nil
}

func (s *BadgerStore) makeKey(key string) []byte {
	return []byte(s.prefix + ":" + key)
}

// Get retrieves a value by key. A missing key returns badger.ErrKeyNotFound.
func (s *BadgerStore) Get(key string) ([]byte, int, int64, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.makeKey(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return decodeEntry(raw)
}

// Set inserts or replaces a key/value pair in the store.
func (s *BadgerStore) Set(key string, value []byte, version int, timestamp int64) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(s.makeKey(key), encodeEntry(value, version, timestamp))
	})
}

// Close closes the badger database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// GetStatus walks the store's keys to count entries and find their age range.
func (s *BadgerStore) GetStatus() (schema.CacheStatus, error) {
	status := schema.CacheStatus{Backend: string(schema.BadgerBackend), Connected: true}

	var oldest, newest int64
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(s.prefix + ":")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				_, _, ts, err := decodeEntry(val)
				if err != nil {
					return err
				}
				if status.TotalEntries == 0 || ts < oldest {
					oldest = ts
				}
				newest = max(newest, ts)
				status.TotalEntries++
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return status, fmt.Errorf("failed to scan badger cache: %w", err)
	}

	if status.TotalEntries > 0 {
		status.LastEntryTime = time.Unix(newest, 0)
		status.OldestEntryTime = time.Unix(oldest, 0)
	}
	lsm, vlog := s.db.Size()
	status.TableSizeBytes = lsm + vlog
	return status, nil
}

func encodeEntry(value []byte, version int, timestamp int64) []byte {
	buf := make([]byte, entryHeaderSize+len(value))
	binary.BigEndian.PutUint32(buf[0:4], uint32(version))
	binary.BigEndian.PutUint64(buf[4:12], uint64(timestamp))
	copy(buf[entryHeaderSize:], value)
	return buf
}

func decodeEntry(raw []byte) ([]byte, int, int64, error) {
	if len(raw) < entryHeaderSize {
		return nil, 0, 0, errors.New("corrupt badger cache entry")
	}
	version := int(binary.BigEndian.Uint32(raw[0:4]))
	ts := int64(binary.BigEndian.Uint64(raw[4:12]))
	value := make([]byte, len(raw)-entryHeaderSize)
	copy(value, raw[entryHeaderSize:])
	return value, version, ts, nil
}
