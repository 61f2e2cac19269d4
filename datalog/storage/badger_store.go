package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"gopkg.in/yaml.v3"
)

// BadgerStore implements Store using BadgerDB
type BadgerStore struct {
	db  *badger.DB
	ttl time.Duration
}

// NewBadgerStore opens a BadgerDB-backed store at path. An empty path keeps
// everything in memory. Artifacts expire after ttl when ttl is positive.
func NewBadgerStore(path string, ttl time.Duration) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Disable BadgerDB logs

	// Artifacts are small and written rarely
	opts.MemTableSize = 8 << 20
	opts.NumCompactors = 2
	opts.ValueThreshold = 1 << 10 // 1KB - store small values in LSM tree

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	return &BadgerStore{
		db:  db,
		ttl: ttl,
	}, nil
}

func encodeKey(kind ArtifactKind, key string) []byte {
	return []byte(kindPrefix(kind) + key)
}

func kindPrefix(kind ArtifactKind) string {
	return "artifact/" + kind.String() + "/"
}

// Put stores an artifact, replacing any previous one with the same kind and key
func (s *BadgerStore) Put(a Artifact) error {
	if a.Key == "" {
		return errors.New("artifact key is empty")
	}
	if a.Created.IsZero() {
		a.Created = time.Now().UTC()
	}

	value, err := yaml.Marshal(&a)
	if err != nil {
		return fmt.Errorf("failed to encode artifact %s: %w", a.Key, err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(encodeKey(a.Kind, a.Key), value)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("failed to write artifact %s: %w", a.Key, err)
		}
		return nil
	})
}

// Get retrieves an artifact, returning ErrNotFound if none is stored
func (s *BadgerStore) Get(kind ArtifactKind, key string) (*Artifact, error) {
	var a Artifact
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(encodeKey(kind, key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return yaml.Unmarshal(val, &a)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", key, err)
	}
	return &a, nil
}

// Delete removes an artifact; deleting a missing key is not an error
func (s *BadgerStore) Delete(kind ArtifactKind, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(encodeKey(kind, key)); err != nil && err != badger.ErrKeyNotFound {
			return fmt.Errorf("failed to delete artifact %s: %w", key, err)
		}
		return nil
	})
}

// List returns every stored artifact of a kind in key order
func (s *BadgerStore) List(kind ArtifactKind) ([]Artifact, error) {
	prefix := []byte(kindPrefix(kind))
	var out []Artifact

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var a Artifact
			if err := it.Item().Value(func(val []byte) error {
				return yaml.Unmarshal(val, &a)
			}); err != nil {
				return fmt.Errorf("failed to decode artifact %s: %w", it.Item().Key(), err)
			}
			out = append(out, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Close closes the database
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
