package kv

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// LevelStore implements Store on top of LevelDB, the second pluggable
// backend alongside MemStore — the contract (get/put/delete/contains over
// opaque bytes) is backend-agnostic by design, so callers can swap this in
// for a process that wants its state to survive a restart without the
// ChangeSet/sheet logic above it changing at all.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (or creates) a LevelDB database at path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %q: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Get(key []byte) ([]byte, error) {
	v, err := s.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNotFound
	}
	return v, err
}

func (s *LevelStore) Put(key, value []byte) error {
	return s.db.Put(key, value, nil)
}

func (s *LevelStore) Delete(key []byte) error {
	return s.db.Delete(key, nil)
}

func (s *LevelStore) Contains(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

// Close releases the underlying LevelDB handle.
func (s *LevelStore) Close() error {
	return s.db.Close()
}
