package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// ErrNotFound is returned by every backend when a key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Database holds the persisted vault record and anything keyed next to it.
// Writes happen after every committed vault operation, so Put must be
// durable by the time it returns on the persistent backends.
type Database interface {
	Put(key []byte, value []byte) error
	Get(key []byte) ([]byte, error)
	Close()
}

// MemDB keeps records in process memory. The devnet and tests use it when no
// storage path is configured. Values are copied on the way in and out so a
// caller mutating its buffer cannot rewrite a stored record.
type MemDB struct {
	mu      sync.RWMutex
	records map[string][]byte
}

func NewMemDB() *MemDB {
	return &MemDB{records: make(map[string][]byte)}
}

func (m *MemDB) Put(key []byte, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemDB) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.records[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemDB) Close() {}

// LevelDB stores records in a goleveldb directory. Every write is synced.
type LevelDB struct {
	db    *leveldb.DB
	write *opt.WriteOptions
}

// NewLevelDB opens the directory at path, creating it when missing.
func NewLevelDB(path string) (*LevelDB, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: open leveldb %s: %w", path, err)
	}
	return &LevelDB{db: db, write: &opt.WriteOptions{Sync: true}}, nil
}

func (l *LevelDB) Put(key []byte, value []byte) error {
	return l.db.Put(key, value, l.write)
}

func (l *LevelDB) Get(key []byte) ([]byte, error) {
	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, err
}

func (l *LevelDB) Close() {
	_ = l.db.Close()
}
