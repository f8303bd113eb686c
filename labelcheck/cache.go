package labelcheck

import (
	"errors"
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// ErrCacheMiss is returned by VectorCache.Get when the key is absent.
var ErrCacheMiss = errors.New("labelcheck: cache miss")

// VectorCache stores embeddings by cache key.
type VectorCache interface {
	Get(key string) ([]float32, error)
	Put(key string, vec []float32) error
	Close() error
}

// MemoryCache is a process local VectorCache.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string][]float32
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{m: make(map[string][]float32)}
}

// Get returns a copy of the cached vector or ErrCacheMiss.
func (c *MemoryCache) Get(key string) ([]float32, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.m[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return cloneVector(vec), nil
}

// Put stores a copy of vec.
func (c *MemoryCache) Put(key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cloneVector(vec)
	return nil
}

// Close drops all entries.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m = make(map[string][]float32)
	return nil
}

// BadgerCache persists embeddings in a BadgerDB directory. Values are
// msgpack encoded float32 slices.
type BadgerCache struct {
	db *badger.DB
}

// BadgerCacheOptions configures NewBadgerCache.
type BadgerCacheOptions struct {
	// Dir is the database directory. Required unless InMemory is set.
	Dir string
	// InMemory keeps the database in memory only.
	InMemory bool
}

// NewBadgerCache opens (or creates) a BadgerDB backed cache.
func NewBadgerCache(opts BadgerCacheOptions) (*BadgerCache, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("labelcheck: badger cache dir is required")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(nil)
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &BadgerCache{db: db}, nil
}

// Get returns the cached vector or ErrCacheMiss.
func (c *BadgerCache) Get(key string) ([]float32, error) {
	var vec []float32
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &vec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("badger cache get: %w", err)
	}
	return vec, nil
}

// Put stores vec under key.
func (c *BadgerCache) Put(key string, vec []float32) error {
	data, err := msgpack.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encode vector: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Close closes the database.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}
