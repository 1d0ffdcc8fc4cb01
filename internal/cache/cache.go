// Package cache keeps package index and vulnerability database responses
// for a bounded time so repeated scans stay off the network.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	bolt "go.etcd.io/bbolt"
)

// Buckets used by the scanner.
const (
	BucketRegistry = "registry" // package index metadata, keyed by package name
	BucketDatabase = "database" // vulnerability database release checks
)

// DefaultTTL is how long a cached response stays fresh.
const DefaultTTL = time.Hour

const frontSize = 2048

// Store caches JSON-serialisable values per bucket.
type Store interface {
	// Get decodes a fresh value into v. ok is false on a miss or when
	// the value has expired.
	Get(bucket, key string, v any) (ok bool, err error)
	Set(bucket, key string, v any) error
	Delete(bucket, key string) error
	Close() error
}

type entry struct {
	StoredAt time.Time       `json:"stored_at"`
	Data     json.RawMessage `json:"data"`
}

// BoltCache persists entries in a bbolt file and serves hot keys from an
// expiring in-memory LRU.
type BoltCache struct {
	db    *bolt.DB
	mu    sync.RWMutex
	ttl   time.Duration
	now   func() time.Time
	front *expirable.LRU[string, entry]
}

// Open creates or opens a cache file at path. A non-positive ttl uses
// DefaultTTL.
func Open(path string, ttl time.Duration) (*BoltCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{BucketRegistry, BucketDatabase} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init buckets: %w", err)
	}

	return &BoltCache{
		db:    db,
		ttl:   ttl,
		now:   time.Now,
		front: expirable.NewLRU[string, entry](frontSize, nil, ttl),
	}, nil
}

func frontKey(bucket, key string) string { return bucket + "/" + key }

func (c *BoltCache) fresh(e entry) bool {
	return c.now().Sub(e.StoredAt) < c.ttl
}

func (c *BoltCache) Get(bucket, key string, v any) (bool, error) {
	if e, ok := c.front.Get(frontKey(bucket, key)); ok && c.fresh(e) {
		return true, json.Unmarshal(e.Data, v)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var e entry
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", bucket)
		}
		data := b.Get([]byte(key))
		if data == nil {
			return errMiss
		}
		return json.Unmarshal(data, &e)
	})
	if errors.Is(err, errMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !c.fresh(e) {
		return false, nil
	}
	c.front.Add(frontKey(bucket, key), e)
	return true, json.Unmarshal(e.Data, v)
}

var errMiss = errors.New("cache miss")

func (c *BoltCache) Set(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	e := entry{StoredAt: c.now(), Data: data}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", bucket)
		}
		return b.Put([]byte(key), raw)
	})
	if err != nil {
		return err
	}
	c.front.Add(frontKey(bucket, key), e)
	return nil
}

func (c *BoltCache) Delete(bucket, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.front.Remove(frontKey(bucket, key))
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket not found: %s", bucket)
		}
		return b.Delete([]byte(key))
	})
}

// Purge removes expired entries from every bucket and reports how many
// were dropped.
func (c *BoltCache) Purge() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, b *bolt.Bucket) error {
			var stale [][]byte
			err := b.ForEach(func(k, v []byte) error {
				var e entry
				if err := json.Unmarshal(v, &e); err != nil || !c.fresh(e) {
					stale = append(stale, append([]byte(nil), k...))
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, k := range stale {
				if err := b.Delete(k); err != nil {
					return fmt.Errorf("delete %s/%s: %w", name, k, err)
				}
				c.front.Remove(frontKey(string(name), string(k)))
				removed++
			}
			return nil
		})
	})
	return removed, err
}

func (c *BoltCache) Close() error {
	c.front.Purge()
	return c.db.Close()
}

// Memory is a Store without persistence, used when no cache directory is
// configured.
type Memory struct {
	lru *expirable.LRU[string, json.RawMessage]
}

// NewMemory creates an in-memory store whose entries expire after ttl.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{lru: expirable.NewLRU[string, json.RawMessage](frontSize, nil, ttl)}
}

func (m *Memory) Get(bucket, key string, v any) (bool, error) {
	data, ok := m.lru.Get(frontKey(bucket, key))
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, v)
}

func (m *Memory) Set(bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal value: %w", err)
	}
	m.lru.Add(frontKey(bucket, key), data)
	return nil
}

func (m *Memory) Delete(bucket, key string) error {
	m.lru.Remove(frontKey(bucket, key))
	return nil
}

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
