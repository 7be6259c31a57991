package store

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTTL applies when Options.DefaultTTL is zero.
const DefaultTTL = 60 * time.Second

// ErrKeyNotFound is returned by Update and Rename when the key is absent or expired.
var ErrKeyNotFound = errors.New("store: key not found")

// Entry is a value together with the absolute instant it expires.
type Entry struct {
	Value     Value
	ExpiresAt time.Time
}

// Item is a live entry returned by List and Lookup.
type Item struct {
	Key string
	Entry
}

// Options configures a Store.
type Options struct {
	// DefaultTTL is used by Rename and by callers that have no explicit TTL.
	DefaultTTL time.Duration
}

// Stats is a point-in-time view of store counters.
type Stats struct {
	Keys    int
	Hits    uint64
	Misses  uint64
	Expired uint64
}

// Store is a thread-safe in-memory key-value store with per-key expiry.
// Reads re-check expiry, so an expired entry is never returned even before
// the Sweeper has removed it.
type Store struct {
	mu         sync.RWMutex
	data       map[string]*Entry
	defaultTTL atomic.Int64
	now        func() time.Time // injectable for deterministic tests

	hits    atomic.Uint64
	misses  atomic.Uint64
	expired atomic.Uint64
}

// New creates an empty Store.
func New(opts Options) *Store {
	s := &Store{
		data: make(map[string]*Entry),
		now:  time.Now,
	}
	s.SetDefaultTTL(opts.DefaultTTL)
	return s
}

// DefaultTTL returns the TTL applied when none is given.
func (s *Store) DefaultTTL() time.Duration {
	return time.Duration(s.defaultTTL.Load())
}

// SetDefaultTTL changes the default TTL. A non-positive ttl restores DefaultTTL.
func (s *Store) SetDefaultTTL(ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.defaultTTL.Store(int64(ttl))
}

// Set inserts or replaces the entry for key, expiring ttl from now.
func (s *Store) Set(key string, v Value, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, v, ttl)
}

// Get returns the value for key if it exists and has not expired.
func (s *Store) Get(key string) (Value, bool) {
	s.mu.RLock()
	e, ok := s.live(key, s.now())
	var v Value
	if ok {
		v = e.Value.clone()
	}
	s.mu.RUnlock()

	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return v, ok
}

// Exists reports whether key holds a live entry.
func (s *Store) Exists(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Update replaces the value of a live key. The existence check and the write
// happen under one lock acquisition.
func (s *Store) Update(key string, v Value, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.live(key, s.now()); !ok {
		return ErrKeyNotFound
	}
	s.put(key, v, ttl)
	return nil
}

// Rename moves the value of oldKey to newKey with a fresh default TTL and
// removes oldKey. Any entry already under newKey is replaced. The read, write
// and delete happen under one lock acquisition, so concurrent readers see
// either the old key or the new key, never both or neither.
func (s *Store) Rename(oldKey, newKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(oldKey, s.now())
	if !ok {
		return ErrKeyNotFound
	}
	delete(s.data, oldKey)
	s.data[newKey] = &Entry{
		Value:     e.Value,
		ExpiresAt: s.now().Add(s.DefaultTTL()),
	}
	return nil
}

// Clear removes every entry and returns how many were held.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.data)
	s.data = make(map[string]*Entry)
	return n
}

// Evict removes every entry whose expiry is at or before now.
// It returns the number of entries removed.
func (s *Store) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.data {
		if !now.Before(e.ExpiresAt) {
			delete(s.data, key)
			removed++
		}
	}
	s.expired.Add(uint64(removed))
	return removed
}

// Lookup returns the live entry for key including its expiry.
func (s *Store) Lookup(key string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.live(key, s.now())
	if !ok {
		return Item{}, false
	}
	return Item{Key: key, Entry: Entry{Value: e.Value.clone(), ExpiresAt: e.ExpiresAt}}, true
}

// List returns all live entries sorted by key.
// Expired entries that have not yet been swept are excluded.
func (s *Store) List() []Item {
	s.mu.RLock()
	now := s.now()
	out := make([]Item, 0, len(s.data))
	for key, e := range s.data {
		if now.Before(e.ExpiresAt) {
			out = append(out, Item{Key: key, Entry: Entry{Value: e.Value.clone(), ExpiresAt: e.ExpiresAt}})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Live returns the number of unexpired entries without copying any values.
func (s *Store) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	n := 0
	for _, e := range s.data {
		if now.Before(e.ExpiresAt) {
			n++
		}
	}
	return n
}

// Count returns the number of entries held, including expired ones not yet swept.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Stats returns the current counters.
func (s *Store) Stats() Stats {
	return Stats{
		Keys:    s.Count(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Expired: s.expired.Load(),
	}
}

// TTL returns the time left before item expires, truncated to whole seconds.
func (s *Store) TTL(item Item) time.Duration {
	left := item.ExpiresAt.Sub(s.now())
	if left < 0 {
		return 0
	}
	return left.Truncate(time.Second)
}

// put writes an entry. Callers must hold the write lock.
func (s *Store) put(key string, v Value, ttl time.Duration) {
	s.data[key] = &Entry{
		Value:     v.clone(),
		ExpiresAt: s.now().Add(ttl),
	}
}

// live returns the entry for key if it has not expired at now.
// Callers must hold at least the read lock.
func (s *Store) live(key string, now time.Time) (*Entry, bool) {
	e, ok := s.data[key]
	if !ok || !now.Before(e.ExpiresAt) {
		return nil, false
	}
	return e, true
}
