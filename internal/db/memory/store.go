// Package memory implements db.Store in process memory. It backs the "memory"
// database driver and gives repository tests a store with real atomicity
// semantics (set-if-absent, atomic increments) without a running Redis.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/datahub/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	value     []byte
	expiresAt time.Time // zero = no expiry
}

type zmember struct {
	member string
	score  float64
}

// Store is a mutex-guarded in-memory db.Store.
type Store struct {
	mu     sync.Mutex
	kv     map[string]entry
	hashes map[string]map[string]string
	lists  map[string][]string
	zsets  map[string][]zmember
	idx    map[string]*db.IndexDefinition

	// now is swappable in tests to drive TTL expiry.
	now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		kv:     make(map[string]entry),
		hashes: make(map[string]map[string]string),
		lists:  make(map[string][]string),
		zsets:  make(map[string][]zmember),
		idx:    make(map[string]*db.IndexDefinition),
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test helper.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// WaitForReady returns immediately.
func (s *Store) WaitForReady(context.Context, time.Duration) error { return nil }

// expired reports whether the entry is past its TTL. Caller holds the lock.
func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

func (s *Store) liveEntry(key string) (entry, bool) {
	e, ok := s.kv[key]
	if !ok {
		return entry{}, false
	}
	if s.expired(e) {
		delete(s.kv, key)
		return entry{}, false
	}
	return e, true
}

// Get retrieves a value by key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveEntry(key)
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Set stores a value.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = entry{value: append([]byte(nil), value...)}
	return nil
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = entry{value: append([]byte(nil), value...), expiresAt: s.now().Add(ttl)}
	return nil
}

// SetNX stores a value with a TTL only if the key is absent or expired.
func (s *Store) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveEntry(key); ok {
		return false, nil
	}
	s.kv[key] = entry{value: append([]byte(nil), value...), expiresAt: s.now().Add(ttl)}
	return true, nil
}

// IncrBy atomically increments an integer value.
func (s *Store) IncrBy(_ context.Context, key string, val int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if e, ok := s.liveEntry(key); ok {
		if _, err := fmt.Sscan(string(e.value), &cur); err != nil {
			return 0, &db.Error{Op: db.OpIncrBy, Err: fmt.Errorf("value at %s is not an integer", key)}
		}
	}
	cur += val
	s.kv[key] = entry{value: []byte(fmt.Sprint(cur))}
	return cur, nil
}

// Del deletes a key from every keyspace.
func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.kv, key)
	delete(s.hashes, key)
	delete(s.lists, key)
	delete(s.zsets, key)
	return nil
}

// Expire sets a TTL on a KV key. nx only applies when the key has no expiry.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.liveEntry(key)
	if !ok {
		return nil
	}
	if nx && !e.expiresAt.IsZero() {
		return nil
	}
	e.expiresAt = s.now().Add(ttl)
	s.kv[key] = e
	return nil
}

// HSet sets hash fields.
func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

// HGetAll returns a copy of all hash fields; empty map for a missing key.
func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

// HIncrBy atomically increments a hash field.
func (s *Store) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	var cur int64
	if raw, ok := h[field]; ok && raw != "" {
		if _, err := fmt.Sscan(raw, &cur); err != nil {
			return 0, &db.Error{Op: db.OpHIncrBy, Err: fmt.Errorf("field %s is not an integer", field)}
		}
	}
	cur += delta
	h[field] = fmt.Sprint(cur)
	return cur, nil
}

// HDel removes hash fields.
func (s *Store) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		delete(s.hashes[key], f)
	}
	return nil
}

// Exists checks key presence across keyspaces.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.liveEntry(key); ok {
		return true, nil
	}
	if h, ok := s.hashes[key]; ok && len(h) > 0 {
		return true, nil
	}
	if l, ok := s.lists[key]; ok && len(l) > 0 {
		return true, nil
	}
	if z, ok := s.zsets[key]; ok && len(z) > 0 {
		return true, nil
	}
	return false, nil
}

// RPush appends values to a list.
func (s *Store) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

// LPop removes and returns the list head.
func (s *Store) LPop(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	if len(l) == 0 {
		return "", db.ErrKeyNotFound
	}
	head := l[0]
	s.lists[key] = l[1:]
	return head, nil
}

// LIndex returns the element at index (negative counts from the tail).
func (s *Store) LIndex(_ context.Context, key string, index int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	i := index
	if i < 0 {
		i += int64(len(l))
	}
	if i < 0 || i >= int64(len(l)) {
		return "", db.ErrKeyNotFound
	}
	return l[i], nil
}

// LSet replaces the element at index.
func (s *Store) LSet(_ context.Context, key string, index int64, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	i := index
	if i < 0 {
		i += int64(len(l))
	}
	if i < 0 || i >= int64(len(l)) {
		return &db.Error{Op: db.OpLSet, Err: fmt.Errorf("index %d out of range", index)}
	}
	l[i] = value
	return nil
}

// LLen returns the list length.
func (s *Store) LLen(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.lists[key])), nil
}

// LRange returns elements between start and stop inclusive.
func (s *Store) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.lists[key]
	n := int64(len(l))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, l[start:stop+1])
	return out, nil
}

// ZAdd adds or updates a scored member.
func (s *Store) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zaddLocked(key, score, member, false)
	return nil
}

// ZAddNX adds a member only if absent.
func (s *Store) ZAddNX(_ context.Context, key string, score float64, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.zaddLocked(key, score, member, true), nil
}

func (s *Store) zaddLocked(key string, score float64, member string, nx bool) bool {
	z := s.zsets[key]
	for i := range z {
		if z[i].member == member {
			if nx {
				return false
			}
			z[i].score = score
			return false
		}
	}
	s.zsets[key] = append(z, zmember{member: member, score: score})
	return true
}

// ZRem removes a member.
func (s *Store) ZRem(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z := s.zsets[key]
	for i := range z {
		if z[i].member == member {
			s.zsets[key] = append(z[:i], z[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// ZRangeByScore returns up to limit members with score <= max, lowest first.
func (s *Store) ZRangeByScore(_ context.Context, key string, max float64, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	matched := make([]zmember, 0)
	for _, m := range s.zsets[key] {
		if m.score <= max {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].score < matched[j].score })
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]string, len(matched))
	for i, m := range matched {
		out[i] = m.member
	}
	return out, nil
}

// ZCard returns the number of members.
func (s *Store) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.zsets[key])), nil
}

// CreateIndex records an index definition. The memory driver keeps the
// registry for existence checks only; there is no search engine behind it.
func (s *Store) CreateIndex(_ context.Context, def *db.IndexDefinition) error {
	if def == nil || def.Name == "" {
		return fmt.Errorf("index name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idx[def.Name]; ok {
		return db.ErrIndexExists
	}
	s.idx[def.Name] = def
	return nil
}

// DropIndex removes an index definition.
func (s *Store) DropIndex(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.idx[name]; !ok {
		return db.ErrIndexNotFound
	}
	delete(s.idx, name)
	return nil
}

// IndexExists checks index presence.
func (s *Store) IndexExists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.idx[name]
	return ok, nil
}
