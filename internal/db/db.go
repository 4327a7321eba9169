// Package db defines the storage contract shared by the Redis and in-memory drivers.
package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	HashStore
	ListStore
	SortedSetStore
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// KVStore provides simple key-value operations. SetNX is the atomic
// set-if-absent-with-TTL primitive the dedup counter is built on.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (created bool, err error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Del(ctx context.Context, key string) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// HashStore provides hash-based operations. HIncrBy is the atomic aggregate
// increment used for counters on both primary entities and search documents.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ListStore provides FIFO list operations backing per-entity task queues.
type ListStore interface {
	RPush(ctx context.Context, key string, values ...string) error
	LPop(ctx context.Context, key string) (string, error)
	LIndex(ctx context.Context, key string, index int64) (string, error)
	LSet(ctx context.Context, key string, index int64, value string) error
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
}

// SortedSetStore provides scored-set operations backing the queue's ready and
// claimed sets, scored by eligibility/deadline time.
type SortedSetStore interface {
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZAddNX(ctx context.Context, key string, score float64, member string) (added bool, err error)
	ZRem(ctx context.Context, key, member string) (removed bool, err error)
	ZRangeByScore(ctx context.Context, key string, max float64, limit int) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// FieldType is an FT index field type.
type FieldType string

const (
	// FieldTag is an exact-match tag field.
	FieldTag FieldType = "tag"
	// FieldText is a full-text field.
	FieldText FieldType = "text"
	// FieldNumeric is a numeric range field.
	FieldNumeric FieldType = "numeric"
	// FieldVector is an HNSW vector field.
	FieldVector FieldType = "vector"
)

// IndexField describes a single FT index field.
type IndexField struct {
	Name      string
	Type      FieldType
	VectorDim int // vector fields only
}

// IndexDefinition describes an FT index over hash keys with a common prefix.
type IndexDefinition struct {
	Name   string
	Prefix string
	Fields []IndexField
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}
