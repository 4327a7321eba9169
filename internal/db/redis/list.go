package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/datahub/internal/db"
)

// RPush appends values to the tail of a list.
func (s *Store) RPush(ctx context.Context, key string, values ...string) error {
	if len(values) == 0 {
		return nil
	}
	cmd := s.b().Rpush().Key(key).Element(values...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpRPush, Err: err}
	}
	return nil
}

// LPop removes and returns the head of a list.
func (s *Store) LPop(ctx context.Context, key string) (string, error) {
	cmd := s.b().Lpop().Key(key).Build()
	v, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", db.ErrKeyNotFound
		}
		return "", &db.Error{Op: db.OpLPop, Err: err}
	}
	return v, nil
}

// LIndex returns the element at the given position without removing it.
func (s *Store) LIndex(ctx context.Context, key string, index int64) (string, error) {
	cmd := s.b().Lindex().Key(key).Index(index).Build()
	v, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", db.ErrKeyNotFound
		}
		return "", &db.Error{Op: db.OpLIndex, Err: err}
	}
	return v, nil
}

// LSet replaces the element at the given position.
func (s *Store) LSet(ctx context.Context, key string, index int64, value string) error {
	cmd := s.b().Lset().Key(key).Index(index).Element(value).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpLSet, Err: err}
	}
	return nil
}

// LLen returns the length of a list; 0 for a missing key.
func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Llen().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpLLen, Err: err}
	}
	return n, nil
}

// LRange returns list elements between start and stop inclusive.
func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	cmd := s.b().Lrange().Key(key).Start(start).Stop(stop).Build()
	vals, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpLRange, Err: err}
	}
	return vals, nil
}
