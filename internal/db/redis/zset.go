package redis

import (
	"context"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/datahub/internal/db"
)

// ZAdd adds or updates a scored member.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZAddNX adds a scored member only if absent (ZADD NX). Returns true when the
// member was added. Existing members keep their score, which makes this the
// claim primitive for per-entity worker exclusivity.
func (s *Store) ZAddNX(ctx context.Context, key string, score float64, member string) (bool, error) {
	cmd := s.b().Zadd().Key(key).Nx().ScoreMember().ScoreMember(score, member).Build()
	added, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpZAdd, Err: err}
	}
	return added > 0, nil
}

// ZRem removes a member. Returns true when the member existed.
func (s *Store) ZRem(ctx context.Context, key, member string) (bool, error) {
	cmd := s.b().Zrem().Key(key).Member(member).Build()
	removed, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return false, &db.Error{Op: db.OpZRem, Err: err}
	}
	return removed > 0, nil
}

// ZRangeByScore returns up to limit members with score <= max, lowest first.
// limit <= 0 means no limit.
func (s *Store) ZRangeByScore(ctx context.Context, key string, max float64, limit int) ([]string, error) {
	maxArg := strconv.FormatFloat(max, 'f', -1, 64)

	var cmd rueidis.Completed
	if limit > 0 {
		cmd = s.b().Zrangebyscore().Key(key).Min("-inf").Max(maxArg).Limit(0, int64(limit)).Build()
	} else {
		cmd = s.b().Zrangebyscore().Key(key).Min("-inf").Max(maxArg).Build()
	}

	members, err := s.do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRangeByScore, Err: err}
	}
	return members, nil
}

// ZCard returns the number of members in a sorted set.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Zcard().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCard, Err: err}
	}
	return n, nil
}
