package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/datahub/internal/db"
)

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreForTest(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSetNX_Created(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "dedup:view:ds-1:u-1", "1", "NX", "EX", "86400")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreForTest(c)
	created, err := s.SetNX(context.Background(), "dedup:view:ds-1:u-1", []byte("1"), 24*time.Hour)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Error("expected created=true")
	}
}

func TestSetNX_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "1", "NX", "EX", "60")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	created, err := s.SetNX(context.Background(), "k", []byte("1"), time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected created=false for existing key")
	}
}

func TestSetNX_StoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "k", "1", "NX", "EX", "60")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreForTest(c)
	if _, err := s.SetNX(context.Background(), "k", []byte("1"), time.Minute); err == nil {
		t.Fatal("expected error")
	}
}

func TestHIncrBy_ReturnsNewValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HINCRBY", "doc:ds-1", "download_count", "3")).
		Return(mock.Result(mock.RedisInt64(10)))

	s := NewStoreForTest(c)
	n, err := s.HIncrBy(context.Background(), "doc:ds-1", "download_count", 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 10 {
		t.Errorf("got %d, want 10", n)
	}
}

func TestLPop_EmptyList(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("LPOP", "q:tasks:ds-1")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreForTest(c)
	if _, err := s.LPop(context.Background(), "q:tasks:ds-1"); !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestZAddNX_ClaimSemantics(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZADD", "q:claimed", "NX", "100", "ds-1")).
		Return(mock.Result(mock.RedisInt64(1)))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("ZADD", "q:claimed", "NX", "100", "ds-1")).
		Return(mock.Result(mock.RedisInt64(0)))

	s := NewStoreForTest(c)
	added, err := s.ZAddNX(context.Background(), "q:claimed", 100, "ds-1")
	if err != nil || !added {
		t.Fatalf("first claim: added=%v err=%v", added, err)
	}
	added, err = s.ZAddNX(context.Background(), "q:claimed", 100, "ds-1")
	if err != nil || added {
		t.Fatalf("second claim should lose: added=%v err=%v", added, err)
	}
}

func TestBuildCreateArgs(t *testing.T) {
	def := &db.IndexDefinition{
		Name:   "idx:catalog",
		Prefix: "datahub:doc:",
		Fields: []db.IndexField{
			{Name: "title", Type: db.FieldText},
			{Name: "kind", Type: db.FieldTag},
			{Name: "download_count", Type: db.FieldNumeric},
			{Name: "embedding", Type: db.FieldVector, VectorDim: 1024},
		},
	}

	args, err := buildCreateArgs(def)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{
		"idx:catalog", "ON", "HASH", "PREFIX", "1", "datahub:doc:", "SCHEMA",
		"title", "TEXT",
		"kind", "TAG",
		"download_count", "NUMERIC", "SORTABLE",
		"embedding", "VECTOR", "HNSW", "6", "TYPE", "FLOAT32", "DIM", "1024", "DISTANCE_METRIC", "COSINE",
	}
	if len(args) != len(want) {
		t.Fatalf("args length %d, want %d: %v", len(args), len(want), args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg %d: got %q, want %q", i, args[i], want[i])
		}
	}
}

func TestBuildCreateArgs_VectorNeedsDim(t *testing.T) {
	def := &db.IndexDefinition{
		Name:   "idx",
		Prefix: "p:",
		Fields: []db.IndexField{{Name: "v", Type: db.FieldVector}},
	}
	if _, err := buildCreateArgs(def); err == nil {
		t.Error("expected error for missing vector dimension")
	}
}
