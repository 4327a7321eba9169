package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op constants map to Redis command names for error context.
const (
	OpCreateIndex   = "FT.CREATE"
	OpDropIndex     = "FT.DROPINDEX"
	OpIndexInfo     = "FT.INFO"
	OpGet           = "GET"
	OpSet           = "SET"
	OpIncrBy        = "INCRBY"
	OpExpire        = "EXPIRE"
	OpDel           = "DEL"
	OpHSet          = "HSET"
	OpHGetAll       = "HGETALL"
	OpHIncrBy       = "HINCRBY"
	OpHDel          = "HDEL"
	OpExists        = "EXISTS"
	OpRPush         = "RPUSH"
	OpLPop          = "LPOP"
	OpLIndex        = "LINDEX"
	OpLSet          = "LSET"
	OpLLen          = "LLEN"
	OpLRange        = "LRANGE"
	OpZAdd          = "ZADD"
	OpZRem          = "ZREM"
	OpZRangeByScore = "ZRANGEBYSCORE"
	OpZCard         = "ZCARD"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
