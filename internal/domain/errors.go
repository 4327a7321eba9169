// Package domain holds shared sentinel errors for the catalog core.
package domain

import "errors"

var (
	// ErrNotFound signals a missing catalog entity.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate catalog entity.
	ErrAlreadyExists = errors.New("already exists")
	// ErrDedupUnavailable signals that the idempotency-key store is unreachable.
	// Callers must fail closed: no counter mutation while dedup status is unknown.
	ErrDedupUnavailable = errors.New("dedup store unavailable")
	// ErrUnparsable signals a data-quality failure: the uploaded file cannot be
	// parsed. Terminal for the enrichment run, never retried automatically.
	ErrUnparsable = errors.New("file not parsable")
	// ErrUnsupportedFormat signals an upload with a file format the enrichment
	// pipeline does not understand.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrMalformedTask signals a projection task whose payload cannot be decoded.
	ErrMalformedTask = errors.New("malformed task")
	// ErrQueueEmpty signals that no task is currently eligible for delivery.
	ErrQueueEmpty = errors.New("queue empty")
)
