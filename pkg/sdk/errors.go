package datahub

import "github.com/kailas-cloud/datahub/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound          = domain.ErrNotFound
	ErrAlreadyExists     = domain.ErrAlreadyExists
	ErrDedupUnavailable  = domain.ErrDedupUnavailable
	ErrUnsupportedFormat = domain.ErrUnsupportedFormat
	ErrUnparsable        = domain.ErrUnparsable
)
