package health

import "context"

// DBPinger checks storage availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// DeadLetterCounter reports how many tasks are parked in a queue's
// dead-letter list.
type DeadLetterCounter interface {
	DeadLetterCount(ctx context.Context) (int64, error)
}
