// Package queue is a durable, per-entity-ordered task outbox on top of the
// storage primitives: one FIFO list per entity, a ready set scored by
// eligibility time, and a claimed set scored by lease deadline. An entity's
// tasks are only ever processed from the head of its list, so enqueue order
// is delivery order; the claimed set's add-if-absent is the claim primitive
// that keeps one entity off two workers at once.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/datahub/internal/db"
	"github.com/kailas-cloud/datahub/internal/domain/projection"
)

// Config tunes delivery behavior.
type Config struct {
	// MaxAttempts is the retry ceiling: a task failing this many times is
	// dead-lettered instead of retried again.
	MaxAttempts int
	// BackoffBase is the redelivery delay after the first failure; doubled
	// per attempt up to BackoffCap.
	BackoffBase time.Duration
	BackoffCap  time.Duration
	// VisibilityTimeout is the claim lease: a worker that neither acks nor
	// nacks within it loses the entity to redelivery.
	VisibilityTimeout time.Duration
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 8
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = 500 * time.Millisecond
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 30 * time.Second
	}
	if c.VisibilityTimeout <= 0 {
		c.VisibilityTimeout = 2 * time.Minute
	}
}

// store is the consumer interface for queue storage (ISP).
type store interface {
	RPush(ctx context.Context, key string, values ...string) error
	LPop(ctx context.Context, key string) (string, error)
	LIndex(ctx context.Context, key string, index int64) (string, error)
	LSet(ctx context.Context, key string, index int64, value string) error
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZAddNX(ctx context.Context, key string, score float64, member string) (bool, error)
	ZRem(ctx context.Context, key, member string) (bool, error)
	ZRangeByScore(ctx context.Context, key string, max float64, limit int) ([]string, error)
	ZCard(ctx context.Context, key string) (int64, error)
}

// Repo is a named durable task queue. Separate names give independent
// keyspaces; the projection outbox and the upload-completed signal queue are
// two instances of this type.
type Repo struct {
	store  store
	prefix string
	name   string
	cfg    Config
	now    func() time.Time
}

// New creates a queue repository.
func New(s store, prefix, name string, cfg Config) *Repo {
	cfg.ApplyDefaults()
	return &Repo{store: s, prefix: prefix, name: name, cfg: cfg, now: time.Now}
}

// WithClock overrides the time source. Test helper.
func (r *Repo) WithClock(now func() time.Time) *Repo {
	r.now = now
	return r
}

// Enqueue appends a task to its entity's FIFO and marks the entity ready.
// Callers invoke this only after their primary-store mutation has committed.
func (r *Repo) Enqueue(ctx context.Context, t projection.Task) error {
	if err := t.Validate(); err != nil {
		return err
	}
	data, err := t.Marshal()
	if err != nil {
		return err
	}
	if err := r.store.RPush(ctx, r.tasksKey(t.EntityID), data); err != nil {
		return fmt.Errorf("enqueue %s: %w", t.ID, err)
	}
	// NX keeps an existing (possibly backed-off) score: a new task never
	// bypasses the head task's retry delay.
	if _, err := r.store.ZAddNX(ctx, r.readyKey(), r.score(r.now()), t.EntityID); err != nil {
		return fmt.Errorf("mark ready %s: %w", t.EntityID, err)
	}
	return nil
}

// DequeueBatch claims up to max entities and returns each one's head task.
// Two tasks for the same entity are never in flight simultaneously.
func (r *Repo) DequeueBatch(ctx context.Context, max int) ([]projection.Task, error) {
	if max <= 0 {
		max = 10
	}
	now := r.now()
	candidates, err := r.store.ZRangeByScore(ctx, r.readyKey(), r.score(now), max)
	if err != nil {
		return nil, fmt.Errorf("scan ready set: %w", err)
	}

	tasks := make([]projection.Task, 0, len(candidates))
	for _, entityID := range candidates {
		claimed, err := r.store.ZAddNX(ctx, r.claimedKey(), r.score(now.Add(r.cfg.VisibilityTimeout)), entityID)
		if err != nil {
			return tasks, fmt.Errorf("claim %s: %w", entityID, err)
		}
		if !claimed {
			// Another worker holds this entity.
			continue
		}
		if _, err := r.store.ZRem(ctx, r.readyKey(), entityID); err != nil {
			return tasks, fmt.Errorf("unready %s: %w", entityID, err)
		}

		head, err := r.store.LIndex(ctx, r.tasksKey(entityID), 0)
		if err != nil {
			if errors.Is(err, db.ErrKeyNotFound) {
				// Empty list left behind; release the claim.
				if _, err := r.store.ZRem(ctx, r.claimedKey(), entityID); err != nil {
					return tasks, fmt.Errorf("release %s: %w", entityID, err)
				}
				continue
			}
			return tasks, fmt.Errorf("peek %s: %w", entityID, err)
		}

		t, err := projection.Unmarshal(head)
		if err != nil {
			// Undecodable head blocks its entity; move it straight to the
			// dead-letter list rather than poisoning the loop.
			if dlErr := r.deadLetterHead(ctx, entityID, head); dlErr != nil {
				return tasks, dlErr
			}
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Ack removes the task and releases its entity for the next queued task.
// An ack arriving after the lease expired and another worker settled the task
// is a no-op: the entity (and any successor task) belongs to that worker now.
func (r *Repo) Ack(ctx context.Context, t projection.Task) error {
	match, err := r.headIs(ctx, t.EntityID, t.ID)
	if err != nil {
		return fmt.Errorf("ack peek %s: %w", t.ID, err)
	}
	if !match {
		return nil
	}
	if _, err := r.store.LPop(ctx, r.tasksKey(t.EntityID)); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("ack pop %s: %w", t.ID, err)
	}
	return r.release(ctx, t.EntityID, r.now())
}

// Nack records the failure and schedules redelivery with exponential backoff,
// or dead-letters the task once the retry ceiling is reached. Returns true
// when the task was dead-lettered.
func (r *Repo) Nack(ctx context.Context, t projection.Task, cause error) (bool, error) {
	match, err := r.headIs(ctx, t.EntityID, t.ID)
	if err != nil {
		return false, fmt.Errorf("nack peek %s: %w", t.ID, err)
	}
	if !match {
		// Settled by another worker after this one's lease expired.
		return false, nil
	}

	t.Attempts++
	if cause != nil {
		t.LastError = cause.Error()
	}

	if t.Attempts >= r.cfg.MaxAttempts {
		if _, err := r.store.LPop(ctx, r.tasksKey(t.EntityID)); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
			return false, fmt.Errorf("dead-letter pop %s: %w", t.ID, err)
		}
		data, err := t.Marshal()
		if err != nil {
			return false, err
		}
		if err := r.store.RPush(ctx, r.deadKey(), data); err != nil {
			return false, fmt.Errorf("dead-letter push %s: %w", t.ID, err)
		}
		return true, r.release(ctx, t.EntityID, r.now())
	}

	data, err := t.Marshal()
	if err != nil {
		return false, err
	}
	if err := r.store.LSet(ctx, r.tasksKey(t.EntityID), 0, data); err != nil {
		return false, fmt.Errorf("nack update %s: %w", t.ID, err)
	}

	delay := projection.Backoff(t.Attempts, r.cfg.BackoffBase, r.cfg.BackoffCap)
	if _, err := r.store.ZRem(ctx, r.claimedKey(), t.EntityID); err != nil {
		return false, fmt.Errorf("nack release %s: %w", t.EntityID, err)
	}
	if err := r.store.ZAdd(ctx, r.readyKey(), r.score(r.now().Add(delay)), t.EntityID); err != nil {
		return false, fmt.Errorf("nack reschedule %s: %w", t.EntityID, err)
	}
	return false, nil
}

// RecoverStale re-readies entities whose claim lease expired (worker crash or
// hang). At-least-once: the head task will be redelivered.
func (r *Repo) RecoverStale(ctx context.Context) (int, error) {
	now := r.now()
	expired, err := r.store.ZRangeByScore(ctx, r.claimedKey(), r.score(now), 0)
	if err != nil {
		return 0, fmt.Errorf("scan claimed set: %w", err)
	}
	recovered := 0
	for _, entityID := range expired {
		removed, err := r.store.ZRem(ctx, r.claimedKey(), entityID)
		if err != nil {
			return recovered, fmt.Errorf("recover %s: %w", entityID, err)
		}
		if !removed {
			continue
		}
		if err := r.store.ZAdd(ctx, r.readyKey(), r.score(now), entityID); err != nil {
			return recovered, fmt.Errorf("re-ready %s: %w", entityID, err)
		}
		recovered++
	}
	return recovered, nil
}

// DeadLetters returns all dead-lettered tasks, oldest first. Never
// auto-deleted; an operator inspects and clears them.
func (r *Repo) DeadLetters(ctx context.Context) ([]projection.Task, error) {
	raw, err := r.store.LRange(ctx, r.deadKey(), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read dead letters: %w", err)
	}
	tasks := make([]projection.Task, 0, len(raw))
	for _, data := range raw {
		t, err := projection.Unmarshal(data)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// DeadLetterCount returns the dead-letter depth for alerting.
func (r *Repo) DeadLetterCount(ctx context.Context) (int64, error) {
	return r.store.LLen(ctx, r.deadKey())
}

// Depth returns the number of entities with pending or in-flight tasks.
func (r *Repo) Depth(ctx context.Context) (int64, error) {
	ready, err := r.store.ZCard(ctx, r.readyKey())
	if err != nil {
		return 0, fmt.Errorf("ready depth: %w", err)
	}
	claimed, err := r.store.ZCard(ctx, r.claimedKey())
	if err != nil {
		return 0, fmt.Errorf("claimed depth: %w", err)
	}
	return ready + claimed, nil
}

// release drops the claim and re-readies the entity if more tasks remain.
func (r *Repo) release(ctx context.Context, entityID string, now time.Time) error {
	if _, err := r.store.ZRem(ctx, r.claimedKey(), entityID); err != nil {
		return fmt.Errorf("release claim %s: %w", entityID, err)
	}
	n, err := r.store.LLen(ctx, r.tasksKey(entityID))
	if err != nil {
		return fmt.Errorf("release len %s: %w", entityID, err)
	}
	if n > 0 {
		if err := r.store.ZAdd(ctx, r.readyKey(), r.score(now), entityID); err != nil {
			return fmt.Errorf("release re-ready %s: %w", entityID, err)
		}
		return nil
	}
	if _, err := r.store.ZRem(ctx, r.readyKey(), entityID); err != nil {
		return fmt.Errorf("release unready %s: %w", entityID, err)
	}
	return nil
}

// headIs reports whether the head of the entity's list is still the given
// task. A mismatch means the task was already settled from under a lost lease.
func (r *Repo) headIs(ctx context.Context, entityID, taskID string) (bool, error) {
	head, err := r.store.LIndex(ctx, r.tasksKey(entityID), 0)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	t, err := projection.Unmarshal(head)
	if err != nil {
		return false, nil
	}
	return t.ID == taskID, nil
}

func (r *Repo) deadLetterHead(ctx context.Context, entityID, raw string) error {
	if _, err := r.store.LPop(ctx, r.tasksKey(entityID)); err != nil && !errors.Is(err, db.ErrKeyNotFound) {
		return fmt.Errorf("drop malformed head %s: %w", entityID, err)
	}
	if err := r.store.RPush(ctx, r.deadKey(), raw); err != nil {
		return fmt.Errorf("dead-letter malformed head %s: %w", entityID, err)
	}
	return r.release(ctx, entityID, r.now())
}

func (r *Repo) score(t time.Time) float64 {
	return float64(t.UnixMilli())
}

func (r *Repo) tasksKey(entityID string) string {
	return fmt.Sprintf("%sq:%s:tasks:%s", r.prefix, r.name, entityID)
}
func (r *Repo) readyKey() string   { return fmt.Sprintf("%sq:%s:ready", r.prefix, r.name) }
func (r *Repo) claimedKey() string { return fmt.Sprintf("%sq:%s:claimed", r.prefix, r.name) }
func (r *Repo) deadKey() string    { return fmt.Sprintf("%sq:%s:dead", r.prefix, r.name) }
