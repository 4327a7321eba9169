// Package health aggregates component checks for the health endpoint.
package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure or stuck work needing attention.
	Degraded Status = "degraded"
)

// CheckResult represents an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db     DBPinger
	queues map[string]DeadLetterCounter
}

// New creates a Service.
func New(db DBPinger) *Service {
	return &Service{db: db, queues: map[string]DeadLetterCounter{}}
}

// WithQueue adds a dead-letter check for a named queue. Parked tasks mean
// some entity's projection is stuck and the service reports degraded.
func (s *Service) WithQueue(name string, q DeadLetterCounter) *Service {
	s.queues[name] = q
	return s
}

// Check runs all component checks.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if err := s.db.Ping(ctx); err != nil {
		checks["database"] = CheckError
	} else {
		checks["database"] = CheckOK
	}

	for name, q := range s.queues {
		n, err := q.DeadLetterCount(ctx)
		if err != nil || n > 0 {
			checks["dead_letters_"+name] = CheckError
		} else {
			checks["dead_letters_"+name] = CheckOK
		}
	}

	status := Healthy
	for _, v := range checks {
		if v == CheckError {
			status = Degraded
			break
		}
	}

	return Report{Status: status, Checks: checks}
}
