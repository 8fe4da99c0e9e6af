// Package resilience provides the failure tracking and retry policies used
// around external service calls and background jobs.
package resilience

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// FailureTracker counts consecutive failures against an external service and
// raises a degraded flag once a threshold is crossed. A degraded service is
// never a reason to abort an import — callers treat it as "no result" — but
// the flag is surfaced for alerting and in status payloads.
type FailureTracker struct {
	service   string
	threshold int

	mu           sync.Mutex
	consecutive  int
	degraded     bool
	lastFailure  time.Time
	onThreshold  func(service string, failures int)
	totalFailure int64
}

// NewFailureTracker creates a tracker that flags the service as degraded
// after threshold consecutive failures.
func NewFailureTracker(service string, threshold int) *FailureTracker {
	if threshold <= 0 {
		threshold = 5
	}
	return &FailureTracker{service: service, threshold: threshold}
}

// OnThreshold registers a callback fired each time the consecutive-failure
// count reaches the threshold.
func (f *FailureTracker) OnThreshold(fn func(service string, failures int)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onThreshold = fn
}

// RecordFailure increments the consecutive-failure count.
func (f *FailureTracker) RecordFailure() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.consecutive++
	f.totalFailure++
	f.lastFailure = time.Now()

	if f.consecutive >= f.threshold && !f.degraded {
		f.degraded = true
		zap.L().Warn("external service degraded",
			zap.String("service", f.service),
			zap.Int("consecutive_failures", f.consecutive),
		)
		if f.onThreshold != nil {
			f.onThreshold(f.service, f.consecutive)
		}
	}
}

// RecordSuccess resets the consecutive-failure count and clears the
// degraded flag.
func (f *FailureTracker) RecordSuccess() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.degraded {
		zap.L().Info("external service recovered", zap.String("service", f.service))
	}
	f.consecutive = 0
	f.degraded = false
}

// Service returns the tracked service name.
func (f *FailureTracker) Service() string {
	return f.service
}

// Degraded reports whether the service is currently flagged.
func (f *FailureTracker) Degraded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.degraded
}

// Counters returns the consecutive and lifetime failure counts for
// observability.
func (f *FailureTracker) Counters() (consecutive int, total int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.consecutive, f.totalFailure
}
