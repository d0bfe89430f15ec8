package health

import (
	"log/slog"
	"sync"
	"time"

	"modbusgw/pkg/models"
)

// FailureRecord tracks the current run of gateway failures.
type FailureRecord struct {
	FirstTime time.Time
	LastTime  time.Time
	Count     int
}

// Status is a point-in-time view of gateway health.
type Status struct {
	Healthy             bool      `json:"healthy"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure,omitzero"`
}

// HealthMonitor marks the gateway degraded once threshold failures land inside
// window without a successful invocation in between. Any success clears it.
type HealthMonitor struct {
	mu        sync.Mutex
	failures  FailureRecord
	window    time.Duration
	threshold int
	now       func() time.Time
}

// NewHealthMonitor creates a new HealthMonitor instance.
func NewHealthMonitor(windowMin int, threshold int) *HealthMonitor {
	if threshold < 1 {
		threshold = 1
	}
	return &HealthMonitor{
		window:    time.Duration(windowMin) * time.Minute,
		threshold: threshold,
		now:       time.Now,
	}
}

// ObserveInvocation updates the failure count from a finished invocation.
func (hm *HealthMonitor) ObserveInvocation(status string, _ time.Duration) {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	if status != models.StatusError {
		if hm.failures.Count >= hm.threshold {
			slog.Info("Gateway recovered", "component", "HealthMonitor", "failures", hm.failures.Count)
		}
		hm.failures = FailureRecord{}
		return
	}

	now := hm.now()
	if hm.failures.Count == 0 || now.Sub(hm.failures.FirstTime) > hm.window {
		// Outside window: start a new run
		hm.failures = FailureRecord{FirstTime: now, LastTime: now, Count: 1}
	} else {
		hm.failures.Count++
		hm.failures.LastTime = now
	}

	if hm.failures.Count == hm.threshold {
		slog.Warn("Gateway exceeded failure threshold",
			"component", "HealthMonitor",
			"count", hm.failures.Count,
			"window", hm.window.String(),
		)
	}
}

// Status reports whether the gateway is below the failure threshold.
func (hm *HealthMonitor) Status() Status {
	hm.mu.Lock()
	defer hm.mu.Unlock()

	return Status{
		Healthy:             hm.failures.Count < hm.threshold,
		ConsecutiveFailures: hm.failures.Count,
		LastFailure:         hm.failures.LastTime,
	}
}
