package learner

import (
	"sync"
	"time"
)

// Metrics counts cycle outcomes in memory.
type Metrics struct {
	mu        sync.Mutex
	total     int
	completed int
	skipped   int
	failed    int
	last      Outcome
	lastTime  time.Time
	lastModel string
}

// MetricsSnapshot is a point-in-time copy of the cycle counters.
type MetricsSnapshot struct {
	TotalCycles int       `json:"total_cycles"`
	Completed   int       `json:"completed"`
	Skipped     int       `json:"skipped"`
	Failed      int       `json:"failed"`
	LastOutcome Outcome   `json:"last_outcome,omitempty"`
	LastCycleAt time.Time `json:"last_cycle_at,omitempty"`
	LastModel   string    `json:"last_model,omitempty"`
}

func (m *Metrics) record(result *CycleResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total++
	switch result.Outcome {
	case OutcomeCompleted:
		m.completed++
		m.lastModel = result.ModelName
	case OutcomeFailed:
		m.failed++
	default:
		m.skipped++
	}
	m.last = result.Outcome
	m.lastTime = result.StartedAt
}

func (m *Metrics) snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MetricsSnapshot{
		TotalCycles: m.total,
		Completed:   m.completed,
		Skipped:     m.skipped,
		Failed:      m.failed,
		LastOutcome: m.last,
		LastCycleAt: m.lastTime,
		LastModel:   m.lastModel,
	}
}
