package observability

import (
	"sync"
)

// Metrics provides basic in-memory counters over bot activity.
type Metrics struct {
	mu          sync.Mutex
	updateCount map[string]int64
	errorCount  map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		updateCount: make(map[string]int64),
		errorCount:  make(map[string]int64),
	}
}

// RecordUpdate increments the counter for one handled update kind
// (message, callback).
func (m *Metrics) RecordUpdate(kind string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCount[kind]++
}

// RecordError increments the counter for one failure code.
func (m *Metrics) RecordError(code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[code]++
}

// Snapshot copies current counters for the stats view.
func (m *Metrics) Snapshot() (updates, errors map[string]int64) {
	if m == nil {
		return nil, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	updates = make(map[string]int64, len(m.updateCount))
	for k, v := range m.updateCount {
		updates[k] = v
	}
	errors = make(map[string]int64, len(m.errorCount))
	for k, v := range m.errorCount {
		errors[k] = v
	}
	return updates, errors
}
