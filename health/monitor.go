package health

import (
	"slices"
	"sync"
	"time"
)

// Monitor tracks health of multiple services in a thread-safe manner
type Monitor struct {
	mu       sync.RWMutex
	statuses map[string]Status
	checks   map[string]Check
}

// NewMonitor creates a new health monitor
func NewMonitor() *Monitor {
	return &Monitor{
		statuses: make(map[string]Status),
		checks:   make(map[string]Check),
	}
}

// Register adds a check that Refresh evaluates under name
func (m *Monitor) Register(name string, check Check) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checks[name] = check
}

// Update updates the health status for a named service
func (m *Monitor) Update(name string, status Status) {
	m.mu.Lock()
	defer m.mu.Unlock()

	status.Component = name
	if status.Timestamp.IsZero() {
		status.Timestamp = time.Now()
	}
	m.statuses[name] = status
}

// Get retrieves the health status for a named service
func (m *Monitor) Get(name string) (Status, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, exists := m.statuses[name]
	return status, exists
}

// Remove removes a service and its check from monitoring
func (m *Monitor) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.statuses, name)
	delete(m.checks, name)
}

// Refresh runs every registered check and stores the results. Checks run
// without the monitor lock held.
func (m *Monitor) Refresh() {
	m.mu.RLock()
	checks := make(map[string]Check, len(m.checks))
	for name, check := range m.checks {
		checks[name] = check
	}
	m.mu.RUnlock()

	for name, check := range checks {
		m.Update(name, check())
	}
}

// AggregateHealth returns an aggregated health status for the entire system.
// Sub-statuses are ordered by name.
func (m *Monitor) AggregateHealth(systemName string) Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.statuses))
	for name := range m.statuses {
		names = append(names, name)
	}
	slices.Sort(names)

	subStatuses := make([]Status, 0, len(names))
	for _, name := range names {
		subStatuses = append(subStatuses, m.statuses[name])
	}
	return Aggregate(systemName, subStatuses)
}

// Probe refreshes all checks and reports whether the system can serve. A
// degraded system still serves. The signature matches metric.HealthFunc.
func (m *Monitor) Probe(systemName string) func() (bool, string) {
	return func() (bool, string) {
		m.Refresh()
		s := m.AggregateHealth(systemName)
		if s.IsUnhealthy() {
			for _, sub := range s.SubStatuses {
				if sub.IsUnhealthy() {
					return false, sub.Component + ": " + sub.Message
				}
			}
			return false, s.Message
		}
		return true, s.Status
	}
}

// Count returns the number of services with a status
func (m *Monitor) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.statuses)
}
