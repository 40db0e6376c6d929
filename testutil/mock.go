package testutil

import (
	"context"
	"sync"
)

// MockExecutable records Start and Pause calls. StartFunc and PauseFunc
// inject errors.
type MockExecutable struct {
	mu sync.Mutex

	StartFunc func(ctx context.Context) error
	PauseFunc func() error

	running    bool
	startCalls int
	pauseCalls int
}

// NewMockExecutable creates a stopped executable
func NewMockExecutable() *MockExecutable {
	return &MockExecutable{}
}

// Start marks the executable running unless StartFunc fails
func (m *MockExecutable) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if m.StartFunc != nil {
		if err := m.StartFunc(ctx); err != nil {
			return err
		}
	}
	m.running = true
	return nil
}

// Pause marks the executable stopped unless PauseFunc fails
func (m *MockExecutable) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseCalls++
	if m.PauseFunc != nil {
		if err := m.PauseFunc(); err != nil {
			return err
		}
	}
	m.running = false
	return nil
}

// IsRunning reports whether Start succeeded more recently than Pause
func (m *MockExecutable) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Calls returns the number of Start and Pause calls
func (m *MockExecutable) Calls() (starts, pauses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls, m.pauseCalls
}
