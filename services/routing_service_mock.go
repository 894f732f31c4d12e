package services

import (
	"sync"
	"time"
)

// MockRoutingService returns canned ETAs for testing
type MockRoutingService struct {
	eta   *ETA
	err   error
	calls int
	mu    sync.Mutex
}

// NewMockRoutingService creates a mock returning a fixed 12-minute estimate
func NewMockRoutingService() *MockRoutingService {
	return &MockRoutingService{
		eta: &ETA{Duration: 12 * time.Minute, Minutes: 12, Distance: "4.2 km"},
	}
}

// SetAsMockForTesting sets this mock as the global routing provider for testing
func (m *MockRoutingService) SetAsMockForTesting() {
	SetRoutingService(m)
}

// Return makes the mock return the given estimate
func (m *MockRoutingService) Return(eta *ETA) {
	m.mu.Lock()
	m.eta = eta
	m.err = nil
	m.mu.Unlock()
}

// FailWith makes the mock return err
func (m *MockRoutingService) FailWith(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// ETA returns the canned estimate
func (m *MockRoutingService) ETA(origin, dest Coordinates) (*ETA, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.eta, nil
}

// Calls returns how many times ETA was requested
func (m *MockRoutingService) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
