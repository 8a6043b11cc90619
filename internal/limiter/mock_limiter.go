package limiter

// MockLimiter is a test double for the Limiter interface
// It never blocks and records interactions for verification in tests
type MockLimiter struct {
	// Track method calls for verification in tests
	AdmitCalls  int  // Number of times Admit() was called
	CloseCalled bool // Whether Close() was called

	// OnAdmit runs inside Admit (optional), e.g. to record call ordering
	OnAdmit func()

	// Control error scenarios
	CloseError error // Error to return from Close(), if any
}

// NewMockLimiter creates a mock limiter that admits everything immediately
func NewMockLimiter() *MockLimiter {
	return &MockLimiter{}
}

// Admit implements the Limiter interface
func (m *MockLimiter) Admit() {
	m.AdmitCalls++
	if m.OnAdmit != nil {
		m.OnAdmit()
	}
}

// Close implements the Limiter interface
// Tracks that close was called and returns configured error if any
func (m *MockLimiter) Close() error {
	m.CloseCalled = true
	return m.CloseError
}

// Factory returns a Factory always handing out this mock
func (m *MockLimiter) Factory() Factory {
	return func() (Limiter, error) {
		return m, nil
	}
}
