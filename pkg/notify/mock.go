package notify

import "sync"

// Mock records alerts for verification in tests.
type Mock struct {
	mu     sync.Mutex
	alerts []Alert
}

// NewMock creates an empty mock notifier.
func NewMock() *Mock {
	return &Mock{}
}

// Notify records the alert.
func (m *Mock) Notify(a Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, a)
}

// Alerts returns a copy of everything recorded so far.
func (m *Mock) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Count returns how many alerts of the given kind were recorded.
func (m *Mock) Count(kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, a := range m.alerts {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Reset clears recorded alerts.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = nil
}
