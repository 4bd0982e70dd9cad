package notify

import (
	"context"
	"errors"
	"sync"
)

// Alert severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
	SeveritySuccess = "success"
)

// Sidebar colors for alert severities.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// Alert is an operational event posted to chat channels.
type Alert struct {
	Title    string
	Body     string
	Severity string
	Fields   []Field
}

// Field is a key-value pair shown alongside an alert.
type Field struct {
	Name  string
	Value string
	Short bool
}

// Color returns the sidebar color for the alert's severity.
func (a Alert) Color() string {
	switch a.Severity {
	case SeveritySuccess:
		return ColorSuccess
	case SeverityWarning:
		return ColorWarning
	case SeverityError:
		return ColorError
	default:
		return ColorInfo
	}
}

// Broadcaster posts alerts to an external channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, alert Alert) error
}

// Multi fans an alert out to every broadcaster. All are attempted; the
// returned error joins the individual failures.
type Multi []Broadcaster

// Broadcast implements Broadcaster.
func (m Multi) Broadcast(ctx context.Context, alert Alert) error {
	var errs []error
	for _, b := range m {
		if err := b.Broadcast(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MockBroadcaster records alerts for tests.
type MockBroadcaster struct {
	mu     sync.Mutex
	alerts []Alert
	Err    error
}

// Broadcast implements Broadcaster.
func (m *MockBroadcaster) Broadcast(_ context.Context, alert Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.alerts = append(m.alerts, alert)
	return nil
}

// Alerts returns a copy of the recorded alerts.
func (m *MockBroadcaster) Alerts() []Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}
