package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"floorwatch/internal/clock"
	"floorwatch/internal/domain"
)

// ErrNotFound indicates a lifecycle command for an unknown alert ID.
var ErrNotFound = errors.New("alert not found")

// Manager owns alert records and their lifecycle transitions.
// Params: alert registry map guarded by one RWMutex and injected clock.
// Returns: the single mutation point for alerts after creation. Alerts are
// never deleted here; retention is a persistence concern.
type Manager struct {
	mu     sync.RWMutex
	alerts map[string]*domain.Alert
	clk    clock.Clock
}

// NewManager creates an empty alert registry.
// Params: clock (RealClock when nil).
// Returns: initialized manager.
func NewManager(clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{
		alerts: make(map[string]*domain.Alert),
		clk:    clk,
	}
}

// Register stores one freshly created alert.
// Params: alert pointer from the rule evaluator.
// Returns: alert owned by the registry from now on.
func (m *Manager) Register(alert *domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts[alert.ID] = alert
}

// Get returns a detached copy of one alert.
// Params: alert ID.
// Returns: alert clone or ErrNotFound.
func (m *Manager) Get(alertID string) (domain.Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	alert, ok := m.alerts[alertID]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %q: %w", alertID, ErrNotFound)
	}
	return alert.Clone(), nil
}

// Acknowledge transitions CREATED or SNOOZED alerts to ACKNOWLEDGED.
// Params: alert ID and optional actor identifier.
// Returns: updated alert clone, or ErrNotFound. A resolved alert is an
// idempotent no-op; other states are left unchanged.
func (m *Manager) Acknowledge(alertID, actorID string) (domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[alertID]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %q: %w", alertID, ErrNotFound)
	}
	if alert.State == domain.AlertStateCreated || alert.State == domain.AlertStateSnoozed {
		now := m.clk.Now()
		alert.State = domain.AlertStateAcknowledged
		alert.AcknowledgedAt = &now
		alert.AcknowledgedBy = actorID
	}
	return alert.Clone(), nil
}

// Snooze mutes one non-resolved alert until a deadline.
// Params: alert ID and snooze length in minutes.
// Returns: updated alert clone, or ErrNotFound. A resolved alert is an
// idempotent no-op.
func (m *Manager) Snooze(alertID string, minutes int) (domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[alertID]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %q: %w", alertID, ErrNotFound)
	}
	if alert.State != domain.AlertStateResolved {
		until := m.clk.Now().Add(time.Duration(minutes) * time.Minute)
		alert.State = domain.AlertStateSnoozed
		alert.SnoozedUntil = &until
	}
	return alert.Clone(), nil
}

// Resolve transitions one alert into the terminal RESOLVED state.
// Params: alert ID.
// Returns: updated alert clone, or ErrNotFound. Resolving twice keeps the
// first resolution timestamp.
func (m *Manager) Resolve(alertID string) (domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[alertID]
	if !ok {
		return domain.Alert{}, fmt.Errorf("alert %q: %w", alertID, ErrNotFound)
	}
	if alert.State != domain.AlertStateResolved {
		now := m.clk.Now()
		alert.State = domain.AlertStateResolved
		alert.ResolvedAt = &now
	}
	return alert.Clone(), nil
}

// AppendNotification appends one delivery outcome to an alert's history.
// Params: alert ID and notification record.
// Returns: history grown by one entry; unknown IDs are ignored because the
// alert may belong to a simulation that was never registered.
func (m *Manager) AppendNotification(alertID string, record domain.NotificationRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alert, ok := m.alerts[alertID]
	if !ok {
		return
	}
	alert.NotificationsSent = append(alert.NotificationsSent, record)
}

// Len counts registered alerts.
// Params: none.
// Returns: registry size.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.alerts)
}
