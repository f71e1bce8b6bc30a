package app

import (
	"context"
	"log/slog"
	"sync"

	"floorwatch/internal/clock"
	"floorwatch/internal/config"
	"floorwatch/internal/domain"
	"floorwatch/internal/engine"
	"floorwatch/internal/lifecycle"
	"floorwatch/internal/metrics"
	"floorwatch/internal/notify"
	"floorwatch/internal/replay"
)

// AlertPersister is the external persistence collaborator.
// Params: create/update calls with alert snapshots.
// Returns: persistence outcome; in-memory state stays authoritative for
// the current process regardless of persistence success.
type AlertPersister interface {
	Create(ctx context.Context, alert domain.Alert) error
	Update(ctx context.Context, alert domain.Alert) error
}

// Manager coordinates evaluation, delivery, history, and lifecycle.
// Params: rule snapshot, evaluator, dispatcher, alert registry, history
// buffer, simulator, optional persister, logger, and clock.
// Returns: event sink and command surface for the service layer.
type Manager struct {
	mu        sync.RWMutex
	rules     []config.RuleConfig
	ruleIndex map[string]config.RuleConfig

	evaluator  *engine.Evaluator
	dispatcher *notify.Dispatcher
	registry   *lifecycle.Manager
	history    *replay.History
	simulator  *replay.Simulator
	persister  AlertPersister
	logger     *slog.Logger
	clk        clock.Clock
}

// NewManager creates the manager with an initial rule snapshot.
// Params: config, evaluator, dispatcher, registry, history, simulator,
// optional persister, logger, and clock.
// Returns: initialized manager.
func NewManager(
	cfg config.Config,
	evaluator *engine.Evaluator,
	dispatcher *notify.Dispatcher,
	registry *lifecycle.Manager,
	history *replay.History,
	simulator *replay.Simulator,
	persister AlertPersister,
	logger *slog.Logger,
	clk clock.Clock,
) *Manager {
	manager := &Manager{
		evaluator:  evaluator,
		dispatcher: dispatcher,
		registry:   registry,
		history:    history,
		simulator:  simulator,
		persister:  persister,
		logger:     logger,
		clk:        clk,
	}
	manager.ApplyRules(cfg.Rules)
	return manager
}

// Push processes one incoming telemetry event.
// Params: validated event from an ingest surface. The event is appended to
// the replay history and evaluated at its observation time so live and
// replayed runs agree.
// Returns: nil; evaluation never fails, and delivery errors are recorded
// on the alerts instead of propagated.
func (m *Manager) Push(event domain.Event) error {
	m.mu.RLock()
	rules := m.rules
	index := m.ruleIndex
	m.mu.RUnlock()

	m.history.Append(event)
	metrics.HistoryEvents.Set(float64(m.history.Len()))

	alerts := m.evaluator.Evaluate(rules, event, event.ObservedAt)
	for _, alert := range alerts {
		m.registry.Register(alert)
		metrics.AlertsFired.WithLabelValues(alert.RuleID, string(alert.Priority)).Inc()
		m.logger.Info("alert fired",
			"alert", alert.ID, "rule", alert.RuleID,
			"priority", string(alert.Priority), "fingerprint", alert.Fingerprint,
			"warehouse", alert.WarehouseID)

		snapshot := alert.Clone()
		if m.persister != nil {
			if err := m.persister.Create(context.Background(), snapshot); err != nil {
				m.logger.Error("alert persistence failed", "alert", alert.ID, "error", err.Error())
			}
		}
		if rule, ok := index[alert.RuleID]; ok {
			m.dispatcher.Dispatch(snapshot, rule)
		}
	}
	return nil
}

// ApplyRules atomically replaces the active rule snapshot.
// Params: validated rule slice. Takes effect on the next event.
// Returns: snapshot swapped under the lock.
func (m *Manager) ApplyRules(rules []config.RuleConfig) {
	index := make(map[string]config.RuleConfig, len(rules))
	for _, rule := range rules {
		index[rule.ID] = rule
	}
	m.mu.Lock()
	m.rules = rules
	m.ruleIndex = index
	m.mu.Unlock()
}

// Rules returns the active rule snapshot.
// Params: none.
// Returns: rule slice shared read-only.
func (m *Manager) Rules() []config.RuleConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules
}

// Simulate answers one what-if replay request.
// Params: window minutes and optional rule ID filter.
// Returns: simulation result without performing delivery.
func (m *Manager) Simulate(minutes int, ruleID string) replay.Result {
	metrics.SimulationsTotal.Inc()
	return m.simulator.Simulate(m.Rules(), minutes, ruleID, m.clk.Now())
}

// Acknowledge applies the acknowledge lifecycle command.
// Params: alert ID and optional actor.
// Returns: updated alert or lifecycle.ErrNotFound.
func (m *Manager) Acknowledge(alertID, actorID string) (domain.Alert, error) {
	alert, err := m.registry.Acknowledge(alertID, actorID)
	if err != nil {
		return domain.Alert{}, err
	}
	m.persistUpdate(alert)
	return alert, nil
}

// Snooze applies the snooze lifecycle command.
// Params: alert ID and snooze minutes.
// Returns: updated alert or lifecycle.ErrNotFound.
func (m *Manager) Snooze(alertID string, minutes int) (domain.Alert, error) {
	alert, err := m.registry.Snooze(alertID, minutes)
	if err != nil {
		return domain.Alert{}, err
	}
	m.persistUpdate(alert)
	return alert, nil
}

// Resolve applies the resolve lifecycle command.
// Params: alert ID.
// Returns: updated alert or lifecycle.ErrNotFound.
func (m *Manager) Resolve(alertID string) (domain.Alert, error) {
	alert, err := m.registry.Resolve(alertID)
	if err != nil {
		return domain.Alert{}, err
	}
	m.persistUpdate(alert)
	return alert, nil
}

// GetAlert returns one alert snapshot.
// Params: alert ID.
// Returns: alert clone or lifecycle.ErrNotFound.
func (m *Manager) GetAlert(alertID string) (domain.Alert, error) {
	return m.registry.Get(alertID)
}

// SweepHistory evicts stale replay history entries.
// Params: none; uses the injected clock.
// Returns: number of evicted events.
func (m *Manager) SweepHistory() int {
	removed := m.history.Sweep(m.clk.Now())
	metrics.HistoryEvents.Set(float64(m.history.Len()))
	return removed
}

// SweepState evicts idle rule state entries.
// Params: idle TTL bound.
// Returns: number of evicted entries.
func (m *Manager) SweepState(cfg config.StateConfig) int {
	removed := m.evaluator.States().Compact(m.clk.Now(), cfg.IdleTTL())
	metrics.RuleStateEntries.Set(float64(m.evaluator.States().Len()))
	return removed
}

// persistUpdate forwards one lifecycle mutation to the persister.
// Params: updated alert clone.
// Returns: failure logged; in-memory state is authoritative.
func (m *Manager) persistUpdate(alert domain.Alert) {
	if m.persister == nil {
		return
	}
	if err := m.persister.Update(context.Background(), alert); err != nil {
		m.logger.Error("alert update persistence failed", "alert", alert.ID, "error", err.Error())
	}
}
