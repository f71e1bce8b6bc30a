package replay

import (
	"sync"
	"time"

	"floorwatch/internal/domain"
)

// History is the bounded in-memory buffer of recently ingested events.
// Params: ordered event slice, count cap, and age horizon under one mutex
// shared by the live ingestion writer and simulation readers.
// Returns: time-windowed event source for the simulation engine.
type History struct {
	mu        sync.Mutex
	events    []domain.Event
	maxEvents int
	horizon   time.Duration
}

// NewHistory creates an empty bounded history.
// Params: count cap and age horizon.
// Returns: initialized history.
func NewHistory(maxEvents int, horizon time.Duration) *History {
	if maxEvents < 2 {
		maxEvents = 2
	}
	return &History{
		events:    make([]domain.Event, 0, maxEvents),
		maxEvents: maxEvents,
		horizon:   horizon,
	}
}

// Append records one ingested event.
// Params: event from the live evaluation path.
// Returns: buffer grown by one; when the cap is exceeded the oldest half
// is evicted in one step to keep appends amortized cheap.
func (h *History) Append(event domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	if len(h.events) > h.maxEvents {
		keep := len(h.events) / 2
		h.events = append(h.events[:0:0], h.events[len(h.events)-keep:]...)
	}
}

// Sweep evicts events older than the horizon.
// Params: current time.
// Returns: number of evicted events. Called periodically by the service.
func (h *History) Sweep(now time.Time) int {
	if h.horizon <= 0 {
		return 0
	}
	cutoff := now.Add(-h.horizon)
	h.mu.Lock()
	defer h.mu.Unlock()
	drop := 0
	for ; drop < len(h.events); drop++ {
		if !h.events[drop].ObservedAt.Before(cutoff) {
			break
		}
	}
	if drop == 0 {
		return 0
	}
	h.events = append(h.events[:0:0], h.events[drop:]...)
	return drop
}

// Window returns events observed within the requested span.
// Params: current time and window width in minutes.
// Returns: detached slice of events with ObservedAt inside [now-span, now].
func (h *History) Window(now time.Time, minutes int) []domain.Event {
	cutoff := now.Add(-time.Duration(minutes) * time.Minute)
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]domain.Event, 0, len(h.events))
	for _, event := range h.events {
		if event.ObservedAt.Before(cutoff) || event.ObservedAt.After(now) {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Len counts buffered events.
// Params: none.
// Returns: current buffer size.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.events)
}
