package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	EventsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorwatch_events_ingested_total",
			Help: "Total telemetry events received by ingest surfaces",
		},
		[]string{"source", "status"}, // status: accepted, rejected
	)

	// Engine metrics
	AlertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorwatch_alerts_fired_total",
			Help: "Total alerts created by the rule evaluator",
		},
		[]string{"rule_id", "priority"},
	)

	RuleStateEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floorwatch_rule_state_entries",
			Help: "Current number of (rule, fingerprint) state entries",
		},
	)

	// Delivery metrics
	DeliveryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorwatch_delivery_attempts_total",
			Help: "Delivery outcomes recorded per channel",
		},
		[]string{"channel", "status"}, // status: success, failure
	)

	ChannelRateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "floorwatch_channel_rate_limited_total",
			Help: "Deliveries skipped by the channel-scoped sliding window",
		},
		[]string{"channel"},
	)

	// Replay metrics
	HistoryEvents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "floorwatch_history_events",
			Help: "Events currently retained in the replay buffer",
		},
	)

	SimulationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "floorwatch_simulations_total",
			Help: "Replay simulations executed",
		},
	)
)
