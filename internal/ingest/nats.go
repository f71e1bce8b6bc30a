package ingest

import (
	"fmt"
	"log/slog"

	"floorwatch/internal/clock"
	"floorwatch/internal/config"
	"floorwatch/internal/domain"
	"floorwatch/internal/metrics"

	"github.com/nats-io/nats.go"
)

// NATSSubscriber consumes telemetry from a queue subscription.
// Params: NATS connection, queue subscription, and event sink.
// Returns: NATS ingest lifecycle handle.
type NATSSubscriber struct {
	nc     *nats.Conn
	sub    *nats.Subscription
	logger *slog.Logger
}

// NewNATSSubscriber subscribes the sink to the configured subject.
// Params: ingest NATS config, sink, clock, and optional logger.
// Returns: started subscriber or initialization error.
func NewNATSSubscriber(cfg config.NATSIngestConfig, sink EventSink, clk clock.Clock, logger *slog.Logger) (*NATSSubscriber, error) {
	if clk == nil {
		clk = clock.RealClock{}
	}
	nc, err := nats.Connect(cfg.URL, nats.Name("floorwatch-ingest"))
	if err != nil {
		return nil, fmt.Errorf("connect nats ingest: %w", err)
	}

	subscriber := &NATSSubscriber{nc: nc, logger: logger}
	sub, err := nc.QueueSubscribe(cfg.Subject, cfg.QueueGroup, func(message *nats.Msg) {
		event, decodeErr := domain.DecodeEvent(message.Data, clk.Now())
		if decodeErr != nil {
			metrics.EventsIngested.WithLabelValues("nats", "rejected").Inc()
			if logger != nil {
				logger.Warn("nats ingest decode failed", "subject", message.Subject, "error", decodeErr.Error())
			}
			return
		}
		if pushErr := sink.Push(event); pushErr != nil {
			metrics.EventsIngested.WithLabelValues("nats", "rejected").Inc()
			if logger != nil {
				logger.Error("nats ingest push failed", "subject", message.Subject, "error", pushErr.Error())
			}
			return
		}
		metrics.EventsIngested.WithLabelValues("nats", "accepted").Inc()
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue subscribe %q/%q: %w", cfg.Subject, cfg.QueueGroup, err)
	}
	subscriber.sub = sub
	return subscriber, nil
}

// Close drains the subscription and closes the connection.
// Params: none.
// Returns: unsubscribe error when drain fails.
func (s *NATSSubscriber) Close() error {
	if s.sub != nil {
		if err := s.sub.Drain(); err != nil && s.logger != nil {
			s.logger.Warn("nats ingest drain failed", "error", err.Error())
		}
	}
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
