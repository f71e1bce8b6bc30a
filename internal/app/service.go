package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"floorwatch/internal/clock"
	"floorwatch/internal/config"
	"floorwatch/internal/engine"
	"floorwatch/internal/ingest"
	"floorwatch/internal/lifecycle"
	"floorwatch/internal/logging"
	"floorwatch/internal/notify"
	"floorwatch/internal/replay"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Service wires ingest surfaces, the manager, and background sweeps.
// Params: config snapshot, manager, logger with cleanup, and transports.
// Returns: runnable single-instance alerting service.
type Service struct {
	cfg      config.Config
	manager  *Manager
	logger   *slog.Logger
	closeLog func()
	clk      clock.Clock

	httpServer *http.Server
	natsIngest *ingest.NATSSubscriber
}

// NewService builds the service from one configuration source.
// Params: config source and clock.
// Returns: initialized service or construction error.
func NewService(source config.ConfigSource, clk clock.Clock) (*Service, error) {
	cfg, err := config.LoadSnapshot(source)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	registry := lifecycle.NewManager(clk)
	dispatcher := notify.NewDispatcher(cfg.Notify, registry, logger, clk)
	evaluator := engine.NewEvaluator(engine.NewStateStore(cfg.State.Shards), logger)
	history := replay.NewHistory(cfg.History.MaxEvents, cfg.History.Horizon())
	simulator := replay.NewSimulator(history, cfg.State.Shards, cfg.History.SampleAlerts, logger)
	manager := NewManager(cfg, evaluator, dispatcher, registry, history, simulator, nil, logger, clk)

	service := &Service{
		cfg:      cfg,
		manager:  manager,
		logger:   logger,
		closeLog: closeLog,
		clk:      clk,
	}
	service.httpServer = &http.Server{
		Addr:              cfg.Service.HTTPListen,
		Handler:           service.buildMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return service, nil
}

// Run starts the service and blocks until shutdown.
// Params: base context; SIGINT/SIGTERM also trigger shutdown.
// Returns: first fatal transport error, or nil on clean shutdown.
func (s *Service) Run(ctx context.Context) error {
	defer s.closeLog()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.cfg.Ingest.NATS.Enabled {
		subscriber, err := ingest.NewNATSSubscriber(s.cfg.Ingest.NATS, s.manager, s.clk, s.logger)
		if err != nil {
			return fmt.Errorf("start nats ingest: %w", err)
		}
		s.natsIngest = subscriber
		defer func() { _ = subscriber.Close() }()
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.cfg.Service.HTTPListen)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go s.runSweeps(ctx)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// runSweeps drives the periodic history and state evictions.
// Params: context stopping the tickers.
// Returns: when the context is cancelled.
func (s *Service) runSweeps(ctx context.Context) {
	historyTicker := time.NewTicker(s.cfg.History.SweepInterval())
	stateTicker := time.NewTicker(s.cfg.State.SweepInterval())
	defer historyTicker.Stop()
	defer stateTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-historyTicker.C:
			if removed := s.manager.SweepHistory(); removed > 0 {
				s.logger.Debug("history sweep evicted events", "count", removed)
			}
		case <-stateTicker.C:
			if removed := s.manager.SweepState(s.cfg.State); removed > 0 {
				s.logger.Debug("state sweep evicted entries", "count", removed)
			}
		}
	}
}

// buildMux assembles the HTTP surface.
// Params: none.
// Returns: mux with ingest, health, metrics, lifecycle, and simulate
// routes.
func (s *Service) buildMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("POST "+s.cfg.Service.IngestPath,
		ingest.NewHTTPHandler(s.manager, s.clk, s.cfg.Service.MaxBodyBytes))
	mux.HandleFunc("GET "+s.cfg.Service.HealthPath, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET "+s.cfg.Service.MetricsPath, promhttp.Handler())

	mux.HandleFunc("GET /alerts/{id}", s.handleGetAlert)
	mux.HandleFunc("POST /alerts/{id}/acknowledge", s.handleAcknowledge)
	mux.HandleFunc("POST /alerts/{id}/snooze", s.handleSnooze)
	mux.HandleFunc("POST /alerts/{id}/resolve", s.handleResolve)
	mux.HandleFunc("POST /simulate", s.handleSimulate)
	return mux
}

// handleGetAlert serves one alert snapshot.
// Params: request with alert id path value.
// Returns: alert JSON, or 404 for unknown IDs.
func (s *Service) handleGetAlert(writer http.ResponseWriter, request *http.Request) {
	alert, err := s.manager.GetAlert(request.PathValue("id"))
	if err != nil {
		writeLifecycleError(writer, err)
		return
	}
	writeJSON(writer, alert)
}

// handleAcknowledge serves the acknowledge lifecycle command.
// Params: request with alert id path value and optional {actorId} body.
// Returns: updated alert JSON, or 404 for unknown IDs.
func (s *Service) handleAcknowledge(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		ActorID string `json:"actorId"`
	}
	_ = json.NewDecoder(request.Body).Decode(&body)

	alert, err := s.manager.Acknowledge(request.PathValue("id"), body.ActorID)
	if err != nil {
		writeLifecycleError(writer, err)
		return
	}
	writeJSON(writer, alert)
}

// handleSnooze serves the snooze lifecycle command.
// Params: request with alert id path value and {minutes} body.
// Returns: updated alert JSON, 400 on bad input, or 404 for unknown IDs.
func (s *Service) handleSnooze(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Minutes int `json:"minutes"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.Minutes <= 0 {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	alert, err := s.manager.Snooze(request.PathValue("id"), body.Minutes)
	if err != nil {
		writeLifecycleError(writer, err)
		return
	}
	writeJSON(writer, alert)
}

// handleResolve serves the resolve lifecycle command.
// Params: request with alert id path value.
// Returns: updated alert JSON, or 404 for unknown IDs.
func (s *Service) handleResolve(writer http.ResponseWriter, request *http.Request) {
	alert, err := s.manager.Resolve(request.PathValue("id"))
	if err != nil {
		writeLifecycleError(writer, err)
		return
	}
	writeJSON(writer, alert)
}

// handleSimulate serves one replay simulation request.
// Params: request with {minutes, ruleId?} body.
// Returns: simulation result JSON or 400 on bad input.
func (s *Service) handleSimulate(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Minutes int    `json:"minutes"`
		RuleID  string `json:"ruleId"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.Minutes <= 0 {
		writer.WriteHeader(http.StatusBadRequest)
		return
	}
	writeJSON(writer, s.manager.Simulate(body.Minutes, body.RuleID))
}

// writeLifecycleError maps lifecycle errors to HTTP status codes.
// Params: response writer and error.
// Returns: 404 for unknown alerts, 500 otherwise.
func writeLifecycleError(writer http.ResponseWriter, err error) {
	if errors.Is(err, lifecycle.ErrNotFound) {
		writer.WriteHeader(http.StatusNotFound)
		return
	}
	writer.WriteHeader(http.StatusInternalServerError)
}

// writeJSON renders one JSON response body.
// Params: response writer and payload.
// Returns: 200 with encoded payload.
func writeJSON(writer http.ResponseWriter, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(writer).Encode(payload)
}
