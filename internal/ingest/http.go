package ingest

import (
	"io"
	"net/http"

	"floorwatch/internal/clock"
	"floorwatch/internal/domain"
	"floorwatch/internal/metrics"
)

// EventSink receives decoded events from ingest interfaces.
// Params: validated event payload.
// Returns: processing error.
type EventSink interface {
	Push(event domain.Event) error
}

// HTTPHandler decodes JSON telemetry and forwards it to the sink.
// Params: sink receives validated events, max body limits payload size.
// Returns: HTTP handler for the ingest endpoint.
type HTTPHandler struct {
	sink        EventSink
	clk         clock.Clock
	maxBodySize int64
}

// NewHTTPHandler creates the ingest HTTP handler.
// Params: sink, clock, and max request body size in bytes.
// Returns: configured handler.
func NewHTTPHandler(sink EventSink, clk clock.Clock, maxBodySize int64) *HTTPHandler {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &HTTPHandler{sink: sink, clk: clk, maxBodySize: maxBodySize}
}

// ServeHTTP handles one incoming telemetry request.
// Params: HTTP request/response writer pair.
// Returns: writes status code according to decode/push result.
func (h *HTTPHandler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	if request.Method != http.MethodPost {
		writer.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()
	body, err := io.ReadAll(request.Body)
	if err != nil {
		metrics.EventsIngested.WithLabelValues("http", "rejected").Inc()
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	event, err := domain.DecodeEvent(body, h.clk.Now())
	if err != nil {
		metrics.EventsIngested.WithLabelValues("http", "rejected").Inc()
		writer.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := h.sink.Push(event); err != nil {
		metrics.EventsIngested.WithLabelValues("http", "rejected").Inc()
		writer.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	metrics.EventsIngested.WithLabelValues("http", "accepted").Inc()
	writer.WriteHeader(http.StatusAccepted)
}
