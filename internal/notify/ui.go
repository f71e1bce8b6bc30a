package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"

	"github.com/nats-io/nats.go"
)

// UISender broadcasts alerts to the real-time UI subject.
// Params: NATS connection and broadcast subject.
// Returns: best-effort UI channel sender; the broadcast has no external
// acknowledgment, so a published alert counts as delivered.
type UISender struct {
	conn    *nats.Conn
	subject string
	initErr error
}

// NewUISender creates the UI broadcast sender.
// Params: UI notifier config.
// Returns: initialized sender; dial errors surface at Send so they are
// recorded on the alert.
func NewUISender(cfg config.UINotifier) *UISender {
	sender := &UISender{subject: strings.TrimSpace(cfg.Subject)}
	if strings.TrimSpace(cfg.URL) == "" {
		sender.initErr = errors.New("ui broadcast url is not configured")
		return sender
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name("floorwatch-ui-broadcast"),
		nats.RetryOnFailedConnect(true),
	)
	if err != nil {
		sender.initErr = fmt.Errorf("connect ui broadcast: %w", err)
		return sender
	}
	sender.conn = conn
	return sender
}

// NewUISenderWithConn wraps an existing NATS connection.
// Params: live connection and broadcast subject.
// Returns: sender sharing the connection (Close is the owner's concern).
func NewUISenderWithConn(conn *nats.Conn, subject string) *UISender {
	return &UISender{conn: conn, subject: subject}
}

// Kind returns the sender channel kind.
// Params: none.
// Returns: static channel key.
func (s *UISender) Kind() string {
	return config.ChannelKindUI
}

// Send publishes one alert JSON document to the broadcast subject.
// Params: context (unused; publish is fire-and-forget) and alert snapshot.
// Returns: init or publish error; a completed publish is success.
func (s *UISender) Send(_ context.Context, alert domain.Alert) error {
	if s.initErr != nil {
		return s.initErr
	}
	if s.conn == nil {
		return errors.New("ui broadcast connection is not initialized")
	}
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode ui broadcast payload: %w", err)
	}
	if err := s.conn.Publish(s.subject, body); err != nil {
		return fmt.Errorf("ui broadcast publish: %w", err)
	}
	return nil
}

// Close releases an owned NATS connection.
// Params: none.
// Returns: connection drained and closed.
func (s *UISender) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}
