package notify

import (
	"context"
	"errors"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

// EmailSender is the email channel placeholder.
// Params: none.
// Returns: sender that always reports failure until a transport exists.
type EmailSender struct{}

// NewEmailSender creates the email placeholder sender.
// Params: none.
// Returns: initialized sender.
func NewEmailSender() *EmailSender {
	return &EmailSender{}
}

// Kind returns the sender channel kind.
// Params: none.
// Returns: static channel key.
func (s *EmailSender) Kind() string {
	return config.ChannelKindEmail
}

// Send always fails so the gap stays visible in the delivery history.
// Params: context and alert snapshot (both unused).
// Returns: not-implemented error.
func (s *EmailSender) Send(_ context.Context, _ domain.Alert) error {
	return errors.New("email channel is not implemented")
}
