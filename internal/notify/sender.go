package notify

import (
	"context"

	"floorwatch/internal/domain"
)

// ChannelSender delivers one alert to one channel kind.
// Params: context and alert snapshot.
// Returns: transport error when the delivery fails.
type ChannelSender interface {
	Kind() string
	Send(ctx context.Context, alert domain.Alert) error
}
