package dispatch

import (
	"context"

	"homeauto/internal/models"
)

// Dispatcher publishes device commands for triggered rules. Success means an
// attempt was handed to the transport, not that the device acted; delivery
// retries belong to the transport, never to the dispatcher.
type Dispatcher interface {
	Dispatch(ctx context.Context, homeID, deviceName string, actions []models.Action) error
}
