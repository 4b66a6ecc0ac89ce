package notify

import (
	"context"

	"liqwatch/internal/model"
)

// Notifier delivers a single alert to an external channel. Delivery is
// best-effort: the dispatcher logs failures and records the alert either way.
type Notifier interface {
	Send(ctx context.Context, alert model.AlertCandidate) error
}

// Noop is used when no notification endpoint is configured.
type Noop struct{}

func (Noop) Send(ctx context.Context, alert model.AlertCandidate) error { return nil }
