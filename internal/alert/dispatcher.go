package alert

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"liqwatch/internal/model"
	"liqwatch/internal/notify"
	"liqwatch/internal/obs"
	"liqwatch/internal/store"
)

// Dispatcher filters alert candidates through the cooldown window, sends the
// survivors, and appends an audit entry whether or not delivery worked.
type Dispatcher struct {
	log      store.AlertLogRepo
	notifier notify.Notifier
	cooldown time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewDispatcher creates a dispatcher with the configured cooldown window.
func NewDispatcher(alertLog store.AlertLogRepo, notifier notify.Notifier, cooldown time.Duration, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		log:      alertLog,
		notifier: notifier,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// Dispatch processes candidates in order. Cooldown matching keys on alert
// type alone: an entry from either venue suppresses the type everywhere for
// the window. Notification failures are logged and recorded, never retried.
func (d *Dispatcher) Dispatch(ctx context.Context, candidates []model.AlertCandidate) error {
	for _, c := range candidates {
		now := d.now().UTC()

		recent, err := d.log.CountRecentByType(ctx, c.Type, now.Add(-d.cooldown))
		if err != nil {
			return err
		}
		if recent > 0 {
			d.logger.Debug().
				Str("type", c.Type).
				Dur("cooldown", d.cooldown).
				Msg("alert suppressed by cooldown")
			obs.AlertsSuppressed.Inc()
			continue
		}

		delivered := true
		if err := d.notifier.Send(ctx, c); err != nil {
			delivered = false
			obs.NotifyFailures.Inc()
			d.logger.Error().Err(err).
				Str("type", c.Type).
				Msg("alert notification failed")
		}

		entry := &model.AlertLogEntry{
			Type:      c.Type,
			Severity:  c.Severity,
			Venue:     c.Venue,
			Message:   c.Message,
			Details:   c.Details,
			Delivered: delivered,
			CreatedAt: now,
		}
		if err := d.log.Insert(ctx, entry); err != nil {
			return err
		}

		obs.AlertsFired.WithLabelValues(c.Type, string(c.Severity)).Inc()
		d.logger.Info().
			Str("type", c.Type).
			Str("severity", string(c.Severity)).
			Bool("delivered", delivered).
			Msg("alert dispatched")
	}

	return nil
}
