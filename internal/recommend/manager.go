package recommend

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"liqwatch/internal/alert"
	"liqwatch/internal/model"
	"liqwatch/internal/store"
)

// Manager enforces the at-most-one-active invariant per (venue, category):
// an upsert first deactivates prior actives for the key, then inserts the
// replacement. The two statements are sequential, not transactional; a crash
// between them leaves the key with zero actives, never two.
type Manager struct {
	repo   store.RecommendationRepo
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a recommendation lifecycle manager.
func NewManager(repo store.RecommendationRepo, logger zerolog.Logger) *Manager {
	return &Manager{repo: repo, logger: logger, now: time.Now}
}

// Upsert supersedes any active recommendation for (venue, category) with a
// new active one.
func (m *Manager) Upsert(ctx context.Context, req alert.RecommendationRequest) error {
	if err := m.repo.DeactivateActive(ctx, req.Venue, req.Category); err != nil {
		return err
	}

	now := m.now().UTC()
	rec := &model.Recommendation{
		Venue:     req.Venue,
		Category:  req.Category,
		Action:    req.Action,
		Reason:    req.Reason,
		Priority:  req.Priority,
		Active:    true,
		CreatedAt: now,
	}
	if req.ExpiresIn > 0 {
		expiry := now.Add(req.ExpiresIn)
		rec.ExpiresAt = &expiry
	}

	if err := m.repo.Insert(ctx, rec); err != nil {
		return err
	}

	m.logger.Info().
		Str("category", string(rec.Category)).
		Str("action", string(rec.Action)).
		Int("priority", rec.Priority).
		Msg("recommendation upserted")

	return nil
}

// Sweep deactivates recommendations whose expiry has passed. It runs outside
// the evaluation path, triggered by the sweep command.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.repo.ExpireDue(ctx, m.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info().Int64("expired", n).Msg("recommendations expired")
	}
	return n, nil
}
