package notifications

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

// DefaultRetention is how long notifications are kept when no retention is configured.
const DefaultRetention = 30 * 24 * time.Hour

// Sweeper purges notifications past the retention horizon.
type Sweeper struct {
	repo Repository
	now  func() time.Time
}

// NewSweeper builds a Sweeper. A nil clock uses the wall clock.
func NewSweeper(repo Repository, now func() time.Time) *Sweeper {
	if now == nil {
		now = time.Now
	}
	return &Sweeper{repo: repo, now: now}
}

// Sweep deletes notifications created more than maxAge ago regardless of type
// or read state and returns how many were removed.
func (s *Sweeper) Sweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "retention max age must be positive").
			WithDetails(map[string]any{"max_age": maxAge.String()})
	}
	deleted, err := s.repo.DeleteOlderThan(ctx, s.now().Add(-maxAge))
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired notifications")
	}
	return deleted, nil
}
