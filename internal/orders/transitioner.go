package orders

import (
	"context"

	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

// TransitionResult describes what a Transition call did to the stored order.
type TransitionResult int

const (
	// TransitionApplied means the status was changed by this call.
	TransitionApplied TransitionResult = iota
	// TransitionUnchanged means the order already had the target status.
	TransitionUnchanged
	// TransitionSkipped means the order was not eligible, e.g. delivered.
	TransitionSkipped
)

func (r TransitionResult) String() string {
	switch r {
	case TransitionApplied:
		return "applied"
	case TransitionUnchanged:
		return "unchanged"
	case TransitionSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// allowedSources lists the statuses each target may be entered from.
var allowedSources = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusOverdue: enums.OpenOrderStatuses(),
}

// Transitioner applies guarded, idempotent order status changes.
type Transitioner struct {
	repo Repository
}

func NewTransitioner(repo Repository) *Transitioner {
	return &Transitioner{repo: repo}
}

// Transition moves order to status `to` with a single conditional update keyed
// by id. Concurrent writers are resolved by the database: only a row still in
// an allowed source status changes.
func (t *Transitioner) Transition(ctx context.Context, order models.Order, to enums.OrderStatus) (TransitionResult, error) {
	if !to.IsValid() {
		return TransitionSkipped, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"order_id": order.ID, "to": to})
	}
	from, ok := allowedSources[to]
	if !ok {
		return TransitionSkipped, pkgerrors.New(pkgerrors.CodeValidation, "unsupported order status transition").
			WithDetails(map[string]any{"order_id": order.ID, "to": to})
	}

	applied, err := t.repo.UpdateStatusIfIn(ctx, order.ID, from, to)
	if err != nil {
		return TransitionSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition order status")
	}
	if applied {
		return TransitionApplied, nil
	}

	current, err := t.repo.FindByID(ctx, order.ID)
	if err != nil {
		if pkgerrors.CodeOf(err) == pkgerrors.CodeNotFound {
			return TransitionSkipped, nil
		}
		return TransitionSkipped, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order after transition")
	}
	if current.Status == to {
		return TransitionUnchanged, nil
	}
	return TransitionSkipped, nil
}
