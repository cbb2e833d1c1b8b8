package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockwatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

func TestTransitionOverdueIsIdempotent(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	transitioner := NewTransitioner(repo)
	ctx := context.Background()

	product := dbtest.CreateProduct(t, conn, "Washers", 50, 10)
	order := dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusPending, time.Now().Add(-time.Hour))

	result, err := transitioner.Transition(ctx, *order, enums.OrderStatusOverdue)
	require.NoError(t, err)
	assert.Equal(t, TransitionApplied, result)

	for i := 0; i < 3; i++ {
		result, err = transitioner.Transition(ctx, *order, enums.OrderStatusOverdue)
		require.NoError(t, err)
		assert.Equal(t, TransitionUnchanged, result)
	}

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusOverdue, stored.Status)
}

func TestTransitionSkipsDeliveredOrder(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	product := dbtest.CreateProduct(t, conn, "Rivets", 50, 10)
	order := dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusDelivered, time.Now().Add(-time.Hour))

	// the caller may still hold a stale snapshot from before delivery
	stale := *order
	stale.Status = enums.OrderStatusShipped

	result, err := NewTransitioner(repo).Transition(ctx, stale, enums.OrderStatusOverdue)
	require.NoError(t, err)
	assert.Equal(t, TransitionSkipped, result)

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusDelivered, stored.Status)
}

func TestTransitionRejectsUnsupportedTarget(t *testing.T) {
	transitioner := NewTransitioner(&stubRepo{})
	_, err := transitioner.Transition(context.Background(), models.Order{ID: uuid.New()}, enums.OrderStatusShipped)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = transitioner.Transition(context.Background(), models.Order{ID: uuid.New()}, enums.OrderStatus("lost"))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestTransitionWrapsStoreErrors(t *testing.T) {
	transitioner := NewTransitioner(&stubRepo{updateErr: errors.New("connection reset")})
	_, err := transitioner.Transition(context.Background(), models.Order{ID: uuid.New()}, enums.OrderStatusOverdue)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
	assert.True(t, pkgerrors.IsRetryable(err))
}

func TestTransitionVanishedOrderIsSkipped(t *testing.T) {
	transitioner := NewTransitioner(&stubRepo{})
	result, err := transitioner.Transition(context.Background(), models.Order{ID: uuid.New()}, enums.OrderStatusOverdue)
	require.NoError(t, err)
	assert.Equal(t, TransitionSkipped, result)
}

type stubRepo struct {
	updateErr error
}

func (s *stubRepo) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubRepo) FindByStatusesBefore(context.Context, []enums.OrderStatus, time.Time) ([]models.Order, error) {
	return nil, nil
}

func (s *stubRepo) UpdateStatusIfIn(context.Context, uuid.UUID, []enums.OrderStatus, enums.OrderStatus) (bool, error) {
	return false, s.updateErr
}
