package orders

import (
	"context"
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

func TestFindByStatusesBeforeFiltersAndJoinsProductName(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	product := dbtest.CreateProduct(t, conn, "Hinges", 50, 10)
	older := dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusPending, now.Add(-72*time.Hour))
	shipped := dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusShipped, now.Add(-24*time.Hour))
	dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusConfirmed, now.Add(24*time.Hour))
	dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusDelivered, now.Add(-48*time.Hour))
	dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusOverdue, now.Add(-96*time.Hour))

	rows, err := repo.FindByStatusesBefore(ctx, enums.OpenOrderStatuses(), now)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, older.ID, rows[0].ID)
	assert.Equal(t, shipped.ID, rows[1].ID)
	assert.Equal(t, "Hinges", rows[1].ProductName)
	assert.Equal(t, enums.OrderStatusShipped, rows[1].Status)
	assert.True(t, rows[1].ExpectedDate.Equal(shipped.ExpectedDate))
}

func TestFindByStatusesBeforeExcludesExactCutoff(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	product := dbtest.CreateProduct(t, conn, "Nails", 50, 10)
	dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusPending, now)

	rows, err := NewRepository(conn).FindByStatusesBefore(context.Background(), enums.OpenOrderStatuses(), now)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFindByStatusesBeforeNoStatuses(t *testing.T) {
	conn := dbtest.Open(t)
	rows, err := NewRepository(conn).FindByStatusesBefore(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestUpdateStatusIfIn(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	yesterday := time.Now().UTC().Add(-24 * time.Hour)

	product := dbtest.CreateProduct(t, conn, "Screws", 50, 10)
	order := dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusShipped, yesterday)

	var before models.Order
	require.NoError(t, conn.First(&before, "id = ?", order.ID).Error)

	changed, err := repo.UpdateStatusIfIn(ctx, order.ID, enums.OpenOrderStatuses(), enums.OrderStatusOverdue)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatusIfIn(ctx, order.ID, enums.OpenOrderStatuses(), enums.OrderStatusOverdue)
	require.NoError(t, err)
	assert.False(t, changed, "second update must not match")

	var after models.Order
	require.NoError(t, conn.First(&after, "id = ?", order.ID).Error)
	assert.Equal(t, enums.OrderStatusOverdue, after.Status)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt), "only status may change")
	assert.True(t, after.ExpectedDate.Equal(before.ExpectedDate))
}

func TestFindByIDNotFound(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewRepository(conn).FindByID(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}
