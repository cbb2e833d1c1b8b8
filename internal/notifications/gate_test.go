package notifications

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

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestGateWindowMeasuredFromFirstAlert(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	clock := &fakeClock{now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	gate := NewGate(repo, clock.Now)
	emitter := NewEmitter(repo, clock.Now)
	ctx := context.Background()

	product := dbtest.CreateProduct(t, conn, "Bolts", 8, 10)
	ref := ProductRef(product.ID)
	alert := Alert{Type: enums.NotificationTypeLowStock, Title: "Low stock: Bolts", Message: "low", ProductID: &product.ID}

	allowed, err := gate.Allow(ctx, enums.NotificationTypeLowStock, ref, 0)
	require.NoError(t, err)
	require.True(t, allowed)
	_, err = emitter.Emit(ctx, alert)
	require.NoError(t, err)

	clock.now = clock.now.Add(59 * time.Minute)
	allowed, err = gate.Allow(ctx, enums.NotificationTypeLowStock, ref, 0)
	require.NoError(t, err)
	assert.False(t, allowed, "second check inside the hour must be suppressed")

	clock.now = clock.now.Add(2 * time.Minute)
	allowed, err = gate.Allow(ctx, enums.NotificationTypeLowStock, ref, 0)
	require.NoError(t, err)
	assert.True(t, allowed, "window expires one hour after the first alert")
}

func TestGateUsesExplicitWindow(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	now := time.Now().UTC()

	product := dbtest.CreateProduct(t, conn, "Bolts", 8, 10)
	order := dbtest.CreateOrder(t, conn, product.ID, enums.OrderStatusOverdue, now.Add(-48*time.Hour))
	dbtest.CreateNotification(t, conn, models.Notification{Type: enums.NotificationTypeOverdueOrder, OrderID: &order.ID}, now.Add(-3*time.Hour))

	gate := NewGate(repo, nil)
	allowed, err := gate.Allow(context.Background(), enums.NotificationTypeOverdueOrder, OrderRef(order.ID), 0)
	require.NoError(t, err)
	assert.False(t, allowed, "default overdue window is six hours")

	allowed, err = gate.Allow(context.Background(), enums.NotificationTypeOverdueOrder, OrderRef(order.ID), 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGateNeverSuppressesSystemNotifications(t *testing.T) {
	gate := NewGate(&failingRepo{err: errors.New("must not be called")}, nil)
	allowed, err := gate.Allow(context.Background(), enums.NotificationTypeSystem, EntityRef{}, 0)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestGateWrapsStoreErrors(t *testing.T) {
	gate := NewGate(&failingRepo{err: errors.New("db down")}, nil)
	allowed, err := gate.Allow(context.Background(), enums.NotificationTypeLowStock, ProductRef(uuid.New()), 0)
	require.Error(t, err)
	assert.False(t, allowed)
	assert.Equal(t, pkgerrors.CodeDependency, pkgerrors.CodeOf(err))
}

func TestDefaultWindow(t *testing.T) {
	assert.Equal(t, time.Hour, DefaultWindow(enums.NotificationTypeLowStock))
	assert.Equal(t, 6*time.Hour, DefaultWindow(enums.NotificationTypeOverdueOrder))
	assert.Zero(t, DefaultWindow(enums.NotificationTypeSystem))
}

type failingRepo struct {
	err     error
	created []models.Notification
}

func (f *failingRepo) Create(_ context.Context, n *models.Notification) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, *n)
	return nil
}

func (f *failingRepo) ExistsSince(context.Context, enums.NotificationType, EntityRef, time.Time) (bool, error) {
	return false, f.err
}

func (f *failingRepo) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, f.err
}
