package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/stockwatch-backend/pkg/db/dbtest"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stockwatch-backend/pkg/errors"
)

func TestSweepRemovesOnlyExpiredNotifications(t *testing.T) {
	conn := dbtest.Open(t)
	now := time.Now().UTC()
	sweeper := NewSweeper(NewRepository(conn), func() time.Time { return now })

	old := dbtest.CreateNotification(t, conn, models.Notification{Type: enums.NotificationTypeSystem}, now.Add(-31*24*time.Hour))
	recent := dbtest.CreateNotification(t, conn, models.Notification{Type: enums.NotificationTypeSystem, IsRead: true}, now.Add(-29*24*time.Hour))

	deleted, err := sweeper.Sweep(context.Background(), DefaultRetention)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	require.NoError(t, conn.Model(&models.Notification{}).Where("id = ?", old.ID).Count(&count).Error)
	assert.Zero(t, count)
	require.NoError(t, conn.Model(&models.Notification{}).Where("id = ?", recent.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	deleted, err = sweeper.Sweep(context.Background(), DefaultRetention)
	require.NoError(t, err)
	assert.Zero(t, deleted, "sweep is idempotent")
}

func TestSweepRejectsNonPositiveMaxAge(t *testing.T) {
	sweeper := NewSweeper(&failingRepo{}, nil)
	_, err := sweeper.Sweep(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
