// Package dbtest opens migrated in-memory sqlite databases for repository tests.
package dbtest

import (
	"context"
	"fmt"
	"io"
	"log"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/stockwatch-backend/pkg/config"
	"github.com/angelmondragon/stockwatch-backend/pkg/db"
	"github.com/angelmondragon/stockwatch-backend/pkg/db/models"
	"github.com/angelmondragon/stockwatch-backend/pkg/enums"
	"github.com/angelmondragon/stockwatch-backend/pkg/migrate"
)

var nameSanitizer = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// Open returns a gorm handle to a private in-memory sqlite database with every
// migration applied. The database is closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared",
		nameSanitizer.ReplaceAllString(t.Name(), "_"), uuid.NewString()[:8])

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
		NowFunc: db.NowUTC,
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.Up(context.Background(), sqlDB, config.DriverSQLite))
	return conn
}

// CreateProduct inserts a product with the given stock figures.
func CreateProduct(t testing.TB, conn *gorm.DB, name string, stock, reorder int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:           uuid.New(),
		SKU:          fmt.Sprintf("SKU-%s", uuid.NewString()[:8]),
		Name:         name,
		StockLevel:   stock,
		ReorderPoint: reorder,
	}
	require.NoError(t, conn.Create(product).Error)
	return product
}

// CreateOrder inserts an order for product expected at the given time.
func CreateOrder(t testing.TB, conn *gorm.DB, productID uuid.UUID, status enums.OrderStatus, expected time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		ID:           uuid.New(),
		ProductID:    productID,
		Quantity:     1,
		Status:       status,
		ExpectedDate: expected.UTC(),
	}
	if status == enums.OrderStatusDelivered {
		delivered := expected.UTC()
		order.DeliveredDate = &delivered
	}
	require.NoError(t, conn.Create(order).Error)
	return order
}

// CreateNotification inserts a notification stamped at createdAt.
func CreateNotification(t testing.TB, conn *gorm.DB, n models.Notification, createdAt time.Time) *models.Notification {
	t.Helper()
	if n.Title == "" {
		n.Title = "fixture"
	}
	if n.Message == "" {
		n.Message = "fixture"
	}
	n.CreatedAt = createdAt.UTC()
	require.NoError(t, conn.Create(&n).Error)
	return &n
}
