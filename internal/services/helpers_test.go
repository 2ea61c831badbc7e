package services_test

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/lentil-life/internal/database"
	"github.com/example/lentil-life/internal/models"
)

// openTestDB returns a fresh in-memory database with the full schema. Each
// test gets its own named shared-cache database so connections from gorm's
// pool see the same data.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.Migrate(db))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, city, state string) models.User {
	t.Helper()

	user := models.User{
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Test",
		City:         city,
		State:        state,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createTestOrder(t *testing.T, db *gorm.DB, userID *uuid.UUID, total float64, status models.OrderStatus) models.Order {
	t.Helper()

	order := models.Order{
		UserID:        userID,
		CustomerName:  "Test Customer",
		CustomerEmail: "customer@example.com",
		PickupDate:    "2026-09-15",
		PickupTime:    "11:00 - 11:30",
		Status:        status,
		Subtotal:      total,
		Total:         total,
		PaymentMethod: "cash",
	}
	require.NoError(t, db.Create(&order).Error)
	return order
}
