package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/services"
)

func newOrderService(db *gorm.DB) *services.OrderService {
	points := services.NewPointsService(db)
	slots := services.NewTimeSlotService(db)
	return services.NewOrderService(db, points, slots)
}

func TestCreateOrderWithItems(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)

	order := models.Order{
		CustomerName:  "Walk In",
		PickupDate:    "2026-09-15",
		PickupTime:    "12:00 - 12:30",
		Status:        models.InitialOrderStatus("cash"),
		PaymentMethod: "cash",
		Subtotal:      18.00,
		Total:         18.00,
		Items: []models.OrderItem{
			{Name: "Lentil Bowl", UnitPrice: 9.00, Quantity: 2},
		},
	}
	require.NoError(t, svc.Create(&order))
	assert.Equal(t, models.OrderStatusPendingCashPayment, order.Status)

	loaded, err := svc.Get(order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, order.ID, loaded.Items[0].OrderID)
}

func TestCreateOrderRejectsFullSlot(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)
	slots := services.NewTimeSlotService(db)

	slot, err := slots.AddSlot("11:00", "11:30", 1)
	require.NoError(t, err)

	createTestOrder(t, db, nil, 10, models.OrderStatusPaid)

	order := models.Order{
		CustomerName: "Second",
		PickupDate:   "2026-09-15",
		PickupTime:   slot.Label(),
		Status:       models.OrderStatusPending,
	}
	err = svc.Create(&order)
	assert.ErrorIs(t, err, services.ErrSlotFull)
}

func TestCreateOrderAllowsUnconfiguredWindow(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)

	// No slot configured for this window: no capacity cap applies.
	order := models.Order{
		CustomerName: "Anyone",
		PickupDate:   "2026-09-15",
		PickupTime:   "20:00 - 20:30",
		Status:       models.OrderStatusPending,
	}
	assert.NoError(t, svc.Create(&order))
}

func TestCompletingOrderAwardsPoints(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)
	user := createTestUser(t, db, "", "")
	order := createTestOrder(t, db, &user.ID, 40.00, models.OrderStatusPaid)

	updated, outcome, err := svc.UpdateStatus(order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)
	require.NotNil(t, outcome)
	assert.Equal(t, 40, outcome.PointsAwarded)

	account, err := services.NewPointsService(db).Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, account.Balance)
}

func TestReplayedCompletionDoesNotDoubleAward(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)
	user := createTestUser(t, db, "", "")
	order := createTestOrder(t, db, &user.ID, 40.00, models.OrderStatusPaid)

	_, _, err := svc.UpdateStatus(order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	// Moving away and back replays the completed transition.
	_, _, err = svc.UpdateStatus(order.ID, models.OrderStatusReady)
	require.NoError(t, err)
	_, outcome, err := svc.UpdateStatus(order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Nil(t, outcome)

	account, err := services.NewPointsService(db).Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, account.Balance)
}

func TestCancellingCompletedOrderRefundsPoints(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)
	user := createTestUser(t, db, "", "")
	order := createTestOrder(t, db, &user.ID, 40.00, models.OrderStatusPaid)

	_, _, err := svc.UpdateStatus(order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)

	_, outcome, err := svc.UpdateStatus(order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, 40, outcome.PointsRefunded)

	account, err := services.NewPointsService(db).Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, account.Balance)
}

func TestCancellingUncompletedOrderRefundsNothing(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)
	user := createTestUser(t, db, "", "")
	order := createTestOrder(t, db, &user.ID, 40.00, models.OrderStatusPendingPayment)

	_, _, err := svc.UpdateStatus(order.ID, models.OrderStatusPaid)
	require.NoError(t, err)
	_, outcome, err := svc.UpdateStatus(order.ID, models.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Nil(t, outcome)

	account, err := services.NewPointsService(db).Balance(user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, account.Balance)
}

func TestGuestOrderHasNoPointsSideEffects(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)
	order := createTestOrder(t, db, nil, 40.00, models.OrderStatusPaid)

	_, outcome, err := svc.UpdateStatus(order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Nil(t, outcome)
}

func TestListFiltersByStatus(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)

	createTestOrder(t, db, nil, 10, models.OrderStatusPaid)
	createTestOrder(t, db, nil, 10, models.OrderStatusPaid)
	createTestOrder(t, db, nil, 10, models.OrderStatusPending)

	orders, total, err := svc.List(models.OrderStatusPaid, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, orders, 2)

	orders, total, err = svc.List("", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, orders, 3)
}

func TestDeleteOrderRemovesItems(t *testing.T) {
	db := openTestDB(t)
	svc := newOrderService(db)

	order := models.Order{
		CustomerName: "Gone",
		PickupDate:   "2026-09-15",
		PickupTime:   "12:00 - 12:30",
		Status:       models.OrderStatusPending,
		Items:        []models.OrderItem{{Name: "Soup", UnitPrice: 6, Quantity: 1}},
	}
	require.NoError(t, svc.Create(&order))

	deleted, err := svc.Delete(order.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	var count int64
	require.NoError(t, db.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	deleted, err = svc.Delete(order.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestBuildReceipt(t *testing.T) {
	order := &models.Order{
		CustomerName: "Jo",
		PickupDate:   "2026-09-15",
		PickupTime:   "12:00 - 12:30",
		Status:       models.OrderStatusPaid,
		Total:        15.50,
		Items: []models.OrderItem{
			{Name: "Bowl", UnitPrice: 9.00, Quantity: 1},
			{Name: "Soup", UnitPrice: 3.25, Quantity: 2},
		},
	}

	receipt := services.BuildReceipt(order)
	assert.InDelta(t, 15.50, receipt.Subtotal, 1e-9)
	assert.InDelta(t, 15.50, receipt.Total, 1e-9)
	assert.Zero(t, receipt.Tax)
	assert.Equal(t, models.OrderStatusPaid, receipt.Status)
}
