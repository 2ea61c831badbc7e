package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/services"
)

func TestOrderStatusForEvent(t *testing.T) {
	status, ok := services.OrderStatusForEvent("payment_intent.succeeded")
	assert.True(t, ok)
	assert.Equal(t, models.OrderStatusPaid, status)

	status, ok = services.OrderStatusForEvent("payment_intent.payment_failed")
	assert.True(t, ok)
	assert.Equal(t, models.OrderStatusPaymentFailed, status)

	status, ok = services.OrderStatusForEvent("payment_intent.canceled")
	assert.True(t, ok)
	assert.Equal(t, models.OrderStatusCancelled, status)

	_, ok = services.OrderStatusForEvent("charge.refunded")
	assert.False(t, ok)
	_, ok = services.OrderStatusForEvent("")
	assert.False(t, ok)
}

func TestProcessingFee(t *testing.T) {
	assert.InDelta(t, 0.30, services.ProcessingFee(0), 1e-9)
	assert.InDelta(t, 2.9+0.30, services.ProcessingFee(100), 1e-9)
	assert.InDelta(t, 25.00*0.029+0.30, services.ProcessingFee(25.00), 1e-9)
}

func TestPaymentServiceUnconfigured(t *testing.T) {
	svc := services.NewPaymentService("", "pk_test_x", "")

	_, err := svc.CreateIntent(10, "usd", nil)
	assert.ErrorIs(t, err, services.ErrPaymentsNotConfigured)
	_, err = svc.GetIntent("pi_123")
	assert.ErrorIs(t, err, services.ErrPaymentsNotConfigured)
	_, err = svc.ConfirmIntent("pi_123")
	assert.ErrorIs(t, err, services.ErrPaymentsNotConfigured)
	_, err = svc.CreateRefund("pi_123", nil)
	assert.ErrorIs(t, err, services.ErrPaymentsNotConfigured)

	assert.Equal(t, "pk_test_x", svc.PublishableKey())
}
