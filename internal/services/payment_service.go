package services

import (
	"errors"
	"log"
	"math"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/example/lentil-life/internal/models"
)

// ErrPaymentsNotConfigured is returned when no Stripe secret key was set.
var ErrPaymentsNotConfigured = errors.New("stripe is not configured")

// Stripe processing fee: 2.9% + $0.30 per transaction.
const (
	processingFeeRate  = 0.029
	processingFeeFixed = 0.30
)

// PaymentService is a thin bridge to the Stripe gateway. It holds no state
// of its own beyond the configured client; the only local logic is the
// event-to-status mapping.
type PaymentService struct {
	api            *client.API
	publishableKey string
	webhookSecret  string
}

// NewPaymentService constructs a PaymentService. With an empty secret key
// the service stays up but every gateway call fails with
// ErrPaymentsNotConfigured.
func NewPaymentService(secretKey, publishableKey, webhookSecret string) *PaymentService {
	svc := &PaymentService{
		publishableKey: publishableKey,
		webhookSecret:  webhookSecret,
	}
	if secretKey == "" {
		log.Println("[Payment] Stripe secret key not configured, card payments disabled")
		return svc
	}

	api := &client.API{}
	api.Init(secretKey, nil)
	svc.api = api
	return svc
}

// PaymentIntentResult is the subset of the gateway intent the API exposes.
type PaymentIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
	AmountCents     int64  `json:"amount"`
	Status          string `json:"status"`
}

// CreateIntent opens a payment intent for a dollar amount.
func (s *PaymentService) CreateIntent(amount float64, currency string, metadata map[string]string) (*PaymentIntentResult, error) {
	if s.api == nil {
		return nil, ErrPaymentsNotConfigured
	}
	if currency == "" {
		currency = "usd"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(toCents(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	for key, value := range metadata {
		params.AddMetadata(key, value)
	}

	intent, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return nil, err
	}

	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		AmountCents:     intent.Amount,
		Status:          string(intent.Status),
	}, nil
}

// GetIntent retrieves a payment intent from the gateway.
func (s *PaymentService) GetIntent(id string) (*stripe.PaymentIntent, error) {
	if s.api == nil {
		return nil, ErrPaymentsNotConfigured
	}
	return s.api.PaymentIntents.Get(id, nil)
}

// ConfirmIntent confirms a payment intent and returns its status.
func (s *PaymentService) ConfirmIntent(id string) (*stripe.PaymentIntent, error) {
	if s.api == nil {
		return nil, ErrPaymentsNotConfigured
	}
	return s.api.PaymentIntents.Confirm(id, &stripe.PaymentIntentConfirmParams{})
}

// CreateRefund refunds a payment intent, fully when amount is nil.
func (s *PaymentService) CreateRefund(intentID string, amount *float64) (*stripe.Refund, error) {
	if s.api == nil {
		return nil, ErrPaymentsNotConfigured
	}
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(intentID),
	}
	if amount != nil {
		params.Amount = stripe.Int64(toCents(*amount))
	}
	return s.api.Refunds.New(params)
}

// VerifyWebhook checks the gateway signature and decodes the event.
func (s *PaymentService) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}

// PublishableKey exposes the frontend key.
func (s *PaymentService) PublishableKey() string {
	return s.publishableKey
}

// ProcessingFee computes the card processing fee for a dollar amount.
func ProcessingFee(amount float64) float64 {
	return amount*processingFeeRate + processingFeeFixed
}

// OrderStatusForEvent maps gateway webhook event types to order statuses.
// Unmapped events are ignored by the webhook handler.
func OrderStatusForEvent(eventType string) (models.OrderStatus, bool) {
	switch eventType {
	case "payment_intent.succeeded":
		return models.OrderStatusPaid, true
	case "payment_intent.payment_failed":
		return models.OrderStatusPaymentFailed, true
	case "payment_intent.canceled":
		return models.OrderStatusCancelled, true
	default:
		return "", false
	}
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
