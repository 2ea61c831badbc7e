package routes_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/lentil-life/internal/config"
	"github.com/example/lentil-life/internal/database"
	"github.com/example/lentil-life/internal/middleware"
	"github.com/example/lentil-life/internal/models"
	"github.com/example/lentil-life/internal/routes"
	"github.com/example/lentil-life/internal/services"
)

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	cfg := &config.Config{
		AppPort:      "4000",
		JWTSecret:    "test-secret",
		TokenExpires: time.Hour,
	}

	app := fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler})
	routes.Register(app, db, cfg)
	return app, db
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestRegisterLoginAndProfile(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":      "jo@example.com",
		"password":   "hunter22",
		"first_name": "Jo",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)

	resp, body = doJSON(t, app, http.MethodGet, "/api/profile", nil, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	assert.Equal(t, "jo@example.com", user["email"])

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"email":    "jo@example.com",
		"password": "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	app, _ := newTestApp(t)

	payload := map[string]interface{}{
		"email":      "dup@example.com",
		"password":   "hunter22",
		"first_name": "Dup",
	}
	resp, _ := doJSON(t, app, http.MethodPost, "/api/auth/register", payload, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/auth/register", payload, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestGuestOrderFlow(t *testing.T) {
	app, db := newTestApp(t)

	item := models.MenuItem{Name: "Lentil Bowl", Price: 9.00, IsActive: true, Category: "bowls"}
	require.NoError(t, db.Create(&item).Error)

	resp, body := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Walk In",
		"customer_email": "walkin@example.com",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "cash",
		"items": []map[string]interface{}{
			{"menu_item_id": item.ID, "quantity": 2},
		},
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "pending_cash_payment", data["status"])
	assert.InDelta(t, 18.00, data["total"].(float64), 1e-9)

	orderID := data["id"].(string)
	resp, body = doJSON(t, app, http.MethodGet, "/api/orders/"+orderID+"/receipt", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	receipt := body["data"].(map[string]interface{})
	assert.InDelta(t, 18.00, receipt["subtotal"].(float64), 1e-9)
}

func TestCardOrderCreatedWhenGatewayUnavailable(t *testing.T) {
	app, db := newTestApp(t)

	item := models.MenuItem{Name: "Lentil Bowl", Price: 9.00, IsActive: true, Category: "bowls"}
	require.NoError(t, db.Create(&item).Error)

	// No Stripe key configured: the intent cannot be created, but the
	// order itself must still go through.
	resp, body := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Card Holder",
		"customer_email": "card@example.com",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "card",
		"items": []map[string]interface{}{
			{"menu_item_id": item.ID, "quantity": 1},
		},
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "pending_payment", data["status"])
	_, hasPayment := body["payment"]
	assert.False(t, hasPayment)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func registerTestUser(t *testing.T, app *fiber.App, email string) string {
	t.Helper()

	resp, body := doJSON(t, app, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"email":      email,
		"password":   "hunter22",
		"first_name": "Member",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRedeemPointsRejectedWithoutBalance(t *testing.T) {
	app, db := newTestApp(t)
	token := registerTestUser(t, app, "broke@example.com")

	item := models.MenuItem{Name: "Lentil Bowl", Price: 10.00, IsActive: true, Category: "bowls"}
	require.NoError(t, db.Create(&item).Error)

	resp, body := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Broke Member",
		"customer_email": "broke@example.com",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "cash",
		"redeem_points":  1000,
		"items": []map[string]interface{}{
			{"menu_item_id": item.ID, "quantity": 1},
		},
	}, token)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "insufficient points balance", body["error"])

	// The rejection happens before pricing, so nothing was persisted at a
	// discounted total.
	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRedeemPointsReducesTotalAndLedger(t *testing.T) {
	app, db := newTestApp(t)
	token := registerTestUser(t, app, "saver@example.com")

	var user models.User
	require.NoError(t, db.First(&user, "email = ?", "saver@example.com").Error)
	_, err := services.NewPointsService(db).Award(user.ID, uuid.New(), 500.00)
	require.NoError(t, err)

	item := models.MenuItem{Name: "Lentil Bowl", Price: 10.00, IsActive: true, Category: "bowls"}
	require.NoError(t, db.Create(&item).Error)

	resp, body := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Saver",
		"customer_email": "saver@example.com",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "cash",
		"redeem_points":  200,
		"items": []map[string]interface{}{
			{"menu_item_id": item.ID, "quantity": 1},
		},
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]interface{})
	assert.InDelta(t, 8.00, data["total"].(float64), 1e-9)
	assert.EqualValues(t, 200, body["points_redeemed"].(float64))

	var spent int64
	require.NoError(t, db.Model(&models.PointsTransaction{}).
		Where("user_id = ? AND type = ?", user.ID, models.PointsTransactionSpent).
		Count(&spent).Error)
	assert.EqualValues(t, 1, spent)
}

func TestGuestCheckoutCannotApplyPromo(t *testing.T) {
	app, db := newTestApp(t)

	promo := models.PromoCode{
		Code:          "SAVE10",
		IsActive:      true,
		DiscountType:  models.DiscountTypePercent,
		DiscountValue: 10,
		UsageLimit:    100,
	}
	require.NoError(t, db.Create(&promo).Error)

	item := models.MenuItem{Name: "Lentil Bowl", Price: 10.00, IsActive: true, Category: "bowls"}
	require.NoError(t, db.Create(&item).Error)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Anonymous",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "cash",
		"promo_code":     "SAVE10",
		"items": []map[string]interface{}{
			{"menu_item_id": item.ID, "quantity": 1},
		},
	}, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, "id = ?", promo.ID).Error)
	assert.Equal(t, 0, reloaded.UsedCount)
}

func TestMemberCheckoutPromoCountsUsage(t *testing.T) {
	app, db := newTestApp(t)
	token := registerTestUser(t, app, "member@example.com")

	promo := models.PromoCode{
		Code:          "SAVE10",
		IsActive:      true,
		DiscountType:  models.DiscountTypePercent,
		DiscountValue: 10,
		UsageLimit:    100,
	}
	require.NoError(t, db.Create(&promo).Error)

	item := models.MenuItem{Name: "Lentil Bowl", Price: 10.00, IsActive: true, Category: "bowls"}
	require.NoError(t, db.Create(&item).Error)

	resp, body := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Member",
		"customer_email": "member@example.com",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "cash",
		"promo_code":     "SAVE10",
		"items": []map[string]interface{}{
			{"menu_item_id": item.ID, "quantity": 1},
		},
	}, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := body["data"].(map[string]interface{})
	assert.InDelta(t, 9.00, data["total"].(float64), 1e-9)
	assert.InDelta(t, 1.00, body["discount"].(float64), 1e-9)

	var reloaded models.PromoCode
	require.NoError(t, db.First(&reloaded, "id = ?", promo.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)

	var usages int64
	require.NoError(t, db.Model(&models.PromoUsage{}).Where("promo_code_id = ?", promo.ID).Count(&usages).Error)
	assert.EqualValues(t, 1, usages)
}

func TestOrderRejectsUnknownMenuItem(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/orders", map[string]interface{}{
		"customer_name":  "Walk In",
		"pickup_date":    "2026-09-15",
		"pickup_time":    "12:00 - 12:30",
		"payment_method": "cash",
		"items": []map[string]interface{}{
			{"menu_item_id": uuid.NewString(), "quantity": 1},
		},
	}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMenuEndpoints(t *testing.T) {
	app, db := newTestApp(t)

	require.NoError(t, db.Create(&models.MenuItem{Name: "Bowl", Price: 9, Category: "bowls", IsActive: true, IsFeatured: true}).Error)
	require.NoError(t, db.Create(&models.MenuItem{Name: "Tea", Price: 3, Category: "drinks", IsActive: true}).Error)
	require.NoError(t, db.Create(&models.MenuItem{Name: "Hidden", Price: 5, Category: "bowls", IsActive: false}).Error)

	resp, body := doJSON(t, app, http.MethodGet, "/api/menu", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 2)

	resp, body = doJSON(t, app, http.MethodGet, "/api/menu/featured", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)

	resp, body = doJSON(t, app, http.MethodGet, "/api/menu/category/drinks", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)
}

func TestPointsCalculateEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/api/points/calculate?amount=23.40", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 23, body["points"].(float64))

	resp, _ = doJSON(t, app, http.MethodGet, "/api/points/calculate?amount=-1", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app, _ := newTestApp(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/profile", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/points/balance", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/payment/webhook", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
