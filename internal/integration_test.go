package internal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"parkease-backend/internal/api"
	"parkease-backend/internal/auth"
	"parkease-backend/internal/booking"
	appdb "parkease-backend/internal/db"
	"parkease-backend/internal/store"
)

const testAdminCode = "let-me-in"

func setupStack(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, appdb.Migrate(testDB))

	ledger := store.NewAvailabilityLedger(testDB)
	slots := store.NewSlotStore(testDB, ledger)
	allocator := booking.NewAllocator(testDB, slots)
	lifecycle := booking.NewLifecycle(testDB, slots, nil)
	tokens := auth.NewTokenManager("integration-secret", time.Hour)

	h := api.NewHandler(testDB, slots, ledger, allocator, lifecycle, tokens, nil, testAdminCode)
	return api.NewRouter(h, api.RouterConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTL:        time.Minute,
	})
}

// do performs one request against the router and decodes the JSON
// response body into a generic map.
func do(t *testing.T, router *gin.Engine, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func registerAndLogin(t *testing.T, router *gin.Engine, email, adminCode string) string {
	t.Helper()
	path := "/api/auth/register"
	if adminCode != "" {
		path = "/api/auth/register/admin"
	}
	code, resp := do(t, router, "POST", path, "", gin.H{
		"name":      "Integration User",
		"email":     email,
		"password":  "password123",
		"phone":     "5550100",
		"adminCode": adminCode,
	})
	require.Equal(t, http.StatusCreated, code)
	token, _ := resp["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// TestBookingLifecycleOverHTTP walks a booking from creation through
// timer start and stop, verifying slot and counter state at each step.
func TestBookingLifecycleOverHTTP(t *testing.T) {
	router := setupStack(t)

	// Admin registration is gated by the configured code.
	code, _ := do(t, router, "POST", "/api/auth/register/admin", "", gin.H{
		"name": "Mallory", "email": "mallory@example.com", "password": "password123",
		"phone": "5550100", "adminCode": "wrong",
	})
	assert.Equal(t, http.StatusForbidden, code)

	adminToken := registerAndLogin(t, router, "admin@example.com", testAdminCode)
	userToken := registerAndLogin(t, router, "user@example.com", "")

	// Admin provisions a location with two slots.
	code, loc := do(t, router, "POST", "/api/locations", adminToken, gin.H{
		"locationCode": "CEN-01",
		"name":         "Central Parking",
		"address":      "1 Center Road",
		"latitude":     12.97,
		"longitude":    77.59,
		"pricing":      gin.H{"car": 15},
	})
	require.Equal(t, http.StatusCreated, code)
	locID := int64(loc["id"].(float64))

	var slotID int64
	for _, slotNo := range []string{"A1", "A2"} {
		code, slot := do(t, router, "POST", "/api/slots", adminToken, gin.H{
			"locationId": locID, "slotNo": slotNo,
		})
		require.Equal(t, http.StatusCreated, code)
		if slotNo == "A1" {
			slotID = int64(slot["id"].(float64))
		}
	}

	// A regular user cannot provision slots.
	code, _ = do(t, router, "POST", "/api/slots", userToken, gin.H{
		"locationId": locID, "slotNo": "A3",
	})
	assert.Equal(t, http.StatusForbidden, code)

	code, avail := do(t, router, "GET", fmt.Sprintf("/api/locations/%d/availability", locID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), avail["availableSlots"])

	// Booking requires authentication.
	start := time.Now().UTC().Add(-time.Minute)
	bookingBody := gin.H{
		"slotId":        slotID,
		"locationId":    locID,
		"vehicleNumber": "KA01AB1234",
		"vehicleType":   "car",
		"bookingDate":   start.Format(time.RFC3339),
		"startTime":     start.Format(time.RFC3339),
		"endTime":       start.Add(40 * time.Minute).Format(time.RFC3339),
	}
	code, _ = do(t, router, "POST", "/api/bookings", "", bookingBody)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, created := do(t, router, "POST", "/api/bookings", userToken, bookingBody)
	require.Equal(t, http.StatusCreated, code)
	b := created["booking"].(map[string]any)
	bookingID := int64(b["id"].(float64))
	assert.Equal(t, float64(40), b["duration"])
	assert.Equal(t, float64(45), b["totalAmount"])
	assert.Equal(t, "upcoming", b["bookingStatus"])

	// The held slot is out of the pool; a second booking for it loses.
	code, avail = do(t, router, "GET", fmt.Sprintf("/api/locations/%d/availability", locID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), avail["availableSlots"])

	code, _ = do(t, router, "POST", "/api/bookings", userToken, bookingBody)
	assert.Equal(t, http.StatusConflict, code)

	// Start and stop the occupancy timer.
	code, started := do(t, router, "POST", fmt.Sprintf("/api/bookings/%d/start-timer", bookingID), userToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "active", started["booking"].(map[string]any)["bookingStatus"])

	code, stopped := do(t, router, "POST", fmt.Sprintf("/api/bookings/%d/stop-timer", bookingID), userToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "completed", stopped["booking"].(map[string]any)["bookingStatus"])

	code, _ = do(t, router, "POST", fmt.Sprintf("/api/bookings/%d/stop-timer", bookingID), userToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, avail = do(t, router, "GET", fmt.Sprintf("/api/locations/%d/availability", locID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), avail["availableSlots"])

	// The completed booking lands in the past bucket.
	code, mine := do(t, router, "GET", "/api/bookings/my-bookings", userToken, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, mine["past"], 1)
	assert.Empty(t, mine["upcoming"])
}

func TestCancelAndSubscriptionsOverHTTP(t *testing.T) {
	router := setupStack(t)

	adminToken := registerAndLogin(t, router, "admin@example.com", testAdminCode)
	userToken := registerAndLogin(t, router, "user@example.com", "")

	code, loc := do(t, router, "POST", "/api/locations", adminToken, gin.H{
		"locationCode": "STN-02", "name": "Station Parking", "address": "2 Station Road",
		"latitude": 12.97, "longitude": 77.59,
	})
	require.Equal(t, http.StatusCreated, code)
	locID := int64(loc["id"].(float64))

	code, slot := do(t, router, "POST", "/api/slots", adminToken, gin.H{
		"locationId": locID, "slotNo": "A1",
	})
	require.Equal(t, http.StatusCreated, code)
	slotID := int64(slot["id"].(float64))

	// Subscribe a browser endpoint to freed-slot events here.
	code, _ = do(t, router, "PUT", "/api/subscriptions", "", gin.H{
		"endpoint":             "https://push.example.com/sub-1",
		"p256dh":               "p256dh-key",
		"auth":                 "auth-key",
		"subscribed_locations": []int64{locID},
	})
	require.Equal(t, http.StatusCreated, code)

	code, sub := do(t, router, "GET", "/api/subscriptions?endpoint=https://push.example.com/sub-1", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{float64(locID)}, sub["subscribed_locations"])

	// Book, cancel, then clean up the terminal booking.
	start := time.Now().UTC().Add(30 * time.Minute)
	code, created := do(t, router, "POST", "/api/bookings", userToken, gin.H{
		"slotId":        slotID,
		"locationId":    locID,
		"vehicleNumber": "KA01AB1234",
		"vehicleType":   "car",
		"bookingDate":   start.Format(time.RFC3339),
		"startTime":     start.Format(time.RFC3339),
		"endTime":       start.Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code)
	bookingID := int64(created["booking"].(map[string]any)["id"].(float64))

	// Deleting a live booking is refused.
	code, _ = do(t, router, "DELETE", fmt.Sprintf("/api/bookings/%d", bookingID), userToken, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, cancelled := do(t, router, "POST", fmt.Sprintf("/api/bookings/%d/cancel", bookingID), userToken, gin.H{
		"reason": "plans changed",
	})
	require.Equal(t, http.StatusOK, code)
	cb := cancelled["booking"].(map[string]any)
	assert.Equal(t, "cancelled", cb["bookingStatus"])
	assert.Equal(t, "refunded", cb["paymentStatus"])
	assert.Equal(t, "plans changed", cb["cancellationReason"])

	code, avail := do(t, router, "GET", fmt.Sprintf("/api/locations/%d/availability", locID), "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), avail["availableSlots"])

	code, _ = do(t, router, "DELETE", fmt.Sprintf("/api/bookings/%d", bookingID), userToken, nil)
	assert.Equal(t, http.StatusOK, code)

	// Admin sees the (now empty) booking list; a user does not.
	code, _ = do(t, router, "GET", "/api/admin/bookings", userToken, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, router, "GET", "/api/admin/bookings", adminToken, nil)
	assert.Equal(t, http.StatusOK, code)
}
