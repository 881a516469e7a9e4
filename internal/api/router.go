package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"parkease-backend/internal/mw"
)

// RouterConfig carries the tunables the router needs.
type RouterConfig struct {
	RateLimitPerSec float64
	RateLimitBurst  int
	CacheTTL        time.Duration
}

// NewRouter creates and configures the Gin router.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	authed := mw.RequireAuth(h.tokens)
	admin := mw.RequireAdmin()

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/auth/register", h.Register)
		api.POST("/auth/register/admin", h.RegisterAdmin)
		api.POST("/auth/login", h.Login)

		// Public, cacheable reads.
		api.GET("/locations", caching, h.GetLocations)
		api.GET("/locations/:location_id", caching, h.GetLocation)
		api.GET("/locations/:location_id/availability", h.GetAvailability)
		api.GET("/locations/:location_id/slots", h.GetSlots)
		api.GET("/locations/:location_id/slots/available", h.GetAvailableSlots)

		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)

		user := api.Group("/bookings", authed)
		{
			user.POST("", h.CreateBooking)
			user.GET("/my-bookings", h.GetMyBookings)
			user.GET("/:booking_id", h.GetBooking)
			user.POST("/:booking_id/start-timer", h.StartTimer)
			user.POST("/:booking_id/stop-timer", h.StopTimer)
			user.POST("/:booking_id/cancel", h.CancelBooking)
			user.POST("/:booking_id/extend", h.ExtendBooking)
			user.DELETE("/:booking_id", h.DeleteBooking)
		}

		adm := api.Group("", authed, admin)
		{
			adm.POST("/locations", h.CreateLocation)
			adm.PUT("/locations/:location_id", h.UpdateLocation)
			adm.PATCH("/locations/:location_id/pricing", h.UpdatePricing)
			adm.DELETE("/locations/:location_id", h.DeleteLocation)

			adm.POST("/slots", h.CreateSlot)
			adm.PUT("/slots/:slot_id", h.UpdateSlot)
			adm.PATCH("/slots/:slot_id/maintenance", h.SetSlotMaintenance)
			adm.DELETE("/slots/:slot_id", h.DeleteSlot)

			adm.GET("/admin/bookings", h.ListBookings)
		}
	}

	return r
}
