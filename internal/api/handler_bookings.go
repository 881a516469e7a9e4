package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parkease-backend/internal/booking"
	"parkease-backend/internal/model"
	"parkease-backend/internal/mw"
)

type createBookingRequest struct {
	SlotID        int64     `json:"slotId" binding:"required"`
	LocationID    int64     `json:"locationId" binding:"required"`
	VehicleNumber string    `json:"vehicleNumber" binding:"required"`
	VehicleType   string    `json:"vehicleType" binding:"required"`
	BookingDate   time.Time `json:"bookingDate" binding:"required"`
	StartTime     time.Time `json:"startTime" binding:"required"`
	EndTime       time.Time `json:"endTime" binding:"required"`
}

// CreateBooking handles POST /api/bookings.
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vt, err := model.ParseVehicleType(req.VehicleType)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	b, err := h.allocator.Create(c.Request.Context(), booking.CreateRequest{
		UserID:        mw.CallerID(c),
		SlotID:        req.SlotID,
		LocationID:    req.LocationID,
		VehicleNumber: req.VehicleNumber,
		VehicleType:   vt,
		BookingDate:   req.BookingDate,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "booking created", "booking": b})
}

// GetMyBookings handles GET /api/bookings/my-bookings, returning the
// caller's bookings categorized by where they sit relative to now.
func (h *Handler) GetMyBookings(c *gin.Context) {
	status := model.BookingStatus(c.Query("status"))
	bookings, err := h.lifecycle.ListByUser(c.Request.Context(), mw.CallerID(c), status)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve bookings"})
		return
	}

	now := time.Now().UTC()
	past := []model.Booking{}
	current := []model.Booking{}
	upcoming := []model.Booking{}
	for _, b := range bookings {
		switch {
		case b.Status.Terminal():
			past = append(past, b)
		case b.Status == model.BookingActive && !b.StartTime.After(now) && !b.EndTime.Before(now):
			current = append(current, b)
		case b.Status == model.BookingUpcoming && b.StartTime.After(now):
			upcoming = append(upcoming, b)
		default:
			past = append(past, b)
		}
	}
	c.JSON(http.StatusOK, gin.H{"past": past, "current": current, "upcoming": upcoming})
}

// GetBooking handles GET /api/bookings/:booking_id.
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}

	b, err := h.lifecycle.Get(c.Request.Context(), id, mw.CallerID(c), mw.CallerRole(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// StartTimer handles POST /api/bookings/:booking_id/start-timer.
func (h *Handler) StartTimer(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}

	b, err := h.lifecycle.StartTimer(c.Request.Context(), id, mw.CallerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "timer started", "booking": b})
}

// StopTimer handles POST /api/bookings/:booking_id/stop-timer.
func (h *Handler) StopTimer(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}

	b, err := h.lifecycle.StopTimer(c.Request.Context(), id, mw.CallerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "timer stopped and slot released", "booking": b})
}

type cancelBookingRequest struct {
	Reason string `json:"reason"`
}

// CancelBooking handles POST /api/bookings/:booking_id/cancel.
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}

	var req cancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	b, err := h.lifecycle.Cancel(c.Request.Context(), id, mw.CallerID(c), req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking cancelled", "booking": b})
}

// ExtendBooking handles POST /api/bookings/:booking_id/extend.
func (h *Handler) ExtendBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}

	b, err := h.lifecycle.Extend(c.Request.Context(), id, mw.CallerID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "booking extended by 15 minutes",
		"booking":        b,
		"newEndTime":     b.EndTime,
		"newTotalAmount": b.TotalAmount,
	})
}

// DeleteBooking handles DELETE /api/bookings/:booking_id.
func (h *Handler) DeleteBooking(c *gin.Context) {
	id, ok := pathID(c, "booking_id")
	if !ok {
		return
	}

	if err := h.lifecycle.Delete(c.Request.Context(), id, mw.CallerID(c), mw.CallerRole(c)); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "booking deleted"})
}

// ListBookings handles GET /api/admin/bookings with optional
// location/status filters.
func (h *Handler) ListBookings(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&model.Booking{})
	if raw := c.Query("locationId"); raw != "" {
		q = q.Where("location_id = ?", raw)
	}
	if raw := c.Query("status"); raw != "" {
		q = q.Where("status = ?", raw)
	}

	var bookings []model.Booking
	if err := q.Order("created_at DESC").Find(&bookings).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve bookings"})
		return
	}
	c.JSON(http.StatusOK, bookings)
}
