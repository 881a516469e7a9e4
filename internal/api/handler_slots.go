package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"parkease-backend/internal/model"
	"parkease-backend/internal/store"
)

// GetSlots handles GET /api/locations/:location_id/slots.
func (h *Handler) GetSlots(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	slots, err := h.slots.ListByLocation(c.Request.Context(), id)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve slots"})
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GetAvailableSlots handles GET
// /api/locations/:location_id/slots/available?startTime=RFC3339.
func (h *Handler) GetAvailableSlots(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	start := time.Now().UTC()
	if raw := c.Query("startTime"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid startTime, use RFC3339"})
			return
		}
		start = parsed
	}

	slots, err := h.slots.AvailableForWindow(c.Request.Context(), id, start)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve available slots"})
		return
	}
	c.JSON(http.StatusOK, slots)
}

type createSlotRequest struct {
	LocationID  int64   `json:"locationId" binding:"required"`
	SlotNo      string  `json:"slotNo" binding:"required"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	VehicleType string  `json:"vehicleType"`
}

// CreateSlot handles POST /api/slots (admin).
func (h *Handler) CreateSlot(c *gin.Context) {
	var req createSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vt := model.VehicleAll
	if req.VehicleType != "" {
		parsed, err := model.ParseSlotVehicleType(req.VehicleType)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		vt = parsed
	}

	slot := model.Slot{
		LocationID:        req.LocationID,
		SlotNo:            req.SlotNo,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		VehicleType:       vt,
		NextAvailableTime: time.Now().UTC(),
	}
	if err := h.slots.Create(c.Request.Context(), &slot); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, slot)
}

type updateSlotRequest struct {
	SlotNo            *string    `json:"slotNo"`
	Latitude          *float64   `json:"latitude"`
	Longitude         *float64   `json:"longitude"`
	VehicleType       *string    `json:"vehicleType"`
	NextAvailableTime *time.Time `json:"nextAvailableTime"`
}

// UpdateSlot handles PUT /api/slots/:slot_id (admin). Occupancy
// status is not settable here; use the maintenance endpoint.
func (h *Handler) UpdateSlot(c *gin.Context) {
	id, ok := pathID(c, "slot_id")
	if !ok {
		return
	}

	var req updateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	meta := store.UpdateMeta{
		SlotNo:            req.SlotNo,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		NextAvailableTime: req.NextAvailableTime,
	}
	if req.VehicleType != nil {
		vt, err := model.ParseSlotVehicleType(*req.VehicleType)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		meta.VehicleType = &vt
	}

	slot, err := h.slots.Update(c.Request.Context(), id, meta)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

type maintenanceRequest struct {
	On *bool `json:"on" binding:"required"`
}

// SetSlotMaintenance handles PATCH /api/slots/:slot_id/maintenance
// (admin).
func (h *Handler) SetSlotMaintenance(c *gin.Context) {
	id, ok := pathID(c, "slot_id")
	if !ok {
		return
	}

	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	slot, err := h.slots.SetMaintenance(c.Request.Context(), id, *req.On)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, slot)
}

// DeleteSlot handles DELETE /api/slots/:slot_id (admin, soft delete).
// A booked slot cannot be removed.
func (h *Handler) DeleteSlot(c *gin.Context) {
	id, ok := pathID(c, "slot_id")
	if !ok {
		return
	}

	if err := h.slots.Deactivate(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "slot deleted"})
}
