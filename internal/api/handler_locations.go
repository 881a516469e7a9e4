package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"parkease-backend/internal/model"
	"parkease-backend/internal/mw"
)

// GetLocations handles GET /api/locations.
func (h *Handler) GetLocations(c *gin.Context) {
	var locations []model.Location
	if err := h.db.Where("is_active = ?", true).Order("created_at DESC").Find(&locations).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve locations"})
		return
	}
	c.JSON(http.StatusOK, locations)
}

// GetLocation handles GET /api/locations/:location_id.
func (h *Handler) GetLocation(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	var location model.Location
	if err := h.db.First(&location, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "location not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve location"})
		}
		return
	}
	c.JSON(http.StatusOK, location)
}

// GetAvailability handles GET /api/locations/:location_id/availability,
// returning the ledger snapshot.
func (h *Handler) GetAvailability(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	total, available, err := h.ledger.Snapshot(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalSlots": total, "availableSlots": available})
}

type createLocationRequest struct {
	LocationCode string         `json:"locationCode" binding:"required"`
	Name         string         `json:"name" binding:"required"`
	Address      string         `json:"address" binding:"required"`
	Latitude     float64        `json:"latitude" binding:"required"`
	Longitude    float64        `json:"longitude" binding:"required"`
	Pricing      *model.Pricing `json:"pricing"`
}

// CreateLocation handles POST /api/locations (admin).
func (h *Handler) CreateLocation(c *gin.Context) {
	var req createLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var count int64
	if err := h.db.Model(&model.Location{}).Where("location_code = ?", req.LocationCode).Count(&count).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to check location code"})
		return
	}
	if count > 0 {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "location code already exists"})
		return
	}

	pricing := model.DefaultPricing()
	if req.Pricing != nil {
		pricing = mergePricing(pricing, *req.Pricing)
	}

	location := model.Location{
		LocationCode: req.LocationCode,
		Name:         req.Name,
		Address:      req.Address,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Pricing:      pricing,
		CreatedByID:  mw.CallerID(c),
		IsActive:     true,
	}
	if err := h.db.Create(&location).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to create location"})
		return
	}
	c.JSON(http.StatusCreated, location)
}

type updateLocationRequest struct {
	Name      *string  `json:"name"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	IsActive  *bool    `json:"isActive"`
}

// UpdateLocation handles PUT /api/locations/:location_id (admin).
// Availability counters are owned by the ledger and cannot be set
// through this endpoint.
func (h *Handler) UpdateLocation(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.Latitude != nil {
		updates["latitude"] = *req.Latitude
	}
	if req.Longitude != nil {
		updates["longitude"] = *req.Longitude
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	var location model.Location
	if err := h.db.First(&location, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "location not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve location"})
		}
		return
	}
	if len(updates) > 0 {
		if err := h.db.Model(&location).Updates(updates).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update location"})
			return
		}
	}
	c.JSON(http.StatusOK, location)
}

type updatePricingRequest struct {
	Car   *int `json:"car"`
	Bike  *int `json:"bike"`
	Bus   *int `json:"bus"`
	Van   *int `json:"van"`
	Truck *int `json:"truck"`
}

// UpdatePricing handles PATCH /api/locations/:location_id/pricing
// (admin). Only the supplied classes change.
func (h *Handler) UpdatePricing(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Car != nil {
		updates["price_car"] = *req.Car
	}
	if req.Bike != nil {
		updates["price_bike"] = *req.Bike
	}
	if req.Bus != nil {
		updates["price_bus"] = *req.Bus
	}
	if req.Van != nil {
		updates["price_van"] = *req.Van
	}
	if req.Truck != nil {
		updates["price_truck"] = *req.Truck
	}
	if len(updates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "pricing data is required"})
		return
	}

	res := h.db.Model(&model.Location{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update pricing"})
		return
	}
	if res.RowsAffected == 0 {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "location not found"})
		return
	}

	var location model.Location
	if err := h.db.First(&location, id).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve location"})
		return
	}
	c.JSON(http.StatusOK, location)
}

// DeleteLocation handles DELETE /api/locations/:location_id (admin,
// soft delete). The location's slots are deactivated with it; a
// location with a booked slot cannot be deleted.
func (h *Handler) DeleteLocation(c *gin.Context) {
	id, ok := pathID(c, "location_id")
	if !ok {
		return
	}

	if err := h.slots.DeactivateLocation(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "location deleted"})
}

// mergePricing overlays positive rates from override onto base.
func mergePricing(base, override model.Pricing) model.Pricing {
	if override.Car > 0 {
		base.Car = override.Car
	}
	if override.Bike > 0 {
		base.Bike = override.Bike
	}
	if override.Bus > 0 {
		base.Bus = override.Bus
	}
	if override.Van > 0 {
		base.Van = override.Van
	}
	if override.Truck > 0 {
		base.Truck = override.Truck
	}
	return base
}

// pathID parses a numeric path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
