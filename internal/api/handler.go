package api

import (
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"parkease-backend/internal/auth"
	"parkease-backend/internal/booking"
	"parkease-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	db        *gorm.DB
	slots     *store.SlotStore
	ledger    *store.AvailabilityLedger
	allocator *booking.Allocator
	lifecycle *booking.Lifecycle
	tokens    *auth.TokenManager
	webpush   *webpush.Options
	adminCode string
}

// NewHandler creates a new API handler.
func NewHandler(db *gorm.DB, slots *store.SlotStore, ledger *store.AvailabilityLedger,
	allocator *booking.Allocator, lifecycle *booking.Lifecycle,
	tokens *auth.TokenManager, webpushOptions *webpush.Options, adminCode string) *Handler {
	return &Handler{
		db:        db,
		slots:     slots,
		ledger:    ledger,
		allocator: allocator,
		lifecycle: lifecycle,
		tokens:    tokens,
		webpush:   webpushOptions,
		adminCode: adminCode,
	}
}

// fail maps a domain error onto an HTTP status and aborts the request.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, store.ErrConflict), errors.Is(err, store.ErrInvalidTransition):
		status = http.StatusConflict
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
