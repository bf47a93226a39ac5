package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/middleware"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/railconnect/booking-ledger/pkg/validator"
)

// BookingLedger creates and reads bookings
type BookingLedger interface {
	CreateBooking(ctx context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResult, error)
	GetByPNR(ctx context.Context, pnr string) (*models.BookingDetails, error)
	History(ctx context.Context, userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error)
}

// PaymentCompleter completes booking payments
type PaymentCompleter interface {
	CompletePayment(ctx context.Context, pnr string, userID uuid.UUID, method string) (*models.PaymentResult, error)
}

// BookingCanceller cancels bookings
type BookingCanceller interface {
	Cancel(ctx context.Context, pnr string, userID uuid.UUID) (*models.CancellationResult, error)
}

// BookingHandler serves the booking ledger endpoints
type BookingHandler struct {
	bookings      BookingLedger
	payments      PaymentCompleter
	cancellations BookingCanceller
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingLedger, payments PaymentCompleter, cancellations BookingCanceller) *BookingHandler {
	return &BookingHandler{
		bookings:      bookings,
		payments:      payments,
		cancellations: cancellations,
	}
}

// unknown stations and trains are request errors on create
var createOverrides = map[models.LedgerErrorKind]int{
	models.ErrKindNotFound: http.StatusBadRequest,
}

// CreateBooking reserves seats or a waitlist place
// @Summary Create a booking
// @Description Reserve seats for every passenger, or waitlist the whole booking when the class is full
// @Tags Bookings
// @Accept json
// @Produce json
// @Param request body models.CreateBookingRequest true "Booking request"
// @Success 201 {object} models.BookingResult
// @Failure 400 {object} map[string]interface{} "Missing fields or unknown station"
// @Failure 401 {object} map[string]interface{} "Unauthorized"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Security BearerAuth
// @Router /api/v1/bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	result, err := h.bookings.CreateBooking(c.Request.Context(), userCtx.UserID, &req)
	if err != nil {
		respondError(c, err, "Booking failed", createOverrides)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// PayBooking completes the booking's payment
// @Summary Complete payment
// @Description Mark the payment completed and assign seats to a confirmed booking
// @Tags Bookings
// @Accept json
// @Produce json
// @Param pnr path string true "PNR"
// @Param request body models.PayBookingRequest false "Payment method"
// @Success 200 {object} models.PaymentResult
// @Failure 400 {object} map[string]interface{} "Malformed PNR or cancelled booking"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{pnr}/pay [post]
func (h *BookingHandler) PayBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	pnr, err := validator.ValidatePNR(c.Param("pnr"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	var req models.PayBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	result, err := h.payments.CompletePayment(c.Request.Context(), pnr, userCtx.UserID, req.PaymentMethod)
	if err != nil {
		respondError(c, err, "Payment failed", nil)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetByPNR is the public PNR status lookup
// @Summary PNR status
// @Description Booking, passengers and waitlist position for a PNR
// @Tags Bookings
// @Produce json
// @Param pnr path string true "PNR"
// @Success 200 {object} models.BookingDetails
// @Failure 400 {object} map[string]interface{} "Malformed PNR"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Router /api/v1/bookings/pnr/{pnr} [get]
func (h *BookingHandler) GetByPNR(c *gin.Context) {
	pnr, err := validator.ValidatePNR(c.Param("pnr"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	details, err := h.bookings.GetByPNR(c.Request.Context(), pnr)
	if err != nil {
		respondError(c, err, "Failed to fetch booking", nil)
		return
	}

	c.JSON(http.StatusOK, details)
}

// History lists the caller's bookings
// @Summary Booking history
// @Description Caller's bookings, newest first, optionally filtered by a comma separated status list
// @Tags Bookings
// @Produce json
// @Param status query string false "CONFIRMED,WAITLIST,CANCELLED"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Unknown status"
// @Security BearerAuth
// @Router /api/v1/bookings [get]
func (h *BookingHandler) History(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	filter, err := validator.ParseStatusFilter(c.Query("status"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	statuses := make([]models.BookingStatus, len(filter))
	for i, s := range filter {
		statuses[i] = models.BookingStatus(s)
	}

	bookings, err := h.bookings.History(c.Request.Context(), userCtx.UserID, statuses)
	if err != nil {
		respondError(c, err, "Failed to fetch bookings", nil)
		return
	}
	if bookings == nil {
		bookings = []models.BookingView{}
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// CancelBooking cancels the caller's booking and records the refund
// @Summary Cancel a booking
// @Description Cancel a booking, restore its seats when confirmed and record the refund
// @Tags Bookings
// @Produce json
// @Param pnr path string true "PNR"
// @Success 200 {object} models.CancellationResult
// @Failure 400 {object} map[string]interface{} "Already cancelled"
// @Failure 404 {object} map[string]interface{} "Booking not found"
// @Security BearerAuth
// @Router /api/v1/bookings/{pnr}/cancel [post]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "Authentication required"})
		return
	}

	pnr, err := validator.ValidatePNR(c.Param("pnr"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}

	result, err := h.cancellations.Cancel(c.Request.Context(), pnr, userCtx.UserID)
	if err != nil {
		respondError(c, err, "Cancellation failed", nil)
		return
	}

	c.JSON(http.StatusOK, result)
}
