package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/railconnect/booking-ledger/internal/middleware"
	"github.com/railconnect/booking-ledger/internal/models"
	"github.com/stretchr/testify/require"
)

type stubBookings struct {
	create  func(userID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResult, error)
	lookup  func(pnr string) (*models.BookingDetails, error)
	history func(userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error)
}

func (s *stubBookings) CreateBooking(_ context.Context, userID uuid.UUID, req *models.CreateBookingRequest) (*models.BookingResult, error) {
	return s.create(userID, req)
}

func (s *stubBookings) GetByPNR(_ context.Context, pnr string) (*models.BookingDetails, error) {
	return s.lookup(pnr)
}

func (s *stubBookings) History(_ context.Context, userID uuid.UUID, statuses []models.BookingStatus) ([]models.BookingView, error) {
	return s.history(userID, statuses)
}

type stubPayments func(pnr string, userID uuid.UUID, method string) (*models.PaymentResult, error)

func (f stubPayments) CompletePayment(_ context.Context, pnr string, userID uuid.UUID, method string) (*models.PaymentResult, error) {
	return f(pnr, userID, method)
}

type stubCancellations func(pnr string, userID uuid.UUID) (*models.CancellationResult, error)

func (f stubCancellations) Cancel(_ context.Context, pnr string, userID uuid.UUID) (*models.CancellationResult, error) {
	return f(pnr, userID)
}

// withUser simulates AuthMiddleware
func withUser(userID uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserContextKey, middleware.UserContext{
			UserID:   userID,
			Username: "asha",
			Roles:    []string{"passenger"},
		})
		c.Next()
	}
}

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
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
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

