package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/railconnect/booking-ledger/internal/models"
)

var ledgerErrorStatus = map[models.LedgerErrorKind]int{
	models.ErrKindValidation:         http.StatusBadRequest,
	models.ErrKindNotFound:           http.StatusNotFound,
	models.ErrKindAuthorization:      http.StatusUnauthorized,
	models.ErrKindAlreadyCancelled:   http.StatusBadRequest,
	models.ErrKindInventoryInvariant: http.StatusInternalServerError,
	models.ErrKindConflict:           http.StatusConflict,
}

// respondError writes the status and body for err. Ledger errors keep their message except
// inventory invariant violations, which are internal. Anything else is a generic 500 with
// fallback as the message. overrides remaps a kind for a single endpoint.
func respondError(c *gin.Context, err error, fallback string, overrides map[models.LedgerErrorKind]int) {
	_ = c.Error(err)

	var ledgerErr *models.LedgerError
	if !errors.As(err, &ledgerErr) {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": fallback,
		})
		return
	}

	status, ok := overrides[ledgerErr.Kind]
	if !ok {
		status = ledgerErrorStatus[ledgerErr.Kind]
	}

	message := ledgerErr.Message
	if ledgerErr.Kind == models.ErrKindInventoryInvariant {
		message = fallback
	}

	c.JSON(status, gin.H{
		"error":   string(ledgerErr.Kind),
		"message": message,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   string(models.ErrKindValidation),
		"message": message,
	})
}
