package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/middleware"
	"github.com/harentsoaR/tutor-api/internal/services"
	"github.com/harentsoaR/tutor-api/internal/store"
)

// statusFor maps service and store errors onto HTTP statuses.
func statusFor(err error) int {
	var inputErr *services.InputError
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, services.ErrBusy),
		errors.Is(err, services.ErrSlotBooked),
		errors.Is(err, services.ErrTooLate):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoLessons):
		return http.StatusPaymentRequired
	case errors.Is(err, services.ErrOTPExpired),
		errors.Is(err, services.ErrOTPInvalid),
		errors.Is(err, services.ErrAlreadyVerified):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrOTPAttempts),
		errors.Is(err, services.ErrResendLimit):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrNotVerified),
		errors.Is(err, services.ErrBlocked),
		errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": ...}. Internal errors are logged and hidden.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.Log.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.String("requestId", c.GetString(middleware.KeyRequestID)),
			zap.Error(err),
		)
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": http.StatusText(status)})
		return
	}
	msg := err.Error()
	if errors.Is(err, store.ErrDuplicate) {
		msg = strings.TrimSuffix(msg, ": "+store.ErrDuplicate.Error())
		if msg == store.ErrDuplicate.Error() {
			msg = "already exists"
		}
	}
	c.JSON(status, gin.H{"error": msg})
}
