package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/harentsoaR/tutor-api/internal/services"
	"github.com/harentsoaR/tutor-api/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{store.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("get course: %w", store.ErrNotFound), http.StatusNotFound},
		{store.ErrDuplicate, http.StatusConflict},
		{services.ErrSlotBooked, http.StatusConflict},
		{services.ErrBusy, http.StatusConflict},
		{services.ErrTooLate, http.StatusConflict},
		{services.ErrNoLessons, http.StatusPaymentRequired},
		{services.ErrOTPExpired, http.StatusBadRequest},
		{services.ErrOTPInvalid, http.StatusBadRequest},
		{services.ErrOTPAttempts, http.StatusTooManyRequests},
		{services.ErrResendLimit, http.StatusTooManyRequests},
		{services.ErrInvalidCredentials, http.StatusUnauthorized},
		{services.ErrNotVerified, http.StatusForbidden},
		{services.ErrBlocked, http.StatusForbidden},
		{&services.InputError{Msg: "bad"}, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	h := NewHandler(Handler{Log: zap.New(core)})

	r := gin.New()
	r.GET("/internal", func(c *gin.Context) { h.respondError(c, errors.New("mongo: socket closed")) })
	r.GET("/dup", func(c *gin.Context) {
		h.respondError(c, fmt.Errorf("email or phone already registered: %w", store.ErrDuplicate))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/internal", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "socket")
	assert.Equal(t, 1, logs.FilterMessage("request failed").Len())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dup", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"email or phone already registered"}`, w.Body.String())
}

func TestBindJSONReportsFieldsByJSONName(t *testing.T) {
	r := gin.New()
	r.POST("/book", func(c *gin.Context) {
		var req bookRequest
		if bindJSON(c, &req) {
			c.Status(http.StatusNoContent)
		}
	})

	w := httptest.NewRecorder()
	body := `{"tutorId":"nope","date":"2030-01-01","start":"9am","end":"10:00"}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation failed", resp.Error)
	assert.Equal(t, "tutorId must be a valid id", resp.Fields["tutorId"])
	assert.Equal(t, "start must be a time in HH:MM format", resp.Fields["start"])
	assert.NotContains(t, resp.Fields, "end")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/book", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())
}
