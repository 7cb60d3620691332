package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/middleware"
	"github.com/harentsoaR/tutor-api/internal/services"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

// Handler is the toolbox every route method hangs off.
type Handler struct {
	Auth         *services.AuthService
	Catalog      *services.CatalogService
	Availability *services.AvailabilityService
	Booking      *services.BookingService
	Payments     *services.PaymentService
	Admin        *services.AdminService

	Tokens         *utils.TokenManager
	Log            *zap.Logger
	CookieName     string
	CookieSecure   bool
	RequestTimeout time.Duration
}

func NewHandler(h Handler) *Handler {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	if h.CookieName == "" {
		h.CookieName = "token"
	}
	return &h
}

// ctx derives the per-request context handed to services.
func (h *Handler) ctx(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.RequestTimeout)
}

// currentUser reads the id set by AuthMiddleware.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
	}
	return id, ok
}

// pathID parses the named path parameter as an ObjectID.
func pathID(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

// optionalID parses a hex id that may be empty.
func optionalID(raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(raw []string) ([]primitive.ObjectID, bool) {
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, s := range raw {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}

func pagination(c *gin.Context) utils.Pagination {
	limit := c.Query("limit")
	if limit == "" {
		limit = c.Query("per_page")
	}
	return utils.ParsePagination(c.Query("page"), limit)
}

// listResponse is the envelope of every paginated list.
type listResponse[T any] struct {
	Data []T            `json:"data"`
	Meta utils.PageMeta `json:"meta"`
}

func paged[T any](c *gin.Context, items []T, total int64, p utils.Pagination) {
	if items == nil {
		items = make([]T, 0)
	}
	c.JSON(http.StatusOK, listResponse[T]{Data: items, Meta: p.Meta(total)})
}

// Health answers liveness checks and pings the store when it can.
func Health(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
