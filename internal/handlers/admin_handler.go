package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/tutor-api/internal/store"
)

type userStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending active blocked"`
}

// ListUsers supports ?role=, ?status=, ?q= and paging.
func (h *Handler) ListUsers(c *gin.Context) {
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	users, total, err := h.Admin.ListUsers(ctx, store.UserFilter{
		Role:   c.Query("role"),
		Status: c.Query("status"),
		Query:  c.Query("q"),
	}, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, users, total, p)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Admin.GetUser(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// SetUserStatus approves tutors or blocks accounts.
func (h *Handler) SetUserStatus(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req userStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Admin.SetUserStatus(ctx, adminID, id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Admin.DeleteUser(ctx, adminID, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ListEnrollments filters by ?studentId=, ?tutorId=, ?kind= and ?status=.
func (h *Handler) ListEnrollments(c *gin.Context) {
	p := pagination(c)
	studentID, err := optionalID(c.Query("studentId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid studentId"})
		return
	}
	tutorID, err := optionalID(c.Query("tutorId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid tutorId"})
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	enrollments, total, err := h.Admin.ListEnrollments(ctx, store.EnrollmentFilter{
		StudentID: studentID,
		TutorID:   tutorID,
		Kind:      c.Query("kind"),
		Status:    c.Query("status"),
	}, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, enrollments, total, p)
}

func (h *Handler) DashboardStats(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	stats, err := h.Admin.Stats(ctx)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
