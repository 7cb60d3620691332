package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/services"
)

type slotRequest struct {
	Start string `json:"start" binding:"required,clock"`
	End   string `json:"end" binding:"required,clock"`
}

type availabilityRequest struct {
	Date  string        `json:"date" binding:"required"`
	Slots []slotRequest `json:"slots" binding:"required,min=1,max=48,dive"`
}

type bookRequest struct {
	TutorID          string `json:"tutorId" binding:"required,objectid"`
	Date             string `json:"date" binding:"required"`
	Start            string `json:"start" binding:"required,clock"`
	End              string `json:"end" binding:"required,clock"`
	StudentPackageID string `json:"studentPackageId" binding:"omitempty,objectid"`
}

type classStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=scheduled live completed cancelled"`
}

// --- tutor: availability ---

// SetAvailability merges the submitted slots into the tutor's day.
func (h *Handler) SetAvailability(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	var req availabilityRequest
	if !bindJSON(c, &req) {
		return
	}
	slots := make([]services.SlotInput, 0, len(req.Slots))
	for _, s := range req.Slots {
		slots = append(slots, services.SlotInput{Start: s.Start, End: s.End})
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	day, err := h.Availability.SetAvailability(ctx, tutorID, req.Date, slots)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

// MyAvailability shows every slot, booked ones included, for ?from=&to=.
func (h *Handler) MyAvailability(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	h.availability(c, tutorID, false)
}

// RemoveSlot deletes one open slot: DELETE /availability/:date?start=&end=.
func (h *Handler) RemoveSlot(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	day, err := h.Availability.RemoveSlot(ctx, tutorID, c.Param("date"), start, end)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

func (h *Handler) availability(c *gin.Context, tutorID primitive.ObjectID, onlyOpen bool) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	days, err := h.Availability.GetAvailability(ctx, tutorID, c.Query("from"), c.Query("to"), onlyOpen)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if days == nil {
		days = make([]models.TutorAvailability, 0)
	}
	c.JSON(http.StatusOK, days)
}

// --- tutor: classes and bookings ---

func (h *Handler) MyClasses(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	classes, err := h.Catalog.TutorClasses(ctx, tutorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if classes == nil {
		classes = make([]models.Class, 0)
	}
	c.JSON(http.StatusOK, classes)
}

func (h *Handler) SetClassStatus(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	classID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req classStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	class, err := h.Catalog.SetClassStatus(ctx, tutorID, classID, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

func (h *Handler) TutorBookings(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	bookings, total, err := h.Booking.TutorBookings(ctx, tutorID, c.Query("status"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, bookings, total, p)
}

func (h *Handler) CompleteBooking(c *gin.Context) {
	tutorID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	e, err := h.Booking.CompleteBooking(ctx, tutorID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// --- student ---

// ListTutors returns active, verified tutors; ?q= filters by name.
func (h *Handler) ListTutors(c *gin.Context) {
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	tutors, total, err := h.Availability.ListTutors(ctx, c.Query("q"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, tutors, total, p)
}

func (h *Handler) GetTutor(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	tutor, err := h.Availability.GetTutor(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tutor)
}

// TutorAvailability is the student view: booked slots are hidden.
func (h *Handler) TutorAvailability(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	h.availability(c, id, true)
}

// BookSlot spends one lesson on a tutor slot.
func (h *Handler) BookSlot(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}
	tutorID, _ := primitive.ObjectIDFromHex(req.TutorID)
	pkgID, _ := optionalID(req.StudentPackageID)

	ctx, cancel := h.ctx(c)
	defer cancel()

	e, err := h.Booking.BookSlot(ctx, studentID, services.BookInput{
		TutorID:          tutorID,
		Date:             req.Date,
		Start:            req.Start,
		End:              req.End,
		StudentPackageID: pkgID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (h *Handler) CancelBooking(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	e, err := h.Booking.CancelBooking(ctx, studentID, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (h *Handler) MyBookings(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	bookings, total, err := h.Booking.MyBookings(ctx, studentID, c.Query("status"), p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, bookings, total, p)
}

func (h *Handler) MyEnrollments(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	enrollments, total, err := h.Booking.MyEnrollments(ctx, studentID, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, enrollments, total, p)
}

func (h *Handler) MyPackages(c *gin.Context) {
	studentID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkgs, err := h.Booking.MyPackages(ctx, studentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if pkgs == nil {
		pkgs = make([]models.StudentPackage, 0)
	}
	c.JSON(http.StatusOK, pkgs)
}
