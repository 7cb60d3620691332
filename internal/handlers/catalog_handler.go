package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/services"
	"github.com/harentsoaR/tutor-api/internal/store"
)

type courseRequest struct {
	Title        string   `json:"title" binding:"required,max=200"`
	Description  string   `json:"description" binding:"max=20000"`
	Category     string   `json:"category" binding:"required,max=80"`
	Level        string   `json:"level" binding:"required,oneof=beginner intermediate advanced"`
	Price        float64  `json:"price" binding:"gte=0"`
	ThumbnailURL string   `json:"thumbnailUrl" binding:"omitempty,url"`
	TutorIDs     []string `json:"tutorIds" binding:"omitempty,dive,objectid"`
	Published    bool     `json:"published"`
}

type classRequest struct {
	CourseID        string    `json:"courseId" binding:"required,objectid"`
	TutorID         string    `json:"tutorId" binding:"required,objectid"`
	Title           string    `json:"title" binding:"required,max=200"`
	Description     string    `json:"description" binding:"max=5000"`
	StartsAt        time.Time `json:"startsAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"required,gt=0,lte=600"`
	MeetingLink     string    `json:"meetingLink" binding:"omitempty,url"`
	Capacity        int       `json:"capacity" binding:"gte=0"`
	Status          string    `json:"status" binding:"omitempty,oneof=scheduled live completed cancelled"`
}

type packageRequest struct {
	Name          string   `json:"name" binding:"required,max=200"`
	Description   string   `json:"description" binding:"max=20000"`
	CourseIDs     []string `json:"courseIds" binding:"omitempty,dive,objectid"`
	LessonCount   int      `json:"lessonCount" binding:"required,gt=0"`
	ValidityDays  int      `json:"validityDays" binding:"required,gt=0"`
	Price         float64  `json:"price" binding:"gte=0"`
	DiscountPrice float64  `json:"discountPrice" binding:"gte=0"`
	Published     bool     `json:"published"`
}

func (r courseRequest) input() services.CourseInput {
	tutors, _ := parseIDs(r.TutorIDs)
	return services.CourseInput{
		Title:        r.Title,
		Description:  r.Description,
		Category:     r.Category,
		Level:        r.Level,
		Price:        r.Price,
		ThumbnailURL: r.ThumbnailURL,
		TutorIDs:     tutors,
		Published:    r.Published,
	}
}

func (r classRequest) input() services.ClassInput {
	courseID, _ := primitive.ObjectIDFromHex(r.CourseID)
	tutorID, _ := primitive.ObjectIDFromHex(r.TutorID)
	return services.ClassInput{
		CourseID:        courseID,
		TutorID:         tutorID,
		Title:           r.Title,
		Description:     r.Description,
		StartsAt:        r.StartsAt,
		DurationMinutes: r.DurationMinutes,
		MeetingLink:     r.MeetingLink,
		Capacity:        r.Capacity,
		Status:          r.Status,
	}
}

func (r packageRequest) input() services.PackageInput {
	courses, _ := parseIDs(r.CourseIDs)
	return services.PackageInput{
		Name:          r.Name,
		Description:   r.Description,
		CourseIDs:     courses,
		LessonCount:   r.LessonCount,
		ValidityDays:  r.ValidityDays,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		Published:     r.Published,
	}
}

// --- public catalog ---

// ListPublicCourses supports ?category=, ?level=, ?q= and paging.
func (h *Handler) ListPublicCourses(c *gin.Context) {
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	courses, total, err := h.Catalog.ListCourses(ctx, store.CourseFilter{
		PublishedOnly: true,
		Category:      c.Query("category"),
		Level:         c.Query("level"),
		Query:         c.Query("q"),
	}, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, courses, total, p)
}

// GetPublicCourse accepts a slug or an id.
func (h *Handler) GetPublicCourse(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	course, err := h.Catalog.PublicCourse(ctx, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) ListPublicPackages(c *gin.Context) {
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkgs, total, err := h.Catalog.ListPackages(ctx, store.PackageFilter{PublishedOnly: true}, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, pkgs, total, p)
}

func (h *Handler) GetPublicPackage(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkg, err := h.Catalog.PublicPackage(ctx, c.Param("slug"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

// --- admin: courses ---

func (h *Handler) AdminListCourses(c *gin.Context) {
	p := pagination(c)
	includeDeleted, _ := strconv.ParseBool(c.Query("includeDeleted"))
	ctx, cancel := h.ctx(c)
	defer cancel()

	courses, total, err := h.Catalog.ListCourses(ctx, store.CourseFilter{
		IncludeDeleted: includeDeleted,
		Category:       c.Query("category"),
		Level:          c.Query("level"),
		Query:          c.Query("q"),
	}, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, courses, total, p)
}

func (h *Handler) CreateCourse(c *gin.Context) {
	var req courseRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	course, err := h.Catalog.CreateCourse(ctx, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

func (h *Handler) GetCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	course, err := h.Catalog.GetCourse(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) UpdateCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req courseRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	course, err := h.Catalog.UpdateCourse(ctx, id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

func (h *Handler) DeleteCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Catalog.DeleteCourse(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Course deleted"})
}

// --- admin: classes ---

func (h *Handler) CreateClass(c *gin.Context) {
	var req classRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	class, err := h.Catalog.CreateClass(ctx, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, class)
}

func (h *Handler) UpdateClass(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req classRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	class, err := h.Catalog.UpdateClass(ctx, id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, class)
}

func (h *Handler) DeleteClass(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Catalog.DeleteClass(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Class deleted"})
}

// ListCourseClasses lists the classes of one course.
func (h *Handler) ListCourseClasses(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	classes, err := h.Catalog.ClassesByCourse(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if classes == nil {
		classes = make([]models.Class, 0)
	}
	c.JSON(http.StatusOK, classes)
}

// --- admin: packages ---

func (h *Handler) AdminListPackages(c *gin.Context) {
	p := pagination(c)
	includeDeleted, _ := strconv.ParseBool(c.Query("includeDeleted"))
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkgs, total, err := h.Catalog.ListPackages(ctx, store.PackageFilter{IncludeDeleted: includeDeleted}, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, pkgs, total, p)
}

func (h *Handler) CreatePackage(c *gin.Context) {
	var req packageRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkg, err := h.Catalog.CreatePackage(ctx, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pkg)
}

func (h *Handler) GetPackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkg, err := h.Catalog.GetPackage(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *Handler) UpdatePackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req packageRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	pkg, err := h.Catalog.UpdatePackage(ctx, id, req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, pkg)
}

func (h *Handler) DeletePackage(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Catalog.DeletePackage(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Package deleted"})
}
