package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

type CourseInput struct {
	Title        string
	Description  string
	Category     string
	Level        string
	Price        float64
	ThumbnailURL string
	TutorIDs     []primitive.ObjectID
	Published    bool
}

type ClassInput struct {
	CourseID        primitive.ObjectID
	TutorID         primitive.ObjectID
	Title           string
	Description     string
	StartsAt        time.Time
	DurationMinutes int
	MeetingLink     string
	Capacity        int
	Status          string
}

type PackageInput struct {
	Name          string
	Description   string
	CourseIDs     []primitive.ObjectID
	LessonCount   int
	ValidityDays  int
	Price         float64
	DiscountPrice float64
	Published     bool
}

// CourseDetail is a course with its scheduled classes.
type CourseDetail struct {
	models.Course
	Classes []models.Class `json:"classes"`
}

type CatalogService struct {
	store *store.Store
	log   *zap.Logger
}

func NewCatalogService(st *store.Store, log *zap.Logger) *CatalogService {
	return &CatalogService{store: st, log: log.Named("catalog")}
}

func validLevel(level string) bool {
	switch level {
	case "", models.LevelBeginner, models.LevelIntermediate, models.LevelAdvanced:
		return true
	}
	return false
}

// requireTutor loads id and fails unless it is a tutor account.
func (s *CatalogService) requireTutor(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, invalid("tutor %s does not exist", id.Hex())
	}
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleTutor {
		return nil, invalid("user %s is not a tutor", id.Hex())
	}
	return u, nil
}

func (s *CatalogService) applyCourse(ctx context.Context, c *models.Course, in CourseInput) error {
	if !validLevel(in.Level) {
		return invalid("level must be beginner, intermediate or advanced")
	}
	for _, id := range in.TutorIDs {
		if _, err := s.requireTutor(ctx, id); err != nil {
			return err
		}
	}
	c.Title = strings.TrimSpace(in.Title)
	c.Description = utils.SanitizeHTML(in.Description)
	c.Category = strings.TrimSpace(in.Category)
	c.Level = in.Level
	c.Price = in.Price
	c.ThumbnailURL = strings.TrimSpace(in.ThumbnailURL)
	c.TutorIDs = in.TutorIDs
	if c.TutorIDs == nil {
		c.TutorIDs = []primitive.ObjectID{}
	}
	c.Published = in.Published
	return nil
}

func (s *CatalogService) CreateCourse(ctx context.Context, in CourseInput) (*models.Course, error) {
	c := &models.Course{}
	if err := s.applyCourse(ctx, c, in); err != nil {
		return nil, err
	}
	slug, err := utils.EnsureUniqueSlug(ctx, c.Title, "course", s.store.Courses.SlugExists)
	if err != nil {
		return nil, err
	}
	c.Slug = slug
	if err := s.store.Courses.Create(ctx, c); err != nil {
		return nil, err
	}
	s.log.Info("course created", zap.String("courseId", c.ID.Hex()), zap.String("slug", c.Slug))
	return c, nil
}

// UpdateCourse replaces every mutable field. The slug is kept so links stay stable.
func (s *CatalogService) UpdateCourse(ctx context.Context, id primitive.ObjectID, in CourseInput) (*models.Course, error) {
	c, err := s.store.Courses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsDeleted {
		return nil, store.ErrNotFound
	}
	if err := s.applyCourse(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.store.Courses.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CatalogService) DeleteCourse(ctx context.Context, id primitive.ObjectID) error {
	return s.store.Courses.SoftDelete(ctx, id)
}

// GetCourse returns any course, deleted ones included, for admin screens.
func (s *CatalogService) GetCourse(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	return s.store.Courses.GetByID(ctx, id)
}

func (s *CatalogService) publicDetail(ctx context.Context, c *models.Course) (*CourseDetail, error) {
	if !c.Published || c.IsDeleted {
		return nil, store.ErrNotFound
	}
	classes, err := s.store.Classes.List(ctx, store.ClassFilter{CourseIDs: []primitive.ObjectID{c.ID}})
	if err != nil {
		return nil, err
	}
	return &CourseDetail{Course: *c, Classes: classes}, nil
}

// PublicCourse looks a published course up by slug or, failing that, by id.
func (s *CatalogService) PublicCourse(ctx context.Context, slugOrID string) (*CourseDetail, error) {
	c, err := s.store.Courses.GetBySlug(ctx, slugOrID)
	if errors.Is(err, store.ErrNotFound) {
		id, perr := primitive.ObjectIDFromHex(slugOrID)
		if perr != nil {
			return nil, store.ErrNotFound
		}
		c, err = s.store.Courses.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return s.publicDetail(ctx, c)
}

func (s *CatalogService) ListCourses(ctx context.Context, f store.CourseFilter, p utils.Pagination) ([]models.Course, int64, error) {
	return s.store.Courses.List(ctx, f, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

// --- classes ---

func (s *CatalogService) applyClass(ctx context.Context, cl *models.Class, in ClassInput) error {
	course, err := s.store.Courses.GetByID(ctx, in.CourseID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && course.IsDeleted) {
		return invalid("course %s does not exist", in.CourseID.Hex())
	}
	if err != nil {
		return err
	}
	if _, err := s.requireTutor(ctx, in.TutorID); err != nil {
		return err
	}
	if in.DurationMinutes <= 0 {
		return invalid("durationMinutes must be positive")
	}
	status := in.Status
	if status == "" {
		status = models.ClassStatusScheduled
	}
	if !models.IsValidClassStatus(status) {
		return invalid("unknown class status %q", status)
	}

	cl.CourseID = in.CourseID
	cl.TutorID = in.TutorID
	cl.Title = strings.TrimSpace(in.Title)
	cl.Description = utils.SanitizeHTML(in.Description)
	cl.StartsAt = in.StartsAt.UTC()
	cl.DurationMinutes = in.DurationMinutes
	cl.MeetingLink = strings.TrimSpace(in.MeetingLink)
	cl.Capacity = in.Capacity
	cl.Status = status
	return nil
}

func (s *CatalogService) CreateClass(ctx context.Context, in ClassInput) (*models.Class, error) {
	cl := &models.Class{}
	if err := s.applyClass(ctx, cl, in); err != nil {
		return nil, err
	}
	if err := s.store.Classes.Create(ctx, cl); err != nil {
		return nil, err
	}
	return cl, nil
}

func (s *CatalogService) UpdateClass(ctx context.Context, id primitive.ObjectID, in ClassInput) (*models.Class, error) {
	cl, err := s.store.Classes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyClass(ctx, cl, in); err != nil {
		return nil, err
	}
	if err := s.store.Classes.Update(ctx, cl); err != nil {
		return nil, err
	}
	return cl, nil
}

func (s *CatalogService) DeleteClass(ctx context.Context, id primitive.ObjectID) error {
	return s.store.Classes.Delete(ctx, id)
}

func (s *CatalogService) GetClass(ctx context.Context, id primitive.ObjectID) (*models.Class, error) {
	return s.store.Classes.GetByID(ctx, id)
}

func (s *CatalogService) ClassesByCourse(ctx context.Context, courseID primitive.ObjectID) ([]models.Class, error) {
	return s.store.Classes.List(ctx, store.ClassFilter{CourseIDs: []primitive.ObjectID{courseID}})
}

func (s *CatalogService) TutorClasses(ctx context.Context, tutorID primitive.ObjectID) ([]models.Class, error) {
	return s.store.Classes.List(ctx, store.ClassFilter{TutorID: &tutorID})
}

// SetClassStatus lets a tutor move one of their own classes through its lifecycle.
func (s *CatalogService) SetClassStatus(ctx context.Context, tutorID, classID primitive.ObjectID, status string) (*models.Class, error) {
	if !models.IsValidClassStatus(status) {
		return nil, invalid("unknown class status %q", status)
	}
	cl, err := s.store.Classes.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if cl.TutorID != tutorID {
		return nil, ErrForbidden
	}
	cl.Status = status
	if err := s.store.Classes.Update(ctx, cl); err != nil {
		return nil, err
	}
	return cl, nil
}

// --- packages ---

func (s *CatalogService) applyPackage(ctx context.Context, p *models.CoursePackage, in PackageInput) error {
	if in.LessonCount <= 0 {
		return invalid("lessonCount must be positive")
	}
	if in.ValidityDays <= 0 {
		return invalid("validityDays must be positive")
	}
	if in.DiscountPrice < 0 || (in.DiscountPrice > 0 && in.DiscountPrice >= in.Price) {
		return invalid("discountPrice must be lower than price")
	}
	for _, id := range in.CourseIDs {
		c, err := s.store.Courses.GetByID(ctx, id)
		if errors.Is(err, store.ErrNotFound) || (err == nil && c.IsDeleted) {
			return invalid("course %s does not exist", id.Hex())
		}
		if err != nil {
			return err
		}
	}

	p.Name = strings.TrimSpace(in.Name)
	p.Description = utils.SanitizeHTML(in.Description)
	p.CourseIDs = in.CourseIDs
	if p.CourseIDs == nil {
		p.CourseIDs = []primitive.ObjectID{}
	}
	p.LessonCount = in.LessonCount
	p.ValidityDays = in.ValidityDays
	p.Price = in.Price
	p.DiscountPrice = in.DiscountPrice
	p.Published = in.Published
	return nil
}

func (s *CatalogService) CreatePackage(ctx context.Context, in PackageInput) (*models.CoursePackage, error) {
	p := &models.CoursePackage{}
	if err := s.applyPackage(ctx, p, in); err != nil {
		return nil, err
	}
	slug, err := utils.EnsureUniqueSlug(ctx, p.Name, "package", s.store.Packages.SlugExists)
	if err != nil {
		return nil, err
	}
	p.Slug = slug
	if err := s.store.Packages.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) UpdatePackage(ctx context.Context, id primitive.ObjectID, in PackageInput) (*models.CoursePackage, error) {
	p, err := s.store.Packages.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted {
		return nil, store.ErrNotFound
	}
	if err := s.applyPackage(ctx, p, in); err != nil {
		return nil, err
	}
	if err := s.store.Packages.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *CatalogService) DeletePackage(ctx context.Context, id primitive.ObjectID) error {
	return s.store.Packages.SoftDelete(ctx, id)
}

func (s *CatalogService) GetPackage(ctx context.Context, id primitive.ObjectID) (*models.CoursePackage, error) {
	return s.store.Packages.GetByID(ctx, id)
}

// PublicPackage resolves a published package by slug or id.
func (s *CatalogService) PublicPackage(ctx context.Context, slugOrID string) (*models.CoursePackage, error) {
	p, err := s.store.Packages.GetBySlug(ctx, slugOrID)
	if errors.Is(err, store.ErrNotFound) {
		id, perr := primitive.ObjectIDFromHex(slugOrID)
		if perr != nil {
			return nil, store.ErrNotFound
		}
		p, err = s.store.Packages.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if !p.Published || p.IsDeleted {
		return nil, store.ErrNotFound
	}
	return p, nil
}

func (s *CatalogService) ListPackages(ctx context.Context, f store.PackageFilter, p utils.Pagination) ([]models.CoursePackage, int64, error) {
	return s.store.Packages.List(ctx, f, store.Page{Skip: p.Offset(), Limit: p.Limit})
}
