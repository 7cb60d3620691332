// Package store defines the persistence contracts of the API. mongostore
// backs them with MongoDB; memstore keeps everything in process memory.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned when a versioned or status-guarded write lost
	// against a concurrent writer.
	ErrConflict = errors.New("concurrent modification")
	// ErrSlotUnavailable means the slot exists but is already booked.
	ErrSlotUnavailable = errors.New("slot already booked")
	// ErrNoLessons means the student package is expired, inactive or used up.
	ErrNoLessons = errors.New("no lessons remaining")
)

// Page selects a window of a sorted result. A zero Limit means no limit.
type Page struct {
	Skip  int64
	Limit int64
}

type UserFilter struct {
	Role         string
	Status       string
	Query        string // case-insensitive match on name or email
	VerifiedOnly bool
}

type Users interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f UserFilter, p Page) ([]models.User, int64, error)
	CountByRole(ctx context.Context) (map[string]int64, error)
}

type CourseFilter struct {
	PublishedOnly  bool
	IncludeDeleted bool
	Category       string
	Level          string
	Query          string
	TutorID        *primitive.ObjectID
}

type Courses interface {
	Create(ctx context.Context, c *models.Course) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error)
	GetBySlug(ctx context.Context, slug string) (*models.Course, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, c *models.Course) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f CourseFilter, p Page) ([]models.Course, int64, error)
}

type ClassFilter struct {
	CourseIDs []primitive.ObjectID
	TutorID   *primitive.ObjectID
	Status    string
}

type Classes interface {
	Create(ctx context.Context, c *models.Class) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Class, error)
	Update(ctx context.Context, c *models.Class) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f ClassFilter) ([]models.Class, error)
}

type PackageFilter struct {
	PublishedOnly  bool
	IncludeDeleted bool
}

type Packages interface {
	Create(ctx context.Context, p *models.CoursePackage) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.CoursePackage, error)
	GetBySlug(ctx context.Context, slug string) (*models.CoursePackage, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	Update(ctx context.Context, p *models.CoursePackage) error
	SoftDelete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f PackageFilter, p Page) ([]models.CoursePackage, int64, error)
}

type PaymentFilter struct {
	UserID *primitive.ObjectID
	Status string
}

type PaymentStats struct {
	SuccessCount int64
	Revenue      float64
}

type Payments interface {
	// InsertIfAbsent stores p unless a payment with the same idempotency
	// token already exists. It returns the stored payment and whether it was
	// created by this call.
	InsertIfAbsent(ctx context.Context, p *models.Payment) (*models.Payment, bool, error)
	GetByToken(ctx context.Context, token string) (*models.Payment, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	List(ctx context.Context, f PaymentFilter, p Page) ([]models.Payment, int64, error)
	Stats(ctx context.Context) (PaymentStats, error)
}

type EnrollmentFilter struct {
	StudentID *primitive.ObjectID
	TutorID   *primitive.ObjectID
	Kind      string
	Status    string
}

type Enrollments interface {
	Create(ctx context.Context, e *models.Enrollment) error
	// UpsertClass creates a class enrollment unless the student already has
	// one for e.ClassID. It reports whether a new record was written.
	UpsertClass(ctx context.Context, e *models.Enrollment) (bool, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Enrollment, error)
	// SetStatus moves an enrollment from one status to another. ErrConflict
	// if the stored status is not from.
	SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) error
	List(ctx context.Context, f EnrollmentFilter, p Page) ([]models.Enrollment, int64, error)
}

type StudentPackages interface {
	Create(ctx context.Context, sp *models.StudentPackage) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.StudentPackage, error)
	GetByPayment(ctx context.Context, paymentID primitive.ObjectID) (*models.StudentPackage, error)
	ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.StudentPackage, error)
	// ConsumeLesson atomically uses one lesson when the package is usable at
	// now. ErrNoLessons otherwise.
	ConsumeLesson(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.StudentPackage, error)
	RefundLesson(ctx context.Context, id primitive.ObjectID) error
}

type Availability interface {
	Get(ctx context.Context, tutorID primitive.ObjectID, date time.Time) (*models.TutorAvailability, error)
	// Save inserts a new day (zero Version) or replaces a stored one whose
	// version equals a.Version. The version is bumped on success.
	Save(ctx context.Context, a *models.TutorAvailability) error
	List(ctx context.Context, tutorID primitive.ObjectID, from, to time.Time) ([]models.TutorAvailability, error)
	// ClaimSlot marks an open slot booked in a single atomic write.
	// ErrNotFound when no such slot exists, ErrSlotUnavailable when booked.
	ClaimSlot(ctx context.Context, tutorID primitive.ObjectID, date time.Time, start, end string, studentID, enrollmentID primitive.ObjectID) (*models.TutorAvailability, error)
	// ReleaseSlot reopens a slot held by enrollmentID.
	ReleaseSlot(ctx context.Context, tutorID primitive.ObjectID, date time.Time, start, end string, enrollmentID primitive.ObjectID) error
}

type OTPs interface {
	Get(ctx context.Context, userID primitive.ObjectID, purpose string) (*models.OTP, error)
	// Replace drops any code for the same user and purpose, then stores o.
	Replace(ctx context.Context, o *models.OTP) error
	IncrementAttempts(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// Store bundles every repository the services need.
type Store struct {
	Users           Users
	Courses         Courses
	Classes         Classes
	Packages        Packages
	Payments        Payments
	Enrollments     Enrollments
	StudentPackages StudentPackages
	Availability    Availability
	OTPs            OTPs

	// Ping reports backend health; nil for backends that are always up.
	Ping func(ctx context.Context) error
}
