package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

type DashboardStats struct {
	UsersByRole        map[string]int64 `json:"usersByRole"`
	PublishedCourses   int64            `json:"publishedCourses"`
	Packages           int64            `json:"packages"`
	SuccessfulPayments int64            `json:"successfulPayments"`
	Revenue            float64          `json:"revenue"`
	ActiveBookings     int64            `json:"activeBookings"`
}

type AdminService struct {
	store *store.Store
	log   *zap.Logger
}

func NewAdminService(st *store.Store, log *zap.Logger) *AdminService {
	return &AdminService{store: st, log: log.Named("admin")}
}

func (s *AdminService) ListUsers(ctx context.Context, f store.UserFilter, p utils.Pagination) ([]models.User, int64, error) {
	return s.store.Users.List(ctx, f, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

func (s *AdminService) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.store.Users.GetByID(ctx, id)
}

// SetUserStatus approves (active) or blocks an account. Admins cannot change
// their own status, and unverified accounts cannot be activated.
func (s *AdminService) SetUserStatus(ctx context.Context, adminID, userID primitive.ObjectID, status string) (*models.User, error) {
	if !models.IsValidUserStatus(status) {
		return nil, invalid("unknown user status %q", status)
	}
	if adminID == userID {
		return nil, invalid("you cannot change your own status")
	}
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if status == models.UserStatusActive && !u.IsVerified {
		return nil, invalid("user has not verified their account")
	}
	u.Status = status
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user status changed",
		zap.String("adminId", adminID.Hex()),
		zap.String("userId", userID.Hex()),
		zap.String("status", status),
	)
	return u, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, adminID, userID primitive.ObjectID) error {
	if adminID == userID {
		return invalid("you cannot delete your own account")
	}
	if err := s.store.Users.Delete(ctx, userID); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("adminId", adminID.Hex()), zap.String("userId", userID.Hex()))
	return nil
}

func (s *AdminService) ListEnrollments(ctx context.Context, f store.EnrollmentFilter, p utils.Pagination) ([]models.Enrollment, int64, error) {
	return s.store.Enrollments.List(ctx, f, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

func (s *AdminService) Stats(ctx context.Context) (*DashboardStats, error) {
	byRole, err := s.store.Users.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	one := store.Page{Limit: 1}
	_, courses, err := s.store.Courses.List(ctx, store.CourseFilter{PublishedOnly: true}, one)
	if err != nil {
		return nil, err
	}
	_, packages, err := s.store.Packages.List(ctx, store.PackageFilter{}, one)
	if err != nil {
		return nil, err
	}
	pay, err := s.store.Payments.Stats(ctx)
	if err != nil {
		return nil, err
	}
	_, bookings, err := s.store.Enrollments.List(ctx, store.EnrollmentFilter{
		Kind:   models.EnrollmentKindSlot,
		Status: models.EnrollmentStatusActive,
	}, one)
	if err != nil {
		return nil, err
	}
	return &DashboardStats{
		UsersByRole:        byRole,
		PublishedCourses:   courses,
		Packages:           packages,
		SuccessfulPayments: pay.SuccessCount,
		Revenue:            pay.Revenue,
		ActiveBookings:     bookings,
	}, nil
}
