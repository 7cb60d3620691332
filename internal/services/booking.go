package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

type BookInput struct {
	TutorID          primitive.ObjectID
	Date             string
	Start            string
	End              string
	StudentPackageID *primitive.ObjectID
}

// BookingService books one-to-one lessons into tutor slots, paying for each
// with a lesson from a purchased package.
//
// Booking touches three documents without a transaction: the package
// lesson is consumed first, then the slot is claimed, then the enrollment
// is written. Each step is a single conditional write; when a later step
// fails the earlier ones are undone.
type BookingService struct {
	store  *store.Store
	notify *NotificationService
	log    *zap.Logger
	now    func() time.Time
}

func NewBookingService(st *store.Store, notify *NotificationService, log *zap.Logger) *BookingService {
	return &BookingService{
		store:  st,
		notify: notify,
		log:    log.Named("booking"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// consumeLesson draws a lesson from the requested package, or from the
// student's usable package that expires first.
func (s *BookingService) consumeLesson(ctx context.Context, studentID primitive.ObjectID, packageID *primitive.ObjectID) (*models.StudentPackage, error) {
	now := s.now()
	if packageID != nil {
		sp, err := s.store.StudentPackages.GetByID(ctx, *packageID)
		if err != nil {
			return nil, err
		}
		if sp.StudentID != studentID {
			return nil, store.ErrNotFound
		}
		return s.store.StudentPackages.ConsumeLesson(ctx, sp.ID, now)
	}

	owned, err := s.store.StudentPackages.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	for _, sp := range owned {
		if !sp.Usable(now) {
			continue
		}
		used, err := s.store.StudentPackages.ConsumeLesson(ctx, sp.ID, now)
		if errors.Is(err, store.ErrNoLessons) {
			// Drained by a concurrent booking since the list was read.
			continue
		}
		return used, err
	}
	return nil, ErrNoLessons
}

func (s *BookingService) refund(ctx context.Context, sp *models.StudentPackage) {
	if err := s.store.StudentPackages.RefundLesson(ctx, sp.ID); err != nil {
		s.log.Error("refund lesson", zap.String("studentPackageId", sp.ID.Hex()), zap.Error(err))
	}
}

// BookSlot reserves an open slot for the student.
func (s *BookingService) BookSlot(ctx context.Context, studentID primitive.ObjectID, in BookInput) (*models.Enrollment, error) {
	day, err := utils.ParseDay(in.Date)
	if err != nil {
		return nil, invalid("%v", err)
	}
	norm, err := normalizeSlots([]SlotInput{{Start: in.Start, End: in.End}})
	if err != nil {
		return nil, err
	}
	slot := norm[0]
	startsAt, _ := utils.SlotStart(day, slot.Start)
	if !startsAt.After(s.now()) {
		return nil, invalid("slot %s %s has already started", day.Format(utils.DateLayout), slot.Start)
	}

	student, err := s.store.Users.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	tutor, err := listedTutor(ctx, s.store, in.TutorID)
	if err != nil {
		return nil, err
	}

	sp, err := s.consumeLesson(ctx, studentID, in.StudentPackageID)
	if err != nil {
		return nil, err
	}

	enrollmentID := primitive.NewObjectID()
	avail, err := s.store.Availability.ClaimSlot(ctx, in.TutorID, day, slot.Start, slot.End, studentID, enrollmentID)
	if err != nil {
		s.refund(ctx, sp)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("slot %s-%s: %w", slot.Start, slot.End, store.ErrNotFound)
		}
		return nil, err
	}

	e := &models.Enrollment{
		ID:               enrollmentID,
		Kind:             models.EnrollmentKindSlot,
		StudentID:        studentID,
		TutorID:          in.TutorID,
		Status:           models.EnrollmentStatusActive,
		AvailabilityID:   &avail.ID,
		StudentPackageID: &sp.ID,
		PaymentID:        &sp.PaymentID,
		Date:             &day,
		SlotStart:        slot.Start,
		SlotEnd:          slot.End,
	}
	if err := s.store.Enrollments.Create(ctx, e); err != nil {
		if rerr := s.store.Availability.ReleaseSlot(ctx, in.TutorID, day, slot.Start, slot.End, enrollmentID); rerr != nil {
			s.log.Error("release slot", zap.String("enrollmentId", enrollmentID.Hex()), zap.Error(rerr))
		}
		s.refund(ctx, sp)
		return nil, err
	}

	s.log.Info("slot booked",
		zap.String("enrollmentId", e.ID.Hex()),
		zap.String("studentId", studentID.Hex()),
		zap.String("tutorId", in.TutorID.Hex()),
		zap.Time("startsAt", startsAt),
	)
	s.notify.SendBookingConfirmation(*student, *tutor, *e)
	return e, nil
}

func (s *BookingService) slotEnrollment(ctx context.Context, id primitive.ObjectID) (*models.Enrollment, error) {
	e, err := s.store.Enrollments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Kind != models.EnrollmentKindSlot || e.Date == nil {
		return nil, store.ErrNotFound
	}
	return e, nil
}

// CancelBooking frees the slot and returns the lesson to the package. Only
// the booking student may cancel, and only before the lesson starts.
func (s *BookingService) CancelBooking(ctx context.Context, studentID, enrollmentID primitive.ObjectID) (*models.Enrollment, error) {
	e, err := s.slotEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.StudentID != studentID {
		return nil, store.ErrNotFound
	}
	if e.Status != models.EnrollmentStatusActive {
		return nil, invalid("booking is %s", e.Status)
	}
	startsAt, err := utils.SlotStart(*e.Date, e.SlotStart)
	if err != nil {
		return nil, err
	}
	if !s.now().Before(startsAt) {
		return nil, ErrTooLate
	}

	// The status flip is the guard: a second cancel loses here and refunds nothing.
	if err := s.store.Enrollments.SetStatus(ctx, e.ID, models.EnrollmentStatusActive, models.EnrollmentStatusCancelled); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, invalid("booking is no longer active")
		}
		return nil, err
	}
	e.Status = models.EnrollmentStatusCancelled

	if err := s.store.Availability.ReleaseSlot(ctx, e.TutorID, *e.Date, e.SlotStart, e.SlotEnd, e.ID); err != nil {
		s.log.Error("release slot", zap.String("enrollmentId", e.ID.Hex()), zap.Error(err))
	}
	if e.StudentPackageID != nil {
		if err := s.store.StudentPackages.RefundLesson(ctx, *e.StudentPackageID); err != nil {
			s.log.Error("refund lesson", zap.String("enrollmentId", e.ID.Hex()), zap.Error(err))
		}
	}

	student, serr := s.store.Users.GetByID(ctx, e.StudentID)
	tutor, terr := s.store.Users.GetByID(ctx, e.TutorID)
	if serr == nil && terr == nil {
		s.notify.SendBookingCancelled(*student, *tutor, *e)
	}
	return e, nil
}

// CompleteBooking lets the tutor mark a lesson that has started as done.
func (s *BookingService) CompleteBooking(ctx context.Context, tutorID, enrollmentID primitive.ObjectID) (*models.Enrollment, error) {
	e, err := s.slotEnrollment(ctx, enrollmentID)
	if err != nil {
		return nil, err
	}
	if e.TutorID != tutorID {
		return nil, store.ErrNotFound
	}
	startsAt, err := utils.SlotStart(*e.Date, e.SlotStart)
	if err != nil {
		return nil, err
	}
	if s.now().Before(startsAt) {
		return nil, invalid("lesson has not started yet")
	}
	if err := s.store.Enrollments.SetStatus(ctx, e.ID, models.EnrollmentStatusActive, models.EnrollmentStatusCompleted); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, invalid("booking is not active")
		}
		return nil, err
	}
	e.Status = models.EnrollmentStatusCompleted
	return e, nil
}

func (s *BookingService) MyBookings(ctx context.Context, studentID primitive.ObjectID, status string, p utils.Pagination) ([]models.Enrollment, int64, error) {
	return s.store.Enrollments.List(ctx, store.EnrollmentFilter{
		StudentID: &studentID,
		Kind:      models.EnrollmentKindSlot,
		Status:    status,
	}, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

func (s *BookingService) TutorBookings(ctx context.Context, tutorID primitive.ObjectID, status string, p utils.Pagination) ([]models.Enrollment, int64, error) {
	return s.store.Enrollments.List(ctx, store.EnrollmentFilter{
		TutorID: &tutorID,
		Kind:    models.EnrollmentKindSlot,
		Status:  status,
	}, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

// MyEnrollments lists the class enrollments a student's payments granted.
func (s *BookingService) MyEnrollments(ctx context.Context, studentID primitive.ObjectID, p utils.Pagination) ([]models.Enrollment, int64, error) {
	return s.store.Enrollments.List(ctx, store.EnrollmentFilter{
		StudentID: &studentID,
		Kind:      models.EnrollmentKindClass,
	}, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

// MyPackages lists the student's purchased packages, soonest expiry first.
func (s *BookingService) MyPackages(ctx context.Context, studentID primitive.ObjectID) ([]models.StudentPackage, error) {
	return s.store.StudentPackages.ListByStudent(ctx, studentID)
}
