package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

const defaultCurrency = "INR"

type PaymentInput struct {
	CourseID         *primitive.ObjectID
	PackageID        *primitive.ObjectID
	Amount           float64
	Currency         string
	UPITxnID         string
	PayerVPA         string
	Status           string
	IdempotencyToken string
}

type PaymentService struct {
	store  *store.Store
	notify *NotificationService
	log    *zap.Logger
	now    func() time.Time
}

func NewPaymentService(st *store.Store, notify *NotificationService, log *zap.Logger) *PaymentService {
	return &PaymentService{
		store:  st,
		notify: notify,
		log:    log.Named("payments"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func samePrice(a, b float64) bool { return math.Abs(a-b) < 0.005 }

// expectedAmount returns the price of whatever the payment buys.
func (s *PaymentService) expectedAmount(ctx context.Context, in PaymentInput) (float64, error) {
	if in.CourseID != nil {
		c, err := s.store.Courses.GetByID(ctx, *in.CourseID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && (c.IsDeleted || !c.Published)) {
			return 0, invalid("course %s is not available", in.CourseID.Hex())
		}
		if err != nil {
			return 0, err
		}
		return c.Price, nil
	}
	p, err := s.store.Packages.GetByID(ctx, *in.PackageID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && (p.IsDeleted || !p.Published)) {
		return 0, invalid("package %s is not available", in.PackageID.Hex())
	}
	if err != nil {
		return 0, err
	}
	return p.EffectivePrice(), nil
}

func replayed(p *models.Payment, userID primitive.ObjectID) (*models.Payment, bool, error) {
	if p.UserID != userID {
		return nil, false, fmt.Errorf("idempotency token already used: %w", store.ErrDuplicate)
	}
	return p, false, nil
}

// LogUPIPayment records a UPI payment made by the user. The idempotency token
// makes retries safe: a replay returns the stored payment with created=false
// and never grants access a second time.
func (s *PaymentService) LogUPIPayment(ctx context.Context, userID primitive.ObjectID, in PaymentInput) (*models.Payment, bool, error) {
	in.IdempotencyToken = strings.TrimSpace(in.IdempotencyToken)
	if in.IdempotencyToken == "" {
		return nil, false, invalid("idempotencyToken is required")
	}
	// A replay answers with what was stored, whatever the catalog says now.
	existing, err := s.store.Payments.GetByToken(ctx, in.IdempotencyToken)
	switch {
	case err == nil:
		return replayed(existing, userID)
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, err
	}
	if (in.CourseID == nil) == (in.PackageID == nil) {
		return nil, false, invalid("exactly one of courseId or packageId is required")
	}
	status := in.Status
	if status == "" {
		status = models.PaymentStatusSuccess
	}
	if !models.IsValidPaymentStatus(status) {
		return nil, false, invalid("unknown payment status %q", status)
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	price, err := s.expectedAmount(ctx, in)
	if err != nil {
		return nil, false, err
	}
	if !samePrice(price, in.Amount) {
		return nil, false, invalid("amount %.2f does not match price %.2f", in.Amount, price)
	}

	p := &models.Payment{
		ReceiptNo:        "RCPT-" + strings.ToUpper(uuid.NewString()[:8]),
		UserID:           userID,
		CourseID:         in.CourseID,
		PackageID:        in.PackageID,
		Amount:           in.Amount,
		Currency:         currency,
		Method:           models.PaymentMethodUPI,
		UPITxnID:         strings.TrimSpace(in.UPITxnID),
		PayerVPA:         strings.TrimSpace(in.PayerVPA),
		IdempotencyToken: in.IdempotencyToken,
		Status:           status,
	}
	stored, created, err := s.store.Payments.InsertIfAbsent(ctx, p)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, false, fmt.Errorf("UPI transaction already logged: %w", store.ErrDuplicate)
		}
		return nil, false, err
	}
	if !created {
		return replayed(stored, userID)
	}

	s.log.Info("payment logged",
		zap.String("paymentId", stored.ID.Hex()),
		zap.String("userId", userID.Hex()),
		zap.String("status", stored.Status),
		zap.Float64("amount", stored.Amount),
	)
	if stored.Status == models.PaymentStatusSuccess {
		stored, err = s.grant(ctx, stored)
		if err != nil {
			return nil, false, err
		}
		if u, uerr := s.store.Users.GetByID(ctx, userID); uerr == nil {
			s.notify.SendPaymentReceipt(*u, *stored)
		}
	}
	return stored, true, nil
}

// grant gives the payer access to what they bought and records the outcome
// on the payment. A grant failure is stored, not returned, so the payment
// itself is never lost; admins retry it later.
func (s *PaymentService) grant(ctx context.Context, p *models.Payment) (*models.Payment, error) {
	if p.AccessGranted {
		return p, nil
	}
	if err := s.grantAccess(ctx, p); err != nil {
		s.log.Error("grant access", zap.String("paymentId", p.ID.Hex()), zap.Error(err))
		p.GrantError = err.Error()
		p.AccessGranted = false
	} else {
		p.GrantError = ""
		p.AccessGranted = true
	}
	if err := s.store.Payments.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) grantAccess(ctx context.Context, p *models.Payment) error {
	var courseIDs []primitive.ObjectID
	switch {
	case p.CourseID != nil:
		courseIDs = []primitive.ObjectID{*p.CourseID}
	case p.PackageID != nil:
		pkg, err := s.store.Packages.GetByID(ctx, *p.PackageID)
		if err != nil {
			return fmt.Errorf("load package: %w", err)
		}
		if err := s.ensureStudentPackage(ctx, p, pkg); err != nil {
			return err
		}
		courseIDs = pkg.CourseIDs
	default:
		return errors.New("payment has neither course nor package")
	}
	if len(courseIDs) == 0 {
		return nil
	}

	classes, err := s.store.Classes.List(ctx, store.ClassFilter{CourseIDs: courseIDs})
	if err != nil {
		return fmt.Errorf("list classes: %w", err)
	}
	for _, cl := range classes {
		courseID, classID, paymentID := cl.CourseID, cl.ID, p.ID
		_, err := s.store.Enrollments.UpsertClass(ctx, &models.Enrollment{
			Kind:      models.EnrollmentKindClass,
			StudentID: p.UserID,
			TutorID:   cl.TutorID,
			Status:    models.EnrollmentStatusActive,
			CourseID:  &courseID,
			ClassID:   &classID,
			PaymentID: &paymentID,
		})
		if err != nil {
			return fmt.Errorf("enroll in class %s: %w", cl.ID.Hex(), err)
		}
	}
	return nil
}

// ensureStudentPackage creates the lesson allowance bought by p, once.
func (s *PaymentService) ensureStudentPackage(ctx context.Context, p *models.Payment, pkg *models.CoursePackage) error {
	_, err := s.store.StudentPackages.GetByPayment(ctx, p.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	now := s.now()
	sp := &models.StudentPackage{
		StudentID:    p.UserID,
		PackageID:    pkg.ID,
		PaymentID:    p.ID,
		LessonsTotal: pkg.LessonCount,
		StartsAt:     now,
		ExpiresAt:    now.AddDate(0, 0, pkg.ValidityDays),
		Status:       models.StudentPackageActive,
	}
	if err := s.store.StudentPackages.Create(ctx, sp); err != nil && !errors.Is(err, store.ErrDuplicate) {
		return fmt.Errorf("create student package: %w", err)
	}
	return nil
}

func (s *PaymentService) MyPayments(ctx context.Context, userID primitive.ObjectID, p utils.Pagination) ([]models.Payment, int64, error) {
	return s.store.Payments.List(ctx, store.PaymentFilter{UserID: &userID}, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

func (s *PaymentService) ListPayments(ctx context.Context, f store.PaymentFilter, p utils.Pagination) ([]models.Payment, int64, error) {
	return s.store.Payments.List(ctx, f, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

func (s *PaymentService) GetPayment(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	return s.store.Payments.GetByID(ctx, id)
}

// UpdateStatus is the admin override for a payment's status. Moving to
// success grants access if it was not granted yet.
func (s *PaymentService) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Payment, error) {
	if !models.IsValidPaymentStatus(status) {
		return nil, invalid("unknown payment status %q", status)
	}
	p, err := s.store.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != status {
		p.Status = status
		if err := s.store.Payments.Update(ctx, p); err != nil {
			return nil, err
		}
	}
	if status == models.PaymentStatusSuccess {
		return s.grant(ctx, p)
	}
	return p, nil
}

// RetryGrant re-runs the access grant of a successful payment.
func (s *PaymentService) RetryGrant(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	p, err := s.store.Payments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusSuccess {
		return nil, invalid("only successful payments grant access")
	}
	return s.grant(ctx, p)
}
