package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

// --- payments ---

type payments struct{ d *db }

func clonePayment(p models.Payment) models.Payment {
	p.CourseID = idPtr(p.CourseID)
	p.PackageID = idPtr(p.PackageID)
	return p
}

func (s *payments) InsertIfAbsent(_ context.Context, p *models.Payment) (*models.Payment, bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, existing := range s.d.payments {
		if existing.IdempotencyToken == p.IdempotencyToken {
			existing = clonePayment(existing)
			return &existing, false, nil
		}
	}
	if p.UPITxnID != "" {
		for _, existing := range s.d.payments {
			if existing.UPITxnID == p.UPITxnID {
				return nil, false, store.ErrDuplicate
			}
		}
	}
	ensureID(&p.ID)
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.d.payments[p.ID] = clonePayment(*p)
	out := clonePayment(*p)
	return &out, true, nil
}

func (s *payments) GetByToken(_ context.Context, token string) (*models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, p := range s.d.payments {
		if p.IdempotencyToken == token {
			p = clonePayment(p)
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *payments) GetByID(_ context.Context, id primitive.ObjectID) (*models.Payment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	p, ok := s.d.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = clonePayment(p)
	return &p, nil
}

func (s *payments) Update(_ context.Context, p *models.Payment) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	old, ok := s.d.payments[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	p.CreatedAt = old.CreatedAt
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.d.payments[p.ID] = clonePayment(*p)
	return nil
}

func (s *payments) List(_ context.Context, f store.PaymentFilter, pg store.Page) ([]models.Payment, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var out []models.Payment
	for _, p := range s.d.payments {
		if f.UserID != nil && p.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sortNewestFirst(out, func(p models.Payment) time.Time { return p.CreatedAt })
	page, total := paginate(out, pg)
	return page, total, nil
}

func (s *payments) Stats(_ context.Context) (store.PaymentStats, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var st store.PaymentStats
	for _, p := range s.d.payments {
		if p.Status == models.PaymentStatusSuccess {
			st.SuccessCount++
			st.Revenue += p.Amount
		}
	}
	return st, nil
}

// --- enrollments ---

type enrollments struct{ d *db }

func cloneEnrollment(e models.Enrollment) models.Enrollment {
	e.CourseID = idPtr(e.CourseID)
	e.ClassID = idPtr(e.ClassID)
	e.PaymentID = idPtr(e.PaymentID)
	e.AvailabilityID = idPtr(e.AvailabilityID)
	e.StudentPackageID = idPtr(e.StudentPackageID)
	if e.Date != nil {
		d := *e.Date
		e.Date = &d
	}
	return e
}

func (s *enrollments) Create(_ context.Context, e *models.Enrollment) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ensureID(&e.ID)
	if _, exists := s.d.enrollments[e.ID]; exists {
		return store.ErrDuplicate
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)
	s.d.enrollments[e.ID] = cloneEnrollment(*e)
	return nil
}

func (s *enrollments) UpsertClass(_ context.Context, e *models.Enrollment) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, existing := range s.d.enrollments {
		if existing.Kind == models.EnrollmentKindClass && existing.StudentID == e.StudentID &&
			existing.ClassID != nil && e.ClassID != nil && *existing.ClassID == *e.ClassID {
			return false, nil
		}
	}
	ensureID(&e.ID)
	stamp(&e.CreatedAt, &e.UpdatedAt)
	s.d.enrollments[e.ID] = cloneEnrollment(*e)
	return true, nil
}

func (s *enrollments) GetByID(_ context.Context, id primitive.ObjectID) (*models.Enrollment, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	e, ok := s.d.enrollments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	e = cloneEnrollment(e)
	return &e, nil
}

func (s *enrollments) SetStatus(_ context.Context, id primitive.ObjectID, from, to string) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	e, ok := s.d.enrollments[id]
	if !ok {
		return store.ErrNotFound
	}
	if e.Status != from {
		return store.ErrConflict
	}
	e.Status = to
	e.UpdatedAt = time.Now().UTC()
	s.d.enrollments[id] = e
	return nil
}

func (s *enrollments) List(_ context.Context, f store.EnrollmentFilter, pg store.Page) ([]models.Enrollment, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var out []models.Enrollment
	for _, e := range s.d.enrollments {
		if f.StudentID != nil && e.StudentID != *f.StudentID {
			continue
		}
		if f.TutorID != nil && e.TutorID != *f.TutorID {
			continue
		}
		if f.Kind != "" && e.Kind != f.Kind {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		out = append(out, cloneEnrollment(e))
	}
	sortNewestFirst(out, func(e models.Enrollment) time.Time { return e.CreatedAt })
	page, total := paginate(out, pg)
	return page, total, nil
}

// --- student packages ---

type studentPackages struct{ d *db }

func (s *studentPackages) Create(_ context.Context, sp *models.StudentPackage) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, existing := range s.d.studentPackages {
		if existing.PaymentID == sp.PaymentID {
			return store.ErrDuplicate
		}
	}
	ensureID(&sp.ID)
	stamp(&sp.CreatedAt, &sp.UpdatedAt)
	s.d.studentPackages[sp.ID] = *sp
	return nil
}

func (s *studentPackages) GetByID(_ context.Context, id primitive.ObjectID) (*models.StudentPackage, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	sp, ok := s.d.studentPackages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sp, nil
}

func (s *studentPackages) GetByPayment(_ context.Context, paymentID primitive.ObjectID) (*models.StudentPackage, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, sp := range s.d.studentPackages {
		if sp.PaymentID == paymentID {
			return &sp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *studentPackages) ListByStudent(_ context.Context, studentID primitive.ObjectID) ([]models.StudentPackage, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	out := []models.StudentPackage{}
	for _, sp := range s.d.studentPackages {
		if sp.StudentID == studentID {
			out = append(out, sp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpiresAt.Before(out[j].ExpiresAt) })
	return out, nil
}

func (s *studentPackages) ConsumeLesson(_ context.Context, id primitive.ObjectID, now time.Time) (*models.StudentPackage, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	sp, ok := s.d.studentPackages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !sp.Usable(now) {
		return nil, store.ErrNoLessons
	}
	sp.LessonsUsed++
	sp.UpdatedAt = time.Now().UTC()
	s.d.studentPackages[id] = sp
	return &sp, nil
}

func (s *studentPackages) RefundLesson(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	sp, ok := s.d.studentPackages[id]
	if !ok {
		return store.ErrNotFound
	}
	if sp.LessonsUsed > 0 {
		sp.LessonsUsed--
		sp.UpdatedAt = time.Now().UTC()
		s.d.studentPackages[id] = sp
	}
	return nil
}
