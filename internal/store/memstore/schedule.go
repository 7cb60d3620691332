package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

// --- tutor availability ---

type availability struct{ d *db }

func cloneAvailability(a models.TutorAvailability) models.TutorAvailability {
	slots := make([]models.Slot, len(a.Slots))
	for i, s := range a.Slots {
		s.BookedBy = idPtr(s.BookedBy)
		s.EnrollmentID = idPtr(s.EnrollmentID)
		slots[i] = s
	}
	a.Slots = slots
	return a
}

func (s *availability) find(tutorID primitive.ObjectID, date time.Time) (models.TutorAvailability, bool) {
	for _, a := range s.d.availability {
		if a.TutorID == tutorID && a.Date.Equal(date) {
			return a, true
		}
	}
	return models.TutorAvailability{}, false
}

func (s *availability) Get(_ context.Context, tutorID primitive.ObjectID, date time.Time) (*models.TutorAvailability, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	a, ok := s.find(tutorID, date)
	if !ok {
		return nil, store.ErrNotFound
	}
	a = cloneAvailability(a)
	return &a, nil
}

func (s *availability) Save(_ context.Context, a *models.TutorAvailability) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	existing, found := s.find(a.TutorID, a.Date)
	if a.Version == 0 {
		if found {
			return store.ErrConflict
		}
		ensureID(&a.ID)
	} else {
		if !found || existing.ID != a.ID || existing.Version != a.Version {
			return store.ErrConflict
		}
		a.CreatedAt = existing.CreatedAt
	}
	a.Version++
	stamp(&a.CreatedAt, &a.UpdatedAt)
	s.d.availability[a.ID] = cloneAvailability(*a)
	return nil
}

func (s *availability) List(_ context.Context, tutorID primitive.ObjectID, from, to time.Time) ([]models.TutorAvailability, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	out := []models.TutorAvailability{}
	for _, a := range s.d.availability {
		if a.TutorID != tutorID || a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		out = append(out, cloneAvailability(a))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (s *availability) ClaimSlot(_ context.Context, tutorID primitive.ObjectID, date time.Time, start, end string, studentID, enrollmentID primitive.ObjectID) (*models.TutorAvailability, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	a, ok := s.find(tutorID, date)
	if !ok {
		return nil, store.ErrNotFound
	}
	a = cloneAvailability(a)
	i := a.FindSlot(start, end)
	if i < 0 {
		return nil, store.ErrNotFound
	}
	if a.Slots[i].IsBooked {
		return nil, store.ErrSlotUnavailable
	}
	a.Slots[i].IsBooked = true
	a.Slots[i].BookedBy = &studentID
	a.Slots[i].EnrollmentID = &enrollmentID
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	s.d.availability[a.ID] = a

	out := cloneAvailability(a)
	return &out, nil
}

func (s *availability) ReleaseSlot(_ context.Context, tutorID primitive.ObjectID, date time.Time, start, end string, enrollmentID primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	a, ok := s.find(tutorID, date)
	if !ok {
		return store.ErrNotFound
	}
	a = cloneAvailability(a)
	i := a.FindSlot(start, end)
	if i < 0 || a.Slots[i].EnrollmentID == nil || *a.Slots[i].EnrollmentID != enrollmentID {
		return store.ErrNotFound
	}
	a.Slots[i] = models.Slot{Start: start, End: end}
	a.Version++
	a.UpdatedAt = time.Now().UTC()
	s.d.availability[a.ID] = a
	return nil
}

// --- otps ---

type otps struct{ d *db }

func (s *otps) Get(_ context.Context, userID primitive.ObjectID, purpose string) (*models.OTP, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, o := range s.d.otps {
		if o.UserID == userID && o.Purpose == purpose {
			return &o, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *otps) Replace(_ context.Context, o *models.OTP) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for id, existing := range s.d.otps {
		if existing.UserID == o.UserID && existing.Purpose == o.Purpose {
			delete(s.d.otps, id)
		}
	}
	ensureID(&o.ID)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	s.d.otps[o.ID] = *o
	return nil
}

func (s *otps) IncrementAttempts(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	o, ok := s.d.otps[id]
	if !ok {
		return store.ErrNotFound
	}
	o.Attempts++
	s.d.otps[id] = o
	return nil
}

func (s *otps) Delete(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	delete(s.d.otps, id)
	return nil
}
