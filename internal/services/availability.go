package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

const (
	maxMergeAttempts    = 3
	defaultLookahead    = 30 * 24 * time.Hour
	maxAvailabilitySpan = 92 * 24 * time.Hour
)

// SlotInput is one requested window in "HH:MM" form.
type SlotInput struct {
	Start string
	End   string
}

type AvailabilityService struct {
	store *store.Store
	log   *zap.Logger
	now   func() time.Time
}

func NewAvailabilityService(st *store.Store, log *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		store: st,
		log:   log.Named("availability"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// normalizeSlots validates requested windows and rewrites them as zero-padded
// "HH:MM". Exact duplicates collapse into one.
func normalizeSlots(in []SlotInput) ([]models.Slot, error) {
	if len(in) == 0 {
		return nil, invalid("at least one slot is required")
	}
	seen := make(map[[2]int]bool, len(in))
	out := make([]models.Slot, 0, len(in))
	for _, s := range in {
		start, err := utils.ParseClock(s.Start)
		if err != nil {
			return nil, invalid("slot start %q: %v", s.Start, err)
		}
		end, err := utils.ParseClock(s.End)
		if err != nil {
			return nil, invalid("slot end %q: %v", s.End, err)
		}
		if start >= end {
			return nil, invalid("slot %s-%s: start must be before end", s.Start, s.End)
		}
		key := [2]int{start, end}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, models.Slot{Start: utils.FormatClock(start), End: utils.FormatClock(end)})
	}
	return out, nil
}

// mergeSlots folds incoming into existing: a slot with the same start and
// end replaces the stored one but keeps its booking, anything else is
// appended. The result is sorted by start and must not overlap.
func mergeSlots(existing, incoming []models.Slot) ([]models.Slot, error) {
	merged := make([]models.Slot, len(existing))
	copy(merged, existing)

	for _, in := range incoming {
		replaced := false
		for i := range merged {
			if merged[i].Start == in.Start && merged[i].End == in.End {
				in.IsBooked = merged[i].IsBooked
				in.BookedBy = merged[i].BookedBy
				in.EnrollmentID = merged[i].EnrollmentID
				merged[i] = in
				replaced = true
				break
			}
		}
		if !replaced {
			merged = append(merged, in)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Start != merged[j].Start {
			return merged[i].Start < merged[j].Start
		}
		return merged[i].End < merged[j].End
	})
	for i := 1; i < len(merged); i++ {
		if merged[i].Start < merged[i-1].End {
			return nil, invalid("slot %s-%s overlaps %s-%s",
				merged[i].Start, merged[i].End, merged[i-1].Start, merged[i-1].End)
		}
	}
	return merged, nil
}

// parseFutureDay parses a date and rejects days before today (UTC).
func (s *AvailabilityService) parseFutureDay(raw string) (time.Time, error) {
	day, err := utils.ParseDay(raw)
	if err != nil {
		return time.Time{}, invalid("%v", err)
	}
	if day.Before(utils.StartOfDay(s.now())) {
		return time.Time{}, invalid("date %s is in the past", day.Format(utils.DateLayout))
	}
	return day, nil
}

func (s *AvailabilityService) requireActiveTutor(ctx context.Context, tutorID primitive.ObjectID) (*models.User, error) {
	u, err := s.store.Users.GetByID(ctx, tutorID)
	if err != nil {
		return nil, err
	}
	if u.Role != models.RoleTutor {
		return nil, store.ErrNotFound
	}
	if u.Status != models.UserStatusActive {
		return nil, ErrForbidden
	}
	return u, nil
}

// SetAvailability merges slots into the tutor's day document, creating it
// when missing. Concurrent writers are retried on version conflicts.
func (s *AvailabilityService) SetAvailability(ctx context.Context, tutorID primitive.ObjectID, date string, slots []SlotInput) (*models.TutorAvailability, error) {
	day, err := s.parseFutureDay(date)
	if err != nil {
		return nil, err
	}
	incoming, err := normalizeSlots(slots)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireActiveTutor(ctx, tutorID); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		doc, err := s.store.Availability.Get(ctx, tutorID, day)
		if errors.Is(err, store.ErrNotFound) {
			doc = &models.TutorAvailability{TutorID: tutorID, Date: day}
		} else if err != nil {
			return nil, err
		}

		merged, err := mergeSlots(doc.Slots, incoming)
		if err != nil {
			return nil, err
		}
		doc.Slots = merged

		err = s.store.Availability.Save(ctx, doc)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
		s.log.Debug("availability version conflict", zap.String("tutorId", tutorID.Hex()), zap.Int("attempt", attempt))
	}
	return nil, ErrBusy
}

// RemoveSlot deletes one open slot. Booked slots must be cancelled first.
func (s *AvailabilityService) RemoveSlot(ctx context.Context, tutorID primitive.ObjectID, date, start, end string) (*models.TutorAvailability, error) {
	day, err := utils.ParseDay(date)
	if err != nil {
		return nil, invalid("%v", err)
	}
	norm, err := normalizeSlots([]SlotInput{{Start: start, End: end}})
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxMergeAttempts; attempt++ {
		doc, err := s.store.Availability.Get(ctx, tutorID, day)
		if err != nil {
			return nil, err
		}
		i := doc.FindSlot(norm[0].Start, norm[0].End)
		if i < 0 {
			return nil, store.ErrNotFound
		}
		if doc.Slots[i].IsBooked {
			return nil, ErrSlotBooked
		}
		doc.Slots = append(doc.Slots[:i], doc.Slots[i+1:]...)

		err = s.store.Availability.Save(ctx, doc)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return nil, err
		}
	}
	return nil, ErrBusy
}

// GetAvailability lists the tutor's day documents between from and to,
// inclusive. Empty bounds default to today and thirty days later. With
// onlyOpen, booked slots and days without open slots are dropped and the
// tutor must be listed for students.
func (s *AvailabilityService) GetAvailability(ctx context.Context, tutorID primitive.ObjectID, from, to string, onlyOpen bool) ([]models.TutorAvailability, error) {
	start := utils.StartOfDay(s.now())
	if from != "" {
		d, err := utils.ParseDay(from)
		if err != nil {
			return nil, invalid("from: %v", err)
		}
		start = d
	}
	end := start.Add(defaultLookahead)
	if to != "" {
		d, err := utils.ParseDay(to)
		if err != nil {
			return nil, invalid("to: %v", err)
		}
		end = d
	}
	if end.Before(start) {
		return nil, invalid("to must not be before from")
	}
	if end.Sub(start) > maxAvailabilitySpan {
		return nil, invalid("date range is limited to %d days", int(maxAvailabilitySpan.Hours()/24))
	}

	if onlyOpen {
		if _, err := listedTutor(ctx, s.store, tutorID); err != nil {
			return nil, err
		}
	}
	days, err := s.store.Availability.List(ctx, tutorID, start, end)
	if err != nil {
		return nil, err
	}
	if !onlyOpen {
		return days, nil
	}

	out := make([]models.TutorAvailability, 0, len(days))
	for _, d := range days {
		open := make([]models.Slot, 0, len(d.Slots))
		for _, sl := range d.Slots {
			if !sl.IsBooked {
				open = append(open, sl)
			}
		}
		if len(open) == 0 {
			continue
		}
		d.Slots = open
		out = append(out, d)
	}
	return out, nil
}

// ListTutors returns active, verified tutors for students to browse.
func (s *AvailabilityService) ListTutors(ctx context.Context, query string, p utils.Pagination) ([]models.User, int64, error) {
	return s.store.Users.List(ctx, store.UserFilter{
		Role:         models.RoleTutor,
		Status:       models.UserStatusActive,
		Query:        query,
		VerifiedOnly: true,
	}, store.Page{Skip: p.Offset(), Limit: p.Limit})
}

// GetTutor returns an active, verified tutor's public profile.
func (s *AvailabilityService) GetTutor(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return listedTutor(ctx, s.store, id)
}

// listedTutor loads a tutor students may see and book. Blocked, pending and
// unverified tutors read as missing.
func listedTutor(ctx context.Context, st *store.Store, id primitive.ObjectID) (*models.User, error) {
	u, err := st.Users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("tutor: %w", err)
	}
	if u.Role != models.RoleTutor || u.Status != models.UserStatusActive || !u.IsVerified {
		return nil, fmt.Errorf("tutor: %w", store.ErrNotFound)
	}
	return u, nil
}
