package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

func TestUsers_DuplicateEmailAndPhone(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Users.Create(ctx, &models.User{Email: "a@example.com", Phone: "111"}))
	assert.ErrorIs(t, s.Users.Create(ctx, &models.User{Email: "A@example.com"}), store.ErrDuplicate)
	assert.ErrorIs(t, s.Users.Create(ctx, &models.User{Email: "b@example.com", Phone: "111"}), store.ErrDuplicate)
	assert.NoError(t, s.Users.Create(ctx, &models.User{Email: "c@example.com"}))
	assert.NoError(t, s.Users.Create(ctx, &models.User{Email: "d@example.com"}), "empty phones never collide")
}

func TestUsers_ListPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, e := range []string{"a@x.io", "b@x.io", "c@x.io"} {
		require.NoError(t, s.Users.Create(ctx, &models.User{Email: e, Role: models.RoleStudent}))
	}

	page, total, err := s.Users.List(ctx, store.UserFilter{Role: models.RoleStudent}, store.Page{Skip: 2, Limit: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, page, 1)

	page, total, err = s.Users.List(ctx, store.UserFilter{Role: models.RoleTutor}, store.Page{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, page)
}

func TestAvailability_SaveVersioning(t *testing.T) {
	s := New()
	ctx := context.Background()
	tutor := primitive.NewObjectID()
	day := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)

	a := &models.TutorAvailability{TutorID: tutor, Date: day, Slots: []models.Slot{{Start: "09:00", End: "10:00"}}}
	require.NoError(t, s.Availability.Save(ctx, a))
	assert.EqualValues(t, 1, a.Version)

	stale := &models.TutorAvailability{TutorID: tutor, Date: day}
	assert.ErrorIs(t, s.Availability.Save(ctx, stale), store.ErrConflict, "second insert for the same day")

	got, err := s.Availability.Get(ctx, tutor, day)
	require.NoError(t, err)
	got.Slots = append(got.Slots, models.Slot{Start: "10:00", End: "11:00"})
	require.NoError(t, s.Availability.Save(ctx, got))

	a.Slots = nil
	assert.ErrorIs(t, s.Availability.Save(ctx, a), store.ErrConflict, "stale version")
}

func TestAvailability_ClaimAndRelease(t *testing.T) {
	s := New()
	ctx := context.Background()
	tutor, student, enr := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	day := time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Availability.Save(ctx, &models.TutorAvailability{
		TutorID: tutor, Date: day, Slots: []models.Slot{{Start: "09:00", End: "10:00"}},
	}))

	_, err := s.Availability.ClaimSlot(ctx, tutor, day, "11:00", "12:00", student, enr)
	assert.ErrorIs(t, err, store.ErrNotFound)

	a, err := s.Availability.ClaimSlot(ctx, tutor, day, "09:00", "10:00", student, enr)
	require.NoError(t, err)
	assert.True(t, a.Slots[0].IsBooked)
	assert.Equal(t, student, *a.Slots[0].BookedBy)

	_, err = s.Availability.ClaimSlot(ctx, tutor, day, "09:00", "10:00", primitive.NewObjectID(), primitive.NewObjectID())
	assert.ErrorIs(t, err, store.ErrSlotUnavailable)

	assert.ErrorIs(t, s.Availability.ReleaseSlot(ctx, tutor, day, "09:00", "10:00", primitive.NewObjectID()), store.ErrNotFound)
	require.NoError(t, s.Availability.ReleaseSlot(ctx, tutor, day, "09:00", "10:00", enr))

	got, err := s.Availability.Get(ctx, tutor, day)
	require.NoError(t, err)
	assert.False(t, got.Slots[0].IsBooked)
	assert.Nil(t, got.Slots[0].BookedBy)
}

func TestStudentPackages_ConsumeLesson(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now()
	sp := &models.StudentPackage{
		StudentID: primitive.NewObjectID(), PaymentID: primitive.NewObjectID(),
		LessonsTotal: 1, ExpiresAt: now.Add(time.Hour), Status: models.StudentPackageActive,
	}
	require.NoError(t, s.StudentPackages.Create(ctx, sp))

	got, err := s.StudentPackages.ConsumeLesson(ctx, sp.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LessonsUsed)

	_, err = s.StudentPackages.ConsumeLesson(ctx, sp.ID, now)
	assert.ErrorIs(t, err, store.ErrNoLessons)

	require.NoError(t, s.StudentPackages.RefundLesson(ctx, sp.ID))
	_, err = s.StudentPackages.ConsumeLesson(ctx, sp.ID, now.Add(2*time.Hour))
	assert.ErrorIs(t, err, store.ErrNoLessons, "expired")
}

func TestPayments_InsertIfAbsent(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := primitive.NewObjectID()

	p1, created, err := s.Payments.InsertIfAbsent(ctx, &models.Payment{UserID: user, IdempotencyToken: "tok-1", UPITxnID: "UPI1", Amount: 10})
	require.NoError(t, err)
	assert.True(t, created)

	p2, created, err := s.Payments.InsertIfAbsent(ctx, &models.Payment{UserID: user, IdempotencyToken: "tok-1", Amount: 99})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, p1.ID, p2.ID)
	assert.Equal(t, 10.0, p2.Amount)

	_, _, err = s.Payments.InsertIfAbsent(ctx, &models.Payment{UserID: user, IdempotencyToken: "tok-2", UPITxnID: "UPI1"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}
