package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

type bookingFixture struct {
	*fixture
	svc     *BookingService
	student *models.User
	tutor   *models.User
	day     string
}

func newBookingFixture(t *testing.T) *bookingFixture {
	f := newFixture(t)
	b := &bookingFixture{
		fixture: f,
		svc:     NewBookingService(f.st, f.notify, f.log),
		student: f.user(t, models.RoleStudent, models.UserStatusActive),
		tutor:   f.user(t, models.RoleTutor, models.UserStatusActive),
		day:     tomorrow(),
	}
	avail := NewAvailabilityService(f.st, f.log)
	_, err := avail.SetAvailability(f.ctx, b.tutor.ID, b.day, []SlotInput{
		{Start: "10:00", End: "11:00"},
		{Start: "11:00", End: "12:00"},
	})
	require.NoError(t, err)
	return b
}

func (b *bookingFixture) book(start, end string) (*models.Enrollment, error) {
	return b.svc.BookSlot(b.ctx, b.student.ID, BookInput{TutorID: b.tutor.ID, Date: b.day, Start: start, End: end})
}

func (b *bookingFixture) slot(t *testing.T, start string) models.Slot {
	t.Helper()
	date, _ := utils.ParseDay(b.day)
	doc, err := b.st.Availability.Get(b.ctx, b.tutor.ID, date)
	require.NoError(t, err)
	for _, s := range doc.Slots {
		if s.Start == start {
			return s
		}
	}
	t.Fatalf("slot %s missing", start)
	return models.Slot{}
}

func TestBookSlotConsumesLessonAndClaimsSlot(t *testing.T) {
	b := newBookingFixture(t)
	sp := b.lessons(t, b.student.ID, 2, time.Now().Add(30*24*time.Hour))

	e, err := b.book("10:00", "11:00")
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentKindSlot, e.Kind)
	assert.Equal(t, models.EnrollmentStatusActive, e.Status)
	assert.Equal(t, sp.ID, *e.StudentPackageID)

	s := b.slot(t, "10:00")
	assert.True(t, s.IsBooked)
	assert.Equal(t, b.student.ID, *s.BookedBy)
	assert.Equal(t, e.ID, *s.EnrollmentID)

	got, err := b.st.StudentPackages.GetByID(b.ctx, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LessonsUsed)

	b.notify.Wait()
	assert.Len(t, b.mailer.sent(), 2)
}

func TestBookSameSlotTwiceIsRejected(t *testing.T) {
	b := newBookingFixture(t)
	sp := b.lessons(t, b.student.ID, 5, time.Now().Add(30*24*time.Hour))

	_, err := b.book("10:00", "11:00")
	require.NoError(t, err)
	_, err = b.book("10:00", "11:00")
	assert.ErrorIs(t, err, ErrSlotBooked)

	got, err := b.st.StudentPackages.GetByID(b.ctx, sp.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.LessonsUsed, "failed booking must refund its lesson")
}

func TestBookWithoutLessonsClaimsNoSlot(t *testing.T) {
	b := newBookingFixture(t)
	b.lessons(t, b.student.ID, 3, time.Now().Add(-time.Hour)) // expired

	_, err := b.book("10:00", "11:00")
	assert.ErrorIs(t, err, ErrNoLessons)
	assert.False(t, b.slot(t, "10:00").IsBooked)
}

func TestBookMissingSlot(t *testing.T) {
	b := newBookingFixture(t)
	sp := b.lessons(t, b.student.ID, 1, time.Now().Add(24*time.Hour*30))

	_, err := b.book("15:00", "16:00")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, _ := b.st.StudentPackages.GetByID(b.ctx, sp.ID)
	assert.Equal(t, 0, got.LessonsUsed)
}

func TestBookUnlistedTutorIsRejected(t *testing.T) {
	for name, change := range map[string]func(u *models.User){
		"blocked":    func(u *models.User) { u.Status = models.UserStatusBlocked },
		"pending":    func(u *models.User) { u.Status = models.UserStatusPending },
		"unverified": func(u *models.User) { u.IsVerified = false },
	} {
		t.Run(name, func(t *testing.T) {
			b := newBookingFixture(t)
			sp := b.lessons(t, b.student.ID, 2, time.Now().Add(30*24*time.Hour))
			change(b.tutor)
			require.NoError(t, b.st.Users.Update(b.ctx, b.tutor))

			_, err := b.book("10:00", "11:00")
			assert.ErrorIs(t, err, store.ErrNotFound)
			assert.False(t, b.slot(t, "10:00").IsBooked)

			got, err := b.st.StudentPackages.GetByID(b.ctx, sp.ID)
			require.NoError(t, err)
			assert.Zero(t, got.LessonsUsed)
		})
	}
}

func TestBookPicksEarliestExpiringPackage(t *testing.T) {
	b := newBookingFixture(t)
	later := b.lessons(t, b.student.ID, 5, time.Now().Add(60*24*time.Hour))
	sooner := b.lessons(t, b.student.ID, 5, time.Now().Add(10*24*time.Hour))

	e, err := b.book("10:00", "11:00")
	require.NoError(t, err)
	assert.Equal(t, sooner.ID, *e.StudentPackageID)

	// An explicit package wins.
	e, err = b.svc.BookSlot(b.ctx, b.student.ID, BookInput{
		TutorID: b.tutor.ID, Date: b.day, Start: "11:00", End: "12:00", StudentPackageID: &later.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, later.ID, *e.StudentPackageID)
}

func TestBookSlotRejectsOtherStudentsPackage(t *testing.T) {
	b := newBookingFixture(t)
	other := b.user(t, models.RoleStudent, models.UserStatusActive)
	sp := b.lessons(t, other.ID, 5, time.Now().Add(30*24*time.Hour))

	_, err := b.svc.BookSlot(b.ctx, b.student.ID, BookInput{
		TutorID: b.tutor.ID, Date: b.day, Start: "10:00", End: "11:00", StudentPackageID: &sp.ID,
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestConcurrentBookingsClaimSlotOnce(t *testing.T) {
	b := newBookingFixture(t)
	const students = 8

	var wg sync.WaitGroup
	errs := make([]error, students)
	for i := 0; i < students; i++ {
		st := b.user(t, models.RoleStudent, models.UserStatusActive)
		b.lessons(t, st.ID, 1, time.Now().Add(30*24*time.Hour))
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = b.svc.BookSlot(b.ctx, st.ID, BookInput{TutorID: b.tutor.ID, Date: b.day, Start: "10:00", End: "11:00"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, ErrSlotBooked), err)
	}
	assert.Equal(t, 1, ok)

	_, total, err := b.st.Enrollments.List(b.ctx, store.EnrollmentFilter{Kind: models.EnrollmentKindSlot}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCancelBookingFreesSlotAndRefunds(t *testing.T) {
	b := newBookingFixture(t)
	sp := b.lessons(t, b.student.ID, 1, time.Now().Add(30*24*time.Hour))

	e, err := b.book("10:00", "11:00")
	require.NoError(t, err)

	cancelled, err := b.svc.CancelBooking(b.ctx, b.student.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCancelled, cancelled.Status)

	s := b.slot(t, "10:00")
	assert.False(t, s.IsBooked)
	assert.Nil(t, s.BookedBy)

	got, _ := b.st.StudentPackages.GetByID(b.ctx, sp.ID)
	assert.Equal(t, 0, got.LessonsUsed)

	_, err = b.svc.CancelBooking(b.ctx, b.student.ID, e.ID)
	assert.True(t, IsInputError(err))

	// The refunded lesson books the slot again.
	_, err = b.book("10:00", "11:00")
	assert.NoError(t, err)
}

func TestCancelBookingRules(t *testing.T) {
	b := newBookingFixture(t)
	b.lessons(t, b.student.ID, 2, time.Now().Add(30*24*time.Hour))
	e, err := b.book("10:00", "11:00")
	require.NoError(t, err)

	stranger := b.user(t, models.RoleStudent, models.UserStatusActive)
	_, err = b.svc.CancelBooking(b.ctx, stranger.ID, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	b.svc.now = func() time.Time { return time.Now().UTC().Add(72 * time.Hour) }
	_, err = b.svc.CancelBooking(b.ctx, b.student.ID, e.ID)
	assert.ErrorIs(t, err, ErrTooLate)
}

func TestCompleteBooking(t *testing.T) {
	b := newBookingFixture(t)
	b.lessons(t, b.student.ID, 1, time.Now().Add(30*24*time.Hour))
	e, err := b.book("10:00", "11:00")
	require.NoError(t, err)

	_, err = b.svc.CompleteBooking(b.ctx, b.tutor.ID, e.ID)
	assert.True(t, IsInputError(err), "lesson has not started")

	b.svc.now = func() time.Time { return time.Now().UTC().Add(72 * time.Hour) }
	done, err := b.svc.CompleteBooking(b.ctx, b.tutor.ID, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentStatusCompleted, done.Status)

	list, total, err := b.svc.TutorBookings(b.ctx, b.tutor.ID, models.EnrollmentStatusCompleted, utils.ParsePagination("", ""))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, e.ID, list[0].ID)

	mine, _, err := b.svc.MyBookings(b.ctx, b.student.ID, "", utils.ParsePagination("", ""))
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
