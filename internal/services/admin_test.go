package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

func TestSetUserStatus(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.st, f.log)
	admin := f.user(t, models.RoleAdmin, models.UserStatusActive)
	tutor := f.user(t, models.RoleTutor, models.UserStatusPending)

	approved, err := svc.SetUserStatus(f.ctx, admin.ID, tutor.ID, models.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, models.UserStatusActive, approved.Status)

	_, err = svc.SetUserStatus(f.ctx, admin.ID, admin.ID, models.UserStatusBlocked)
	assert.True(t, IsInputError(err))

	_, err = svc.SetUserStatus(f.ctx, admin.ID, tutor.ID, "archived")
	assert.True(t, IsInputError(err))

	unverified := &models.User{FullName: "New", Email: "new@example.com", Role: models.RoleTutor, Status: models.UserStatusPending}
	require.NoError(t, f.st.Users.Create(f.ctx, unverified))
	_, err = svc.SetUserStatus(f.ctx, admin.ID, unverified.ID, models.UserStatusActive)
	assert.True(t, IsInputError(err))
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	svc := NewAdminService(f.st, f.log)
	admin := f.user(t, models.RoleAdmin, models.UserStatusActive)
	student := f.user(t, models.RoleStudent, models.UserStatusActive)

	assert.True(t, IsInputError(svc.DeleteUser(f.ctx, admin.ID, admin.ID)))
	require.NoError(t, svc.DeleteUser(f.ctx, admin.ID, student.ID))
	_, err := svc.GetUser(f.ctx, student.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDashboardStats(t *testing.T) {
	p := newPaymentFixture(t)
	svc := NewAdminService(p.st, p.log)

	_, _, err := p.svc.LogUPIPayment(p.ctx, p.student.ID, PaymentInput{CourseID: &p.course.ID, Amount: 799, IdempotencyToken: "s1"})
	require.NoError(t, err)

	stats, err := svc.Stats(p.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.UsersByRole[models.RoleStudent])
	assert.Equal(t, int64(1), stats.UsersByRole[models.RoleTutor])
	assert.Equal(t, int64(1), stats.PublishedCourses)
	assert.Equal(t, int64(1), stats.Packages)
	assert.Equal(t, int64(1), stats.SuccessfulPayments)
	assert.Equal(t, 799.0, stats.Revenue)
	assert.Zero(t, stats.ActiveBookings)
}
