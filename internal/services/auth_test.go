package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newAuth(t *testing.T) (*AuthService, *fixture, *clock) {
	f := newFixture(t)
	svc := NewAuthService(f.st, utils.NewTokenManager("test-secret", time.Hour), f.notify, 5*time.Minute, f.log)
	c := &clock{t: time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = c.now
	svc.newCode = func() (string, error) { return "424242", nil }
	return svc, f, c
}

func register(t *testing.T, svc *AuthService, email, role string) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		FullName: "Asha Rao",
		Email:    email,
		Password: "password123",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndVerifyStudent(t *testing.T) {
	svc, f, _ := newAuth(t)

	u := register(t, svc, "  Asha@Example.com ", models.RoleStudent)
	assert.Equal(t, "asha@example.com", u.Email)
	assert.Equal(t, models.UserStatusPending, u.Status)
	assert.False(t, u.IsVerified)
	assert.NotEqual(t, "password123", u.Password)

	f.notify.Wait()
	sent := f.mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "asha@example.com", sent[0].To)
	assert.Contains(t, sent[0].Text, "424242")

	_, _, err := svc.Login(f.ctx, "asha@example.com", "password123")
	assert.ErrorIs(t, err, ErrNotVerified)

	verified, err := svc.VerifyOTP(f.ctx, "asha@example.com", "424242")
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Equal(t, models.UserStatusActive, verified.Status)

	token, logged, err := svc.Login(f.ctx, "ASHA@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, u.ID, logged.ID)
}

func TestRegisterRejectsAdminRoleAndDuplicates(t *testing.T) {
	svc, f, _ := newAuth(t)

	_, err := svc.Register(f.ctx, RegisterInput{FullName: "X", Email: "x@example.com", Password: "password123", Role: models.RoleAdmin})
	assert.True(t, IsInputError(err))

	register(t, svc, "dup@example.com", models.RoleStudent)
	_, err = svc.Register(f.ctx, RegisterInput{FullName: "Y", Email: "DUP@example.com", Password: "password123", Role: models.RoleTutor})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestVerifyTutorStaysPending(t *testing.T) {
	svc, f, _ := newAuth(t)
	register(t, svc, "tutor@example.com", models.RoleTutor)

	u, err := svc.VerifyOTP(f.ctx, "tutor@example.com", "424242")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.Equal(t, models.UserStatusPending, u.Status)
}

func TestOTPExpiresAfterFiveMinutes(t *testing.T) {
	svc, f, c := newAuth(t)
	register(t, svc, "late@example.com", models.RoleStudent)

	c.advance(5*time.Minute + time.Second)
	_, err := svc.VerifyOTP(f.ctx, "late@example.com", "424242")
	assert.ErrorIs(t, err, ErrOTPExpired)
}

func TestOTPIsSingleUse(t *testing.T) {
	svc, f, _ := newAuth(t)
	register(t, svc, "reset@example.com", models.RoleStudent)
	_, err := svc.VerifyOTP(f.ctx, "reset@example.com", "424242")
	require.NoError(t, err)

	require.NoError(t, svc.ForgotPassword(f.ctx, "reset@example.com"))
	require.NoError(t, svc.ResetPassword(f.ctx, "reset@example.com", "424242", "new-password-1"))
	err = svc.ResetPassword(f.ctx, "reset@example.com", "424242", "new-password-2")
	assert.ErrorIs(t, err, ErrOTPInvalid)

	_, _, err = svc.Login(f.ctx, "reset@example.com", "new-password-1")
	assert.NoError(t, err)
}

func TestOTPAttemptLimit(t *testing.T) {
	svc, f, _ := newAuth(t)
	register(t, svc, "guess@example.com", models.RoleStudent)

	for i := 0; i < otpMaxAttempts; i++ {
		_, err := svc.VerifyOTP(f.ctx, "guess@example.com", "000000")
		assert.ErrorIs(t, err, ErrOTPInvalid)
	}
	_, err := svc.VerifyOTP(f.ctx, "guess@example.com", "424242")
	assert.ErrorIs(t, err, ErrOTPAttempts)
}

func TestResendLimitPerWindow(t *testing.T) {
	svc, f, c := newAuth(t)
	register(t, svc, "resend@example.com", models.RoleStudent)

	for i := 0; i < otpMaxResends; i++ {
		require.NoError(t, svc.ResendOTP(f.ctx, "resend@example.com"))
	}
	assert.ErrorIs(t, svc.ResendOTP(f.ctx, "resend@example.com"), ErrResendLimit)

	c.advance(otpResendSpan + time.Second)
	assert.NoError(t, svc.ResendOTP(f.ctx, "resend@example.com"))
}

func TestLoginFailures(t *testing.T) {
	svc, f, _ := newAuth(t)
	blocked := f.user(t, models.RoleStudent, models.UserStatusBlocked)

	_, _, err := svc.Login(f.ctx, "nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(f.ctx, blocked.Email, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(f.ctx, blocked.Email, "password123")
	assert.ErrorIs(t, err, ErrBlocked)
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	svc, f, _ := newAuth(t)
	assert.NoError(t, svc.ForgotPassword(f.ctx, "ghost@example.com"))
	f.notify.Wait()
	assert.Empty(t, f.mailer.sent())
}

func TestUpdateMeAndChangePassword(t *testing.T) {
	svc, f, _ := newAuth(t)
	u := f.user(t, models.RoleTutor, models.UserStatusActive)

	bio := `<p>Maths tutor<script>x()</script></p>`
	rate := 25.0
	updated, err := svc.UpdateMe(f.ctx, u.ID, ProfileInput{Bio: &bio, HourlyRate: &rate, Subjects: []string{"maths"}})
	require.NoError(t, err)
	assert.Equal(t, "<p>Maths tutor</p>", updated.Bio)
	assert.Equal(t, 25.0, updated.HourlyRate)
	assert.Equal(t, []string{"maths"}, updated.Subjects)

	err = svc.ChangePassword(f.ctx, u.ID, "not-it", "another-pass")
	assert.True(t, IsInputError(err))
	require.NoError(t, svc.ChangePassword(f.ctx, u.ID, "password123", "another-pass"))
	_, _, err = svc.Login(f.ctx, u.Email, "another-pass")
	assert.NoError(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	svc, f, _ := newAuth(t)
	require.NoError(t, svc.EnsureAdmin(f.ctx, "Admin@Example.com", "admin-pass"))
	require.NoError(t, svc.EnsureAdmin(f.ctx, "admin@example.com", "admin-pass"))

	admins, total, err := f.st.Users.List(f.ctx, store.UserFilter{Role: models.RoleAdmin}, store.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.True(t, strings.EqualFold("admin@example.com", admins[0].Email))

	_, _, err = svc.Login(f.ctx, "admin@example.com", "admin-pass")
	assert.NoError(t, err)
}

func TestForgotPasswordPastResendLimitIsSilent(t *testing.T) {
	svc, f, _ := newAuth(t)
	u := f.user(t, models.RoleStudent, models.UserStatusActive)

	for i := 0; i < otpMaxResends; i++ {
		require.NoError(t, svc.ForgotPassword(f.ctx, u.Email))
	}
	assert.NoError(t, svc.ForgotPassword(f.ctx, u.Email))
	f.notify.Wait()
	assert.Len(t, f.mailer.sent(), otpMaxResends)
}
