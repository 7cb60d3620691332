package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

const (
	otpDigits      = 6
	otpMaxAttempts = 5
	otpMaxResends  = 3
	otpResendSpan  = 10 * time.Minute
)

type RegisterInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     string
}

// ProfileInput carries the self-editable fields of a user. Nil leaves the
// stored value untouched.
type ProfileInput struct {
	FullName   *string
	Phone      *string
	Bio        *string
	Subjects   []string
	HourlyRate *float64
	AvatarURL  *string
}

type AuthService struct {
	store  *store.Store
	tokens *utils.TokenManager
	notify *NotificationService
	log    *zap.Logger
	otpTTL time.Duration

	now     func() time.Time
	newCode func() (string, error)
}

func NewAuthService(st *store.Store, tokens *utils.TokenManager, notify *NotificationService, otpTTL time.Duration, log *zap.Logger) *AuthService {
	return &AuthService{
		store:   st,
		tokens:  tokens,
		notify:  notify,
		log:     log.Named("auth"),
		otpTTL:  otpTTL,
		now:     func() time.Time { return time.Now().UTC() },
		newCode: func() (string, error) { return utils.GenerateOTP(otpDigits) },
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a pending, unverified student or tutor and sends a
// verification code.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if in.Role != models.RoleStudent && in.Role != models.RoleTutor {
		return nil, invalid("role must be student or tutor")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    normalizeEmail(in.Email),
		Phone:    strings.TrimSpace(in.Phone),
		Password: hash,
		Role:     in.Role,
		Status:   models.UserStatusPending,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("email or phone already registered: %w", store.ErrDuplicate)
		}
		return nil, err
	}

	if err := s.issueOTP(ctx, u, models.OTPPurposeVerify, false); err != nil {
		s.log.Error("issue verification code", zap.String("userId", u.ID.Hex()), zap.Error(err))
	}
	s.log.Info("user registered", zap.String("userId", u.ID.Hex()), zap.String("role", u.Role))
	return u, nil
}

// issueOTP stores a fresh code for u and sends it. With resend set, the
// per-window resend limit applies.
func (s *AuthService) issueOTP(ctx context.Context, u *models.User, purpose string, resend bool) error {
	now := s.now()
	o := &models.OTP{UserID: u.ID, Purpose: purpose, WindowStart: now}

	prev, err := s.store.OTPs.Get(ctx, u.ID, purpose)
	switch {
	case err == nil:
		if now.Sub(prev.WindowStart) < otpResendSpan {
			o.WindowStart = prev.WindowStart
			o.ResendCount = prev.ResendCount
		}
	case !errors.Is(err, store.ErrNotFound):
		return err
	}
	if resend {
		if o.ResendCount >= otpMaxResends {
			return ErrResendLimit
		}
		o.ResendCount++
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	if o.CodeHash, err = utils.HashPassword(code); err != nil {
		return err
	}
	o.ExpiresAt = now.Add(s.otpTTL)
	o.CreatedAt = now
	if err := s.store.OTPs.Replace(ctx, o); err != nil {
		return err
	}
	s.notify.SendOTP(*u, code, purpose)
	return nil
}

// consumeOTP checks code against the stored one. A matching code is deleted,
// so it works once.
func (s *AuthService) consumeOTP(ctx context.Context, userID primitive.ObjectID, purpose, code string) error {
	o, err := s.store.OTPs.Get(ctx, userID, purpose)
	if errors.Is(err, store.ErrNotFound) {
		return ErrOTPInvalid
	}
	if err != nil {
		return err
	}
	if o.Attempts >= otpMaxAttempts {
		return ErrOTPAttempts
	}
	if s.now().After(o.ExpiresAt) {
		return ErrOTPExpired
	}
	if !utils.CheckPasswordHash(strings.TrimSpace(code), o.CodeHash) {
		if err := s.store.OTPs.IncrementAttempts(ctx, o.ID); err != nil {
			s.log.Warn("count OTP attempt", zap.Error(err))
		}
		return ErrOTPInvalid
	}
	return s.store.OTPs.Delete(ctx, o.ID)
}

// VerifyOTP marks the account verified. Students become active right away;
// tutors wait for an admin.
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*models.User, error) {
	u, err := s.store.Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOTPInvalid
	}
	if err != nil {
		return nil, err
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}
	if err := s.consumeOTP(ctx, u.ID, models.OTPPurposeVerify, code); err != nil {
		return nil, err
	}

	u.IsVerified = true
	if u.Role == models.RoleStudent && u.Status == models.UserStatusPending {
		u.Status = models.UserStatusActive
	}
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ResendOTP(ctx context.Context, email string) error {
	u, err := s.store.Users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	return s.issueOTP(ctx, u, models.OTPPurposeVerify, true)
}

// Login checks credentials and returns a signed token for the user.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	u, err := s.store.Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if !utils.CheckPasswordHash(password, u.Password) {
		return "", nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return "", nil, ErrNotVerified
	}
	if u.Status == models.UserStatusBlocked {
		return "", nil, ErrBlocked
	}

	token, err := s.tokens.GenerateJWT(u.ID.Hex(), u.Role)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *AuthService) Me(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return s.store.Users.GetByID(ctx, userID)
}

func (s *AuthService) UpdateMe(ctx context.Context, userID primitive.ObjectID, in ProfileInput) (*models.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.FullName != nil {
		u.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Bio != nil {
		u.Bio = utils.SanitizeHTML(*in.Bio)
	}
	if in.Subjects != nil {
		u.Subjects = in.Subjects
	}
	if in.HourlyRate != nil {
		u.HourlyRate = *in.HourlyRate
	}
	if in.AvatarURL != nil {
		u.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
	if err := s.store.Users.Update(ctx, u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("phone already registered: %w", store.ErrDuplicate)
		}
		return nil, err
	}
	return u, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID primitive.ObjectID, oldPassword, newPassword string) error {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(oldPassword, u.Password) {
		return invalid("current password is incorrect")
	}
	if u.Password, err = utils.HashPassword(newPassword); err != nil {
		return err
	}
	return s.store.Users.Update(ctx, u)
}

// ForgotPassword sends a reset code. Unknown emails and exhausted resend
// windows succeed silently.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.store.Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	// Answer the same way once the resend window is spent.
	err = s.issueOTP(ctx, u, models.OTPPurposeReset, true)
	if errors.Is(err, ErrResendLimit) {
		s.log.Warn("reset code resend limit reached", zap.String("userId", u.ID.Hex()))
		return nil
	}
	return err
}

func (s *AuthService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	u, err := s.store.Users.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return ErrOTPInvalid
	}
	if err != nil {
		return err
	}
	if err := s.consumeOTP(ctx, u.ID, models.OTPPurposeReset, code); err != nil {
		return err
	}
	if u.Password, err = utils.HashPassword(newPassword); err != nil {
		return err
	}
	return s.store.Users.Update(ctx, u)
}

// EnsureAdmin creates the configured admin account, or re-activates it.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)
	u, err := s.store.Users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		hash, err := utils.HashPassword(password)
		if err != nil {
			return err
		}
		u = &models.User{
			FullName:   "Administrator",
			Email:      email,
			Password:   hash,
			Role:       models.RoleAdmin,
			Status:     models.UserStatusActive,
			IsVerified: true,
		}
		if err := s.store.Users.Create(ctx, u); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
		s.log.Info("admin account created", zap.String("email", email))
		return nil
	case err != nil:
		return err
	}

	if u.Role == models.RoleAdmin && u.Status == models.UserStatusActive && u.IsVerified {
		return nil
	}
	u.Role, u.Status, u.IsVerified = models.RoleAdmin, models.UserStatusActive, true
	return s.store.Users.Update(ctx, u)
}
