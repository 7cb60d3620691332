// internal/handlers/auth_handler.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/tutor-api/internal/services"
)

type RegisterUserRequest struct {
	FullName string `json:"fullName" binding:"required,max=120"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=student tutor"`
	Phone    string `json:"phone" binding:"omitempty,e164"`
}

type otpRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

type resetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" binding:"required,min=8,max=72"`
}

type updateMeRequest struct {
	FullName   *string  `json:"fullName" binding:"omitempty,min=1,max=120"`
	Phone      *string  `json:"phone" binding:"omitempty,e164"`
	Bio        *string  `json:"bio" binding:"omitempty,max=5000"`
	Subjects   []string `json:"subjects" binding:"omitempty,max=20,dive,min=1,max=60"`
	HourlyRate *float64 `json:"hourlyRate" binding:"omitempty,gte=0"`
	AvatarURL  *string  `json:"avatarUrl" binding:"omitempty,url"`
}

// RegisterUser creates a pending account and mails the verification code.
func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Auth.Register(ctx, services.RegisterInput{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Account created, check your email for the verification code", "user": user})
}

func (h *Handler) VerifyOTP(c *gin.Context) {
	var req otpRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Auth.VerifyOTP(ctx, req.Email, req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Account verified", "user": user})
}

func (h *Handler) ResendOTP(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Auth.ResendOTP(ctx, req.Email); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A new code has been sent"})
}

// Login returns the token in the body and in an HttpOnly cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	token, user, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.CookieName, token, int(h.Tokens.TTL().Seconds()), "/", "", h.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.CookieName, "", -1, "/", "", h.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GetCurrentUser retrieves the profile of the currently authenticated user.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Auth.Me(ctx, userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateCurrentUser changes only the fields present in the body.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req updateMeRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.FullName == nil && req.Phone == nil && req.Bio == nil && req.Subjects == nil && req.HourlyRate == nil && req.AvatarURL == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	user, err := h.Auth.UpdateMe(ctx, userID, services.ProfileInput{
		FullName:   req.FullName,
		Phone:      req.Phone,
		Bio:        req.Bio,
		Subjects:   req.Subjects,
		HourlyRate: req.HourlyRate,
		AvatarURL:  req.AvatarURL,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Auth.ChangePassword(ctx, userID, req.OldPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// ForgotPassword answers the same way whether or not the email is known.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Auth.ForgotPassword(ctx, req.Email); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "If the account exists, a reset code has been sent"})
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.Auth.ResetPassword(ctx, req.Email, req.Code, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset, you can now log in"})
}
