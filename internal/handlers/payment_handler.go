package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/tutor-api/internal/services"
	"github.com/harentsoaR/tutor-api/internal/store"
)

type upiPaymentRequest struct {
	CourseID         string  `json:"courseId" binding:"omitempty,objectid"`
	PackageID        string  `json:"packageId" binding:"omitempty,objectid"`
	Amount           float64 `json:"amount" binding:"required,gt=0"`
	Currency         string  `json:"currency" binding:"omitempty,len=3,alpha"`
	UPITxnID         string  `json:"upiTxnId" binding:"omitempty,max=64"`
	PayerVPA         string  `json:"payerVpa" binding:"omitempty,max=100"`
	Status           string  `json:"status" binding:"omitempty,oneof=pending success failed"`
	IdempotencyToken string  `json:"idempotencyToken" binding:"required,max=128"`
}

type paymentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending success failed"`
}

// LogUPIPayment answers 201 for a new payment and 200 when the idempotency
// token was seen before.
func (h *Handler) LogUPIPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req upiPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	courseID, _ := optionalID(req.CourseID)
	packageID, _ := optionalID(req.PackageID)

	ctx, cancel := h.ctx(c)
	defer cancel()

	payment, created, err := h.Payments.LogUPIPayment(ctx, userID, services.PaymentInput{
		CourseID:         courseID,
		PackageID:        packageID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		UPITxnID:         req.UPITxnID,
		PayerVPA:         req.PayerVPA,
		Status:           req.Status,
		IdempotencyToken: req.IdempotencyToken,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, payment)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *Handler) MyPayments(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p := pagination(c)
	ctx, cancel := h.ctx(c)
	defer cancel()

	payments, total, err := h.Payments.MyPayments(ctx, userID, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, payments, total, p)
}

// --- admin ---

func (h *Handler) AdminListPayments(c *gin.Context) {
	p := pagination(c)
	f := store.PaymentFilter{Status: c.Query("status")}
	uid, err := optionalID(c.Query("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid userId"})
		return
	}
	f.UserID = uid

	ctx, cancel := h.ctx(c)
	defer cancel()

	payments, total, err := h.Payments.ListPayments(ctx, f, p)
	if err != nil {
		h.respondError(c, err)
		return
	}
	paged(c, payments, total, p)
}

func (h *Handler) AdminGetPayment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	payment, err := h.Payments.GetPayment(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// UpdatePaymentStatus grants access when a payment moves to success.
func (h *Handler) UpdatePaymentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req paymentStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	payment, err := h.Payments.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func (h *Handler) RetryPaymentGrant(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	payment, err := h.Payments.RetryGrant(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
