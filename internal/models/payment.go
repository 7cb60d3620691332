package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"
)

const PaymentMethodUPI = "upi"

type Payment struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ReceiptNo        string              `bson:"receiptNo" json:"receiptNo"`
	UserID           primitive.ObjectID  `bson:"userId" json:"userId"`
	CourseID         *primitive.ObjectID `bson:"courseId,omitempty" json:"courseId,omitempty"`
	PackageID        *primitive.ObjectID `bson:"packageId,omitempty" json:"packageId,omitempty"`
	Amount           float64             `bson:"amount" json:"amount"`
	Currency         string              `bson:"currency" json:"currency"`
	Method           string              `bson:"method" json:"method"`
	UPITxnID         string              `bson:"upiTxnId,omitempty" json:"upiTxnId,omitempty"`
	PayerVPA         string              `bson:"payerVpa,omitempty" json:"payerVpa,omitempty"`
	IdempotencyToken string              `bson:"idempotencyToken" json:"idempotencyToken"`
	Status           string              `bson:"status" json:"status"`
	AccessGranted    bool                `bson:"accessGranted" json:"accessGranted"`
	GrantError       string              `bson:"grantError,omitempty" json:"grantError,omitempty"`
	CreatedAt        time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time           `bson:"updatedAt" json:"updatedAt"`
}

func IsValidPaymentStatus(status string) bool {
	switch status {
	case PaymentStatusPending, PaymentStatusSuccess, PaymentStatusFailed:
		return true
	}
	return false
}
