package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OTPPurposeVerify = "verify"
	OTPPurposeReset  = "reset"
)

// OTP is a pending one-time code. Only the bcrypt hash of the code is stored.
type OTP struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	UserID      primitive.ObjectID `bson:"userId"`
	Purpose     string             `bson:"purpose"`
	CodeHash    string             `bson:"codeHash"`
	ExpiresAt   time.Time          `bson:"expiresAt"`
	Attempts    int                `bson:"attempts"`
	ResendCount int                `bson:"resendCount"`
	WindowStart time.Time          `bson:"windowStart"`
	CreatedAt   time.Time          `bson:"createdAt"`
}
