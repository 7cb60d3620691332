package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	EnrollmentKindClass = "class" // access to a class, granted by a payment
	EnrollmentKindSlot  = "slot"  // a booked one-to-one lesson in a tutor slot
)

const (
	EnrollmentStatusActive    = "active"
	EnrollmentStatusCancelled = "cancelled"
	EnrollmentStatusCompleted = "completed"
)

type Enrollment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind      string             `bson:"kind" json:"kind"`
	StudentID primitive.ObjectID `bson:"studentId" json:"studentId"`
	TutorID   primitive.ObjectID `bson:"tutorId" json:"tutorId"`
	Status    string             `bson:"status" json:"status"`

	CourseID  *primitive.ObjectID `bson:"courseId,omitempty" json:"courseId,omitempty"`
	ClassID   *primitive.ObjectID `bson:"classId,omitempty" json:"classId,omitempty"`
	PaymentID *primitive.ObjectID `bson:"paymentId,omitempty" json:"paymentId,omitempty"`

	AvailabilityID   *primitive.ObjectID `bson:"availabilityId,omitempty" json:"availabilityId,omitempty"`
	StudentPackageID *primitive.ObjectID `bson:"studentPackageId,omitempty" json:"studentPackageId,omitempty"`
	Date             *time.Time          `bson:"date,omitempty" json:"date,omitempty"`
	SlotStart        string              `bson:"slotStart,omitempty" json:"slotStart,omitempty"`
	SlotEnd          string              `bson:"slotEnd,omitempty" json:"slotEnd,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

const (
	StudentPackageActive  = "active"
	StudentPackageExpired = "expired"
)

// StudentPackage is a student's purchased copy of a CoursePackage.
type StudentPackage struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	StudentID    primitive.ObjectID `bson:"studentId" json:"studentId"`
	PackageID    primitive.ObjectID `bson:"packageId" json:"packageId"`
	PaymentID    primitive.ObjectID `bson:"paymentId" json:"paymentId"`
	LessonsTotal int                `bson:"lessonsTotal" json:"lessonsTotal"`
	LessonsUsed  int                `bson:"lessonsUsed" json:"lessonsUsed"`
	StartsAt     time.Time          `bson:"startsAt" json:"startsAt"`
	ExpiresAt    time.Time          `bson:"expiresAt" json:"expiresAt"`
	Status       string             `bson:"status" json:"status"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (sp StudentPackage) LessonsRemaining() int {
	if r := sp.LessonsTotal - sp.LessonsUsed; r > 0 {
		return r
	}
	return 0
}

// Usable reports whether a lesson can still be drawn from the package at now.
func (sp StudentPackage) Usable(now time.Time) bool {
	return sp.Status == StudentPackageActive && sp.LessonsRemaining() > 0 && now.Before(sp.ExpiresAt)
}
