package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Slot is a start/end window on the day of its TutorAvailability, in
// 24h "HH:MM" form.
type Slot struct {
	Start        string              `bson:"start" json:"start"`
	End          string              `bson:"end" json:"end"`
	IsBooked     bool                `bson:"isBooked" json:"isBooked"`
	BookedBy     *primitive.ObjectID `bson:"bookedBy,omitempty" json:"bookedBy,omitempty"`
	EnrollmentID *primitive.ObjectID `bson:"enrollmentId,omitempty" json:"enrollmentId,omitempty"`
}

// TutorAvailability holds all slots of one tutor for one calendar day.
// Date is always midnight UTC. Version guards read-modify-write merges.
type TutorAvailability struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TutorID   primitive.ObjectID `bson:"tutorId" json:"tutorId"`
	Date      time.Time          `bson:"date" json:"date"`
	Slots     []Slot             `bson:"slots" json:"slots"`
	Version   int64              `bson:"version" json:"-"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// FindSlot returns the index of the slot with the exact start and end, or -1.
func (a *TutorAvailability) FindSlot(start, end string) int {
	for i, s := range a.Slots {
		if s.Start == start && s.End == end {
			return i
		}
	}
	return -1
}
