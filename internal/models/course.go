package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

type Course struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title        string               `bson:"title" json:"title"`
	Slug         string               `bson:"slug" json:"slug"`
	Description  string               `bson:"description" json:"description"` // sanitized HTML
	Category     string               `bson:"category" json:"category"`
	Level        string               `bson:"level" json:"level"`
	Price        float64              `bson:"price" json:"price"`
	ThumbnailURL string               `bson:"thumbnailUrl,omitempty" json:"thumbnailUrl,omitempty"`
	TutorIDs     []primitive.ObjectID `bson:"tutorIds" json:"tutorIds"`
	Published    bool                 `bson:"published" json:"published"`
	IsDeleted    bool                 `bson:"isDeleted" json:"isDeleted"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

const (
	ClassStatusScheduled = "scheduled"
	ClassStatusLive      = "live"
	ClassStatusCompleted = "completed"
	ClassStatusCancelled = "cancelled"
)

// Class is a single scheduled session of a course, taught by one tutor.
type Class struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CourseID        primitive.ObjectID `bson:"courseId" json:"courseId"`
	TutorID         primitive.ObjectID `bson:"tutorId" json:"tutorId"`
	Title           string             `bson:"title" json:"title"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	StartsAt        time.Time          `bson:"startsAt" json:"startsAt"`
	DurationMinutes int                `bson:"durationMinutes" json:"durationMinutes"`
	MeetingLink     string             `bson:"meetingLink,omitempty" json:"meetingLink,omitempty"`
	Capacity        int                `bson:"capacity,omitempty" json:"capacity,omitempty"`
	Status          string             `bson:"status" json:"status"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func IsValidClassStatus(status string) bool {
	switch status {
	case ClassStatusScheduled, ClassStatusLive, ClassStatusCompleted, ClassStatusCancelled:
		return true
	}
	return false
}

// CoursePackage bundles courses with a fixed number of one-to-one lessons
// that stay usable for ValidityDays after purchase.
type CoursePackage struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Slug          string               `bson:"slug" json:"slug"`
	Description   string               `bson:"description" json:"description"`
	CourseIDs     []primitive.ObjectID `bson:"courseIds" json:"courseIds"`
	LessonCount   int                  `bson:"lessonCount" json:"lessonCount"`
	ValidityDays  int                  `bson:"validityDays" json:"validityDays"`
	Price         float64              `bson:"price" json:"price"`
	DiscountPrice float64              `bson:"discountPrice,omitempty" json:"discountPrice,omitempty"`
	Published     bool                 `bson:"published" json:"published"`
	IsDeleted     bool                 `bson:"isDeleted" json:"isDeleted"`
	CreatedAt     time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// EffectivePrice is what a student pays for the package.
func (p CoursePackage) EffectivePrice() float64 {
	if p.DiscountPrice > 0 && p.DiscountPrice < p.Price {
		return p.DiscountPrice
	}
	return p.Price
}
