package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
	RoleAdmin   = "admin"
)

const (
	UserStatusPending = "pending"
	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"
)

type User struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FullName   string             `bson:"fullName" json:"fullName"`
	Email      string             `bson:"email" json:"email"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Password   string             `bson:"password" json:"-"` // Hide from JSON responses
	Role       string             `bson:"role" json:"role"`
	Status     string             `bson:"status" json:"status"`
	IsVerified bool               `bson:"isVerified" json:"isVerified"`

	// Profile, mostly meaningful for tutors.
	Bio        string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Subjects   []string `bson:"subjects,omitempty" json:"subjects,omitempty"`
	HourlyRate float64  `bson:"hourlyRate,omitempty" json:"hourlyRate,omitempty"`
	AvatarURL  string   `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

func IsValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleTutor, RoleAdmin:
		return true
	}
	return false
}

func IsValidUserStatus(status string) bool {
	switch status {
	case UserStatusPending, UserStatusActive, UserStatusBlocked:
		return true
	}
	return false
}
