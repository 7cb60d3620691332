// Package memstore is an in-process implementation of the store contracts.
// It backs the "memory" store driver and the service/handler tests.
package memstore

import (
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

type db struct {
	mu sync.Mutex

	users           map[primitive.ObjectID]models.User
	courses         map[primitive.ObjectID]models.Course
	classes         map[primitive.ObjectID]models.Class
	packages        map[primitive.ObjectID]models.CoursePackage
	payments        map[primitive.ObjectID]models.Payment
	enrollments     map[primitive.ObjectID]models.Enrollment
	studentPackages map[primitive.ObjectID]models.StudentPackage
	availability    map[primitive.ObjectID]models.TutorAvailability
	otps            map[primitive.ObjectID]models.OTP
}

// New returns a Store whose repositories share one in-memory database.
func New() *store.Store {
	d := &db{
		users:           map[primitive.ObjectID]models.User{},
		courses:         map[primitive.ObjectID]models.Course{},
		classes:         map[primitive.ObjectID]models.Class{},
		packages:        map[primitive.ObjectID]models.CoursePackage{},
		payments:        map[primitive.ObjectID]models.Payment{},
		enrollments:     map[primitive.ObjectID]models.Enrollment{},
		studentPackages: map[primitive.ObjectID]models.StudentPackage{},
		availability:    map[primitive.ObjectID]models.TutorAvailability{},
		otps:            map[primitive.ObjectID]models.OTP{},
	}
	return &store.Store{
		Users:           &users{d},
		Courses:         &courses{d},
		Classes:         &classes{d},
		Packages:        &packages{d},
		Payments:        &payments{d},
		Enrollments:     &enrollments{d},
		StudentPackages: &studentPackages{d},
		Availability:    &availability{d},
		OTPs:            &otps{d},
	}
}

func ensureID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// paginate applies p to a sorted slice and returns the window and the total.
func paginate[T any](items []T, p store.Page) ([]T, int64) {
	total := int64(len(items))
	if p.Skip >= total {
		return []T{}, total
	}
	items = items[p.Skip:]
	if p.Limit > 0 && int64(len(items)) > p.Limit {
		items = items[:p.Limit]
	}
	return items, total
}

func sortNewestFirst[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return nil
	}
	return append([]primitive.ObjectID(nil), ids...)
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func idPtr(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
