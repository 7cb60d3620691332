// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/harentsoaR/tutor-api/internal/store"
)

// Collection names.
const (
	colUsers           = "users"
	colCourses         = "courses"
	colClasses         = "classes"
	colPackages        = "coursepackages"
	colPayments        = "payments"
	colEnrollments     = "enrollments"
	colStudentPackages = "studentpackages"
	colAvailability    = "tutoravailabilities"
	colOTPs            = "otps"
)

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// New wires every repository to collections of db.
func New(db *mongo.Database) *store.Store {
	return &store.Store{
		Users:           &users{c: db.Collection(colUsers)},
		Courses:         &courses{c: db.Collection(colCourses)},
		Classes:         &classes{c: db.Collection(colClasses)},
		Packages:        &packages{c: db.Collection(colPackages)},
		Payments:        &payments{c: db.Collection(colPayments)},
		Enrollments:     &enrollments{c: db.Collection(colEnrollments)},
		StudentPackages: &studentPackages{c: db.Collection(colStudentPackages)},
		Availability:    &availability{c: db.Collection(colAvailability)},
		OTPs:            &otps{c: db.Collection(colOTPs)},
		Ping: func(ctx context.Context) error {
			return db.Client().Ping(ctx, readpref.Primary())
		},
	}
}

// EnsureIndexes creates the unique and lookup indexes every collection
// relies on. It is safe to call on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func(name string) *options.IndexOptions {
		return options.Index().SetName(name).SetUnique(true)
	}
	// Uniqueness only among documents where field is a non-empty string.
	partialString := func(field string) *options.IndexOptions {
		return options.Index().SetPartialFilterExpression(bson.M{field: bson.M{"$gt": ""}})
	}

	specs := map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique("uniq_users_email")},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: partialString("phone").SetName("uniq_users_phone").SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("idx_users_role_status")},
		},
		colCourses: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uniq_courses_slug")},
			{Keys: bson.D{{Key: "published", Value: 1}, {Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_courses_public")},
		},
		colClasses: {
			{Keys: bson.D{{Key: "courseId", Value: 1}, {Key: "startsAt", Value: 1}}, Options: options.Index().SetName("idx_classes_course")},
			{Keys: bson.D{{Key: "tutorId", Value: 1}, {Key: "startsAt", Value: 1}}, Options: options.Index().SetName("idx_classes_tutor")},
		},
		colPackages: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique("uniq_packages_slug")},
		},
		colPayments: {
			{Keys: bson.D{{Key: "idempotencyToken", Value: 1}}, Options: unique("uniq_payments_token")},
			{Keys: bson.D{{Key: "upiTxnId", Value: 1}}, Options: partialString("upiTxnId").SetName("uniq_payments_txn").SetUnique(true)},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_payments_user")},
		},
		colEnrollments: {
			{
				Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "classId", Value: 1}},
				Options: options.Index().SetName("uniq_enrollments_student_class").SetUnique(true).
					SetPartialFilterExpression(bson.M{"kind": "class"}),
			},
			{Keys: bson.D{{Key: "tutorId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_enrollments_tutor")},
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("idx_enrollments_student")},
		},
		colStudentPackages: {
			{Keys: bson.D{{Key: "paymentId", Value: 1}}, Options: unique("uniq_studentpackages_payment")},
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "expiresAt", Value: 1}}, Options: options.Index().SetName("idx_studentpackages_student")},
		},
		colAvailability: {
			{Keys: bson.D{{Key: "tutorId", Value: 1}, {Key: "date", Value: 1}}, Options: unique("uniq_availability_tutor_date")},
		},
		colOTPs: {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetName("idx_otps_expires_ttl").SetExpireAfterSeconds(int32((24 * time.Hour).Seconds()))},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "purpose", Value: 1}}, Options: unique("uniq_otps_user_purpose")},
		},
	}

	for col, idx := range specs {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", col, err)
		}
	}
	return nil
}

// translate maps driver errors onto store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

func findOptions(p store.Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if p.Skip > 0 {
		opts.SetSkip(p.Skip)
	}
	if p.Limit > 0 {
		opts.SetLimit(p.Limit)
	}
	return opts
}

// listPage runs a counted, paginated find and decodes into a non-nil slice.
func listPage[T any](ctx context.Context, c *mongo.Collection, filter bson.M, p store.Page, sort bson.D) ([]T, int64, error) {
	total, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := c.Find(ctx, filter, findOptions(p, sort))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter bson.M, sort bson.D) ([]T, error) {
	cur, err := c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// containsPattern builds a case-insensitive substring regex from user input.
func containsPattern(q string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
}
