package mongostore

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

// --- tutor availability ---

type availability struct {
	c *mongo.Collection
}

func (s *availability) Get(ctx context.Context, tutorID primitive.ObjectID, date time.Time) (*models.TutorAvailability, error) {
	var a models.TutorAvailability
	if err := s.c.FindOne(ctx, bson.M{"tutorId": tutorID, "date": date}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *availability) Save(ctx context.Context, a *models.TutorAvailability) error {
	now := time.Now().UTC()
	if a.Version == 0 {
		if a.ID.IsZero() {
			a.ID = primitive.NewObjectID()
		}
		a.Version = 1
		a.CreatedAt, a.UpdatedAt = now, now
		if _, err := s.c.InsertOne(ctx, a); err != nil {
			a.Version = 0
			if mongo.IsDuplicateKeyError(err) {
				return store.ErrConflict
			}
			return err
		}
		return nil
	}

	expected := a.Version
	a.Version++
	a.UpdatedAt = now
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": a.ID, "version": expected}, a)
	if err != nil {
		a.Version = expected
		return translate(err)
	}
	if res.MatchedCount == 0 {
		a.Version = expected
		return store.ErrConflict
	}
	return nil
}

func (s *availability) List(ctx context.Context, tutorID primitive.ObjectID, from, to time.Time) ([]models.TutorAvailability, error) {
	return findAll[models.TutorAvailability](ctx, s.c,
		bson.M{"tutorId": tutorID, "date": bson.M{"$gte": from, "$lte": to}},
		bson.D{{Key: "date", Value: 1}},
	)
}

func (s *availability) ClaimSlot(ctx context.Context, tutorID primitive.ObjectID, date time.Time, start, end string, studentID, enrollmentID primitive.ObjectID) (*models.TutorAvailability, error) {
	var a models.TutorAvailability
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"tutorId": tutorID,
			"date":    date,
			"slots":   bson.M{"$elemMatch": bson.M{"start": start, "end": end, "isBooked": false}},
		},
		bson.M{
			"$set": bson.M{
				"slots.$.isBooked":     true,
				"slots.$.bookedBy":     studentID,
				"slots.$.enrollmentId": enrollmentID,
				"updatedAt":            time.Now().UTC(),
			},
			"$inc": bson.M{"version": 1},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	n, err := s.c.CountDocuments(ctx, bson.M{
		"tutorId": tutorID,
		"date":    date,
		"slots":   bson.M{"$elemMatch": bson.M{"start": start, "end": end}},
	})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, store.ErrNotFound
	}
	return nil, store.ErrSlotUnavailable
}

func (s *availability) ReleaseSlot(ctx context.Context, tutorID primitive.ObjectID, date time.Time, start, end string, enrollmentID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{
			"tutorId": tutorID,
			"date":    date,
			"slots":   bson.M{"$elemMatch": bson.M{"start": start, "end": end, "enrollmentId": enrollmentID}},
		},
		bson.M{
			"$set":   bson.M{"slots.$.isBooked": false, "updatedAt": time.Now().UTC()},
			"$unset": bson.M{"slots.$.bookedBy": "", "slots.$.enrollmentId": ""},
			"$inc":   bson.M{"version": 1},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- otps ---

type otps struct {
	c *mongo.Collection
}

func (s *otps) Get(ctx context.Context, userID primitive.ObjectID, purpose string) (*models.OTP, error) {
	var o models.OTP
	if err := s.c.FindOne(ctx, bson.M{"userId": userID, "purpose": purpose}).Decode(&o); err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (s *otps) Replace(ctx context.Context, o *models.OTP) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if _, err := s.c.DeleteMany(ctx, bson.M{"userId": o.UserID, "purpose": o.Purpose}); err != nil {
		return err
	}
	_, err := s.c.InsertOne(ctx, o)
	return translate(err)
}

func (s *otps) IncrementAttempts(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"attempts": 1}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *otps) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
