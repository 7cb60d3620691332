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

// --- payments ---

type payments struct {
	c *mongo.Collection
}

func (s *payments) GetByToken(ctx context.Context, token string) (*models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"idempotencyToken": token}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *payments) InsertIfAbsent(ctx context.Context, p *models.Payment) (*models.Payment, bool, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	res, err := s.c.UpdateOne(ctx,
		bson.M{"idempotencyToken": p.IdempotencyToken},
		bson.M{"$setOnInsert": p},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if !mongo.IsDuplicateKeyError(err) {
			return nil, false, err
		}
		// Either a concurrent upsert with the same token won, or the UPI
		// transaction id is already logged under another token.
		existing, ferr := s.GetByToken(ctx, p.IdempotencyToken)
		if ferr == nil {
			return existing, false, nil
		}
		return nil, false, translate(err)
	}
	if res.UpsertedCount == 1 {
		out := *p
		return &out, true, nil
	}
	existing, err := s.GetByToken(ctx, p.IdempotencyToken)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (s *payments) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error) {
	var p models.Payment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *payments) Update(ctx context.Context, p *models.Payment) error {
	return replaceByID(ctx, s.c, p.ID, &p.UpdatedAt, p)
}

func (s *payments) List(ctx context.Context, f store.PaymentFilter, pg store.Page) ([]models.Payment, int64, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return listPage[models.Payment](ctx, s.c, filter, pg, bson.D{{Key: "createdAt", Value: -1}})
}

func (s *payments) Stats(ctx context.Context) (store.PaymentStats, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.PaymentStatusSuccess}}},
		{{Key: "$group", Value: bson.M{
			"_id":     nil,
			"count":   bson.M{"$sum": 1},
			"revenue": bson.M{"$sum": "$amount"},
		}}},
	})
	if err != nil {
		return store.PaymentStats{}, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Count   int64   `bson:"count"`
		Revenue float64 `bson:"revenue"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return store.PaymentStats{}, err
	}
	if len(rows) == 0 {
		return store.PaymentStats{}, nil
	}
	return store.PaymentStats{SuccessCount: rows[0].Count, Revenue: rows[0].Revenue}, nil
}

// --- enrollments ---

type enrollments struct {
	c *mongo.Collection
}

func (s *enrollments) Create(ctx context.Context, e *models.Enrollment) error {
	return insertStamped(ctx, s.c, &e.ID, &e.CreatedAt, &e.UpdatedAt, e)
}

func (s *enrollments) UpsertClass(ctx context.Context, e *models.Enrollment) (bool, error) {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	res, err := s.c.UpdateOne(ctx,
		bson.M{"kind": models.EnrollmentKindClass, "studentId": e.StudentID, "classId": e.ClassID},
		bson.M{"$setOnInsert": e},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return res.UpsertedCount == 1, nil
}

func (s *enrollments) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Enrollment, error) {
	var e models.Enrollment
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (s *enrollments) SetStatus(ctx context.Context, id primitive.ObjectID, from, to string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	n, err := s.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (s *enrollments) List(ctx context.Context, f store.EnrollmentFilter, pg store.Page) ([]models.Enrollment, int64, error) {
	filter := bson.M{}
	if f.StudentID != nil {
		filter["studentId"] = *f.StudentID
	}
	if f.TutorID != nil {
		filter["tutorId"] = *f.TutorID
	}
	if f.Kind != "" {
		filter["kind"] = f.Kind
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return listPage[models.Enrollment](ctx, s.c, filter, pg, bson.D{{Key: "createdAt", Value: -1}})
}

// --- student packages ---

type studentPackages struct {
	c *mongo.Collection
}

func (s *studentPackages) Create(ctx context.Context, sp *models.StudentPackage) error {
	return insertStamped(ctx, s.c, &sp.ID, &sp.CreatedAt, &sp.UpdatedAt, sp)
}

func (s *studentPackages) GetByID(ctx context.Context, id primitive.ObjectID) (*models.StudentPackage, error) {
	var sp models.StudentPackage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&sp); err != nil {
		return nil, translate(err)
	}
	return &sp, nil
}

func (s *studentPackages) GetByPayment(ctx context.Context, paymentID primitive.ObjectID) (*models.StudentPackage, error) {
	var sp models.StudentPackage
	if err := s.c.FindOne(ctx, bson.M{"paymentId": paymentID}).Decode(&sp); err != nil {
		return nil, translate(err)
	}
	return &sp, nil
}

func (s *studentPackages) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]models.StudentPackage, error) {
	return findAll[models.StudentPackage](ctx, s.c, bson.M{"studentId": studentID}, bson.D{{Key: "expiresAt", Value: 1}})
}

func (s *studentPackages) ConsumeLesson(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.StudentPackage, error) {
	var sp models.StudentPackage
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":       id,
			"status":    models.StudentPackageActive,
			"expiresAt": bson.M{"$gt": now},
			"$expr":     bson.M{"$lt": bson.A{"$lessonsUsed", "$lessonsTotal"}},
		},
		bson.M{
			"$inc": bson.M{"lessonsUsed": 1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&sp)
	if err == nil {
		return &sp, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}
	if _, gerr := s.GetByID(ctx, id); gerr != nil {
		return nil, gerr
	}
	return nil, store.ErrNoLessons
}

func (s *studentPackages) RefundLesson(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "lessonsUsed": bson.M{"$gt": 0}},
		bson.M{
			"$inc": bson.M{"lessonsUsed": -1},
			"$set": bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.GetByID(ctx, id); gerr != nil {
			return gerr
		}
	}
	return nil
}
