package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

func insertStamped(ctx context.Context, c *mongo.Collection, id *primitive.ObjectID, created, updated *time.Time, doc any) error {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	*created, *updated = now, now
	_, err := c.InsertOne(ctx, doc)
	return translate(err)
}

func replaceByID(ctx context.Context, c *mongo.Collection, id primitive.ObjectID, updated *time.Time, doc any) error {
	*updated = time.Now().UTC()
	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func softDelete(ctx context.Context, c *mongo.Collection, id primitive.ObjectID) error {
	res, err := c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"isDeleted": true,
		"published": false,
		"updatedAt": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func slugExists(ctx context.Context, c *mongo.Collection, slug string) (bool, error) {
	n, err := c.CountDocuments(ctx, bson.M{"slug": slug})
	return n > 0, err
}

// --- courses ---

type courses struct {
	c *mongo.Collection
}

func (s *courses) Create(ctx context.Context, co *models.Course) error {
	return insertStamped(ctx, s.c, &co.ID, &co.CreatedAt, &co.UpdatedAt, co)
}

func (s *courses) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Course, error) {
	var co models.Course
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&co); err != nil {
		return nil, translate(err)
	}
	return &co, nil
}

func (s *courses) GetBySlug(ctx context.Context, slug string) (*models.Course, error) {
	var co models.Course
	if err := s.c.FindOne(ctx, bson.M{"slug": slug, "isDeleted": false}).Decode(&co); err != nil {
		return nil, translate(err)
	}
	return &co, nil
}

func (s *courses) SlugExists(ctx context.Context, slug string) (bool, error) {
	return slugExists(ctx, s.c, slug)
}

func (s *courses) Update(ctx context.Context, co *models.Course) error {
	return replaceByID(ctx, s.c, co.ID, &co.UpdatedAt, co)
}

func (s *courses) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	return softDelete(ctx, s.c, id)
}

func (s *courses) List(ctx context.Context, f store.CourseFilter, p store.Page) ([]models.Course, int64, error) {
	filter := bson.M{}
	if !f.IncludeDeleted {
		filter["isDeleted"] = false
	}
	if f.PublishedOnly {
		filter["published"] = true
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Level != "" {
		filter["level"] = f.Level
	}
	if f.Query != "" {
		filter["title"] = containsPattern(f.Query)
	}
	if f.TutorID != nil {
		filter["tutorIds"] = *f.TutorID
	}
	return listPage[models.Course](ctx, s.c, filter, p, bson.D{{Key: "createdAt", Value: -1}})
}

// --- classes ---

type classes struct {
	c *mongo.Collection
}

func (s *classes) Create(ctx context.Context, cl *models.Class) error {
	return insertStamped(ctx, s.c, &cl.ID, &cl.CreatedAt, &cl.UpdatedAt, cl)
}

func (s *classes) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Class, error) {
	var cl models.Class
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&cl); err != nil {
		return nil, translate(err)
	}
	return &cl, nil
}

func (s *classes) Update(ctx context.Context, cl *models.Class) error {
	return replaceByID(ctx, s.c, cl.ID, &cl.UpdatedAt, cl)
}

func (s *classes) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *classes) List(ctx context.Context, f store.ClassFilter) ([]models.Class, error) {
	filter := bson.M{}
	if f.CourseIDs != nil {
		filter["courseId"] = bson.M{"$in": f.CourseIDs}
	}
	if f.TutorID != nil {
		filter["tutorId"] = *f.TutorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return findAll[models.Class](ctx, s.c, filter, bson.D{{Key: "startsAt", Value: 1}})
}

// --- packages ---

type packages struct {
	c *mongo.Collection
}

func (s *packages) Create(ctx context.Context, p *models.CoursePackage) error {
	return insertStamped(ctx, s.c, &p.ID, &p.CreatedAt, &p.UpdatedAt, p)
}

func (s *packages) GetByID(ctx context.Context, id primitive.ObjectID) (*models.CoursePackage, error) {
	var p models.CoursePackage
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *packages) GetBySlug(ctx context.Context, slug string) (*models.CoursePackage, error) {
	var p models.CoursePackage
	if err := s.c.FindOne(ctx, bson.M{"slug": slug, "isDeleted": false}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *packages) SlugExists(ctx context.Context, slug string) (bool, error) {
	return slugExists(ctx, s.c, slug)
}

func (s *packages) Update(ctx context.Context, p *models.CoursePackage) error {
	return replaceByID(ctx, s.c, p.ID, &p.UpdatedAt, p)
}

func (s *packages) SoftDelete(ctx context.Context, id primitive.ObjectID) error {
	return softDelete(ctx, s.c, id)
}

func (s *packages) List(ctx context.Context, f store.PackageFilter, pg store.Page) ([]models.CoursePackage, int64, error) {
	filter := bson.M{}
	if !f.IncludeDeleted {
		filter["isDeleted"] = false
	}
	if f.PublishedOnly {
		filter["published"] = true
	}
	return listPage[models.CoursePackage](ctx, s.c, filter, pg, bson.D{{Key: "createdAt", Value: -1}})
}
