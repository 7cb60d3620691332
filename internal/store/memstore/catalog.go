package memstore

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

// --- courses ---

type courses struct{ d *db }

func cloneCourse(c models.Course) models.Course {
	c.TutorIDs = cloneIDs(c.TutorIDs)
	return c
}

func (s *courses) slugTaken(slug string, except primitive.ObjectID) bool {
	for id, c := range s.d.courses {
		if id != except && c.Slug == slug {
			return true
		}
	}
	return false
}

func (s *courses) Create(_ context.Context, c *models.Course) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ensureID(&c.ID)
	if s.slugTaken(c.Slug, c.ID) {
		return store.ErrDuplicate
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	s.d.courses[c.ID] = cloneCourse(*c)
	return nil
}

func (s *courses) GetByID(_ context.Context, id primitive.ObjectID) (*models.Course, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	c, ok := s.d.courses[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c = cloneCourse(c)
	return &c, nil
}

func (s *courses) GetBySlug(_ context.Context, slug string) (*models.Course, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, c := range s.d.courses {
		if c.Slug == slug && !c.IsDeleted {
			c = cloneCourse(c)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *courses) SlugExists(_ context.Context, slug string) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.slugTaken(slug, primitive.NilObjectID), nil
}

func (s *courses) Update(_ context.Context, c *models.Course) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	old, ok := s.d.courses[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.slugTaken(c.Slug, c.ID) {
		return store.ErrDuplicate
	}
	c.CreatedAt = old.CreatedAt
	stamp(&c.CreatedAt, &c.UpdatedAt)
	s.d.courses[c.ID] = cloneCourse(*c)
	return nil
}

func (s *courses) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	c, ok := s.d.courses[id]
	if !ok {
		return store.ErrNotFound
	}
	c.IsDeleted = true
	c.Published = false
	c.UpdatedAt = time.Now().UTC()
	s.d.courses[id] = c
	return nil
}

func (s *courses) List(_ context.Context, f store.CourseFilter, p store.Page) ([]models.Course, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var out []models.Course
	for _, c := range s.d.courses {
		if c.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.PublishedOnly && !c.Published {
			continue
		}
		if f.Category != "" && c.Category != f.Category {
			continue
		}
		if f.Level != "" && c.Level != f.Level {
			continue
		}
		if f.Query != "" && !containsFold(c.Title, f.Query) {
			continue
		}
		if f.TutorID != nil && !hasID(c.TutorIDs, *f.TutorID) {
			continue
		}
		out = append(out, cloneCourse(c))
	}
	sortNewestFirst(out, func(c models.Course) time.Time { return c.CreatedAt })
	page, total := paginate(out, p)
	return page, total, nil
}

func hasID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// --- classes ---

type classes struct{ d *db }

func (s *classes) Create(_ context.Context, c *models.Class) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ensureID(&c.ID)
	if _, exists := s.d.classes[c.ID]; exists {
		return store.ErrDuplicate
	}
	stamp(&c.CreatedAt, &c.UpdatedAt)
	s.d.classes[c.ID] = *c
	return nil
}

func (s *classes) GetByID(_ context.Context, id primitive.ObjectID) (*models.Class, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	c, ok := s.d.classes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *classes) Update(_ context.Context, c *models.Class) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	old, ok := s.d.classes[c.ID]
	if !ok {
		return store.ErrNotFound
	}
	c.CreatedAt = old.CreatedAt
	stamp(&c.CreatedAt, &c.UpdatedAt)
	s.d.classes[c.ID] = *c
	return nil
}

func (s *classes) Delete(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if _, ok := s.d.classes[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.d.classes, id)
	return nil
}

func (s *classes) List(_ context.Context, f store.ClassFilter) ([]models.Class, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	out := []models.Class{}
	for _, c := range s.d.classes {
		if f.CourseIDs != nil && !hasID(f.CourseIDs, c.CourseID) {
			continue
		}
		if f.TutorID != nil && c.TutorID != *f.TutorID {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// --- packages ---

type packages struct{ d *db }

func clonePackage(p models.CoursePackage) models.CoursePackage {
	p.CourseIDs = cloneIDs(p.CourseIDs)
	return p
}

func (s *packages) slugTaken(slug string, except primitive.ObjectID) bool {
	for id, p := range s.d.packages {
		if id != except && p.Slug == slug {
			return true
		}
	}
	return false
}

func (s *packages) Create(_ context.Context, p *models.CoursePackage) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ensureID(&p.ID)
	if s.slugTaken(p.Slug, p.ID) {
		return store.ErrDuplicate
	}
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.d.packages[p.ID] = clonePackage(*p)
	return nil
}

func (s *packages) GetByID(_ context.Context, id primitive.ObjectID) (*models.CoursePackage, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	p, ok := s.d.packages[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = clonePackage(p)
	return &p, nil
}

func (s *packages) GetBySlug(_ context.Context, slug string) (*models.CoursePackage, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, p := range s.d.packages {
		if p.Slug == slug && !p.IsDeleted {
			p = clonePackage(p)
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *packages) SlugExists(_ context.Context, slug string) (bool, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	return s.slugTaken(slug, primitive.NilObjectID), nil
}

func (s *packages) Update(_ context.Context, p *models.CoursePackage) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	old, ok := s.d.packages[p.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.slugTaken(p.Slug, p.ID) {
		return store.ErrDuplicate
	}
	p.CreatedAt = old.CreatedAt
	stamp(&p.CreatedAt, &p.UpdatedAt)
	s.d.packages[p.ID] = clonePackage(*p)
	return nil
}

func (s *packages) SoftDelete(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	p, ok := s.d.packages[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsDeleted = true
	p.Published = false
	p.UpdatedAt = time.Now().UTC()
	s.d.packages[id] = p
	return nil
}

func (s *packages) List(_ context.Context, f store.PackageFilter, pg store.Page) ([]models.CoursePackage, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var out []models.CoursePackage
	for _, p := range s.d.packages {
		if p.IsDeleted && !f.IncludeDeleted {
			continue
		}
		if f.PublishedOnly && !p.Published {
			continue
		}
		out = append(out, clonePackage(p))
	}
	sortNewestFirst(out, func(p models.CoursePackage) time.Time { return p.CreatedAt })
	page, total := paginate(out, pg)
	return page, total, nil
}
