package memstore

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
)

type users struct{ d *db }

func cloneUser(u models.User) models.User {
	u.Subjects = cloneStrings(u.Subjects)
	return u
}

// conflicts reports whether another user already owns u's email or phone.
func (s *users) conflicts(u *models.User) bool {
	for id, other := range s.d.users {
		if id == u.ID {
			continue
		}
		if strings.EqualFold(other.Email, u.Email) {
			return true
		}
		if u.Phone != "" && other.Phone == u.Phone {
			return true
		}
	}
	return false
}

func (s *users) Create(_ context.Context, u *models.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	ensureID(&u.ID)
	if _, exists := s.d.users[u.ID]; exists || s.conflicts(u) {
		return store.ErrDuplicate
	}
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.d.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *users) GetByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	u, ok := s.d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	u = cloneUser(u)
	return &u, nil
}

func (s *users) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	for _, u := range s.d.users {
		if strings.EqualFold(u.Email, email) {
			u = cloneUser(u)
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *users) Update(_ context.Context, u *models.User) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	old, ok := s.d.users[u.ID]
	if !ok {
		return store.ErrNotFound
	}
	if s.conflicts(u) {
		return store.ErrDuplicate
	}
	u.CreatedAt = old.CreatedAt
	stamp(&u.CreatedAt, &u.UpdatedAt)
	s.d.users[u.ID] = cloneUser(*u)
	return nil
}

func (s *users) Delete(_ context.Context, id primitive.ObjectID) error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	if _, ok := s.d.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.d.users, id)
	return nil
}

func (s *users) List(_ context.Context, f store.UserFilter, p store.Page) ([]models.User, int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	var out []models.User
	for _, u := range s.d.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Status != "" && u.Status != f.Status {
			continue
		}
		if f.VerifiedOnly && !u.IsVerified {
			continue
		}
		if f.Query != "" && !containsFold(u.FullName, f.Query) && !containsFold(u.Email, f.Query) {
			continue
		}
		out = append(out, cloneUser(u))
	}
	sortNewestFirst(out, func(u models.User) time.Time { return u.CreatedAt })
	page, total := paginate(out, p)
	return page, total, nil
}

func (s *users) CountByRole(_ context.Context) (map[string]int64, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()

	counts := map[string]int64{}
	for _, u := range s.d.users {
		counts[u.Role]++
	}
	return counts, nil
}
