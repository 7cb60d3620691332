package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/store/memstore"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

func init() {
	utils.BcryptCost = bcrypt.MinCost
}

type captureMailer struct {
	mu   sync.Mutex
	msgs []Message
}

func (m *captureMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}

func (m *captureMailer) sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.msgs...)
}

type fixture struct {
	ctx    context.Context
	st     *store.Store
	mailer *captureMailer
	notify *NotificationService
	log    *zap.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:    context.Background(),
		st:     memstore.New(),
		mailer: &captureMailer{},
		log:    zap.NewNop(),
	}
	f.notify = NewNotificationService(f.mailer, "", f.log)
	t.Cleanup(f.notify.Wait)
	return f
}

var userSeq atomic.Int64

// user stores a verified account with password "password123".
func (f *fixture) user(t *testing.T, role, status string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	require.NoError(t, err)
	n := userSeq.Add(1)
	u := &models.User{
		FullName:   fmt.Sprintf("%s %d", role, n),
		Email:      fmt.Sprintf("%s%d@example.com", role, n),
		Password:   hash,
		Role:       role,
		Status:     status,
		IsVerified: true,
	}
	require.NoError(t, f.st.Users.Create(f.ctx, u))
	return u
}

// lessons gives the student a package allowance expiring at expires.
func (f *fixture) lessons(t *testing.T, studentID primitive.ObjectID, total int, expires time.Time) *models.StudentPackage {
	t.Helper()
	sp := &models.StudentPackage{
		StudentID:    studentID,
		PackageID:    primitive.NewObjectID(),
		PaymentID:    primitive.NewObjectID(),
		LessonsTotal: total,
		StartsAt:     time.Now().UTC().Add(-time.Hour),
		ExpiresAt:    expires,
		Status:       models.StudentPackageActive,
	}
	require.NoError(t, f.st.StudentPackages.Create(f.ctx, sp))
	return sp
}

func tomorrow() string {
	return time.Now().UTC().AddDate(0, 0, 1).Format(utils.DateLayout)
}
