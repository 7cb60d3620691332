package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/tutor-api/internal/models"
	"github.com/harentsoaR/tutor-api/internal/store"
	"github.com/harentsoaR/tutor-api/internal/utils"
)

func TestCreateCoursePersistsFields(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.st, f.log)
	tutor := f.user(t, models.RoleTutor, models.UserStatusActive)

	in := CourseInput{
		Title:        "Algebra Basics",
		Description:  `<p>Linear equations</p><img src=x onerror="alert(1)">`,
		Category:     "maths",
		Level:        models.LevelBeginner,
		Price:        499,
		ThumbnailURL: "https://cdn.example.com/a.png",
		TutorIDs:     []primitive.ObjectID{tutor.ID},
		Published:    true,
	}
	c, err := svc.CreateCourse(f.ctx, in)
	require.NoError(t, err)

	got, err := f.st.Courses.GetByID(f.ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra Basics", got.Title)
	assert.Equal(t, "algebra-basics", got.Slug)
	assert.NotContains(t, got.Description, "onerror")
	assert.Contains(t, got.Description, "<p>Linear equations</p>")
	assert.Equal(t, "maths", got.Category)
	assert.Equal(t, models.LevelBeginner, got.Level)
	assert.Equal(t, 499.0, got.Price)
	assert.Equal(t, in.ThumbnailURL, got.ThumbnailURL)
	assert.Equal(t, []primitive.ObjectID{tutor.ID}, got.TutorIDs)
	assert.True(t, got.Published)
	assert.False(t, got.IsDeleted)

	second, err := svc.CreateCourse(f.ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "algebra-basics-2", second.Slug)
}

func TestCreateCourseValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.st, f.log)
	student := f.user(t, models.RoleStudent, models.UserStatusActive)

	_, err := svc.CreateCourse(f.ctx, CourseInput{Title: "X", Level: "expert"})
	assert.True(t, IsInputError(err))

	_, err = svc.CreateCourse(f.ctx, CourseInput{Title: "X", TutorIDs: []primitive.ObjectID{student.ID}})
	assert.True(t, IsInputError(err))
}

func TestPublicCourseHidesUnpublishedAndDeleted(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.st, f.log)
	tutor := f.user(t, models.RoleTutor, models.UserStatusActive)

	draft, err := svc.CreateCourse(f.ctx, CourseInput{Title: "Draft"})
	require.NoError(t, err)
	_, err = svc.PublicCourse(f.ctx, draft.Slug)
	assert.ErrorIs(t, err, store.ErrNotFound)

	live, err := svc.CreateCourse(f.ctx, CourseInput{Title: "Live", Published: true})
	require.NoError(t, err)
	_, err = svc.CreateClass(f.ctx, ClassInput{
		CourseID: live.ID, TutorID: tutor.ID, Title: "Week 1",
		StartsAt: time.Now().Add(48 * time.Hour), DurationMinutes: 60,
	})
	require.NoError(t, err)

	detail, err := svc.PublicCourse(f.ctx, live.ID.Hex())
	require.NoError(t, err)
	assert.Len(t, detail.Classes, 1)

	require.NoError(t, svc.DeleteCourse(f.ctx, live.ID))
	_, err = svc.PublicCourse(f.ctx, live.Slug)
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, total, err := svc.ListCourses(f.ctx, store.CourseFilter{PublishedOnly: true}, utils.ParsePagination("", ""))
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}

func TestDeletePackageUnpublishes(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.st, f.log)

	p, err := svc.CreatePackage(f.ctx, PackageInput{
		Name: "Ten Lessons", LessonCount: 10, ValidityDays: 90, Price: 3000, DiscountPrice: 2500, Published: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "ten-lessons", p.Slug)
	assert.Equal(t, 2500.0, p.EffectivePrice())

	require.NoError(t, svc.DeletePackage(f.ctx, p.ID))
	got, err := svc.GetPackage(f.ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.False(t, got.Published)

	_, err = svc.PublicPackage(f.ctx, p.Slug)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPackageValidation(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.st, f.log)

	cases := []PackageInput{
		{Name: "a", LessonCount: 0, ValidityDays: 10, Price: 10},
		{Name: "b", LessonCount: 1, ValidityDays: 0, Price: 10},
		{Name: "c", LessonCount: 1, ValidityDays: 10, Price: 10, DiscountPrice: 12},
		{Name: "d", LessonCount: 1, ValidityDays: 10, Price: 10, CourseIDs: []primitive.ObjectID{primitive.NewObjectID()}},
	}
	for _, in := range cases {
		_, err := svc.CreatePackage(f.ctx, in)
		assert.True(t, IsInputError(err), in.Name)
	}
}

func TestSetClassStatusOnlyOwnClass(t *testing.T) {
	f := newFixture(t)
	svc := NewCatalogService(f.st, f.log)
	owner := f.user(t, models.RoleTutor, models.UserStatusActive)
	other := f.user(t, models.RoleTutor, models.UserStatusActive)

	c, err := svc.CreateCourse(f.ctx, CourseInput{Title: "Physics"})
	require.NoError(t, err)
	cl, err := svc.CreateClass(f.ctx, ClassInput{CourseID: c.ID, TutorID: owner.ID, Title: "Kinematics", StartsAt: time.Now(), DurationMinutes: 45})
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusScheduled, cl.Status)

	_, err = svc.SetClassStatus(f.ctx, other.ID, cl.ID, models.ClassStatusLive)
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.SetClassStatus(f.ctx, owner.ID, cl.ID, models.ClassStatusLive)
	require.NoError(t, err)
	assert.Equal(t, models.ClassStatusLive, updated.Status)

	mine, err := svc.TutorClasses(f.ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}
