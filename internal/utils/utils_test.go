package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHash(t *testing.T) {
	BcryptCost = bcrypt.MinCost
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, CheckPasswordHash("wrong", hash))
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP(6)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9')
		}
	}
	_, err := GenerateOTP(0)
	assert.Error(t, err)
}

func TestTokenManagerRoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	tok, err := m.GenerateJWT("abc", "tutor")
	require.NoError(t, err)

	claims, err := m.ValidateJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "abc", claims.UserID)
	assert.Equal(t, "tutor", claims.Role)

	other := NewTokenManager("other", time.Hour)
	_, err = other.ValidateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerExpired(t *testing.T) {
	m := NewTokenManager("secret", -time.Minute)
	tok, err := m.GenerateJWT("abc", "student")
	require.NoError(t, err)
	_, err = m.ValidateJWT(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManagerMissingSecret(t *testing.T) {
	m := NewTokenManager("", time.Hour)
	_, err := m.GenerateJWT("abc", "student")
	assert.Error(t, err)
}

func TestGenerateSlug(t *testing.T) {
	cases := map[string]string{
		"Intro to Algebra":       "intro-to-algebra",
		"  C++ & Go -- Basics! ": "c-go-basics",
		"Física Básica":          "física-básica",
		"!!!":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, GenerateSlug(in), in)
	}
}

func TestEnsureUniqueSlug(t *testing.T) {
	taken := map[string]bool{"math": true, "math-2": true}
	exists := func(_ context.Context, s string) (bool, error) { return taken[s], nil }

	slug, err := EnsureUniqueSlug(context.Background(), "Math", "course", exists)
	require.NoError(t, err)
	assert.Equal(t, "math-3", slug)

	slug, err = EnsureUniqueSlug(context.Background(), "???", "course", exists)
	require.NoError(t, err)
	assert.Equal(t, "course", slug)
}

func TestSanitizeHTML(t *testing.T) {
	out := SanitizeHTML(`<p onclick="x()">Hello <b>world</b><script>alert(1)</script></p>`)
	assert.Equal(t, "<p>Hello <b>world</b></p>", out)
}

func TestParseDay(t *testing.T) {
	want := time.Date(2030, 3, 9, 0, 0, 0, 0, time.UTC)

	d, err := ParseDay("2030-03-09")
	require.NoError(t, err)
	assert.Equal(t, want, d)

	d, err = ParseDay("2030-03-09T17:45:00Z")
	require.NoError(t, err)
	assert.Equal(t, want, d)

	d, err = ParseDay("2030-03-10T01:00:00+05:30")
	require.NoError(t, err)
	assert.Equal(t, want, d)

	_, err = ParseDay("09/03/2030")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestParseClock(t *testing.T) {
	ok := map[string]int{"00:00": 0, "09:30": 570, "9:05": 545, "23:59": 1439, "24:00": 1440}
	for in, want := range ok {
		got, err := ParseClock(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"", "9", "25:00", "10:60", "10:5", "ab:cd", "24:30", "10:00pm"} {
		_, err := ParseClock(in)
		assert.ErrorIs(t, err, ErrInvalidClock, in)
	}
	assert.Equal(t, "09:05", FormatClock(545))
}

func TestParsePagination(t *testing.T) {
	p := ParsePagination("", "")
	assert.Equal(t, Pagination{Page: 1, Limit: DefaultPerPage}, p)

	p = ParsePagination("3", "500")
	assert.Equal(t, int64(3), p.Page)
	assert.Equal(t, int64(MaxPerPage), p.Limit)
	assert.Equal(t, int64(200), p.Offset())

	p = ParsePagination("-1", "x")
	assert.Equal(t, int64(1), p.Page)

	meta := Pagination{Page: 1, Limit: 20}.Meta(41)
	assert.Equal(t, int64(3), meta.TotalPages)
}
