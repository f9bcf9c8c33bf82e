package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/models"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]models.User)}
}

func (m *memoryUsers) CreateUser(_ context.Context, email, name, hash string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[email]; ok {
		return nil, models.ErrConflict
	}
	u := models.User{ID: int64(len(m.users) + 1), Email: email, Name: name, PasswordHash: hash}
	m.users[email] = u
	return &u, nil
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(now func() time.Time) *Service {
	cfg := config.AuthConfig{JWTSecret: "test-secret", TokenTTL: 7 * 24 * time.Hour, BcryptCost: bcrypt.MinCost}
	return NewService(cfg, newMemoryUsers(), now)
}

func TestSignupAndLogin(t *testing.T) {
	s := newTestService(func() time.Time { return fixedNow })
	ctx := context.Background()

	user, err := s.Signup(ctx, "ada@example.com", "hunter2", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEqual(t, "hunter2", user.PasswordHash)

	token, loggedIn, err := s.Login(ctx, "ada@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	claims, err := s.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), claims.ExpiresAt.Time.UTC())
}

func TestSignup_Validation(t *testing.T) {
	s := newTestService(nil)

	_, err := s.Signup(context.Background(), " ", "pw", "x")
	assert.True(t, errors.Is(err, models.ErrValidation))

	_, err = s.Signup(context.Background(), "a@b.c", "", "x")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestSignup_DuplicateEmail(t *testing.T) {
	s := newTestService(nil)
	ctx := context.Background()

	_, err := s.Signup(ctx, "ada@example.com", "pw", "Ada")
	require.NoError(t, err)

	_, err = s.Signup(ctx, "ada@example.com", "pw2", "Ada")
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestService(nil)
	ctx := context.Background()

	_, err := s.Signup(ctx, "ada@example.com", "right", "Ada")
	require.NoError(t, err)

	_, _, err = s.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = s.Login(ctx, "nobody@example.com", "right")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestVerify_Rejects(t *testing.T) {
	now := fixedNow
	s := newTestService(func() time.Time { return now })

	token, err := s.IssueToken(&models.User{ID: 3})
	require.NoError(t, err)

	other := NewService(config.AuthConfig{JWTSecret: "other-secret"}, newMemoryUsers(), func() time.Time { return now })
	_, err = other.Verify(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	_, err = s.Verify("not-a-token")
	assert.True(t, errors.Is(err, models.ErrUnauthorized))

	now = fixedNow.Add(8 * 24 * time.Hour)
	_, err = s.Verify(token)
	assert.True(t, errors.Is(err, models.ErrUnauthorized))
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	token, ok = BearerToken("bearer xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("")
	assert.False(t, ok)
}
