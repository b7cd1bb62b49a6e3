package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/session"
	"github.com/woozymasta/gsdash/internal/validate"
)

type fakeAuthAPI struct {
	loginErr  error
	token     string
	lastPass  models.ChangePasswordRequest
	logins    int
	passwords int
}

func (f *fakeAuthAPI) Login(_ context.Context, _ models.LoginRequest) (*models.LoginResponse, error) {
	f.logins++
	if f.loginErr != nil {
		return nil, f.loginErr
	}

	return &models.LoginResponse{Token: f.token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeAuthAPI) ChangePassword(_ context.Context, req models.ChangePasswordRequest) error {
	f.passwords++
	f.lastPass = req
	return nil
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()

	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	return s
}

func TestLoginPersistsSession(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{token: token(t, time.Now().Add(time.Hour))}
	repo := session.NewMemoryRepository()
	a := NewAuth(api, repo)

	require.NoError(t, a.Login(ctx, " admin ", "secret"))
	assert.True(t, a.IsAuthenticated())
	assert.Equal(t, "admin", a.Username())
	assert.Equal(t, api.token, a.Token())

	saved, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.token, saved.Token)

	// a new store picks the session up
	b := NewAuth(api, repo)
	require.NoError(t, b.Init(ctx))
	assert.True(t, b.IsAuthenticated())
}

func TestLoginValidationSkipsAPI(t *testing.T) {
	api := &fakeAuthAPI{}
	a := NewAuth(api, session.NewMemoryRepository())

	err := a.Login(context.Background(), "", "")
	require.True(t, validate.IsValidation(err))
	assert.Zero(t, api.logins)
}

func TestLoginFailureLogsOut(t *testing.T) {
	ctx := context.Background()
	repo := session.NewMemoryRepository()
	require.NoError(t, repo.Save(ctx, session.Session{Token: "old", Username: "admin"}))

	api := &fakeAuthAPI{loginErr: errors.New("authentication failed")}
	a := NewAuth(api, repo)

	require.Error(t, a.Login(ctx, "admin", "wrong"))
	assert.False(t, a.IsAuthenticated())
	assert.Empty(t, a.Token())

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestCheckExpiredToken(t *testing.T) {
	ctx := context.Background()
	repo := session.NewMemoryRepository()
	require.NoError(t, repo.Save(ctx, session.Session{Token: token(t, time.Now().Add(-time.Minute)), Username: "admin"}))

	a := NewAuth(&fakeAuthAPI{}, repo)
	require.NoError(t, a.Init(ctx))

	assert.False(t, a.Check(ctx))
	assert.False(t, a.IsAuthenticated())
	assert.Empty(t, a.Token())

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestCheckGarbageToken(t *testing.T) {
	ctx := context.Background()
	repo := session.NewMemoryRepository()
	require.NoError(t, repo.Save(ctx, session.Session{Token: "garbage"}))

	a := NewAuth(&fakeAuthAPI{}, repo)
	require.NoError(t, a.Init(ctx))
	assert.False(t, a.Check(ctx))
}

func TestCheckWithClock(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{token: token(t, time.Now().Add(time.Hour))}
	a := NewAuth(api, session.NewMemoryRepository())
	require.NoError(t, a.Login(ctx, "admin", "secret"))

	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	assert.False(t, a.Check(ctx))
}

func TestInvalidateClearsSession(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{token: token(t, time.Now().Add(time.Hour))}
	a := NewAuth(api, session.NewMemoryRepository())
	require.NoError(t, a.Login(ctx, "admin", "secret"))

	a.Invalidate()
	assert.False(t, a.IsAuthenticated())
	assert.Empty(t, a.Token())
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	api := &fakeAuthAPI{token: token(t, time.Now().Add(time.Hour))}
	a := NewAuth(api, session.NewMemoryRepository())

	require.ErrorIs(t, a.ChangePassword(ctx, "old-secret", "new-secret", "new-secret"), ErrNotAuthenticated)

	require.NoError(t, a.Login(ctx, "admin", "old-secret"))

	err := a.ChangePassword(ctx, "old-secret", "new", "new")
	require.True(t, validate.IsValidation(err))
	assert.Zero(t, api.passwords)

	require.NoError(t, a.ChangePassword(ctx, "old-secret", "new-secret", "new-secret"))
	assert.Equal(t, 1, api.passwords)
	assert.Equal(t, "new-secret", api.lastPass.NewPassword)
}
