package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/session"
	"github.com/woozymasta/gsdash/internal/validate"
)

// AuthAPI is the part of the API client used by the auth store.
type AuthAPI interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	ChangePassword(ctx context.Context, req models.ChangePasswordRequest) error
}

// AuthState is a copy of the auth store state.
type AuthState struct {
	Token         string
	Username      string
	Authenticated bool
}

// Auth holds the admin session. It implements api.Authenticator.
type Auth struct {
	api   AuthAPI
	repo  session.Repository
	now   func() time.Time
	state AuthState
	mu    sync.RWMutex
}

// NewAuth creates an auth store persisting through repo.
func NewAuth(api AuthAPI, repo session.Repository) *Auth {
	return &Auth{api: api, repo: repo, now: time.Now}
}

// Init loads the persisted session and validates it locally.
func (a *Auth) Init(ctx context.Context) error {
	s, err := a.repo.Load(ctx)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil
		}
		return err
	}

	a.mu.Lock()
	a.state = AuthState{Token: s.Token, Username: s.Username}
	a.mu.Unlock()

	a.Check(ctx)

	return nil
}

// State returns a copy of the current state.
func (a *Auth) State() AuthState {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state
}

// Token implements api.Authenticator.
func (a *Auth) Token() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state.Token
}

// Username returns the logged in admin name.
func (a *Auth) Username() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state.Username
}

// IsAuthenticated reports the last known authentication flag.
func (a *Auth) IsAuthenticated() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.state.Authenticated
}

// Invalidate implements api.Authenticator: the API rejected the token.
func (a *Auth) Invalidate() {
	// the request context may already be gone
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	a.Logout(ctx)
}

// Login exchanges credentials for a token and persists the session.
// Any failure leaves the store logged out.
func (a *Auth) Login(ctx context.Context, username, password string) error {
	req := models.LoginRequest{Username: strings.TrimSpace(username), Password: password}
	if err := validate.Login(req); err != nil {
		return err
	}

	resp, err := a.api.Login(ctx, req)
	if err != nil {
		a.Logout(ctx)
		return err
	}

	a.mu.Lock()
	a.state = AuthState{Token: resp.Token, Username: req.Username, Authenticated: true}
	a.mu.Unlock()

	if err := a.repo.Save(ctx, session.Session{Token: resp.Token, Username: req.Username}); err != nil {
		log.Error().Err(err).Msg("Failed to persist session")
		return err
	}

	log.Info().
		Str("username", req.Username).
		Time("expires_at", resp.ExpiresAt).
		Msg("Logged in")

	return nil
}

// Logout drops the session from memory and storage.
func (a *Auth) Logout(ctx context.Context) {
	a.mu.Lock()
	had := a.state.Token != ""
	a.state = AuthState{}
	a.mu.Unlock()

	if err := a.repo.Clear(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to clear persisted session")
	}
	if had {
		log.Debug().Msg("Session cleared")
	}
}

// Check validates the held token locally. An expired or undecodable token
// clears the session. No request is made.
func (a *Auth) Check(ctx context.Context) bool {
	a.mu.Lock()
	token := a.state.Token
	if token == "" {
		a.state.Authenticated = false
		a.mu.Unlock()
		return false
	}

	if session.Expired(token, a.now()) {
		a.mu.Unlock()
		log.Info().Msg("Session expired, login required")
		a.Logout(ctx)
		return false
	}

	a.state.Authenticated = true
	a.mu.Unlock()

	return true
}

// ChangePassword validates the input and asks the API to change the password.
func (a *Auth) ChangePassword(ctx context.Context, current, next, confirm string) error {
	if err := validate.PasswordChange(current, next, confirm); err != nil {
		return err
	}
	if !a.Check(ctx) {
		return ErrNotAuthenticated
	}

	return a.api.ChangePassword(ctx, models.ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     next,
	})
}
