// Package session describes the locally held admin session and how its
// validity is judged without contacting the API.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotFound is returned by repositories when no session is stored.
var ErrNotFound = errors.New("session not found")

// Session is the persisted part of the auth state.
type Session struct {
	Token    string
	Username string
}

// Repository persists a single session. Implementations must be safe for concurrent use.
type Repository interface {
	// Load returns the stored session or ErrNotFound.
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}

// Expired reports whether token must be treated as invalid at now.
// The payload is decoded without verifying the signature; anything that
// cannot be decoded counts as expired. A token without "exp" never expires locally.
func Expired(token string, now time.Time) bool {
	exp, ok := ExpiresAt(token)
	if !ok {
		return true
	}
	if exp.IsZero() {
		return false
	}

	return !now.Before(exp)
}

// ExpiresAt decodes the embedded expiry of token. ok is false when the token is
// not a decodable JWT; a zero time with ok=true means the token carries no expiry.
func ExpiresAt(token string) (exp time.Time, ok bool) {
	if token == "" {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, true
	}

	return claims.ExpiresAt.Time, true
}

// MemoryRepository keeps the session in process memory.
type MemoryRepository struct {
	session *Session
	mu      sync.Mutex
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Load implements Repository.
func (m *MemoryRepository) Load(_ context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil, ErrNotFound
	}
	s := *m.session

	return &s, nil
}

// Save implements Repository.
func (m *MemoryRepository) Save(_ context.Context, s Session) error {
	m.mu.Lock()
	m.session = &s
	m.mu.Unlock()

	return nil
}

// Clear implements Repository.
func (m *MemoryRepository) Clear(_ context.Context) error {
	m.mu.Lock()
	m.session = nil
	m.mu.Unlock()

	return nil
}
