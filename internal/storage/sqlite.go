// Package storage keeps gsdash local state (the admin session and the last
// server snapshot) in a SQLite database, keyed by API base URL.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/woozymasta/gsdash/assets"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/session"
	_ "modernc.org/sqlite" // Driver sqlite
)

// Repository manages the SQLite database connection.
type Repository struct {
	db *sql.DB
}

// Snapshot is the last server list applied by the server store.
type Snapshot struct {
	FetchedAt   time.Time
	Servers     []models.ServerWithStatus
	Fingerprint uint64
}

// New initializes a new SQLite connection, sets connection pool parameters, and runs migrations.
func New(ctx context.Context, dbPath string) (*Repository, error) {
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// single writer, the CLI never needs more
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(1 * time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, assets.Migrations()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// LoadSession returns the session stored for apiURL or session.ErrNotFound.
func (r *Repository) LoadSession(ctx context.Context, apiURL string) (*session.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT token, username FROM sessions WHERE api_url = ?`, apiURL)

	var s session.Session
	if err := row.Scan(&s.Token, &s.Username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, session.ErrNotFound
		}
		return nil, err
	}

	return &s, nil
}

// SaveSession inserts or replaces the session for apiURL.
func (r *Repository) SaveSession(ctx context.Context, apiURL string, s session.Session) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO sessions (api_url, token, username, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(api_url) DO UPDATE SET
		token = excluded.token,
		username = excluded.username,
		updated_at = excluded.updated_at;
	`, apiURL, s.Token, s.Username, time.Now().UTC())

	return err
}

// ClearSession removes the session for apiURL. Clearing a missing session is not an error.
func (r *Repository) ClearSession(ctx context.Context, apiURL string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE api_url = ?`, apiURL)
	return err
}

// LoadSnapshot returns the last snapshot stored for apiURL, or nil when there is none.
func (r *Repository) LoadSnapshot(ctx context.Context, apiURL string) (*Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT payload, fingerprint, fetched_at FROM snapshots WHERE api_url = ?`, apiURL)

	var (
		payload string
		fp      string
		snap    Snapshot
	)
	if err := row.Scan(&payload, &fp, &snap.FetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &snap.Servers); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if fp != "" {
		n, err := strconv.ParseUint(fp, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("decode snapshot fingerprint: %w", err)
		}
		snap.Fingerprint = n
	}

	return &snap, nil
}

// SaveSnapshot replaces the snapshot stored for apiURL.
func (r *Repository) SaveSnapshot(ctx context.Context, apiURL string, snap Snapshot) error {
	payload, err := json.Marshal(snap.Servers)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
	INSERT INTO snapshots (api_url, payload, fingerprint, fetched_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(api_url) DO UPDATE SET
		payload = excluded.payload,
		fingerprint = excluded.fingerprint,
		fetched_at = excluded.fetched_at;
	`, apiURL, string(payload), strconv.FormatUint(snap.Fingerprint, 16), snap.FetchedAt.UTC())

	return err
}

// Sessions binds the repository to a single API base URL as a session.Repository.
func (r *Repository) Sessions(apiURL string) session.Repository {
	return &sessionRepository{repo: r, apiURL: apiURL}
}

type sessionRepository struct {
	repo   *Repository
	apiURL string
}

func (s *sessionRepository) Load(ctx context.Context) (*session.Session, error) {
	return s.repo.LoadSession(ctx, s.apiURL)
}

func (s *sessionRepository) Save(ctx context.Context, sess session.Session) error {
	return s.repo.SaveSession(ctx, s.apiURL, sess)
}

func (s *sessionRepository) Clear(ctx context.Context) error {
	return s.repo.ClearSession(ctx, s.apiURL)
}

// Snapshots binds the repository to a single API base URL as a snapshot sink
// for the server store.
func (r *Repository) Snapshots(apiURL string) *SnapshotSink {
	return &SnapshotSink{repo: r, apiURL: apiURL}
}

// SnapshotSink stores applied server snapshots for one API.
type SnapshotSink struct {
	repo   *Repository
	apiURL string
}

// SaveSnapshot stores the snapshot.
func (s *SnapshotSink) SaveSnapshot(ctx context.Context, servers []models.ServerWithStatus, fingerprint uint64, fetchedAt time.Time) error {
	return s.repo.SaveSnapshot(ctx, s.apiURL, Snapshot{
		Servers:     servers,
		Fingerprint: fingerprint,
		FetchedAt:   fetchedAt,
	})
}

// Load returns the stored snapshot, or nil when there is none.
func (s *SnapshotSink) Load(ctx context.Context) (*Snapshot, error) {
	return s.repo.LoadSnapshot(ctx, s.apiURL)
}
