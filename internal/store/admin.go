package store

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/validate"
)

// AdminAPI is the part of the API client used by the admin store.
type AdminAPI interface {
	AdminServers(ctx context.Context) ([]models.Server, error)
	CreateServer(ctx context.Context, req models.ServerRequest) (*models.Server, error)
	UpdateServer(ctx context.Context, id uint, req models.ServerRequest) (*models.Server, error)
	DeleteServer(ctx context.Context, id uint) error
}

// AdminState is a copy of the admin store state.
type AdminState struct {
	Err     error
	Servers []models.Server
	Loading bool
}

// Admin mirrors the server records for the management views.
type Admin struct {
	api   AdminAPI
	state AdminState
	seq   uint64
	mu    sync.Mutex
}

// NewAdmin creates an empty admin store.
func NewAdmin(api AdminAPI) *Admin {
	return &Admin{api: api}
}

// State returns a copy of the current state.
func (a *Admin) State() AdminState {
	a.mu.Lock()
	defer a.mu.Unlock()

	st := a.state
	st.Servers = append([]models.Server(nil), a.state.Servers...)

	return st
}

// Fetch reloads all records. Only the latest issued fetch may overwrite the list.
func (a *Admin) Fetch(ctx context.Context) error {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.state.Loading = true
	a.state.Err = nil
	a.mu.Unlock()

	servers, err := a.api.AdminServers(ctx)

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq != a.seq {
		return err
	}
	a.state.Loading = false
	if err != nil {
		a.state.Err = err
		return err
	}
	a.state.Servers = append([]models.Server(nil), servers...)

	return nil
}

// Create validates req, creates the record and appends it to the list.
func (a *Admin) Create(ctx context.Context, req models.ServerRequest) (models.Server, error) {
	if err := validate.Server(&req); err != nil {
		return models.Server{}, err
	}

	a.begin()
	srv, err := a.api.CreateServer(ctx, req)
	if err != nil {
		a.fail(err)
		return models.Server{}, err
	}

	a.mu.Lock()
	a.state.Servers = append(a.state.Servers, *srv)
	a.state.Loading = false
	a.mu.Unlock()

	log.Info().
		Uint("id", srv.ID).
		Str("name", srv.Name).
		Str("address", srv.Address).
		Int("port", srv.Port).
		Msg("Server created")

	return *srv, nil
}

// Update validates req, updates the record and replaces it in the list.
func (a *Admin) Update(ctx context.Context, id uint, req models.ServerRequest) (models.Server, error) {
	if err := validate.Server(&req); err != nil {
		return models.Server{}, err
	}

	a.begin()
	srv, err := a.api.UpdateServer(ctx, id, req)
	if err != nil {
		a.fail(err)
		return models.Server{}, err
	}

	a.mu.Lock()
	for i := range a.state.Servers {
		if a.state.Servers[i].ID == id {
			a.state.Servers[i] = *srv
		}
	}
	a.state.Loading = false
	a.mu.Unlock()

	log.Info().Uint("id", id).Str("name", srv.Name).Msg("Server updated")

	return *srv, nil
}

// Delete removes the record and drops it from the list.
func (a *Admin) Delete(ctx context.Context, id uint) error {
	a.begin()
	if err := a.api.DeleteServer(ctx, id); err != nil {
		a.fail(err)
		return err
	}

	a.mu.Lock()
	kept := a.state.Servers[:0]
	for _, s := range a.state.Servers {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	a.state.Servers = kept
	a.state.Loading = false
	a.mu.Unlock()

	log.Info().Uint("id", id).Msg("Server deleted")

	return nil
}

// Lookup returns a record of the current list.
func (a *Admin) Lookup(id uint) (models.Server, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, s := range a.state.Servers {
		if s.ID == id {
			return s, true
		}
	}

	return models.Server{}, false
}

// ClearError resets the error field.
func (a *Admin) ClearError() {
	a.mu.Lock()
	a.state.Err = nil
	a.mu.Unlock()
}

// Reset drops all state and discards responses of fetches already issued.
func (a *Admin) Reset() {
	a.mu.Lock()
	a.seq++
	a.state = AdminState{}
	a.mu.Unlock()
}

func (a *Admin) begin() {
	a.mu.Lock()
	a.state.Loading = true
	a.state.Err = nil
	a.mu.Unlock()
}

func (a *Admin) fail(err error) {
	a.mu.Lock()
	a.state.Loading = false
	a.state.Err = err
	a.mu.Unlock()
}
