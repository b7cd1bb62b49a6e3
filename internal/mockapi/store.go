package mockapi

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/woozymasta/gsdash/internal/models"
)

var (
	errServerNotFound     = errors.New("server not found")
	errInvalidCredentials = errors.New("invalid username or password")
)

type user struct {
	username string
	hash     string
	id       uint
}

// memStore keeps servers and users in memory.
type memStore struct {
	servers map[uint]models.Server
	users   map[string]*user
	mu      sync.RWMutex
	nextID  uint
}

func newMemStore(adminUser, adminPassword string) (*memStore, error) {
	hash, err := hashPassword(adminPassword)
	if err != nil {
		return nil, err
	}

	return &memStore{
		servers: make(map[uint]models.Server),
		users: map[string]*user{
			adminUser: {id: 1, username: adminUser, hash: hash},
		},
		nextID: 1,
	}, nil
}

func (m *memStore) list() []models.Server {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Server, 0, len(m.servers))
	for _, s := range m.servers {
		out = append(out, s)
	}
	slices.SortFunc(out, func(a, b models.Server) int { return int(a.ID) - int(b.ID) })

	return out
}

func (m *memStore) get(id uint) (models.Server, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.servers[id]
	if !ok {
		return models.Server{}, errServerNotFound
	}

	return s, nil
}

func (m *memStore) create(req models.ServerRequest, now time.Time) models.Server {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := models.Server{ID: m.nextID, CreatedAt: now}
	m.nextID++
	apply(&s, req, now)
	m.servers[s.ID] = s

	return s
}

func (m *memStore) update(id uint, req models.ServerRequest, now time.Time) (models.Server, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.servers[id]
	if !ok {
		return models.Server{}, errServerNotFound
	}
	apply(&s, req, now)
	m.servers[id] = s

	return s, nil
}

func (m *memStore) delete(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.servers[id]; !ok {
		return errServerNotFound
	}
	delete(m.servers, id)

	return nil
}

func (m *memStore) authenticate(username, password string) (*user, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[username]
	if !ok || !verifyPassword(password, u.hash) {
		return nil, errInvalidCredentials
	}

	return u, nil
}

func (m *memStore) setPassword(username, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[username]
	if !ok {
		return errInvalidCredentials
	}
	u.hash = hash

	return nil
}

func apply(s *models.Server, req models.ServerRequest, now time.Time) {
	s.Name = req.Name
	s.Type = req.Type
	s.Address = req.Address
	s.Port = req.Port
	s.Description = req.Description
	s.DownloadURL = req.DownloadURL
	s.Changelog = req.Changelog
	s.UpdatedAt = now
}
