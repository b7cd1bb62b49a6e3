package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/models"
)

const (
	detailCacheTTL     = 10 * time.Second
	detailCacheCleanup = time.Minute
)

// ServerAPI is the part of the API client used by the server store.
type ServerAPI interface {
	Servers(ctx context.Context) ([]models.ServerWithStatus, error)
	Server(ctx context.Context, id uint) (*models.ServerWithStatus, error)
}

// SnapshotSink persists applied snapshots.
type SnapshotSink interface {
	SaveSnapshot(ctx context.Context, servers []models.ServerWithStatus, fingerprint uint64, fetchedAt time.Time) error
}

// Observer is told the outcome (nil on success) of every settled fetch.
type Observer interface {
	Observe(err error)
}

// ServersState is a copy of the server store state.
type ServersState struct {
	LastUpdated time.Time
	Err         error
	Servers     []models.ServerWithStatus
	RetryCount  int
	Fingerprint uint64
	Loading     bool
	Exhausted   bool
	// Stale is set when Servers is older than the latest attempt (failed refresh
	// or restored snapshot).
	Stale bool
}

// ServersOption configures a Servers store.
type ServersOption func(*Servers)

// WithMaxRetries sets the retry budget (attempts before the store gives up).
func WithMaxRetries(n int) ServersOption {
	return func(s *Servers) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithSnapshotSink persists every applied snapshot.
func WithSnapshotSink(sink SnapshotSink) ServersOption {
	return func(s *Servers) {
		s.sink = sink
	}
}

// WithOnlineGate stops the retry loop after a failure while online reports false.
func WithOnlineGate(online func() bool) ServersOption {
	return func(s *Servers) {
		s.online = online
	}
}

// WithObserver reports fetch outcomes to o.
func WithObserver(o Observer) ServersOption {
	return func(s *Servers) {
		s.observer = o
	}
}

type fetchCall struct {
	done chan struct{}
	err  error
}

// Servers mirrors the public server list with live status.
type Servers struct {
	api      ServerAPI
	sink     SnapshotSink
	observer Observer
	online   func() bool
	details  *cache.Cache
	inflight *fetchCall
	subs     map[int]func(ServersState)
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	cancelRetry context.CancelFunc
	state       ServersState
	seq         uint64
	retryGen    uint64
	maxRetries  int
	nextSub     int
	mu          sync.Mutex
}

// NewServers creates an empty server store.
func NewServers(api ServerAPI, opts ...ServersOption) *Servers {
	s := &Servers{
		api:        api,
		details:    cache.New(detailCacheTTL, detailCacheCleanup),
		subs:       make(map[int]func(ServersState)),
		now:        time.Now,
		sleep:      sleepCtx,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// State returns a copy of the current state.
func (s *Servers) State() ServersState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshotLocked()
}

func (s *Servers) snapshotLocked() ServersState {
	st := s.state
	st.Servers = append([]models.ServerWithStatus(nil), s.state.Servers...)

	return st
}

// Subscribe registers fn to receive the state after every change.
// The returned function removes the subscription.
func (s *Servers) Subscribe(fn func(ServersState)) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Servers) notify() {
	s.mu.Lock()
	st := s.snapshotLocked()
	subs := make([]func(ServersState), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(st)
	}
}

// Fetch loads the server list once. Concurrent callers share the in-flight
// request. The result is applied only if no newer fetch was issued meanwhile.
func (s *Servers) Fetch(ctx context.Context) error {
	for {
		s.mu.Lock()
		c := s.inflight
		s.mu.Unlock()
		if c == nil {
			return s.fetch(ctx)
		}

		select {
		case <-c.done:
			// the owner gave up, issue our own request
			if isCanceled(c.err) && ctx.Err() == nil {
				continue
			}
			return c.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Servers) fetch(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight != nil {
		s.mu.Unlock()
		return s.Fetch(ctx)
	}
	c := &fetchCall{done: make(chan struct{})}
	s.inflight = c
	s.seq++
	seq := s.seq
	s.state.Loading = true
	s.mu.Unlock()
	s.notify()

	servers, err := s.api.Servers(ctx)

	s.mu.Lock()
	if s.inflight == c {
		s.inflight = nil
	}
	applied := seq == s.seq
	if applied {
		s.state.Loading = false
		switch {
		case err == nil:
			s.applyLocked(servers)
		case !isCanceled(err):
			s.state.Err = err
			s.state.Stale = len(s.state.Servers) > 0
		}
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	c.err = err
	close(c.done)

	if !applied {
		log.Debug().Uint64("seq", seq).Msg("Discarded outdated server list response")
		return err
	}

	if err == nil {
		s.details.Flush()
		s.persist(ctx, st)
	}
	if s.observer != nil && !isCanceled(err) {
		s.observer.Observe(err)
	}
	s.notify()

	return err
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// applyLocked replaces the whole collection with a fresh successful result.
func (s *Servers) applyLocked(servers []models.ServerWithStatus) {
	fp := Fingerprint(servers)
	if fp != s.state.Fingerprint {
		log.Debug().Int("count", len(servers)).Msg("Server list changed")
	}

	s.state.Servers = append([]models.ServerWithStatus(nil), servers...)
	s.state.Fingerprint = fp
	s.state.Err = nil
	s.state.RetryCount = 0
	s.state.Exhausted = false
	s.state.Stale = false
	s.state.LastUpdated = s.now()
}

func (s *Servers) persist(ctx context.Context, st ServersState) {
	if s.sink == nil {
		return
	}
	if err := s.sink.SaveSnapshot(ctx, st.Servers, st.Fingerprint, st.LastUpdated); err != nil {
		log.Warn().Err(err).Msg("Failed to persist server snapshot")
	}
}

// FetchWithRetry fetches with exponential backoff. After failed attempt n it
// waits Backoff(n); after MaxRetries failures the store is marked exhausted and
// ErrRetriesExhausted (wrapping the last error) is returned. A failure while
// the online gate reports false stops the loop with ErrOffline. Starting a new
// retry loop cancels the previous one.
func (s *Servers) FetchWithRetry(ctx context.Context) error {
	return s.fetchWithRetry(ctx, false)
}

func (s *Servers) fetchWithRetry(ctx context.Context, reset bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.cancelRetry != nil {
		s.cancelRetry()
	}
	s.retryGen++
	gen := s.retryGen
	s.cancelRetry = cancel
	if reset {
		s.state.Exhausted = false
		s.state.RetryCount = 0
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.retryGen == gen {
			s.cancelRetry = nil
		}
		s.mu.Unlock()
	}()

	for {
		err := s.Fetch(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.mu.Lock()
		// a newer loop owns the retry counter
		if s.retryGen != gen {
			s.mu.Unlock()
			return context.Canceled
		}
		s.state.RetryCount++
		n := s.state.RetryCount
		exhausted := n >= s.maxRetries
		if exhausted {
			s.state.Exhausted = true
		}
		s.mu.Unlock()
		s.notify()

		if exhausted {
			log.Warn().
				Err(err).
				Int("attempts", n).
				Msg("Server list refresh failed, giving up until retried")
			return fmt.Errorf("%w: %w", ErrRetriesExhausted, err)
		}

		if s.online != nil && !s.online() {
			log.Debug().
				Err(err).
				Int("attempt", n).
				Msg("Server list refresh paused until the API is reachable")
			return fmt.Errorf("%w: %w", ErrOffline, err)
		}

		delay := Backoff(n)
		log.Debug().
			Err(err).
			Int("attempt", n).
			Dur("backoff", delay).
			Msg("Server list refresh failed, retrying")

		if err := s.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// AutoRefresh is the periodic refresh: it does nothing while the store is
// exhausted and otherwise fetches with retry.
func (s *Servers) AutoRefresh(ctx context.Context) error {
	s.mu.Lock()
	exhausted := s.state.Exhausted
	s.mu.Unlock()

	if exhausted {
		return ErrRetriesExhausted
	}

	return s.FetchWithRetry(ctx)
}

// Retry is the user-initiated refresh: it restores the retry budget and fetches.
func (s *Servers) Retry(ctx context.Context) error {
	return s.fetchWithRetry(ctx, true)
}

// ResetRetries restores the retry budget without fetching.
func (s *Servers) ResetRetries() {
	s.mu.Lock()
	changed := s.state.Exhausted || s.state.RetryCount != 0
	s.state.Exhausted = false
	s.state.RetryCount = 0
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Lookup returns a server of the current collection.
func (s *Servers) Lookup(id uint) (models.ServerWithStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, srv := range s.state.Servers {
		if srv.ID == id {
			return srv, true
		}
	}

	return models.ServerWithStatus{}, false
}

// Get returns a single server with its status, served from a short lived cache.
// When the request fails the copy from the collection is returned along with the error.
func (s *Servers) Get(ctx context.Context, id uint) (models.ServerWithStatus, error) {
	key := strconv.FormatUint(uint64(id), 10)
	if v, ok := s.details.Get(key); ok {
		if srv, ok := v.(models.ServerWithStatus); ok {
			return srv, nil
		}
	}

	srv, err := s.api.Server(ctx, id)
	if err != nil {
		if cached, ok := s.Lookup(id); ok {
			return cached, err
		}
		return models.ServerWithStatus{}, err
	}

	s.details.SetDefault(key, *srv)

	return *srv, nil
}

// Restore seeds the store with a previously persisted snapshot. The data is
// marked stale until the next successful fetch. It is ignored once real data
// has been applied.
func (s *Servers) Restore(servers []models.ServerWithStatus, fetchedAt time.Time) {
	s.mu.Lock()
	if !s.state.LastUpdated.IsZero() && !s.state.Stale {
		s.mu.Unlock()
		return
	}
	s.state.Servers = append([]models.ServerWithStatus(nil), servers...)
	s.state.Fingerprint = Fingerprint(servers)
	s.state.LastUpdated = fetchedAt
	s.state.Stale = true
	s.mu.Unlock()

	s.notify()
}

// Reset drops all state. Responses of fetches issued before Reset are discarded.
func (s *Servers) Reset() {
	s.mu.Lock()
	s.seq++
	s.inflight = nil
	if s.cancelRetry != nil {
		s.cancelRetry()
		s.cancelRetry = nil
	}
	s.state = ServersState{}
	s.mu.Unlock()

	s.details.Flush()
	s.notify()
}

// Fingerprint hashes the identity and live fields of a server list. Equal
// fingerprints mean nothing visible changed.
func Fingerprint(servers []models.ServerWithStatus) uint64 {
	d := xxhash.New()
	var buf [8]byte

	for _, srv := range servers {
		binary.LittleEndian.PutUint64(buf[:], uint64(srv.ID))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(srv.Name)
		_, _ = d.WriteString(srv.Address)
		binary.LittleEndian.PutUint64(buf[:], uint64(srv.Port))
		_, _ = d.Write(buf[:])

		online := uint64(0)
		if srv.Status.Online {
			online = 1
		}
		binary.LittleEndian.PutUint64(buf[:], online)
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(srv.Status.Players))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(srv.Status.MaxPlayers))
		_, _ = d.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(srv.Status.Ping))
		_, _ = d.Write(buf[:])
		_, _ = d.WriteString(srv.Status.Version)
	}

	return d.Sum64()
}
