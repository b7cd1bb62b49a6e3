// Package dashboard composes the API client, the local storage and the stores
// into one explicit value owned by a CLI command. Closing it cancels every
// in-flight request and background loop.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/api"
	"github.com/woozymasta/gsdash/internal/refresh"
	"github.com/woozymasta/gsdash/internal/session"
	"github.com/woozymasta/gsdash/internal/storage"
	"github.com/woozymasta/gsdash/internal/store"
)

// Options holds everything needed to build a dashboard.
type Options struct {
	APIURL          string
	DBPath          string // empty keeps the session in memory and skips snapshots
	Timeout         time.Duration
	RefreshInterval time.Duration
	ProbeInterval   time.Duration
	RateLimit       float64
	Burst           int
	MaxRetries      int
	AutoRefresh     bool
}

// Dashboard is the client-side application state.
type Dashboard struct {
	Client    *api.Client
	Auth      *store.Auth
	Servers   *store.Servers
	Admin     *store.Admin
	Refresher *refresh.Refresher
	Monitor   *refresh.Monitor

	repo       *storage.Repository
	snapshots  *storage.SnapshotSink
	ctx        context.Context
	cancel     context.CancelFunc
	stopListen func()
	wg         sync.WaitGroup
	closeOnce  sync.Once
	mu         sync.Mutex
	closed     bool
}

// New wires the components, loads the persisted session and restores the
// last server snapshot as stale data.
func New(ctx context.Context, opts Options) (*Dashboard, error) {
	if opts.APIURL == "" {
		return nil, errors.New("API URL is required")
	}

	client := api.New(opts.APIURL,
		api.WithTimeout(opts.Timeout),
		api.WithRateLimit(opts.RateLimit, opts.Burst),
	)

	d := &Dashboard{Client: client}
	d.ctx, d.cancel = context.WithCancel(context.Background())

	var sessions session.Repository = session.NewMemoryRepository()
	if opts.DBPath != "" {
		repo, err := storage.New(ctx, opts.DBPath)
		if err != nil {
			d.cancel()
			return nil, err
		}
		d.repo = repo
		d.snapshots = repo.Snapshots(client.BaseURL())
		sessions = repo.Sessions(client.BaseURL())
	}

	d.Auth = store.NewAuth(client, sessions)
	client.UseAuth(d.Auth)

	d.Monitor = refresh.NewMonitor(client, opts.ProbeInterval)

	serverOpts := []store.ServersOption{
		store.WithMaxRetries(opts.MaxRetries),
		store.WithObserver(d.Monitor),
		store.WithOnlineGate(d.Monitor.Online),
	}
	if d.snapshots != nil {
		serverOpts = append(serverOpts, store.WithSnapshotSink(d.snapshots))
	}
	d.Servers = store.NewServers(client, serverOpts...)
	d.Admin = store.NewAdmin(client)

	refreshOpts := []refresh.Option{
		refresh.WithInterval(opts.RefreshInterval),
		refresh.WithManual(d.Servers.Retry),
		refresh.WithGate(d.Monitor.Online),
	}
	if !opts.AutoRefresh {
		refreshOpts = append(refreshOpts, refresh.Disabled())
	}
	d.Refresher = refresh.New(d.Servers.AutoRefresh, refreshOpts...)

	// back online: restore the retry budget and refresh right away
	d.stopListen = d.Monitor.OnChange(func(online bool) {
		if online {
			d.Servers.ResetRetries()
			d.Refresher.Trigger()
		}
	})

	if err := d.Auth.Init(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to load saved session")
	}

	d.restore(ctx)

	return d, nil
}

func (d *Dashboard) restore(ctx context.Context) {
	if d.snapshots == nil {
		return
	}

	snap, err := d.snapshots.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load saved server snapshot")
		return
	}
	if snap == nil {
		return
	}

	d.Servers.Restore(snap.Servers, snap.FetchedAt)
	log.Debug().
		Int("count", len(snap.Servers)).
		Time("fetched_at", snap.FetchedAt).
		Msg("Restored server snapshot")
}

// Start runs the auto-refresh and the reconnection loops until Close.
func (d *Dashboard) Start() {
	d.Go(func(ctx context.Context) { _ = d.Refresher.Run(ctx) })
	d.Go(func(ctx context.Context) { _ = d.Monitor.Run(ctx) })
}

// Go runs fn in the background with the root context. Close waits for it.
// It reports false, without running fn, once Close has started.
func (d *Dashboard) Go(fn func(ctx context.Context)) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		fn(d.ctx)
	}()

	return true
}

// Close cancels in-flight requests, waits for background work and closes the storage.
func (d *Dashboard) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()

		d.cancel()
		d.wg.Wait()
		d.stopListen()

		if d.repo != nil {
			err = d.repo.Close()
		}
	})

	return err
}
