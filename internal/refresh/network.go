package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/api"
)

// DefaultProbeInterval is the delay between reconnection probes while offline.
const DefaultProbeInterval = 5 * time.Second

// ErrReconnecting is returned by Reconnect while another probe is running.
var ErrReconnecting = errors.New("reconnect already in progress")

// Pinger checks API reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Monitor tracks API reachability. Network failures observed on regular calls
// flip it offline; while offline a probe runs every interval until one succeeds.
type Monitor struct {
	lastOnline   time.Time
	pinger       Pinger
	listeners    map[int]func(online bool)
	offline      chan struct{}
	interval     time.Duration
	nextListener int
	mu           sync.Mutex
	online       bool
	reconnecting bool
}

// NewMonitor creates a monitor that starts online.
func NewMonitor(p Pinger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}

	return &Monitor{
		pinger:     p,
		interval:   interval,
		online:     true,
		lastOnline: time.Now(),
		listeners:  make(map[int]func(bool)),
		offline:    make(chan struct{}, 1),
	}
}

// OnChange registers fn for online/offline transitions.
func (m *Monitor) OnChange(fn func(online bool)) (cancel func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Observe feeds the outcome of an API call: success means online, a network
// failure means offline, anything else says nothing about reachability.
func (m *Monitor) Observe(err error) {
	switch {
	case err == nil:
		m.SetOnline()
	case api.IsNetwork(err):
		m.SetOffline()
	}
}

// SetOnline marks the API reachable.
func (m *Monitor) SetOnline() {
	m.set(true)
}

// SetOffline marks the API unreachable and wakes the probe loop.
func (m *Monitor) SetOffline() {
	if m.set(false) {
		select {
		case m.offline <- struct{}{}:
		default:
		}
	}
}

func (m *Monitor) set(online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online
	if online {
		m.lastOnline = time.Now()
		m.reconnecting = false
	}
	listeners := make([]func(bool), 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.Unlock()

	if online {
		log.Info().Msg("API reachable again")
	} else {
		log.Warn().Msg("API unreachable, waiting for connection")
	}

	for _, fn := range listeners {
		fn(online)
	}

	return true
}

// Online reports the last known reachability.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.online
}

// Reconnecting reports whether a probe is running.
func (m *Monitor) Reconnecting() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reconnecting
}

// LastOnline returns when the API was last seen reachable.
func (m *Monitor) LastOnline() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.lastOnline
}

// Reconnect probes the API once; any answer marks it online.
func (m *Monitor) Reconnect(ctx context.Context) error {
	m.mu.Lock()
	if m.reconnecting {
		m.mu.Unlock()
		return ErrReconnecting
	}
	m.reconnecting = true
	m.mu.Unlock()

	err := m.pinger.Ping(ctx)

	m.mu.Lock()
	m.reconnecting = false
	m.mu.Unlock()

	// any HTTP answer proves the API is reachable
	if err != nil && (api.IsNetwork(err) || ctx.Err() != nil) {
		log.Debug().Err(err).Msg("Reconnect probe failed")
		return err
	}
	m.SetOnline()

	return nil
}

// Run probes every interval while offline until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if m.Online() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-m.offline:
				continue
			}
		}

		t := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}

		_ = m.Reconnect(ctx)
	}
}
