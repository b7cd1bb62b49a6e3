package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/api"
)

type fakePinger struct {
	err   error
	gate  chan struct{}
	calls atomic.Int32
	mu    sync.Mutex
}

func (f *fakePinger) Ping(ctx context.Context) error {
	f.calls.Add(1)
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return f.err
}

func (f *fakePinger) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func networkErr() error {
	return &api.Error{Kind: api.KindNetwork, Op: "GET /api/servers", Message: "network error", Err: errors.New("connection refused")}
}

func TestObserve(t *testing.T) {
	m := NewMonitor(&fakePinger{}, time.Hour)

	var changes []bool
	cancel := m.OnChange(func(online bool) { changes = append(changes, online) })
	defer cancel()

	m.Observe(&api.Error{Kind: api.KindHTTP, Status: 500, Message: "HTTP 500"})
	assert.True(t, m.Online())

	m.Observe(networkErr())
	assert.False(t, m.Online())

	m.Observe(networkErr())
	m.Observe(nil)
	assert.True(t, m.Online())
	assert.Equal(t, []bool{false, true}, changes)
}

func TestReconnect(t *testing.T) {
	p := &fakePinger{}
	p.fail(networkErr())
	m := NewMonitor(p, time.Hour)
	m.SetOffline()

	require.Error(t, m.Reconnect(context.Background()))
	assert.False(t, m.Online())

	// an HTTP error still proves reachability
	p.fail(&api.Error{Kind: api.KindHTTP, Status: 404, Message: "HTTP 404"})
	require.NoError(t, m.Reconnect(context.Background()))
	assert.True(t, m.Online())
}

func TestReconnectInProgress(t *testing.T) {
	p := &fakePinger{gate: make(chan struct{})}
	m := NewMonitor(p, time.Hour)

	done := make(chan error, 1)
	go func() { done <- m.Reconnect(context.Background()) }()

	require.Eventually(t, m.Reconnecting, time.Second, time.Millisecond)
	assert.ErrorIs(t, m.Reconnect(context.Background()), ErrReconnecting)

	close(p.gate)
	require.NoError(t, <-done)
	assert.False(t, m.Reconnecting())
}

func TestRunProbesWhileOffline(t *testing.T) {
	p := &fakePinger{}
	p.fail(networkErr())
	m := NewMonitor(p, 10*time.Millisecond)

	back := make(chan struct{})
	m.OnChange(func(online bool) {
		if online {
			close(back)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Run(ctx) }()

	m.SetOffline()
	require.Eventually(t, func() bool { return p.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	p.fail(nil)
	select {
	case <-back:
	case <-time.After(time.Second):
		t.Fatal("monitor did not come back online")
	}
	assert.True(t, m.Online())
}
