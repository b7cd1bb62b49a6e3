package dashboard

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/api"
	"github.com/woozymasta/gsdash/internal/mockapi"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/store"
)

// swapHandler lets a test replace the API behind a fixed URL.
type swapHandler struct {
	h atomic.Pointer[http.Handler]
}

func (s *swapHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.h.Load()).ServeHTTP(w, r)
}

func (s *swapHandler) set(h http.Handler) {
	s.h.Store(&h)
}

func mockHandler(t *testing.T, secret string) http.Handler {
	t.Helper()

	srv, err := mockapi.New(mockapi.Config{
		Secret:        secret,
		AdminUser:     "admin",
		AdminPassword: "admin123",
		StatusTTL:     time.Minute,
		Seed:          3,
	})
	require.NoError(t, err)

	return srv.Handler()
}

func testOptions(url, dbPath string) Options {
	return Options{
		APIURL:          url,
		DBPath:          dbPath,
		Timeout:         5 * time.Second,
		RefreshInterval: time.Hour,
		ProbeInterval:   time.Hour,
		MaxRetries:      1,
	}
}

func open(t *testing.T, opts Options) *Dashboard {
	t.Helper()

	d, err := New(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(context.Background(), Options{})
	require.Error(t, err)
}

func TestSessionAndSnapshotSurviveRestart(t *testing.T) {
	sw := &swapHandler{}
	sw.set(mockHandler(t, "secret"))
	ts := httptest.NewServer(sw)
	defer ts.Close()

	dbPath := filepath.Join(t.TempDir(), "gsdash.db")
	ctx := context.Background()

	d := open(t, testOptions(ts.URL, dbPath))
	require.NoError(t, d.Auth.Login(ctx, "admin", "admin123"))
	require.NoError(t, d.Servers.Fetch(ctx))
	require.Len(t, d.Servers.State().Servers, 3)
	require.NoError(t, d.Close())

	// second run: session and stale list come from the database
	d = open(t, testOptions(ts.URL, dbPath))
	assert.True(t, d.Auth.IsAuthenticated())
	assert.Equal(t, "admin", d.Auth.Username())

	st := d.Servers.State()
	assert.Len(t, st.Servers, 3)
	assert.True(t, st.Stale)

	require.NoError(t, d.Servers.Fetch(ctx))
	assert.False(t, d.Servers.State().Stale)
}

func TestUnauthorizedClearsSession(t *testing.T) {
	sw := &swapHandler{}
	sw.set(mockHandler(t, "secret"))
	ts := httptest.NewServer(sw)
	defer ts.Close()

	ctx := context.Background()
	d := open(t, testOptions(ts.URL, filepath.Join(t.TempDir(), "gsdash.db")))
	require.NoError(t, d.Auth.Login(ctx, "admin", "admin123"))
	require.NoError(t, d.Admin.Fetch(ctx))

	// the API restarted with another signing key
	sw.set(mockHandler(t, "rotated"))

	err := d.Admin.Fetch(ctx)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.False(t, d.Auth.IsAuthenticated())
	assert.Empty(t, d.Auth.Token())
}

func TestAdminRoundTrip(t *testing.T) {
	sw := &swapHandler{}
	sw.set(mockHandler(t, "secret"))
	ts := httptest.NewServer(sw)
	defer ts.Close()

	ctx := context.Background()
	d := open(t, testOptions(ts.URL, ""))
	require.NoError(t, d.Auth.Login(ctx, "admin", "admin123"))

	created, err := d.Admin.Create(ctx, models.ServerRequest{
		Name: "Retakes", Type: models.TypeCS2, Address: "cs.example.net", Port: 27015,
	})
	require.NoError(t, err)

	require.NoError(t, d.Servers.Fetch(ctx))
	srv, ok := d.Servers.Lookup(created.ID)
	require.True(t, ok)
	assert.Equal(t, "Retakes", srv.Name)

	require.NoError(t, d.Admin.Delete(ctx, created.ID))
	require.NoError(t, d.Servers.Fetch(ctx))
	_, ok = d.Servers.Lookup(created.ID)
	assert.False(t, ok)
}

func TestOfflineGoesThroughMonitor(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	d := open(t, testOptions(url, ""))

	err := d.Servers.FetchWithRetry(context.Background())
	require.ErrorIs(t, err, store.ErrRetriesExhausted)
	assert.False(t, d.Monitor.Online())
	assert.True(t, d.Servers.State().Exhausted)
}

func TestBackOnlineResumesRefresh(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	opts := testOptions("http://"+addr, "")
	opts.ProbeInterval = 20 * time.Millisecond
	opts.MaxRetries = 3
	d := open(t, opts)
	d.Start()

	err = d.Servers.FetchWithRetry(context.Background())
	require.ErrorIs(t, err, store.ErrOffline)
	require.False(t, d.Monitor.Online())
	require.Empty(t, d.Servers.State().Servers)

	// the API comes back on the same address
	l, err = net.Listen("tcp", addr)
	require.NoError(t, err)
	ts := httptest.NewUnstartedServer(mockHandler(t, "secret"))
	_ = ts.Listener.Close()
	ts.Listener = l
	ts.Start()
	defer ts.Close()

	require.Eventually(t, func() bool {
		st := d.Servers.State()
		return len(st.Servers) == 3 && !st.Exhausted && st.RetryCount == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, d.Monitor.Online())
}

func TestCloseWaitsForBackgroundWork(t *testing.T) {
	d, err := New(context.Background(), testOptions("http://127.0.0.1:1", ""))
	require.NoError(t, err)

	var finished atomic.Bool
	require.True(t, d.Go(func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		finished.Store(true)
	}))

	require.NoError(t, d.Close())
	assert.True(t, finished.Load())
	assert.False(t, d.Go(func(context.Context) {}))
}
