package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/models"
)

type fakeAuth struct {
	token       string
	invalidated atomic.Int32
}

func (f *fakeAuth) Token() string { return f.token }
func (f *fakeAuth) Invalidate()   { f.invalidated.Add(1) }

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return New(srv.URL+"/", WithTimeout(2*time.Second))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestServersUnwrapsEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/servers", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "gsdash/")
		assert.Empty(t, r.Header.Get("Authorization"))

		writeJSON(w, http.StatusOK, map[string]any{
			"data": []models.ServerWithStatus{
				{Server: models.Server{ID: 1, Name: "Survival"}, Status: models.ServerStatus{Online: true, Ping: 20}},
			},
		})
	})

	servers, err := c.Servers(context.Background())
	require.NoError(t, err)
	require.Len(t, servers, 1)
	assert.Equal(t, "Survival", servers[0].Name)
	assert.Equal(t, int64(20), servers[0].Status.Ping)
}

func TestBaseURLTrimsSlash(t *testing.T) {
	assert.Equal(t, "http://localhost:8080", New("http://localhost:8080/").BaseURL())
}

func TestLoginAcceptsBareBody(t *testing.T) {
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "admin", req.Username)

		writeJSON(w, http.StatusOK, models.LoginResponse{Token: "tok", ExpiresAt: exp})
	})

	resp, err := c.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
	assert.True(t, exp.Equal(resp.ExpiresAt))
}

func TestLoginAcceptsEnvelope(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]string{"token": "tok"}})
	})

	resp, err := c.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "tok", resp.Token)
}

func TestLoginWithoutTokenFails(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
	})

	_, err := c.Login(context.Background(), models.LoginRequest{Username: "admin", Password: "pw"})
	require.Error(t, err)
}

func TestHTTPErrorMessage(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/servers/1":
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Server not found", "message": "server not found"})
		case "/api/servers/2":
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad id"})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	_, err := c.Server(context.Background(), 1)
	require.Error(t, err)
	assert.Equal(t, "Server not found", err.Error())
	assert.Equal(t, http.StatusNotFound, StatusCode(err))
	assert.False(t, IsNetwork(err))

	_, err = c.Server(context.Background(), 2)
	assert.Equal(t, "bad id", err.Error())

	_, err = c.Server(context.Background(), 3)
	assert.Equal(t, "HTTP 500: Internal Server Error", err.Error())
}

func TestUnauthorizedInvalidatesSession(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	})
	auth := &fakeAuth{token: "secret"}
	c.UseAuth(auth)

	_, err := c.AdminServers(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.True(t, errors.Is(err, ErrUnauthorized))
	assert.Equal(t, int32(1), auth.invalidated.Load())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, WithTimeout(time.Second))
	_, err := c.Servers(context.Background())
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, "network error: please check your connection", err.Error())

	assert.True(t, IsNetwork(c.Ping(context.Background())))
}

func TestCanceledRequestIsNotNetworkError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Servers(ctx)
	require.Error(t, err)
	assert.False(t, IsNetwork(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPingUsesHead(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, c.Ping(context.Background()))
}

func TestCreateAndDelete(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req models.ServerRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeJSON(w, http.StatusCreated, map[string]any{
				"data":    models.Server{ID: 7, Name: req.Name, Type: req.Type},
				"message": "Server created successfully",
			})
		case http.MethodDelete:
			assert.Equal(t, "/api/admin/servers/7", r.URL.Path)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Server deleted successfully"})
		}
	})

	srv, err := c.CreateServer(context.Background(), models.ServerRequest{Name: "New", Type: models.TypeCS2})
	require.NoError(t, err)
	assert.Equal(t, uint(7), srv.ID)

	require.NoError(t, c.DeleteServer(context.Background(), 7))
}
