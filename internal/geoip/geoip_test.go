package geoip

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	codes   map[string]string
	lookups int
}

func (f *fakeDB) Country(ip net.IP) (*geoip2.Country, error) {
	f.lookups++
	code, ok := f.codes[ip.String()]
	if !ok {
		return nil, errors.New("not found")
	}

	rec := &geoip2.Country{}
	rec.Country.IsoCode = code
	rec.Country.Names = map[string]string{"en": "Germany"}

	return rec, nil
}

func (f *fakeDB) Close() error { return nil }

type fakeResolver map[string][]net.IP

func (f fakeResolver) LookupIP(_ context.Context, _, host string) ([]net.IP, error) {
	ips, ok := f[host]
	if !ok {
		return nil, errors.New("no such host")
	}

	return ips, nil
}

func TestLookup(t *testing.T) {
	db := &fakeDB{codes: map[string]string{"10.0.0.1": "DE"}}
	p := newProvider(db, fakeResolver{
		"mc.example.net": {net.ParseIP("2001:db8::1"), net.ParseIP("10.0.0.1")},
	})

	assert.Equal(t, Country{Code: "DE", Name: "Germany"}, p.Lookup(context.Background(), "10.0.0.1"))
	assert.Equal(t, "Germany (DE)", p.Lookup(context.Background(), "mc.example.net").String())
	assert.Equal(t, Country{}, p.Lookup(context.Background(), "unknown.example.net"))
	assert.Equal(t, Country{}, p.Lookup(context.Background(), "10.9.9.9"))

	// cached
	p.Lookup(context.Background(), "mc.example.net")
	assert.Equal(t, 3, db.lookups)
}

func TestCountryString(t *testing.T) {
	assert.Empty(t, Country{}.String())
	assert.Equal(t, "DE", Country{Code: "DE"}.String())
}

func TestEnsureDB(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Contains(t, r.Header.Get("User-Agent"), "gsdash/")
		_, _ = w.Write([]byte("mmdb"))
	}))
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "GeoLite2-Country.mmdb")
	ctx := context.Background()

	require.NoError(t, EnsureDB(ctx, path, ts.URL, time.Hour))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mmdb", string(data))

	require.NoError(t, EnsureDB(ctx, path, ts.URL, time.Hour))
	assert.Equal(t, 1, hits)

	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	require.NoError(t, EnsureDB(ctx, path, ts.URL, time.Hour))
	assert.Equal(t, 2, hits)
}

func TestEnsureDBHTTPError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "db.mmdb")
	require.Error(t, EnsureDB(context.Background(), path, ts.URL, time.Hour))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
