package display

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/probe"
)

func TestPing(t *testing.T) {
	tests := []struct {
		quality string
		ping    int64
		bars    int
		ok      bool
	}{
		{ping: 0},
		{ping: -5},
		{ping: 1, quality: "excellent", bars: 4, ok: true},
		{ping: 50, quality: "excellent", bars: 4, ok: true},
		{ping: 51, quality: "good", bars: 3, ok: true},
		{ping: 100, quality: "good", bars: 3, ok: true},
		{ping: 101, quality: "fair", bars: 2, ok: true},
		{ping: 200, quality: "fair", bars: 2, ok: true},
		{ping: 201, quality: "poor", bars: 1, ok: true},
	}

	for _, tt := range tests {
		info, ok := Ping(tt.ping)
		assert.Equal(t, tt.ok, ok, "ping %d", tt.ping)
		assert.Equal(t, tt.quality, info.Quality, "ping %d", tt.ping)
		assert.Equal(t, tt.bars, info.Bars, "ping %d", tt.ping)
	}

	assert.Empty(t, PingText(0))
	assert.Equal(t, "42ms excellent ||||", PingText(42))
}

func TestPlayerLoad(t *testing.T) {
	p := PlayerLoad(15, 20)
	assert.Equal(t, 75, p.Percent)
	assert.Equal(t, 75, p.Width)
	assert.Equal(t, LoadBusy, p.Level)
	assert.Equal(t, "moderate", p.Capacity)

	p = PlayerLoad(25, 20)
	assert.Equal(t, 125, p.Percent)
	assert.Equal(t, 100, p.Width)
	assert.Equal(t, LoadCritical, p.Level)
	assert.Equal(t, "nearly full", p.Capacity)

	p = PlayerLoad(0, 0)
	assert.Equal(t, 0, p.Percent)
	assert.Equal(t, LoadNormal, p.Level)
	assert.Equal(t, "empty", p.Capacity)

	assert.Equal(t, 67, PlayerLoad(2, 3).Percent)
	assert.Equal(t, "crowded", PlayerLoad(17, 20).Capacity)
	assert.Equal(t, "quiet", PlayerLoad(1, 20).Capacity)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "[----------]", Bar(0))
	assert.Equal(t, "[#####-----]", Bar(50))
	assert.Equal(t, "[##########]", Bar(100))
	assert.Equal(t, "[##########]", Bar(150))
}

func testServers() []models.ServerWithStatus {
	return []models.ServerWithStatus{
		{
			Server: models.Server{ID: 2, Name: "Retakes", Type: models.TypeCS2, Address: "10.0.0.2", Port: 27015},
			Status: models.ServerStatus{Online: true, Ping: 40, Players: 5, MaxPlayers: 10, Version: "1.40.1.3"},
		},
		{
			Server: models.Server{ID: 1, Name: "Survival", Type: models.TypeMinecraft, Address: "mc.example.com", Port: 25565},
			Status: models.ServerStatus{Online: true, Ping: 80, Players: 3, MaxPlayers: 20},
		},
		{
			Server: models.Server{ID: 3, Name: "Creative", Type: models.TypeMinecraft, Address: "mc2.example.com", Port: 25565},
		},
	}
}

func TestSummarize(t *testing.T) {
	sum := Summarize(testServers())

	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Online)
	assert.Equal(t, int64(40), sum.AverageLatency)
	assert.Equal(t, 2, sum.ByType[models.TypeMinecraft])
	assert.Equal(t, 1, sum.ByType[models.TypeCS2])

	assert.Equal(t, int64(0), Summarize(nil).AverageLatency)
}

func TestServersTableIsSortedByID(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Servers(&buf, testServers()))

	out := buf.String()
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("Survival")), bytes.Index(buf.Bytes(), []byte("Retakes")))
	assert.Contains(t, out, "mc.example.com:25565")
	assert.Contains(t, out, "offline")
}

func TestServerDetail(t *testing.T) {
	srv := testServers()[1]
	srv.Changelog = "- first release\n"
	srv.Status.LastUpdated = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, Server(&buf, srv, "DE"))

	out := buf.String()
	assert.Contains(t, out, "Country:")
	assert.Contains(t, out, "DE")
	assert.Contains(t, out, "Changelog:\n- first release\n")
	assert.NotContains(t, out, "Download:")
}

func TestFooter(t *testing.T) {
	var buf bytes.Buffer
	Footer(&buf, WatchInfo{
		Err:        assert.AnError,
		RetryCount: 3,
		Exhausted:  true,
		Stale:      true,
	})

	out := buf.String()
	assert.Contains(t, out, "updated: never (stale)")
	assert.Contains(t, out, "offline: waiting for connection")
	assert.Contains(t, out, "gave up after 3 attempts, press r to retry")
}

func TestProbes(t *testing.T) {
	var buf bytes.Buffer
	err := Probes(&buf, []probe.Result{
		{
			Server: models.Server{ID: 1, Name: "Survival", Address: "10.0.0.1", Port: 25565},
			Status: &models.ServerStatus{Online: true, Players: 3, MaxPlayers: 20, Ping: 15, Version: "1.21.1"},
		},
		{
			Server: models.Server{ID: 2, Address: "10.0.0.2", Port: 27015},
			Err:    errors.New("i/o timeout"),
		},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "3/20")
	assert.Contains(t, out, "10.0.0.2:27015")
	assert.Contains(t, out, "i/o timeout")
	assert.Contains(t, out, "reachable: 1/2")
}
