// Package display derives the presentation values shown for servers:
// ping quality, player load and dashboard summary figures.
package display

import (
	"math"

	"github.com/woozymasta/gsdash/internal/models"
)

// PingInfo describes how a ping value is rendered.
type PingInfo struct {
	Quality string
	Bars    int
}

// Ping returns the rendering of ping. ok is false when ping <= 0 (offline or
// unknown), in which case nothing is rendered.
func Ping(ping int64) (info PingInfo, ok bool) {
	switch {
	case ping <= 0:
		return PingInfo{}, false
	case ping <= 50:
		return PingInfo{Quality: "excellent", Bars: 4}, true
	case ping <= 100:
		return PingInfo{Quality: "good", Bars: 3}, true
	case ping <= 200:
		return PingInfo{Quality: "fair", Bars: 2}, true
	default:
		return PingInfo{Quality: "poor", Bars: 1}, true
	}
}

// Load levels for the player bar.
const (
	LoadNormal   = "normal"
	LoadBusy     = "busy"
	LoadCritical = "critical"
)

// Players describes the player count bar of a server.
type Players struct {
	Capacity string
	Level    string
	Current  int
	Max      int
	Percent  int // round(current/max*100), may exceed 100
	Width    int // Percent clamped to [0,100]
}

// PlayerLoad computes the player bar for current/max players.
func PlayerLoad(current, maxPlayers int) Players {
	p := Players{Current: current, Max: maxPlayers}
	if maxPlayers > 0 {
		p.Percent = int(math.Round(float64(current) / float64(maxPlayers) * 100))
	}
	p.Width = min(max(p.Percent, 0), 100)

	switch {
	case p.Percent >= 90:
		p.Level = LoadCritical
	case p.Percent >= 70:
		p.Level = LoadBusy
	default:
		p.Level = LoadNormal
	}

	switch {
	case p.Percent >= 95:
		p.Capacity = "nearly full"
	case p.Percent >= 80:
		p.Capacity = "crowded"
	case p.Percent >= 50:
		p.Capacity = "moderate"
	case p.Percent > 0:
		p.Capacity = "quiet"
	default:
		p.Capacity = "empty"
	}

	return p
}

// Summary aggregates a server list for the dashboard header.
type Summary struct {
	ByType         map[string]int
	Total          int
	Online         int
	AverageLatency int64
}

// Summarize computes totals over servers. The average latency is taken over
// all servers, counting unknown pings as zero.
func Summarize(servers []models.ServerWithStatus) Summary {
	s := Summary{Total: len(servers), ByType: map[string]int{}}

	var sum int64
	for _, srv := range servers {
		if srv.Status.Online {
			s.Online++
		}
		if srv.Status.Ping > 0 {
			sum += srv.Status.Ping
		}
		s.ByType[srv.Type]++
	}
	if s.Total > 0 {
		s.AverageLatency = int64(math.Round(float64(sum) / float64(s.Total)))
	}

	return s
}

// CountByType counts admin server records per type.
func CountByType(servers []models.Server) map[string]int {
	out := map[string]int{}
	for _, s := range servers {
		out[s.Type]++
	}

	return out
}
