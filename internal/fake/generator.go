// Package fake generates random game servers and live statuses for the
// reference API and for development.
package fake

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/woozymasta/gsdash/internal/models"
)

var (
	mcNames   = []string{"Survival", "Creative", "SkyBlock", "Hardcore", "Modded", "Vanilla+"}
	mcVers    = []string{"1.20.4", "1.20.6", "1.21.1", "1.21.4"}
	cs2Names  = []string{"Competitive", "Deathmatch", "Retakes", "Surf", "Arena", "Wingman"}
	cs2Vers   = []string{"1.40.1.3", "1.40.2.1", "1.40.3.0"}
	hostZones = []string{"eu", "us", "asia", "ru"}
)

// Servers returns count random create requests, alternating between
// Minecraft and CS2.
func Servers(count int) []models.ServerRequest {
	reqs := make([]models.ServerRequest, 0, count)

	for i := 0; i < count; i++ {
		req := models.ServerRequest{
			Address: fmt.Sprintf("%s%d.%s.example.net", "node", rand.Intn(90)+10, hostZones[rand.Intn(len(hostZones))]),
		}

		if i%2 == 0 {
			req.Type = models.TypeMinecraft
			req.Name = fmt.Sprintf("MC %s #%d", mcNames[rand.Intn(len(mcNames))], i+1)
			req.Port = 25565
			req.Description = "Minecraft server, whitelist off"
			req.DownloadURL = "https://example.net/modpacks/latest.zip"
			req.Changelog = "- Updated modpack\n- Fixed spawn chunks"
		} else {
			req.Type = models.TypeCS2
			req.Name = fmt.Sprintf("CS2 %s #%d", cs2Names[rand.Intn(len(cs2Names))], i+1)
			req.Port = 27015 + rand.Intn(10)
			req.Description = "128 tick community server"
		}

		reqs = append(reqs, req)
	}

	return reqs
}

// Status returns a random status for s. About one server in six is offline.
func Status(s models.Server) models.ServerStatus {
	st := models.ServerStatus{LastUpdated: time.Now()}

	// offline
	if rand.Intn(6) == 0 {
		return st
	}

	st.Online = true
	switch s.Type {
	case models.TypeCS2:
		st.MaxPlayers = 10 + 2*rand.Intn(6)
		st.Version = cs2Vers[rand.Intn(len(cs2Vers))]
	default:
		st.MaxPlayers = 20 * (1 + rand.Intn(5))
		st.Version = mcVers[rand.Intn(len(mcVers))]
	}
	st.Players = rand.Intn(st.MaxPlayers + 1)

	// mostly low latency with a long tail
	roll := rand.Float32()
	switch {
	case roll < 0.5:
		st.Ping = int64(5 + rand.Intn(45))
	case roll < 0.8:
		st.Ping = int64(51 + rand.Intn(50))
	case roll < 0.95:
		st.Ping = int64(101 + rand.Intn(100))
	default:
		st.Ping = int64(201 + rand.Intn(300))
	}

	return st
}

// Statuses returns a random status for every server, keyed by ID.
func Statuses(servers []models.Server) map[uint]models.ServerStatus {
	out := make(map[uint]models.ServerStatus, len(servers))
	for _, s := range servers {
		out[s.ID] = Status(s)
	}

	return out
}
