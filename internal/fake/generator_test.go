package fake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/validate"
)

func TestServersAreValid(t *testing.T) {
	reqs := Servers(8)
	require.Len(t, reqs, 8)

	for i, req := range reqs {
		require.NoError(t, validate.Server(&req), req.Name)
		if i%2 == 0 {
			assert.Equal(t, models.TypeMinecraft, req.Type)
		} else {
			assert.Equal(t, models.TypeCS2, req.Type)
		}
	}
}

func TestStatusBounds(t *testing.T) {
	srv := models.Server{ID: 1, Type: models.TypeCS2}

	for range 200 {
		st := Status(srv)
		if !st.Online {
			assert.Zero(t, st.Players)
			continue
		}
		assert.LessOrEqual(t, st.Players, st.MaxPlayers)
		assert.Positive(t, st.Ping)
		assert.NotEmpty(t, st.Version)
	}
}

func TestStatusesCoversAll(t *testing.T) {
	servers := []models.Server{{ID: 1}, {ID: 5, Type: models.TypeCS2}}
	statuses := Statuses(servers)
	assert.Len(t, statuses, 2)
	assert.Contains(t, statuses, uint(5))
}
