package mockapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/validate"
)

func (s *Server) listServers(c *gin.Context) {
	servers := s.store.list()
	statuses := s.statusFor(c, servers)

	out := make([]models.ServerWithStatus, 0, len(servers))
	for _, srv := range servers {
		out = append(out, models.ServerWithStatus{Server: srv, Status: statuses[srv.ID]})
	}

	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (s *Server) getServer(c *gin.Context) {
	id, ok := serverID(c)
	if !ok {
		return
	}

	srv, err := s.store.get(id)
	if err != nil {
		abortError(c, http.StatusNotFound, "Server not found", err.Error())
		return
	}

	statuses := s.statusFor(c, []models.Server{srv})
	c.JSON(http.StatusOK, gin.H{"data": models.ServerWithStatus{Server: srv, Status: statuses[id]}})
}

// statusFor returns cached statuses and computes the missing ones.
func (s *Server) statusFor(c *gin.Context, servers []models.Server) map[uint]models.ServerStatus {
	out := make(map[uint]models.ServerStatus, len(servers))
	var missing []models.Server

	for _, srv := range servers {
		if v, ok := s.statuses.Get(statusKey(srv.ID)); ok {
			out[srv.ID] = v.(models.ServerStatus)
			continue
		}
		missing = append(missing, srv)
	}

	if len(missing) == 0 {
		return out
	}

	for id, st := range s.status(c.Request.Context(), missing) {
		s.statuses.SetDefault(statusKey(id), st)
		out[id] = st
	}

	return out
}

func statusKey(id uint) string {
	return "status_" + strconv.FormatUint(uint64(id), 10)
}

func (s *Server) login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	u, err := s.store.authenticate(req.Username, req.Password)
	if err != nil {
		log.Warn().Str("username", req.Username).Str("ip", c.ClientIP()).Msg("Failed login attempt")
		abortError(c, http.StatusUnauthorized, "Authentication failed", "Invalid username or password")
		return
	}

	token, expiresAt, err := s.issueToken(u)
	if err != nil {
		abortError(c, http.StatusInternalServerError, "Token generation failed", "Failed to generate authentication token")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{Token: token, ExpiresAt: expiresAt})
}

func (s *Server) changePassword(c *gin.Context) {
	claims, ok := claimsFrom(c)
	if !ok {
		abortError(c, http.StatusUnauthorized, "Unauthorized", "user not found in context")
		return
	}

	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	if _, err := s.store.authenticate(claims.Username, req.CurrentPassword); err != nil {
		abortError(c, http.StatusBadRequest, "Password change failed", "Current password is incorrect")
		return
	}

	if err := s.store.setPassword(claims.Username, req.NewPassword); err != nil {
		abortError(c, http.StatusInternalServerError, "Password change failed", err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (s *Server) adminServers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.store.list()})
}

func (s *Server) createServer(c *gin.Context) {
	req, ok := bindServer(c)
	if !ok {
		return
	}

	srv := s.store.create(req, s.now())
	log.Info().Uint("id", srv.ID).Str("name", srv.Name).Msg("Server created")

	c.JSON(http.StatusCreated, gin.H{
		"data":    srv,
		"message": "Server created successfully",
	})
}

func (s *Server) updateServer(c *gin.Context) {
	id, ok := serverID(c)
	if !ok {
		return
	}

	req, ok := bindServer(c)
	if !ok {
		return
	}

	srv, err := s.store.update(id, req, s.now())
	if err != nil {
		abortError(c, http.StatusNotFound, "Server update failed", err.Error())
		return
	}
	s.statuses.Delete(statusKey(id))

	c.JSON(http.StatusOK, gin.H{
		"data":    srv,
		"message": "Server updated successfully",
	})
}

func (s *Server) deleteServer(c *gin.Context) {
	id, ok := serverID(c)
	if !ok {
		return
	}

	if err := s.store.delete(id); err != nil {
		abortError(c, http.StatusNotFound, "Server deletion failed", err.Error())
		return
	}
	s.statuses.Delete(statusKey(id))
	log.Info().Uint("id", id).Msg("Server deleted")

	c.JSON(http.StatusOK, gin.H{"message": "Server deleted successfully"})
}

func serverID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		abortError(c, http.StatusBadRequest, "Invalid server ID", "Server ID must be a valid number")
		return 0, false
	}

	return uint(id), true
}

// bindServer decodes and validates a server payload with the same rules the client applies.
func bindServer(c *gin.Context) (models.ServerRequest, bool) {
	var req models.ServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Invalid request", err.Error())
		return req, false
	}

	if err := validate.Server(&req); err != nil {
		abortError(c, http.StatusBadRequest, "Validation failed", err.Error())
		return req, false
	}

	return req, true
}
