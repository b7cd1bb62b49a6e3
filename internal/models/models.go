// Package models defines the data structures exchanged with the monitoring API
// and persisted locally by gsdash.
package models

import "time"

// Game server types known to the monitoring API.
const (
	TypeMinecraft = "minecraft"
	TypeCS2       = "cs2"
)

// Server is a game server record as stored by the monitoring API.
type Server struct {
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Address     string    `json:"address"`
	Description string    `json:"description"`
	DownloadURL string    `json:"download_url"`
	Changelog   string    `json:"changelog"`
	Version     string    `json:"version"`
	ID          uint      `json:"id"`
	Port        int       `json:"port"`
}

// ServerStatus is the live status reported for a server.
// It is replaced wholesale on every fetch, never merged.
type ServerStatus struct {
	LastUpdated time.Time `json:"last_updated"`
	Version     string    `json:"version"`
	Ping        int64     `json:"ping"` // ms, <= 0 means unknown or offline
	Players     int       `json:"players"`
	MaxPlayers  int       `json:"max_players"`
	Online      bool      `json:"online"`
}

// ServerWithStatus combines a server record with its current status.
type ServerWithStatus struct {
	Status ServerStatus `json:"status"`
	Server
}

// Envelope is the wrapper returned by every API route.
type Envelope[T any] struct {
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Username string `json:"username" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required" validate:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
}

// ServerRequest is the payload for creating or updating a server.
type ServerRequest struct {
	Name        string `json:"name" binding:"required" validate:"required,max=100"`
	Type        string `json:"type" binding:"required,oneof=minecraft cs2" validate:"required,oneof=minecraft cs2"`
	Address     string `json:"address" binding:"required" validate:"required,gameaddr"`
	Description string `json:"description" validate:"max=1000"`
	DownloadURL string `json:"download_url" validate:"omitempty,httpurl"`
	Changelog   string `json:"changelog" validate:"max=20000"`
	Port        int    `json:"port" binding:"required,min=1,max=65535" validate:"min=1,max=65535"`
}

// ChangePasswordRequest is the payload for changing the admin password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=6"`
}

// RequestFromServer builds an update payload carrying the current values of s.
func RequestFromServer(s Server) ServerRequest {
	return ServerRequest{
		Name:        s.Name,
		Type:        s.Type,
		Address:     s.Address,
		Port:        s.Port,
		Description: s.Description,
		DownloadURL: s.DownloadURL,
		Changelog:   s.Changelog,
	}
}
