// Package mockapi is a reference implementation of the monitoring REST API.
// It keeps servers and the admin account in memory and simulates live
// statuses, or probes the game servers when running in live mode. It serves
// development (gsdash mock-api) and tests through httptest.
package mockapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/fake"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/probe"
)

// TokenTTL is the lifetime of issued bearer tokens.
const TokenTTL = 24 * time.Hour

// Config holds the reference API settings.
type Config struct {
	// betteralign:ignore

	Address         string        `short:"l" long:"address" env:"ADDRESS" description:"Listen address" default:":8080"`
	Secret          string        `long:"secret" env:"SECRET" description:"HS256 secret for issued tokens" default:"gsdash-dev-secret"`
	AdminUser       string        `long:"admin-user" env:"ADMIN_USER" description:"Admin username" default:"admin"`
	AdminPassword   string        `long:"admin-password" env:"ADMIN_PASSWORD" description:"Admin password" default:"admin123"`
	RateLimitCount  int           `long:"rate-limit-count" env:"RATE_LIMIT_COUNT" description:"Requests per IP and window, 0 disables" default:"20"`
	RateLimitWindow time.Duration `long:"rate-limit-window" env:"RATE_LIMIT_WINDOW" description:"Rate limit window" default:"10s"`
	StatusTTL       time.Duration `long:"status-ttl" env:"STATUS_TTL" description:"How long a server status is reused" default:"10s"`
	Seed            int           `long:"seed" env:"SEED" description:"Number of random servers created on start" default:"6"`
	Live            bool          `long:"live" env:"LIVE" description:"Probe the game servers instead of simulating statuses"`
}

// StatusFunc produces live statuses for servers, keyed by server ID.
type StatusFunc func(ctx context.Context, servers []models.Server) map[uint]models.ServerStatus

// Server is the reference API.
type Server struct {
	store    *memStore
	statuses *cache.Cache
	status   StatusFunc
	now      func() time.Time
	secret   []byte
	cfg      Config
}

// New creates the API and seeds it with cfg.Seed random servers.
func New(cfg Config) (*Server, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 10 * time.Second
	}

	store, err := newMemStore(cfg.AdminUser, cfg.AdminPassword)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		secret:   []byte(cfg.Secret),
		statuses: cache.New(cfg.StatusTTL, 2*cfg.StatusTTL),
		status:   simulated,
		now:      time.Now,
	}
	if cfg.Live {
		s.status = probed(probe.DefaultOptions())
	}

	for _, req := range fake.Servers(cfg.Seed) {
		s.store.create(req, s.now())
	}

	return s, nil
}

// SetStatusFunc replaces the status source and drops cached statuses.
func (s *Server) SetStatusFunc(fn StatusFunc) {
	s.status = fn
	s.statuses.Flush()
}

// Handler builds the gin router.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), s.loggingMiddleware())
	if s.cfg.RateLimitCount > 0 {
		r.Use(rateLimitMiddleware(s.cfg.RateLimitCount, s.cfg.RateLimitWindow))
	}

	api := r.Group("/api")
	api.GET("/servers", s.listServers)
	api.HEAD("/servers", func(c *gin.Context) { c.Status(http.StatusOK) })
	api.GET("/servers/:id", s.getServer)
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.authMiddleware())
	authed.POST("/auth/change-password", s.changePassword)

	admin := authed.Group("/admin")
	admin.GET("/servers", s.adminServers)
	admin.POST("/servers", s.createServer)
	admin.PUT("/servers/:id", s.updateServer)
	admin.DELETE("/servers/:id", s.deleteServer)

	return r
}

// Run serves the API on cfg.Address until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", s.cfg.Address).Msg("Reference API listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down reference API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(shutdownCtx)
}

func simulated(_ context.Context, servers []models.Server) map[uint]models.ServerStatus {
	return fake.Statuses(servers)
}

func probed(opts probe.Options) StatusFunc {
	return func(ctx context.Context, servers []models.Server) map[uint]models.ServerStatus {
		out := make(map[uint]models.ServerStatus, len(servers))
		for _, res := range probe.All(ctx, servers, opts, 10) {
			if res.Err != nil || res.Status == nil {
				out[res.Server.ID] = models.ServerStatus{LastUpdated: time.Now()}
				continue
			}
			out[res.Server.ID] = *res.Status
		}

		return out
	}
}
