// Package config handles the parsing of application configuration
// from command-line arguments and environment variables.
package config

import (
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/gsdash/internal/dashboard"
	"github.com/woozymasta/gsdash/internal/logger"
	"github.com/woozymasta/gsdash/internal/probe"
)

// Config represents the global flags shared by every command.
type Config struct {
	// betteralign:ignore

	API     API           `group:"API Options" namespace:"api" env-namespace:"GSDASH_API"`
	Storage Storage       `group:"Storage Options" namespace:"db" env-namespace:"GSDASH_DB"`
	Refresh Refresh       `group:"Refresh Options" namespace:"refresh" env-namespace:"GSDASH_REFRESH"`
	GeoIP   GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"GSDASH_GEOIP"`
	Probe   Probe         `group:"Probe Options" namespace:"probe" env-namespace:"GSDASH_PROBE"`
	Logger  logger.Config `group:"Logger Options" namespace:"log" env-namespace:"GSDASH_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// API holds the monitoring API connection settings.
type API struct {
	// betteralign:ignore

	URL       string        `short:"u" long:"url" env:"URL" description:"Monitoring API base URL" default:"http://localhost:8080"`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" description:"Request timeout" default:"10s"`
	RateLimit float64       `long:"rate-limit" env:"RATE_LIMIT" description:"Max outbound requests per second, 0 disables" default:"5"`
	Burst     int           `long:"burst" env:"BURST" description:"Outbound request burst" default:"10"`
}

// Storage holds local database configuration.
type Storage struct {
	// betteralign:ignore

	Path     string `short:"d" long:"path" env:"PATH" description:"Path to SQLite database with session and last snapshot" default:"gsdash.db"`
	InMemory bool   `long:"in-memory" env:"IN_MEMORY" description:"Keep the session in memory and do not persist snapshots"`
}

// Refresh holds auto-refresh and reconnection settings.
type Refresh struct {
	// betteralign:ignore

	Interval      time.Duration `long:"interval" env:"INTERVAL" description:"Auto-refresh interval" default:"30s"`
	MaxRetries    int           `long:"max-retries" env:"MAX_RETRIES" description:"Failed attempts before auto-refresh gives up" default:"3"`
	ProbeInterval time.Duration `long:"probe-interval" env:"PROBE_INTERVAL" description:"Reconnection probe interval while offline" default:"5s"`
	Disabled      bool          `long:"disabled" env:"DISABLED" description:"Start with auto-refresh paused"`
}

// GeoIP holds MaxMind GeoIP configuration. An empty path disables lookups.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"168h"`
}

// Probe holds direct game server query settings.
type Probe struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"A2S response buffer size" default:"1400"`
	Workers    int           `long:"workers" env:"WORKERS" description:"Concurrent probes for batch checks" default:"10"`
}

// NewParser creates the flags parser bound to cfg. Commands are added by the caller.
func NewParser(cfg *Config) *flags.Parser {
	parser := flags.NewParser(cfg, flags.Default)
	parser.NamespaceDelimiter = "-"
	parser.SubcommandsOptional = true
	parser.ShortDescription = "Game server monitoring dashboard"
	parser.LongDescription = "Browse Minecraft and CS2 servers reported by the monitoring API and manage them as admin."

	return parser
}

// Dashboard returns the dashboard options. autoRefresh is overridden by Refresh.Disabled.
func (c *Config) Dashboard(autoRefresh bool) dashboard.Options {
	opts := dashboard.Options{
		APIURL:          c.API.URL,
		DBPath:          c.Storage.Path,
		Timeout:         c.API.Timeout,
		RateLimit:       c.API.RateLimit,
		Burst:           c.API.Burst,
		RefreshInterval: c.Refresh.Interval,
		ProbeInterval:   c.Refresh.ProbeInterval,
		MaxRetries:      c.Refresh.MaxRetries,
		AutoRefresh:     autoRefresh && !c.Refresh.Disabled,
	}
	if c.Storage.InMemory {
		opts.DBPath = ""
	}

	return opts
}

// ProbeOptions returns the direct query options.
func (c *Config) ProbeOptions() probe.Options {
	return probe.Options{
		Timeout:    c.Probe.Timeout,
		BufferSize: c.Probe.BufferSize,
	}
}
