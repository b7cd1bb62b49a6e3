// Package probe queries game servers directly, bypassing the monitoring API:
// CS2 through the Source Engine Query (A2S) protocol and Minecraft through the
// Server List Ping protocol.
package probe

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/a2s/pkg/a2s"
	"github.com/woozymasta/gsdash/internal/models"
)

// Options tunes the probes.
type Options struct {
	Timeout    time.Duration
	BufferSize uint16
}

// DefaultOptions matches the CLI defaults.
func DefaultOptions() Options {
	return Options{Timeout: 3 * time.Second, BufferSize: 1400}
}

// Server probes s according to its type.
func Server(ctx context.Context, s models.Server, opts Options) (*models.ServerStatus, error) {
	switch s.Type {
	case models.TypeCS2:
		return CS2(ctx, s.Address, s.Port, opts)
	case models.TypeMinecraft:
		return Minecraft(ctx, s.Address, s.Port, opts)
	default:
		return nil, fmt.Errorf("unknown server type %q", s.Type)
	}
}

// CS2 connects to a game server via UDP and requests A2S_INFO.
func CS2(ctx context.Context, host string, port int, opts Options) (*models.ServerStatus, error) {
	ip, err := resolveIPv4(ctx, host)
	if err != nil {
		return nil, err
	}

	client, err := a2s.New(ip, port)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Close() }()

	if opts.BufferSize > 0 {
		client.BufferSize = opts.BufferSize
	}
	client.Timeout = opts.Timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < client.Timeout || client.Timeout == 0 {
			client.Timeout = left
		}
	}

	start := time.Now()
	info, err := client.GetInfo()
	if err != nil {
		return nil, fmt.Errorf("query CS2 server %s:%d: %w", host, port, err)
	}

	return &models.ServerStatus{
		Online:      true,
		Players:     int(info.Players),
		MaxPlayers:  int(info.MaxPlayers),
		Version:     info.Version,
		Ping:        max(time.Since(start).Milliseconds(), 1),
		LastUpdated: time.Now(),
	}, nil
}

func resolveIPv4(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		if ip.To4() == nil {
			return "", fmt.Errorf("IPv6 address %s is not supported by A2S", host)
		}
		return ip.String(), nil
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", host)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(ips) == 0 {
		return "", fmt.Errorf("resolve %s: no IPv4 address", host)
	}

	return ips[0].String(), nil
}

// Result is the outcome of probing one server in a batch.
type Result struct {
	Err    error
	Status *models.ServerStatus
	Server models.Server
}

// All probes servers with a fixed pool of workers. Results keep input order.
func All(ctx context.Context, servers []models.Server, opts Options, workers int) []Result {
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(servers))
	jobs := make(chan int, len(servers))
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				srv := servers[idx]
				st, err := Server(ctx, srv, opts)
				results[idx] = Result{Server: srv, Status: st, Err: err}

				log.Debug().
					Err(err).
					Uint("id", srv.ID).
					Str("address", srv.Address).
					Int("port", srv.Port).
					Msg("Server probed")
			}
		}()
	}

	for i := range servers {
		jobs <- i
	}
	close(jobs)

	wg.Wait()

	return results
}
