package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/dashboard"
	"github.com/woozymasta/gsdash/internal/display"
	"github.com/woozymasta/gsdash/internal/geoip"
	"github.com/woozymasta/gsdash/internal/store"
)

type listCmd struct {
	app  *app
	JSON bool `long:"json" description:"Print JSON instead of a table"`
}

func (c *listCmd) Execute(_ []string) error {
	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	err = d.Servers.FetchWithRetry(c.app.ctx)
	st := d.Servers.State()
	if err != nil {
		if len(st.Servers) == 0 {
			return err
		}
		log.Warn().Err(err).Time("fetched_at", st.LastUpdated).Msg("Showing last saved server list")
	}

	if c.JSON {
		return c.app.printJSON(st.Servers)
	}

	display.Header(c.app.out, st.Servers)
	return display.Servers(c.app.out, st.Servers)
}

type showCmd struct {
	app  *app
	Args struct {
		ID uint `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`
	JSON bool `long:"json" description:"Print JSON instead of text"`
}

func (c *showCmd) Execute(_ []string) error {
	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	srv, err := d.Servers.Get(c.app.ctx, c.Args.ID)
	if err != nil {
		if srv.ID == 0 {
			return err
		}
		log.Warn().Err(err).Msg("Showing server from last saved list")
	}

	if c.JSON {
		return c.app.printJSON(srv)
	}

	return display.Server(c.app.out, srv, c.country(srv.Address))
}

// country resolves the server address when a GeoIP database is configured.
func (c *showCmd) country(host string) string {
	cfg := c.app.cfg.GeoIP
	if cfg.Path == "" {
		return ""
	}

	if err := geoip.EnsureDB(c.app.ctx, cfg.Path, cfg.URL, cfg.Interval); err != nil {
		log.Warn().Err(err).Msg("Failed to download GeoIP database")
	}

	geo, err := geoip.Open(cfg.Path)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to open GeoIP database, country detection disabled")
		return ""
	}
	defer func() { _ = geo.Close() }()

	return geo.Lookup(c.app.ctx, host).String()
}

type watchCmd struct {
	app *app
}

func (c *watchCmd) Execute(_ []string) error {
	d, err := c.app.open(true)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	changed := make(chan struct{}, 1)
	poke := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}
	stopSub := d.Servers.Subscribe(func(store.ServersState) { poke() })
	defer stopSub()
	stopNet := d.Monitor.OnChange(func(bool) { poke() })
	defer stopNet()

	keys := readKeys(c.app.ctx)
	d.Start()

	var last string
	c.render(d, &last)

	// picks up monitor state that has no change callback, e.g. reconnecting
	tick := time.NewTicker(time.Second)
	defer tick.Stop()

	for {
		select {
		case <-c.app.ctx.Done():
			return nil

		case <-tick.C:
			c.render(d, &last)

		case <-changed:
			c.render(d, &last)

		case key, ok := <-keys:
			if !ok {
				keys = nil
				continue
			}
			switch key {
			case "q":
				return nil
			case "r":
				d.Go(func(ctx context.Context) {
					if err := d.Refresher.RefreshNow(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Debug().Err(err).Msg("Manual refresh failed")
					}
				})
			case "p":
				enabled := d.Refresher.Toggle()
				log.Info().Bool("enabled", enabled).Msg("Auto-refresh toggled")
				poke()
			}
		}
	}
}

// render redraws the view when something visible changed.
func (c *watchCmd) render(d *dashboard.Dashboard, last *string) {
	st := d.Servers.State()
	if st.Loading {
		return
	}

	info := display.WatchInfo{
		LastUpdated:  st.LastUpdated,
		NextRefresh:  d.Refresher.TimeUntilNext(),
		Err:          st.Err,
		RetryCount:   st.RetryCount,
		MaxRetries:   c.app.cfg.Refresh.MaxRetries,
		Online:       d.Monitor.Online(),
		Reconnecting: d.Monitor.Reconnecting(),
		AutoRefresh:  d.Refresher.IsEnabled(),
		Stale:        st.Stale,
		Exhausted:    st.Exhausted,
	}

	key := watchKey(st, info)
	if key == *last {
		return
	}
	*last = key

	var b strings.Builder
	b.WriteString("\n")
	display.Header(&b, st.Servers)
	_ = display.Servers(&b, st.Servers)
	display.Footer(&b, info)

	_, _ = fmt.Fprint(c.app.out, b.String())
}

// watchKey identifies what the view shows; an unchanged key skips the redraw.
func watchKey(st store.ServersState, info display.WatchInfo) string {
	return fmt.Sprintf("%x|%v|%d|%t|%t|%t|%t|%t|%s", st.Fingerprint, st.Err, st.RetryCount,
		info.Online, info.Reconnecting, info.AutoRefresh, st.Stale, st.Exhausted, st.LastUpdated)
}

// readKeys delivers trimmed input lines until stdin is closed.
func readKeys(ctx context.Context) <-chan string {
	ch := make(chan string)

	go func() {
		defer close(ch)
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			select {
			case ch <- strings.ToLower(strings.TrimSpace(sc.Text())):
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch
}
