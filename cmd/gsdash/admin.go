package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/dashboard"
	"github.com/woozymasta/gsdash/internal/display"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/probe"
	"github.com/woozymasta/gsdash/internal/store"
	"github.com/woozymasta/gsdash/internal/validate"
)

// openAdmin opens the dashboard and requires a valid session.
func (a *app) openAdmin() (*dashboard.Dashboard, error) {
	d, err := a.open(false)
	if err != nil {
		return nil, err
	}
	if !d.Auth.Check(a.ctx) {
		_ = d.Close()
		return nil, store.ErrNotAuthenticated
	}

	return d, nil
}

type adminListCmd struct {
	app  *app
	JSON bool `long:"json" description:"Print JSON instead of a table"`
}

func (c *adminListCmd) Execute(_ []string) error {
	d, err := c.app.openAdmin()
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if err := d.Admin.Fetch(c.app.ctx); err != nil {
		return err
	}
	servers := d.Admin.State().Servers

	if c.JSON {
		return c.app.printJSON(servers)
	}

	return display.AdminServers(c.app.out, servers)
}

// serverFlags are the editable fields of a server record. Zero values mean
// "not given".
type serverFlags struct {
	Name          string `long:"name" description:"Display name"`
	Type          string `long:"type" description:"Server type" choice:"minecraft" choice:"cs2"`
	Address       string `long:"address" description:"IPv4 address or hostname"`
	Description   string `long:"description" description:"Description"`
	DownloadURL   string `long:"download-url" description:"Client or modpack download URL"`
	Changelog     string `long:"changelog" description:"Changelog text"`
	ChangelogFile string `long:"changelog-file" description:"Read the changelog from a file"`
	Port          int    `long:"port" description:"Port, defaults to the type's standard port on create"`
	Verify        bool   `long:"verify" description:"Query the game server directly before saving"`
}

// apply overrides req with every given flag.
func (f *serverFlags) apply(req *models.ServerRequest) error {
	if f.Name != "" {
		req.Name = f.Name
	}
	if f.Type != "" {
		req.Type = f.Type
	}
	if f.Address != "" {
		req.Address = f.Address
	}
	if f.Port != 0 {
		req.Port = f.Port
	}
	if f.Description != "" {
		req.Description = f.Description
	}
	if f.DownloadURL != "" {
		req.DownloadURL = f.DownloadURL
	}
	if f.Changelog != "" {
		req.Changelog = f.Changelog
	}
	if f.ChangelogFile != "" {
		data, err := os.ReadFile(f.ChangelogFile)
		if err != nil {
			return fmt.Errorf("read changelog: %w", err)
		}
		req.Changelog = string(data)
	}

	return nil
}

// verify probes the game server and only logs the outcome, an unreachable
// server can still be saved.
func (f *serverFlags) verify(ctx context.Context, a *app, req models.ServerRequest) {
	if !f.Verify {
		return
	}

	srv := models.Server{Name: req.Name, Type: req.Type, Address: req.Address, Port: req.Port}
	st, err := probe.Server(ctx, srv, a.cfg.ProbeOptions())
	if err != nil {
		log.Warn().Err(err).Str("address", req.Address).Int("port", req.Port).Msg("Game server did not answer")
		return
	}

	_ = display.Probes(a.out, []probe.Result{{Server: srv, Status: st}})
}

type adminCreateCmd struct {
	app *app
	serverFlags
}

func (c *adminCreateCmd) Execute(_ []string) error {
	req := models.ServerRequest{Type: models.TypeMinecraft}
	if err := c.apply(&req); err != nil {
		return err
	}
	if req.Port == 0 {
		req.Port = validate.DefaultPort(req.Type)
	}
	if err := validate.Server(&req); err != nil {
		return err
	}

	d, err := c.app.openAdmin()
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	c.verify(c.app.ctx, c.app, req)

	srv, err := d.Admin.Create(c.app.ctx, req)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.app.out, "created server %d (%s)\n", srv.ID, srv.Name)

	return nil
}

type adminUpdateCmd struct {
	app  *app
	Args struct {
		ID uint `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`
	serverFlags
}

func (c *adminUpdateCmd) Execute(_ []string) error {
	d, err := c.app.openAdmin()
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if err := d.Admin.Fetch(c.app.ctx); err != nil {
		return err
	}
	current, ok := d.Admin.Lookup(c.Args.ID)
	if !ok {
		return fmt.Errorf("server %d not found", c.Args.ID)
	}

	req := models.RequestFromServer(current)
	if err := c.apply(&req); err != nil {
		return err
	}
	if err := validate.Server(&req); err != nil {
		return err
	}

	c.verify(c.app.ctx, c.app, req)

	srv, err := d.Admin.Update(c.app.ctx, c.Args.ID, req)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.app.out, "updated server %d (%s)\n", srv.ID, srv.Name)

	return nil
}

type adminDeleteCmd struct {
	app  *app
	Args struct {
		ID uint `positional-arg-name:"id" required:"yes"`
	} `positional-args:"yes"`
	Yes bool `short:"y" long:"yes" description:"Do not ask for confirmation"`
}

func (c *adminDeleteCmd) Execute(_ []string) error {
	d, err := c.app.openAdmin()
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if !c.Yes {
		name := fmt.Sprintf("#%d", c.Args.ID)
		if err := d.Admin.Fetch(c.app.ctx); err == nil {
			if srv, ok := d.Admin.Lookup(c.Args.ID); ok {
				name = fmt.Sprintf("%q (#%d)", srv.Name, srv.ID)
			}
		}
		if !c.app.in.confirm("Delete server " + name + "?") {
			_, _ = fmt.Fprintln(c.app.out, "aborted")
			return nil
		}
	}

	if err := d.Admin.Delete(c.app.ctx, c.Args.ID); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.app.out, "deleted server %d\n", c.Args.ID)

	return nil
}
