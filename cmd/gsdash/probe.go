package main

import (
	"errors"
	"fmt"

	"github.com/woozymasta/gsdash/internal/display"
	"github.com/woozymasta/gsdash/internal/models"
	"github.com/woozymasta/gsdash/internal/probe"
	"github.com/woozymasta/gsdash/internal/validate"
)

type probeCmd struct {
	app  *app
	Args struct {
		ID uint `positional-arg-name:"id"`
	} `positional-args:"yes"`
	Address string `long:"address" description:"Query this address instead of a listed server"`
	Type    string `long:"type" description:"Server type for --address" choice:"minecraft" choice:"cs2" default:"minecraft"`
	Port    int    `long:"port" description:"Port for --address, defaults to the type's standard port"`
	All     bool   `long:"all" description:"Query every listed server"`
}

func (c *probeCmd) Execute(_ []string) error {
	opts := c.app.cfg.ProbeOptions()

	if c.Address != "" {
		srv := models.Server{Type: c.Type, Address: c.Address, Port: c.Port}
		if srv.Port == 0 {
			srv.Port = validate.DefaultPort(c.Type)
		}
		st, err := probe.Server(c.app.ctx, srv, opts)
		return display.Probes(c.app.out, []probe.Result{{Server: srv, Status: st, Err: err}})
	}

	if !c.All && c.Args.ID == 0 {
		return errors.New("specify a server id, --all or --address")
	}

	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if err := d.Servers.Fetch(c.app.ctx); err != nil && len(d.Servers.State().Servers) == 0 {
		return err
	}

	var targets []models.Server
	if c.All {
		for _, s := range d.Servers.State().Servers {
			targets = append(targets, s.Server)
		}
	} else {
		s, ok := d.Servers.Lookup(c.Args.ID)
		if !ok {
			return fmt.Errorf("server %d not found", c.Args.ID)
		}
		targets = append(targets, s.Server)
	}

	results := probe.All(c.app.ctx, targets, opts, c.app.cfg.Probe.Workers)

	return display.Probes(c.app.out, results)
}
