package main

import (
	"context"
	"errors"

	"github.com/woozymasta/gsdash/internal/mockapi"
)

type mockAPICmd struct {
	app    *app
	Config mockapi.Config `group:"Reference API Options" namespace:"mock" env-namespace:"GSDASH_MOCK"`
}

func (c *mockAPICmd) Execute(_ []string) error {
	srv, err := mockapi.New(c.Config)
	if err != nil {
		return err
	}

	if err := srv.Run(c.app.ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
