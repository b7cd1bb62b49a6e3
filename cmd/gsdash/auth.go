package main

import (
	"fmt"
	"time"

	"github.com/woozymasta/gsdash/internal/session"
	"github.com/woozymasta/gsdash/internal/store"
	"github.com/woozymasta/gsdash/internal/vars"
)

type loginCmd struct {
	app      *app
	Username string `long:"username" env:"GSDASH_USERNAME" description:"Admin username"`
	Password string `long:"password" env:"GSDASH_PASSWORD" description:"Admin password, prompted when empty"`
}

func (c *loginCmd) Execute(_ []string) error {
	if err := c.app.in.askIfEmpty(&c.Username, "Username: "); err != nil {
		return err
	}
	if err := c.app.in.askIfEmpty(&c.Password, "Password: "); err != nil {
		return err
	}

	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if err := d.Auth.Login(c.app.ctx, c.Username, c.Password); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(c.app.out, "logged in as %s\n", d.Auth.Username())
	if exp, ok := session.ExpiresAt(d.Auth.Token()); ok {
		_, _ = fmt.Fprintf(c.app.out, "session expires %s\n", exp.Local().Format(time.DateTime))
	}

	return nil
}

type logoutCmd struct {
	app *app
}

func (c *logoutCmd) Execute(_ []string) error {
	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	d.Auth.Logout(c.app.ctx)
	_, _ = fmt.Fprintln(c.app.out, "logged out")

	return nil
}

type statusCmd struct {
	app  *app
	JSON bool `long:"json" description:"Print JSON instead of text"`
}

type statusReport struct {
	SessionExpires  *time.Time     `json:"session_expires,omitempty"`
	SnapshotFetched *time.Time     `json:"snapshot_fetched_at,omitempty"`
	Client          vars.BuildInfo `json:"client"`
	APIURL          string         `json:"api_url"`
	APIError        string         `json:"api_error,omitempty"`
	Username        string         `json:"username,omitempty"`
	SnapshotServers int            `json:"snapshot_servers"`
	Online          bool           `json:"online"`
	LoggedIn        bool           `json:"logged_in"`
}

func (c *statusCmd) Execute(_ []string) error {
	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	r := statusReport{
		Client: vars.Info(),
		APIURL: d.Client.BaseURL(),
		Online: true,
	}
	if err := d.Monitor.Reconnect(c.app.ctx); err != nil {
		r.Online = false
		r.APIError = err.Error()
	}
	if d.Auth.IsAuthenticated() {
		r.LoggedIn = true
		r.Username = d.Auth.Username()
		if exp, ok := session.ExpiresAt(d.Auth.Token()); ok {
			r.SessionExpires = &exp
		}
	}
	if st := d.Servers.State(); !st.LastUpdated.IsZero() {
		r.SnapshotFetched = &st.LastUpdated
		r.SnapshotServers = len(st.Servers)
	}

	if c.JSON {
		return c.app.printJSON(r)
	}

	w := c.app.out
	_, _ = fmt.Fprintf(w, "client:   %s\n", vars.UserAgent())
	_, _ = fmt.Fprintf(w, "api:      %s\n", r.APIURL)
	if r.Online {
		_, _ = fmt.Fprintln(w, "reach:    online")
	} else {
		_, _ = fmt.Fprintf(w, "reach:    offline (%s)\n", r.APIError)
	}

	switch {
	case !r.LoggedIn:
		_, _ = fmt.Fprintln(w, "session:  not logged in")
	case r.SessionExpires != nil:
		_, _ = fmt.Fprintf(w, "session:  %s, expires %s\n", r.Username, r.SessionExpires.Local().Format(time.DateTime))
	default:
		_, _ = fmt.Fprintf(w, "session:  %s\n", r.Username)
	}

	if r.SnapshotFetched == nil {
		_, _ = fmt.Fprintln(w, "snapshot: none")
	} else {
		_, _ = fmt.Fprintf(w, "snapshot: %d servers from %s\n", r.SnapshotServers, r.SnapshotFetched.Local().Format(time.DateTime))
	}

	return nil
}

type passwdCmd struct {
	app     *app
	Current string `long:"current" description:"Current password, prompted when empty"`
	New     string `long:"new" description:"New password, prompted when empty"`
	Confirm string `long:"confirm" description:"New password again, prompted when empty"`
}

func (c *passwdCmd) Execute(_ []string) error {
	d, err := c.app.open(false)
	if err != nil {
		return err
	}
	defer func() { _ = d.Close() }()

	if !d.Auth.Check(c.app.ctx) {
		return store.ErrNotAuthenticated
	}

	for _, q := range []struct {
		v      *string
		prompt string
	}{
		{&c.Current, "Current password: "},
		{&c.New, "New password: "},
		{&c.Confirm, "Confirm new password: "},
	} {
		if err := c.app.in.askIfEmpty(q.v, q.prompt); err != nil {
			return err
		}
	}

	if err := d.Auth.ChangePassword(c.app.ctx, c.Current, c.New, c.Confirm); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.app.out, "password changed")

	return nil
}
