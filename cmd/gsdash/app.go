package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/gsdash/internal/config"
	"github.com/woozymasta/gsdash/internal/dashboard"
)

// app carries what every command needs.
type app struct {
	cfg *config.Config
	ctx context.Context
	out io.Writer
	in  *prompter
}

func (a *app) register(p *flags.Parser) error {
	cmds := []struct {
		data  any
		name  string
		short string
		long  string
	}{
		{&listCmd{app: a}, "list", "List servers", "Fetch the server list with live status."},
		{&showCmd{app: a}, "show", "Show server details", "Show one server with status, description and changelog."},
		{&watchCmd{app: a}, "watch", "Live dashboard", "Refresh the server list periodically and follow connectivity."},
		{&loginCmd{app: a}, "login", "Log in as admin", "Exchange admin credentials for a session token."},
		{&logoutCmd{app: a}, "logout", "Log out", "Drop the saved session."},
		{&statusCmd{app: a}, "status", "Show client status", "Show API reachability, session and local snapshot."},
		{&passwdCmd{app: a}, "passwd", "Change admin password", "Change the password of the logged in admin."},
		{&probeCmd{app: a}, "probe", "Query game servers directly", "Query servers with A2S (CS2) or Server List Ping (Minecraft), bypassing the API."},
		{&mockAPICmd{app: a}, "mock-api", "Serve the reference API", "Serve an in-memory monitoring API for development."},
	}
	for _, c := range cmds {
		if _, err := p.AddCommand(c.name, c.short, c.long, c.data); err != nil {
			return err
		}
	}

	admin, err := p.AddCommand("admin", "Manage servers", "Create, update and delete server records (requires login).", &struct{}{})
	if err != nil {
		return err
	}
	adminCmds := []struct {
		data  any
		name  string
		short string
	}{
		{&adminListCmd{app: a}, "list", "List server records"},
		{&adminCreateCmd{app: a}, "create", "Create a server"},
		{&adminUpdateCmd{app: a}, "update", "Update a server"},
		{&adminDeleteCmd{app: a}, "delete", "Delete a server"},
	}
	for _, c := range adminCmds {
		if _, err := admin.AddCommand(c.name, c.short, c.short+".", c.data); err != nil {
			return err
		}
	}

	return nil
}

// open builds the dashboard. The caller must Close it.
func (a *app) open(autoRefresh bool) (*dashboard.Dashboard, error) {
	return dashboard.New(a.ctx, a.cfg.Dashboard(autoRefresh))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// prompter reads answers line by line.
type prompter struct {
	r   *bufio.Reader
	out io.Writer
}

func newPrompter(r io.Reader, out io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), out: out}
}

func (p *prompter) ask(question string) (string, error) {
	_, _ = fmt.Fprint(p.out, question)

	line, err := p.r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("read answer: %w", err)
	}

	return strings.TrimRight(line, "\r\n"), nil
}

// askIfEmpty prompts only when v is empty.
func (p *prompter) askIfEmpty(v *string, question string) error {
	if *v != "" {
		return nil
	}

	answer, err := p.ask(question)
	if err != nil {
		return err
	}
	*v = answer

	return nil
}

func (p *prompter) confirm(question string) bool {
	answer, err := p.ask(question + " [y/N]: ")
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))

	return answer == "y" || answer == "yes"
}
