// main is the entry point of the gsdash CLI.
// It parses the configuration, sets up the logger and runs the selected command.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"github.com/woozymasta/gsdash/internal/config"
	"github.com/woozymasta/gsdash/internal/logger"
	"github.com/woozymasta/gsdash/internal/vars"
)

var errNoCommand = errors.New("no command specified, see --help")

func main() {
	var cfg config.Config
	parser := config.NewParser(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{cfg: &cfg, ctx: ctx, out: os.Stdout, in: newPrompter(os.Stdin, os.Stderr)}
	if err := a.register(parser); err != nil {
		log.Fatal().Err(err).Msg("Failed to register commands")
	}

	parser.CommandHandler = func(cmd flags.Commander, args []string) error {
		if cfg.Version {
			return vars.Fprint(os.Stdout)
		}
		if cmd == nil {
			parser.WriteHelp(os.Stderr)
			return errNoCommand
		}

		closeLog := logger.Setup(cfg.Logger)
		defer func() { _ = closeLog() }()

		return cmd.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		stop()
		os.Exit(1)
	}
}
