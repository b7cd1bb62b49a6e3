// Package logger configures the global zerolog logger. Command output owns
// stdout, so diagnostics go to stderr unless configured otherwise.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds configuration options for the application logger.
type Config struct {
	Level  string `long:"level" env:"LEVEL" description:"Log level (trace, debug, info, warn, error)" default:"warn" json:"level"`
	Format string `long:"format" env:"FORMAT" description:"Log format (console or json)" default:"console" json:"format"`
	Output string `long:"output" env:"OUTPUT" description:"Log output (stdout, stderr or file path)" default:"stderr" json:"output"`
}

// Setup replaces the global logger according to cfg. The returned func
// releases the log file, if one was opened.
func Setup(cfg Config) func() error {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out, closer := openOutput(cfg.Output)
	log.Logger = New(out, cfg.Format)

	return closer
}

// New builds a logger writing to out in the given format.
func New(out io.Writer, format string) zerolog.Logger {
	if strings.EqualFold(format, "json") {
		return zerolog.New(out).With().Timestamp().Logger()
	}

	cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly, NoColor: !colored(out)}

	return zerolog.New(cw).With().Timestamp().Logger()
}

// parseLevel accepts zerolog level names plus "warning"; unknown input means warn.
func parseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		return zerolog.WarnLevel
	}

	level, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.WarnLevel
	}

	return level
}

func openOutput(output string) (io.Writer, func() error) {
	noop := func() error { return nil }

	switch output {
	case "", "stderr":
		return os.Stderr, noop
	case "stdout":
		return os.Stdout, noop
	}

	file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fallback := New(os.Stderr, "console")
		fallback.Error().Err(err).Str("path", output).Msg("Failed to open log file, falling back to stderr")
		return os.Stderr, noop
	}

	return file, file.Close
}

// colored reports whether out is a terminal and NO_COLOR is unset.
func colored(out io.Writer) bool {
	f, ok := out.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}

	stat, err := f.Stat()
	if err != nil {
		return false
	}

	return stat.Mode()&os.ModeCharDevice != 0
}
