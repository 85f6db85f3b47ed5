package config

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
	"github.com/urfave/cli/v3"
)

// Log formats accepted by --log-format
const (
	LogFormatText    = "text"
	LogFormatJSON    = "json"
	LogFormatConsole = "console"
)

// signedURLPattern matches URLs carrying a credential in their query string
var signedURLPattern = regexp.MustCompile(`(?i)[?&](token|access_token|sig|signature|x-goog-signature|x-amz-signature|x-amz-credential)=`)

// Logger holds logger configuration
type Logger struct {
	Level  string
	Format string
}

// Flags returns CLI flags for logger configuration
func (c *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &c.Level,
			Sources:     cli.EnvVars("SLIPGUARD_LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (text, json, console)",
			Value:       LogFormatText,
			Destination: &c.Format,
			Sources:     cli.EnvVars("SLIPGUARD_LOG_FORMAT"),
		},
	}
}

// Configure configures and returns a logger writing to stdout
func (c *Logger) Configure() (*slog.Logger, error) {
	return c.ConfigureWriter(os.Stdout)
}

// ConfigureWriter configures and returns a logger writing to w
func (c *Logger) ConfigureWriter(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, goerr.New("invalid log level", goerr.V("level", c.Level))
	}

	filter := masq.New(
		masq.WithFieldName("webhook_url"),
		masq.WithFieldName("sentry_dsn"),
		masq.WithFieldPrefix("secret"),
		masq.WithRegex(signedURLPattern),
	)

	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: filter,
	}

	var handler slog.Handler
	switch strings.ToLower(c.Format) {
	case LogFormatText, "":
		handler = slog.NewTextHandler(w, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case LogFormatConsole:
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
		)
	default:
		return nil, goerr.New("invalid log format", goerr.V("format", c.Format))
	}

	return slog.New(handler), nil
}
