package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

const sentryFlushTimeout = 2 * time.Second

// Sentry holds error reporting configuration
type Sentry struct {
	DSN         string
	Environment string

	enabled bool
}

// Flags returns CLI flags for Sentry configuration
func (c *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN; failures are reported when set",
			Destination: &c.DSN,
			Sources:     cli.EnvVars("SLIPGUARD_SENTRY_DSN"),
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment",
			Destination: &c.Environment,
			Sources:     cli.EnvVars("SLIPGUARD_SENTRY_ENV"),
		},
	}
}

// Configure initializes the Sentry client. Without a DSN it does nothing.
func (c *Sentry) Configure() error {
	if c.DSN == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         c.DSN,
		Environment: c.Environment,
		Release:     types.AppName + "@" + types.Version,
	})
	if err != nil {
		return goerr.Wrap(err, "failed to initialize sentry")
	}
	c.enabled = true
	return nil
}

// Report sends err to Sentry and waits for delivery
func (c *Sentry) Report(err error, logger *slog.Logger) {
	if !c.enabled || err == nil {
		return
	}

	eventID := sentry.CaptureException(err)
	if !sentry.Flush(sentryFlushTimeout) {
		logger.Warn("Timed out sending error to sentry")
		return
	}
	if eventID != nil {
		logger.Info("Reported error to sentry", "event_id", string(*eventID))
	}
}
