package config

import (
	"os"
	"time"

	"github.com/m-mizutani/slipguard/pkg/infra/fetch"
	"github.com/urfave/cli/v3"
)

// Fetch holds download tuning
type Fetch struct {
	Timeout   time.Duration
	Retries   int
	Backoff   time.Duration
	UserAgent string
	Progress  bool
}

// Flags returns CLI flags for fetch configuration
func (c *Fetch) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:        "fetch-timeout",
			Usage:       "Timeout of a single download attempt (0 for none)",
			Destination: &c.Timeout,
			Sources:     cli.EnvVars("SLIPGUARD_FETCH_TIMEOUT"),
		},
		&cli.IntFlag{
			Name:        "fetch-retries",
			Usage:       "Number of retries after a failed download",
			Destination: &c.Retries,
			Sources:     cli.EnvVars("SLIPGUARD_FETCH_RETRIES"),
		},
		&cli.DurationFlag{
			Name:        "fetch-backoff",
			Usage:       "Wait before the first retry, doubled on each further retry",
			Value:       time.Second,
			Destination: &c.Backoff,
			Sources:     cli.EnvVars("SLIPGUARD_FETCH_BACKOFF"),
		},
		&cli.StringFlag{
			Name:        "user-agent",
			Usage:       "User-Agent header of HTTP requests",
			Destination: &c.UserAgent,
			Sources:     cli.EnvVars("SLIPGUARD_USER_AGENT"),
		},
		&cli.BoolFlag{
			Name:        "progress",
			Usage:       "Render a download progress bar to stderr",
			Destination: &c.Progress,
			Sources:     cli.EnvVars("SLIPGUARD_PROGRESS"),
		},
	}
}

// Options converts the configuration into fetcher options
func (c *Fetch) Options() []fetch.Option {
	var opts []fetch.Option
	if c.Timeout > 0 {
		opts = append(opts, fetch.WithTimeout(c.Timeout))
	}
	if c.Retries > 0 {
		opts = append(opts, fetch.WithRetry(c.Retries, c.Backoff))
	}
	if c.UserAgent != "" {
		opts = append(opts, fetch.WithUserAgent(c.UserAgent))
	}
	if c.Progress {
		opts = append(opts, fetch.WithProgress(os.Stderr))
	}
	return opts
}
