package config

import (
	"bytes"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v3"
)

// FlagState reports whether a flag was given explicitly. *cli.Command
// satisfies it.
type FlagState interface {
	IsSet(name string) bool
}

// Settings groups the configuration a file can provide defaults for
type Settings struct {
	Logger  *Logger
	Fetch   *Fetch
	Extract *Extract
	Sentry  *Sentry
	Slack   *Slack
}

// File holds the path of an optional TOML configuration file
type File struct {
	Path string
}

// Flags returns CLI flags for the configuration file
func (c *File) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "TOML configuration file; explicitly given flags take precedence",
			Destination: &c.Path,
			Sources:     cli.EnvVars("SLIPGUARD_CONFIG"),
		},
	}
}

type fileValues struct {
	Log struct {
		Level  *string `toml:"level"`
		Format *string `toml:"format"`
	} `toml:"log"`
	Fetch struct {
		Timeout   *string `toml:"timeout"`
		Retries   *int    `toml:"retries"`
		Backoff   *string `toml:"backoff"`
		UserAgent *string `toml:"user_agent"`
		Progress  *bool   `toml:"progress"`
	} `toml:"fetch"`
	Extract struct {
		MaxFileSize *int64 `toml:"max_file_size"`
	} `toml:"extract"`
	Sentry struct {
		DSN         *string `toml:"dsn"`
		Environment *string `toml:"environment"`
	} `toml:"sentry"`
	Slack struct {
		WebhookURL *string `toml:"webhook_url"`
		Channel    *string `toml:"channel"`
	} `toml:"slack"`
}

// Apply loads the file and copies its values into dst for every setting whose
// flag was not given explicitly. Without a path it does nothing.
func (c *File) Apply(state FlagState, dst Settings) error {
	if c.Path == "" {
		return nil
	}

	raw, err := os.ReadFile(c.Path)
	if err != nil {
		return goerr.Wrap(err, "failed to read config file", goerr.V("path", c.Path))
	}

	var v fileValues
	decoder := toml.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&v); err != nil {
		return goerr.Wrap(err, "failed to parse config file", goerr.V("path", c.Path))
	}

	a := applier{state: state}
	if dst.Logger != nil {
		setValue(&a, "log-level", v.Log.Level, &dst.Logger.Level)
		setValue(&a, "log-format", v.Log.Format, &dst.Logger.Format)
	}
	if dst.Fetch != nil {
		setDuration(&a, "fetch-timeout", v.Fetch.Timeout, &dst.Fetch.Timeout)
		setValue(&a, "fetch-retries", v.Fetch.Retries, &dst.Fetch.Retries)
		setDuration(&a, "fetch-backoff", v.Fetch.Backoff, &dst.Fetch.Backoff)
		setValue(&a, "user-agent", v.Fetch.UserAgent, &dst.Fetch.UserAgent)
		setValue(&a, "progress", v.Fetch.Progress, &dst.Fetch.Progress)
	}
	if dst.Extract != nil {
		setValue(&a, "max-file-size", v.Extract.MaxFileSize, &dst.Extract.MaxFileSize)
	}
	if dst.Sentry != nil {
		setValue(&a, "sentry-dsn", v.Sentry.DSN, &dst.Sentry.DSN)
		setValue(&a, "sentry-env", v.Sentry.Environment, &dst.Sentry.Environment)
	}
	if dst.Slack != nil {
		setValue(&a, "slack-webhook-url", v.Slack.WebhookURL, &dst.Slack.WebhookURL)
		setValue(&a, "slack-channel", v.Slack.Channel, &dst.Slack.Channel)
	}

	if a.err != nil {
		return goerr.Wrap(a.err, "invalid value in config file", goerr.V("path", c.Path))
	}
	return nil
}

// applier keeps the first conversion error so that setters stay one-liners
type applier struct {
	state FlagState
	err   error
}

func setValue[T any](a *applier, flag string, src *T, dst *T) {
	if src == nil || a.state.IsSet(flag) {
		return
	}
	*dst = *src
}

func setDuration(a *applier, flag string, src *string, dst *time.Duration) {
	if src == nil || a.state.IsSet(flag) || a.err != nil {
		return
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		a.err = goerr.Wrap(err, "invalid duration", goerr.V("key", flag), goerr.V("value", *src))
		return
	}
	*dst = d
}
