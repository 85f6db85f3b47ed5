package config

import (
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Slack holds failure notification configuration
type Slack struct {
	WebhookURL string
	Channel    string
}

// Flags returns CLI flags for Slack configuration
func (c *Slack) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL notified when a run fails",
			Destination: &c.WebhookURL,
			Sources:     cli.EnvVars("SLIPGUARD_SLACK_WEBHOOK_URL"),
		},
		&cli.StringFlag{
			Name:        "slack-channel",
			Usage:       "Slack channel overriding the webhook default",
			Destination: &c.Channel,
			Sources:     cli.EnvVars("SLIPGUARD_SLACK_CHANNEL"),
		},
	}
}

// Notifier returns a Slack notifier, or nil if no webhook is configured
func (c *Slack) Notifier() interfaces.Notifier {
	if c.WebhookURL == "" {
		return nil
	}

	var opts []slack.Option
	if c.Channel != "" {
		opts = append(opts, slack.WithChannel(c.Channel))
	}
	return slack.New(c.WebhookURL, opts...)
}
