// Package slack posts pipeline failures to a Slack incoming webhook.
package slack

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/slipguard/pkg/domain/interfaces"
	"github.com/m-mizutani/slipguard/pkg/domain/model"
	"github.com/m-mizutani/slipguard/pkg/domain/types"
	"github.com/slack-go/slack"
)

// Option is a functional option for the Slack notifier
type Option func(*Notifier)

// WithChannel overrides the webhook's default channel
func WithChannel(channel string) Option {
	return func(n *Notifier) {
		n.channel = channel
	}
}

// Notifier implements interfaces.Notifier with an incoming webhook
type Notifier struct {
	webhookURL string
	channel    string
}

var _ interfaces.Notifier = (*Notifier)(nil)

// New creates a Notifier posting to webhookURL
func New(webhookURL string, opts ...Option) *Notifier {
	n := &Notifier{webhookURL: webhookURL}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NotifyFailure posts a message naming the failed stage, the source URL and
// the error
func (n *Notifier) NotifyFailure(ctx context.Context, req *model.DownloadRequest, stage model.Stage, err error) error {
	msg := &slack.WebhookMessage{
		Channel: n.channel,
		Text:    types.AppName + ": " + string(stage) + " stage failed",
		Attachments: []slack.Attachment{
			{
				Color: "danger",
				Fields: []slack.AttachmentField{
					{Title: "URL", Value: req.URL},
					{Title: "File name", Value: req.FileName, Short: true},
					{Title: "Data path", Value: req.DataPath, Short: true},
					{Title: "Error", Value: err.Error()},
				},
			},
		},
	}

	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack message", goerr.V("stage", string(stage)))
	}
	return nil
}
