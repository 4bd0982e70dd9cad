// Package slack posts switchboard alerts to a Slack channel.
package slack

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/zulandar/switchboard/internal/notify"
)

// maxRetries is the max number of retries for rate-limited API calls.
const maxRetries = 3

// client abstracts the Slack API methods we use, enabling test mocks.
type client interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Broadcaster implements notify.Broadcaster for Slack.
type Broadcaster struct {
	client    client
	channelID string
}

// Opts holds parameters for creating a Slack Broadcaster.
type Opts struct {
	BotToken  string // xoxb-... Slack bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client client
}

// New creates a Slack Broadcaster.
func New(opts Opts) (*Broadcaster, error) {
	if opts.Client == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("slack: bot token is required")
	}
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	c := opts.Client
	if c == nil {
		c = slackapi.New(opts.BotToken)
	}
	return &Broadcaster{client: c, channelID: opts.ChannelID}, nil
}

// Broadcast posts the alert as a message with a single attachment.
func (b *Broadcaster) Broadcast(ctx context.Context, alert notify.Alert) error {
	options := buildMessageOptions(alert)
	err := retryOnRateLimit(ctx, func() error {
		_, _, postErr := b.client.PostMessage(b.channelID, options...)
		return postErr
	})
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}

func buildMessageOptions(alert notify.Alert) []slackapi.MsgOption {
	att := slackapi.Attachment{
		Title:    alert.Title,
		Text:     alert.Body,
		Color:    alert.Color(),
		Fallback: alert.Title,
	}
	for _, f := range alert.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return []slackapi.MsgOption{
		slackapi.MsgOptionText(alert.Title, false),
		slackapi.MsgOptionAttachments(att),
	}
}

// retryOnRateLimit calls fn and retries on Slack rate limit errors, waiting
// for the server-provided delay or an exponential fallback.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
