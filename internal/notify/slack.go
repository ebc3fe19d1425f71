package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts job events to a channel.
type Slack struct {
	client  slackClient
	channel string
	backoff time.Duration
}

// NewSlack returns a Slack sender using a bot token.
func NewSlack(botToken, channel string) (*Slack, error) {
	if botToken == "" {
		return nil, fmt.Errorf("notify: slack bot token is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("notify: slack channel is required")
	}
	return &Slack{client: slackapi.New(botToken), channel: channel, backoff: time.Second}, nil
}

func (s *Slack) Name() string { return "slack" }

// Send posts evt as a single attachment.
func (s *Slack) Send(ctx context.Context, evt Event) error {
	opts := []slackapi.MsgOption{
		slackapi.MsgOptionText(evt.Title, false),
		slackapi.MsgOptionAttachments(slackAttachment(evt)),
	}
	for attempt := 0; ; attempt++ {
		_, _, err := s.client.PostMessageContext(ctx, s.channel, opts...)
		if err == nil {
			return nil
		}
		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) || attempt == maxRetries {
			return fmt.Errorf("slack post: %w", err)
		}
		wait := rle.RetryAfter
		if wait <= 0 {
			wait = backoff(s.backoff, attempt)
		}
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func slackAttachment(evt Event) slackapi.Attachment {
	att := slackapi.Attachment{
		Title:     evt.Title,
		TitleLink: evt.Link,
		Text:      evt.Body,
		Color:     evt.Color,
		Fallback:  evt.Title,
	}
	if !evt.Finished.IsZero() {
		att.Footer = "finished " + evt.Finished.UTC().Format(time.RFC3339)
	}
	for _, f := range evt.Fields {
		att.Fields = append(att.Fields, slackapi.AttachmentField{
			Title: f.Name,
			Value: f.Value,
			Short: f.Short,
		})
	}
	return att
}
