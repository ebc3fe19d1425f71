package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// discordSession abstracts the discordgo.Session methods we use, enabling test mocks.
type discordSession interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts job events as embeds through the REST API. No gateway
// connection is opened.
type Discord struct {
	sess      discordSession
	channelID string
	backoff   time.Duration
}

// NewDiscord returns a Discord sender using a bot token.
func NewDiscord(botToken, channelID string) (*Discord, error) {
	if botToken == "" {
		return nil, fmt.Errorf("notify: discord bot token is required")
	}
	if channelID == "" {
		return nil, fmt.Errorf("notify: discord channel id is required")
	}
	sess, err := discordgo.New("Bot " + botToken)
	if err != nil {
		return nil, fmt.Errorf("notify: discord session: %w", err)
	}
	return &Discord{sess: sess, channelID: channelID, backoff: 2 * time.Second}, nil
}

func (d *Discord) Name() string { return "discord" }

// Send posts evt, retrying on HTTP 429.
func (d *Discord) Send(ctx context.Context, evt Event) error {
	embed := discordEmbed(evt)
	for attempt := 0; ; attempt++ {
		_, err := d.sess.ChannelMessageSendEmbed(d.channelID, embed, discordgo.WithContext(ctx))
		if err == nil {
			return nil
		}
		var restErr *discordgo.RESTError
		rateLimited := errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode == http.StatusTooManyRequests
		if !rateLimited || attempt == maxRetries {
			return fmt.Errorf("discord post: %w", err)
		}
		if err := sleep(ctx, backoff(d.backoff, attempt)); err != nil {
			return err
		}
	}
}

func discordEmbed(evt Event) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       evt.Title,
		URL:         evt.Link,
		Description: evt.Body,
		Color:       parseHexColor(evt.Color),
	}
	if !evt.Finished.IsZero() {
		embed.Timestamp = evt.Finished.UTC().Format(time.RFC3339)
	}
	for _, f := range evt.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Short,
		})
	}
	return embed
}

// parseHexColor converts "#36a64f" to an int. Malformed input yields 0.
func parseHexColor(hex string) int {
	v, err := strconv.ParseInt(strings.TrimPrefix(hex, "#"), 16, 32)
	if err != nil {
		return 0
	}
	return int(v)
}
