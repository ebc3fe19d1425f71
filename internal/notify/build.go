package notify

import (
	"github.com/rs/zerolog"
	"github.com/zulandar/takehome/internal/config"
)

// FromConfig builds the senders enabled in cfg.Notify. It returns nil when
// none are configured. closeFn releases connections held by the senders.
func FromConfig(cfg *config.Config, log zerolog.Logger) (m *Multi, closeFn func(), err error) {
	var senders []Sender
	closeFn = func() {}

	if cfg.Notify.SlackChannel != "" {
		s, err := NewSlack(cfg.Secrets.SlackToken, cfg.Notify.SlackChannel)
		if err != nil {
			return nil, closeFn, err
		}
		senders = append(senders, s)
	}
	if cfg.Notify.DiscordChannelID != "" {
		d, err := NewDiscord(cfg.Secrets.DiscordToken, cfg.Notify.DiscordChannelID)
		if err != nil {
			return nil, closeFn, err
		}
		senders = append(senders, d)
	}
	if cfg.Notify.NATSURL != "" {
		n, err := NewNATS(cfg.Notify.NATSURL, cfg.Notify.NATSSubject)
		if err != nil {
			return nil, closeFn, err
		}
		senders = append(senders, n)
		closeFn = n.Close
	}

	if len(senders) == 0 {
		return nil, closeFn, nil
	}
	return NewMulti(cfg.Server.PublicURL, log, senders...), closeFn, nil
}
