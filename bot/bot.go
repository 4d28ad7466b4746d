package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/handler"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/queue"
)

// Ingester turns submission channel posts into queued submissions.
// *queue.Controller satisfies it.
type Ingester interface {
	Ingest(ctx context.Context, msg queue.Message) error
}

// Bot owns the gateway session.
type Bot struct {
	session  *discordgo.Session
	cfg      model.Discord
	router   *handler.Router
	ingester Ingester
	logger   *zap.Logger
}

// New creates the session without connecting, so the messenger can be
// built on it before the handlers exist.
func New(token string, cfg model.Discord, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Bot{session: dg, cfg: cfg, logger: logger.Named("bot")}, nil
}

// Session returns the underlying discord session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

// Start registers the handlers, opens the gateway, verifies the configured
// resources and registers the slash commands in the event guild.
func (b *Bot) Start(ctx context.Context, router *handler.Router, ingester Ingester, commands []*discordgo.ApplicationCommand, verify func(context.Context) error) error {
	b.router = router
	b.ingester = ingester
	b.registerEventHandlers(b.session)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	if verify != nil {
		if err := verify(ctx); err != nil {
			_ = b.session.Close()
			return err
		}
	}

	appID := b.session.State.User.ID
	for _, cmd := range commands {
		if _, err := b.session.ApplicationCommandCreate(appID, b.cfg.GuildID, cmd, discordgo.WithContext(ctx)); err != nil {
			_ = b.session.Close()
			return fmt.Errorf("create command %q: %w", cmd.Name, resourceError("discord.guild_id", b.cfg.GuildID, err))
		}
	}

	b.logger.Info("bot is now running", zap.String("user", b.session.State.User.Username))
	return nil
}

// RunTopicUpdater keeps the submission channel topic in sync with the
// schedule until ctx is done.
func (b *Bot) RunTopicUpdater(ctx context.Context, topic func() string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	for {
		if current := topic(); current != last {
			_, err := b.session.ChannelEdit(b.cfg.SubmissionChannelID, &discordgo.ChannelEdit{Topic: current}, discordgo.WithContext(ctx))
			if err != nil {
				b.logger.Warn("update channel topic", zap.Error(resourceError("discord.submission_channel_id", b.cfg.SubmissionChannelID, err)))
			} else {
				last = current
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Close closes the gateway connection.
func (b *Bot) Close() error {
	return b.session.Close()
}
