package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/queue"
)

const ingestTimeout = 2 * time.Minute

func (b *Bot) registerEventHandlers(s *discordgo.Session) {
	s.AddHandler(b.router.OnInteractionCreate)
	s.AddHandler(b.onMessageCreate)
	s.AddHandler(b.onMessageUpdate)

	// Message content and member intents are privileged.
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent |
		discordgo.IntentsGuildMembers
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.ChannelID != b.cfg.SubmissionChannelID || m.Author == nil {
		return
	}
	b.ingest(m.Message)
}

// onMessageUpdate re-reads edited posts, since update events may carry only
// the changed fields.
func (b *Bot) onMessageUpdate(s *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.ChannelID != b.cfg.SubmissionChannelID {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	msg, err := s.ChannelMessage(m.ChannelID, m.ID, discordgo.WithContext(ctx))
	if err != nil {
		b.logger.Debug("edited message no longer available", zap.String("message_id", m.ID), zap.Error(err))
		return
	}
	if msg.Author == nil {
		return
	}
	b.ingest(msg)
}

func (b *Bot) ingest(m *discordgo.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
	defer cancel()

	// failures are logged by the controller
	_ = b.ingester.Ingest(ctx, toQueueMessage(m))
}

func toQueueMessage(m *discordgo.Message) queue.Message {
	msg := queue.Message{
		ID:        m.ID,
		AuthorID:  m.Author.ID,
		AuthorBot: m.Author.Bot,
		Content:   m.Content,
	}
	for _, a := range m.Attachments {
		msg.AttachmentURLs = append(msg.AttachmentURLs, a.URL)
	}
	return msg
}
