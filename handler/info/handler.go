package info

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/command/def"
	"github.com/BlobEmoji/Artemis/handler"
	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/utils"
)

// Reuploader mirrors avatars for card thumbnails.
type Reuploader interface {
	Reupload(ctx context.Context, name, sourceURL string) (string, *model.Attachment)
}

// Handler serves /card and /prompt.
type Handler struct {
	svc        *Service
	reuploader Reuploader
	eventName  string
	color      int
	logger     *zap.Logger
}

func NewHandler(svc *Service, reuploader Reuploader, eventName string, color int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		svc:        svc,
		reuploader: reuploader,
		eventName:  eventName,
		color:      color,
		logger:     logger.Named("info"),
	}
}

// Register adds the info commands to the router.
func (h *Handler) Register(r *handler.Router) {
	r.AddCommandHandler(def.CardCommand.Name, h.CardCommandHandler)
	r.AddCommandHandler(def.PromptCommand.Name, h.PromptCommandHandler)
}

func invoker(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

// CardCommandHandler handles the /card command
func (h *Handler) CardCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	self := invoker(i)
	target := self
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "user" {
			target = opt.UserValue(s)
		}
	}

	// The response is ephemeral when looking up someone else.
	var flags discordgo.MessageFlags
	if target.ID != self.ID {
		flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
	if err != nil {
		h.logger.Error("deferred response", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		card, err := h.svc.Card(ctx, target.ID)
		if err != nil {
			h.logger.Error("build card", zap.String("user_id", target.ID), zap.Error(err))
			_, _ = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
				Content: utils.StringPtr(fmt.Sprintf("❌ Could not load stats for <@%s>.", target.ID)),
			}, discordgo.WithContext(ctx))
			return
		}

		embed := CardEmbed(card, target.Username, h.eventName, h.color)
		thumbnail, avatar := h.reuploader.Reupload(ctx, "avatar", target.AvatarURL("1024"))
		if avatar != nil {
			thumbnail = avatar.Ref()
		}
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: thumbnail}

		_, err = s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{
			Embeds: &[]*discordgo.MessageEmbed{embed},
			Files:  utils.DiscordFiles(avatar),
		}, discordgo.WithContext(ctx))
		if err != nil {
			h.logger.Error("send card", zap.Error(err))
		}
	}()
}

// PromptCommandHandler handles the /prompt command
func (h *Handler) PromptCommandHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{PromptEmbed(h.svc.Prompt(), h.eventName, h.color)},
			Flags:  discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		h.logger.Error("send prompt", zap.Error(err))
	}
}
