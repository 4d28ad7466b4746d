// Package moderation wires the queue entry buttons to the queue controller.
package moderation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/BlobEmoji/Artemis/handler"
)

// Prefix routes queue entry buttons to this package.
const Prefix = "queue"

const (
	ActionApprove    = "approve"
	ActionReject     = "reject"
	ActionDismiss    = "dismiss"
	ActionPrevPrompt = "prev_prompt"
	ActionNextPrompt = "next_prompt"
)

// Decider applies moderator decisions. *queue.Controller satisfies it.
type Decider interface {
	Approve(ctx context.Context, queueMessageID string) error
	Reject(ctx context.Context, queueMessageID string) error
	Dismiss(ctx context.Context, queueMessageID string) error
	ShiftPrompt(ctx context.Context, queueMessageID string, delta int) error
}

type Handler struct {
	decider Decider
	timeout time.Duration
	logger  *zap.Logger
}

func New(decider Decider, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{decider: decider, timeout: 2 * time.Minute, logger: logger.Named("moderation")}
}

// Register adds the queue button handler to the router.
func (h *Handler) Register(r *handler.Router) {
	r.AddComponentHandler(Prefix, h.ButtonHandler)
}

// Controls are the buttons attached to every queue entry.
func Controls() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Approve",
					Style:    discordgo.SuccessButton,
					CustomID: Prefix + ":" + ActionApprove,
				},
				discordgo.Button{
					Label:    "Reject",
					Style:    discordgo.DangerButton,
					CustomID: Prefix + ":" + ActionReject,
				},
				discordgo.Button{
					Label:    "Dismiss",
					Style:    discordgo.SecondaryButton,
					CustomID: Prefix + ":" + ActionDismiss,
				},
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					CustomID: Prefix + ":" + ActionPrevPrompt,
					Emoji:    &discordgo.ComponentEmoji{Name: "◀️"},
				},
				discordgo.Button{
					Style:    discordgo.SecondaryButton,
					CustomID: Prefix + ":" + ActionNextPrompt,
					Emoji:    &discordgo.ComponentEmoji{Name: "▶️"},
				},
			},
		},
	}
}

// ButtonHandler acknowledges the click and applies the decision to the
// submission behind the clicked queue entry.
func (h *Handler) ButtonHandler(s *discordgo.Session, i *discordgo.InteractionCreate) {
	_, action, _ := strings.Cut(i.MessageComponentData().CustomID, ":")

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		h.logger.Error("acknowledge button", zap.String("action", action), zap.Error(err))
		return
	}
	if i.Message == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	if err := h.Handle(ctx, action, i.Message.ID); err != nil {
		h.logger.Error("moderator decision failed",
			zap.String("action", action),
			zap.String("queue_message_id", i.Message.ID),
			zap.Error(err),
		)
		_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: "❌ The decision could not be saved, please try again.",
			Flags:   discordgo.MessageFlagsEphemeral,
		}, discordgo.WithContext(ctx))
	}
}

// Handle maps a button action onto the decider.
func (h *Handler) Handle(ctx context.Context, action, queueMessageID string) error {
	switch action {
	case ActionApprove:
		return h.decider.Approve(ctx, queueMessageID)
	case ActionReject:
		return h.decider.Reject(ctx, queueMessageID)
	case ActionDismiss:
		return h.decider.Dismiss(ctx, queueMessageID)
	case ActionPrevPrompt:
		return h.decider.ShiftPrompt(ctx, queueMessageID, -1)
	case ActionNextPrompt:
		return h.decider.ShiftPrompt(ctx, queueMessageID, 1)
	default:
		return fmt.Errorf("unknown queue action %q", action)
	}
}
