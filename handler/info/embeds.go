package info

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/prompt"
)

// CardEmbed renders a participation card.
func CardEmbed(card model.Card, username, eventName string, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s's %s stats", username, eventName),
		Description: fmt.Sprintf("%d/%d", card.Approved, card.Total),
		Color:       color,
	}
	if card.Progress != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Current prompt progress",
			Value: card.Progress,
		})
	}
	return embed
}

// PromptEmbed renders the schedule snapshot.
func PromptEmbed(snap prompt.Snapshot, eventName string, color int) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       eventName + " prompts",
		Description: snap.Topic,
		Color:       color,
	}
	if snap.Current != nil {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{
				Name:   "Current prompt",
				Value:  fmt.Sprintf("%s (#%d of %d)", snap.Current.Name, snap.Number, snap.Total),
				Inline: true,
			},
			&discordgo.MessageEmbedField{
				Name:   "Next reveal",
				Value:  fmt.Sprintf("<t:%d:R>", snap.Deadline.Unix()),
				Inline: true,
			},
		)
	}
	if len(snap.Past) > 0 {
		lines := make([]string, 0, len(snap.Past))
		for _, p := range snap.Past {
			lines = append(lines, fmt.Sprintf("#%d %s", p.ID+1, p.Name))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "Past prompts",
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}
