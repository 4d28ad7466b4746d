package bot

import (
	"context"
	"errors"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/BlobEmoji/Artemis/model"
	"github.com/BlobEmoji/Artemis/queue"
	"github.com/BlobEmoji/Artemis/utils"
)

// Discord implements queue.Messenger on a discordgo session.
type Discord struct {
	session  *discordgo.Session
	cfg      model.Discord
	controls []discordgo.MessageComponent
}

// NewDiscord builds the messenger. controls are attached to every queue
// entry.
func NewDiscord(session *discordgo.Session, cfg model.Discord, controls []discordgo.MessageComponent) *Discord {
	return &Discord{session: session, cfg: cfg, controls: controls}
}

var _ queue.Messenger = (*Discord)(nil)

func (d *Discord) SendQueueEntry(ctx context.Context, content string) (string, error) {
	msg, err := d.session.ChannelMessageSendComplex(d.cfg.QueueChannelID, &discordgo.MessageSend{
		Content:         content,
		Components:      d.controls,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", resourceError("discord.queue_channel_id", d.cfg.QueueChannelID, err)
	}
	return msg.ID, nil
}

func (d *Discord) EditQueueEntry(ctx context.Context, messageID, content string) error {
	_, err := d.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:              messageID,
		Channel:         d.cfg.QueueChannelID,
		Content:         &content,
		Components:      &d.controls,
		AllowedMentions: &discordgo.MessageAllowedMentions{},
	}, discordgo.WithContext(ctx))
	return resourceError("discord.queue_channel_id", d.cfg.QueueChannelID, err)
}

func (d *Discord) DeleteQueueEntry(ctx context.Context, messageID string) error {
	err := d.session.ChannelMessageDelete(d.cfg.QueueChannelID, messageID, discordgo.WithContext(ctx))
	return resourceError("discord.queue_channel_id", d.cfg.QueueChannelID, err)
}

func (d *Discord) PostGallery(ctx context.Context, post queue.GalleryPost) (string, error) {
	embed := &discordgo.MessageEmbed{
		Title: post.Title,
		Color: d.cfg.EmbedColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    post.AuthorName,
			IconURL: post.AuthorIconURL,
		},
		Image: &discordgo.MessageEmbedImage{URL: post.ImageURL},
	}
	if post.PlaqueURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: post.PlaqueURL}
	}

	msg, err := d.session.ChannelMessageSendComplex(d.cfg.GalleryChannelID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{embed},
		Files:  utils.DiscordFiles(post.Files...),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", resourceError("discord.gallery_channel_id", d.cfg.GalleryChannelID, err)
	}
	return msg.ID, nil
}

func (d *Discord) SendDirectMessage(ctx context.Context, userID, content string) error {
	ch, err := d.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return err
	}
	_, err = d.session.ChannelMessageSendComplex(ch.ID, &discordgo.MessageSend{
		Content:         content,
		AllowedMentions: &discordgo.MessageAllowedMentions{Users: []string{userID}},
	}, discordgo.WithContext(ctx))
	return err
}

// GrantRole adds the event role unless the member already has it.
func (d *Discord) GrantRole(ctx context.Context, userID string) error {
	member, err := d.session.GuildMember(d.cfg.GuildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return resourceError("discord.guild_id", d.cfg.GuildID, err)
	}
	if slices.Contains(member.Roles, d.cfg.EventRoleID) {
		return nil
	}
	err = d.session.GuildMemberRoleAdd(d.cfg.GuildID, userID, d.cfg.EventRoleID, discordgo.WithContext(ctx))
	return resourceError("discord.event_role_id", d.cfg.EventRoleID, err)
}

func (d *Discord) Member(ctx context.Context, userID string) (model.Member, error) {
	m, err := d.session.GuildMember(d.cfg.GuildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return model.Member{}, resourceError("discord.guild_id", d.cfg.GuildID, err)
	}
	if m.User == nil {
		return model.Member{}, errors.New("member has no user")
	}
	return model.Member{
		ID:            m.User.ID,
		Username:      m.User.Username,
		Discriminator: m.User.Discriminator,
		AvatarKey:     m.User.Avatar,
		AvatarURL:     m.User.AvatarURL("1024"),
		Roles:         m.Roles,
	}, nil
}

// VerifyResources resolves every configured id once so misconfiguration
// fails at startup instead of on the first submission.
func (d *Discord) VerifyResources(ctx context.Context) error {
	if _, err := d.session.Guild(d.cfg.GuildID, discordgo.WithContext(ctx)); err != nil {
		return resourceError("discord.guild_id", d.cfg.GuildID, err)
	}
	channels := []struct{ field, id string }{
		{"discord.submission_channel_id", d.cfg.SubmissionChannelID},
		{"discord.queue_channel_id", d.cfg.QueueChannelID},
		{"discord.gallery_channel_id", d.cfg.GalleryChannelID},
	}
	for _, c := range channels {
		if _, err := d.session.Channel(c.id, discordgo.WithContext(ctx)); err != nil {
			return resourceError(c.field, c.id, err)
		}
	}

	roles, err := d.session.GuildRoles(d.cfg.GuildID, discordgo.WithContext(ctx))
	if err != nil {
		return resourceError("discord.guild_id", d.cfg.GuildID, err)
	}
	for _, r := range roles {
		if r.ID == d.cfg.EventRoleID {
			return nil
		}
	}
	return &ConfiguredResourceNotFoundError{Field: "discord.event_role_id", ID: d.cfg.EventRoleID}
}
