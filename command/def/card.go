package def

import "github.com/bwmarrin/discordgo"

var CardCommand = &discordgo.ApplicationCommand{
	Name:        "card",
	Description: "Show event participation stats",
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: "The user to look up (defaults to yourself)",
			Required:    false,
		},
	},
}
