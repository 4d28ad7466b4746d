package command

import (
	"github.com/BlobEmoji/Artemis/command/def"

	"github.com/bwmarrin/discordgo"
)

// AllCommands contains all of the commands
var AllCommands = []*discordgo.ApplicationCommand{
	def.CardCommand,
	def.PromptCommand,
}
