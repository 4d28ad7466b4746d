package def

import "github.com/bwmarrin/discordgo"

var PromptCommand = &discordgo.ApplicationCommand{
	Name:        "prompt",
	Description: "Show the current prompt and the next reveal",
}
