package commands

import (
	"navi/commands/defs"

	"github.com/bwmarrin/discordgo"
)

// GenerateCommands returns every slash command the bot registers per guild.
func GenerateCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		defs.Filter,
		defs.ContentFilter,
		defs.Immunity,
		defs.JailRole,
		defs.MuteRole,
		defs.Journal,
		defs.Remind,
		defs.TempRole,
		defs.Mute,
		defs.Tasks,
		defs.Status,
	}
}
