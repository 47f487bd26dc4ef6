package defs

import "github.com/bwmarrin/discordgo"

var JailRole = &discordgo.ApplicationCommand{
	Name:                     "jailrole",
	Description:              "Set the role applied by jail enforcement",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Restriction role; omit to clear"},
	},
}

var MuteRole = &discordgo.ApplicationCommand{
	Name:                     "muterole",
	Description:              "Set the role applied by /mute",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Mute role; omit to clear"},
	},
}

var Journal = &discordgo.ApplicationCommand{
	Name:                     "journal",
	Description:              "Set the channel moderation events are posted to",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "channel",
			Description:  "Journal channel; omit to clear",
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		},
	},
}

var Status = &discordgo.ApplicationCommand{
	Name:        "status",
	Description: "Show host and bot status",
}
