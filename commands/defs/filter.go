package defs

import "github.com/bwmarrin/discordgo"

var manageGuild int64 = discordgo.PermissionManageGuild

var severityChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "flag", Value: "flag"},
	{Name: "block", Value: "block"},
	{Name: "jail", Value: "jail"},
}

var scopeChoices = []*discordgo.ApplicationCommandOptionChoice{
	{Name: "server", Value: "server"},
	{Name: "channel", Value: "channel"},
}

var channelOption = &discordgo.ApplicationCommandOption{
	Type:         discordgo.ApplicationCommandOptionChannel,
	Name:         "channel",
	Description:  "Channel of a channel-scoped filter; defaults to the current channel",
	ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildVoice, discordgo.ChannelTypeGuildForum},
}

var Filter = &discordgo.ApplicationCommand{
	Name:                     "filter",
	Description:              "Manage text filters",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Add a filter or change its severity",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "scope", Description: "Where the filter applies", Required: true, Choices: scopeChoices},
				{Type: discordgo.ApplicationCommandOptionString, Name: "severity", Description: "What happens on a match", Required: true, Choices: severityChoices},
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "Text, regex:<pattern> or raw-regex:<pattern>", Required: true},
				channelOption,
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove a filter",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "scope", Description: "Where the filter applies", Required: true, Choices: scopeChoices},
				{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "The filter definition", Required: true},
				channelOption,
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "List the filters of the server and a channel",
			Options:     []*discordgo.ApplicationCommandOption{channelOption},
		},
	},
}

var ContentFilter = &discordgo.ApplicationCommand{
	Name:                     "contentfilter",
	Description:              "Manage file content filters",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Block files by SHA-256 digest",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "hash", Description: "64 character hex SHA-256 digest", Required: true, MinLength: intPtr(64), MaxLength: 64},
				{Type: discordgo.ApplicationCommandOptionString, Name: "severity", Description: "What happens on a match", Required: true, Choices: severityChoices},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove a content filter",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "hash", Description: "64 character hex SHA-256 digest", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list",
			Description: "List content filters",
		},
	},
}

var Immunity = &discordgo.ApplicationCommand{
	Name:                     "immunity",
	Description:              "Exempt members from filters",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Make a member immune",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Revoke a member's immunity",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
			},
		},
	},
}

func intPtr(v int) *int { return &v }
