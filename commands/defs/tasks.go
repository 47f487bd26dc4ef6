package defs

import "github.com/bwmarrin/discordgo"

var manageRoles int64 = discordgo.PermissionManageRoles

var Remind = &discordgo.ApplicationCommand{
	Name:        "remind",
	Description: "Schedule a reminder",
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionString, Name: "in", Description: "Delay, e.g. 10m, 2h, 1d12h", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "message", Description: "Reminder text", Required: true, MaxLength: 1500},
		{Type: discordgo.ApplicationCommandOptionString, Name: "every", Description: "Repeat interval, at least 1m"},
		{Type: discordgo.ApplicationCommandOptionBoolean, Name: "dm", Description: "Send the reminder as a direct message"},
	},
}

var TempRole = &discordgo.ApplicationCommand{
	Name:                     "temprole",
	Description:              "Give a member a role for a limited time",
	DefaultMemberPermissions: &manageRoles,
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
		{Type: discordgo.ApplicationCommandOptionRole, Name: "role", Description: "Role to grant", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "How long, e.g. 3d", Required: true},
	},
}

var Mute = &discordgo.ApplicationCommand{
	Name:                     "mute",
	Description:              "Mute a member for a limited time",
	DefaultMemberPermissions: &manageRoles,
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "Member", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "duration", Description: "How long, e.g. 30m", Required: true},
		{Type: discordgo.ApplicationCommandOptionString, Name: "reason", Description: "Reason recorded in the audit log", Required: true},
	},
}

var Tasks = &discordgo.ApplicationCommand{
	Name:                     "tasks",
	Description:              "Inspect scheduled tasks",
	DefaultMemberPermissions: &manageGuild,
	Options: []*discordgo.ApplicationCommandOption{
		{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "list", Description: "List scheduled tasks of this server"},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "cancel",
			Description: "Cancel a scheduled task",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionInteger, Name: "id", Description: "Task ID from /tasks list", Required: true},
			},
		},
	},
}
