package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"navi/bot"
	"navi/enforcement"
	"navi/filter"
	"navi/model"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	commandTimeout = 15 * time.Second
	// Discord rejects embed field values above 1024 runes; leave room for the cut marker.
	maxFieldRunes = 960
)

type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	m := make(options, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (o options) str(name string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return ""
}

func (o options) boolean(name string) bool {
	if opt, ok := o[name]; ok {
		return opt.BoolValue()
	}
	return false
}

// id returns the snowflake of a user, role or channel option.
func (o options) id(name string) string {
	if opt, ok := o[name]; ok {
		if v, ok := opt.Value.(string); ok {
			return v
		}
	}
	return ""
}

// subcommand splits a command into its subcommand name and options.
func subcommand(i *discordgo.InteractionCreate) (string, options) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		return "", options{}
	}
	sub := data.Options[0]
	if sub.Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", optionMap(data.Options)
	}
	return sub.Name, optionMap(sub.Options)
}

func commandOptions(i *discordgo.InteractionCreate) options {
	return optionMap(i.ApplicationCommandData().Options)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func moderatorOnly(b *bot.Bot, h commandHandler) commandHandler {
	return func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		cfg := b.GetConfig()
		level := utils.CheckPermission(i.Member, i.Member.Permissions, cfg.DeveloperUserIDs, cfg.AdminRoleIDs)
		if !utils.IsModerator(level) {
			utils.SendErrorResponse(s, i, "You do not have permission to use this command.")
			return
		}
		h(s, i)
	}
}

func scopeKey(kind, guildID, channelID string) (model.ScopeKey, error) {
	switch model.Scope(kind) {
	case model.ScopeServer:
		return model.ServerScope(guildID), nil
	case model.ScopeChannel:
		if channelID == "" {
			return model.ScopeKey{}, fmt.Errorf("a channel filter needs a channel")
		}
		return model.ChannelScope(channelID), nil
	}
	return model.ScopeKey{}, fmt.Errorf("unknown scope %q", kind)
}

func describeScope(k model.ScopeKey) string {
	if k.Kind == model.ScopeChannel {
		return "<#" + k.ID + ">"
	}
	return "this server"
}

// filterLines renders one filter per line, cut to fit an embed field.
func filterLines(filters []*filter.Filter) string {
	if len(filters) == 0 {
		return "*none*"
	}
	var sb strings.Builder
	for _, f := range filters {
		fmt.Fprintf(&sb, "`%s` · %s\n", strings.ReplaceAll(f.Text(), "`", "ˋ"), f.Severity)
	}
	return enforcement.Truncate(strings.TrimSuffix(sb.String(), "\n"), maxFieldRunes)
}

func relativeTime(t time.Time) string {
	return fmt.Sprintf("<t:%d:R>", t.Unix())
}
