package handlers

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"navi/bot"
	"navi/enforcement"
	"navi/filter"
	"navi/model"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCase = cases.Title(language.English)

func handleFilterCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	sub, opts := subcommand(i)
	channelID := opts.id("channel")
	if channelID == "" {
		channelID = i.ChannelID
	}

	switch sub {
	case "add":
		scope, err := scopeKey(opts.str("scope"), i.GuildID, channelID)
		if err != nil {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
		severity, err := model.ParseSeverity(opts.str("severity"))
		if err != nil {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
		f, err := b.Filters.Add(ctx, i.GuildID, scope, severity, opts.str("text"))
		if errors.Is(err, filter.ErrInvalidPattern) {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
		if err != nil {
			log.Printf("[Handlers] /filter add: %v", err)
			utils.SendErrorResponse(s, i, "Could not save the filter.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ `%s` (%s, %s) now applies to %s.", f.Text(), f.Syntax(), f.Severity, describeScope(scope)))

	case "remove":
		scope, err := scopeKey(opts.str("scope"), i.GuildID, channelID)
		if err != nil {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
		text := opts.str("text")
		if _, err := b.Filters.Remove(ctx, scope, text); err != nil {
			if errors.Is(err, filter.ErrFilterNotFound) {
				utils.SendErrorResponse(s, i, fmt.Sprintf("No filter `%s` in %s.", text, describeScope(scope)))
				return
			}
			log.Printf("[Handlers] /filter remove: %v", err)
			utils.SendErrorResponse(s, i, "Could not remove the filter.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ Removed `%s` from %s.", text, describeScope(scope)))

	case "list":
		scopes, err := b.Filters.Scopes(ctx, i.GuildID, channelID)
		if err != nil {
			log.Printf("[Handlers] /filter list: %v", err)
			utils.SendErrorResponse(s, i, "Could not load filters.")
			return
		}
		embed := &discordgo.MessageEmbed{Title: "Filters", Color: 0x5865F2}
		for _, sc := range scopes {
			embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
				Name:  fmt.Sprintf("%s (%d)", titleCase.String(string(sc.Scope.Kind)), len(sc.Filters)),
				Value: scopeHeading(sc.Scope) + filterLines(sc.Filters),
			})
		}
		utils.SendEmbedResponse(s, i, embed)
	}
}

func scopeHeading(k model.ScopeKey) string {
	if k.Kind == model.ScopeChannel {
		return describeScope(k) + "\n"
	}
	return ""
}

func handleContentFilterCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	sub, opts := subcommand(i)
	switch sub {
	case "add":
		severity, err := model.ParseSeverity(opts.str("severity"))
		if err != nil {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
		hash, err := b.Content.Add(ctx, i.GuildID, opts.str("hash"), severity)
		if errors.Is(err, filter.ErrInvalidHash) {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
		if err != nil {
			log.Printf("[Handlers] /contentfilter add: %v", err)
			utils.SendErrorResponse(s, i, "Could not save the content filter.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ Files hashing to `%s` are now %s.", hash, severity))

	case "remove":
		_, err := b.Content.Remove(ctx, i.GuildID, opts.str("hash"))
		switch {
		case errors.Is(err, filter.ErrInvalidHash), errors.Is(err, filter.ErrFilterNotFound):
			utils.SendErrorResponse(s, i, err.Error())
		case err != nil:
			log.Printf("[Handlers] /contentfilter remove: %v", err)
			utils.SendErrorResponse(s, i, "Could not remove the content filter.")
		default:
			utils.SendSimpleResponse(s, i, "✅ Content filter removed.")
		}

	case "list":
		rules, err := b.Content.Rules(ctx, i.GuildID)
		if err != nil {
			log.Printf("[Handlers] /contentfilter list: %v", err)
			utils.SendErrorResponse(s, i, "Could not load content filters.")
			return
		}
		utils.SendEmbedResponse(s, i, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Content filters (%d)", len(rules)),
			Color:       0x5865F2,
			Description: contentLines(rules),
		})
	}
}

func contentLines(rules map[string]model.Severity) string {
	if len(rules) == 0 {
		return "*none*"
	}
	hashes := make([]string, 0, len(rules))
	for h := range rules {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)
	var sb strings.Builder
	for _, h := range hashes {
		fmt.Fprintf(&sb, "`%s` · %s\n", h, rules[h])
	}
	return enforcement.Truncate(strings.TrimSuffix(sb.String(), "\n"), 4000)
}

func handleImmunityCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	sub, opts := subcommand(i)
	userID := opts.id("user")
	switch sub {
	case "add":
		if err := b.Immunity.Add(ctx, i.GuildID, userID); err != nil {
			log.Printf("[Handlers] /immunity add: %v", err)
			utils.SendErrorResponse(s, i, "Could not save the immunity.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ <@%s> is now immune to filters.", userID))
	case "remove":
		err := b.Immunity.Remove(ctx, i.GuildID, userID)
		if errors.Is(err, filter.ErrFilterNotFound) {
			utils.SendErrorResponse(s, i, fmt.Sprintf("<@%s> was not immune.", userID))
			return
		}
		if err != nil {
			log.Printf("[Handlers] /immunity remove: %v", err)
			utils.SendErrorResponse(s, i, "Could not remove the immunity.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ <@%s> is no longer immune.", userID))
	}
}
