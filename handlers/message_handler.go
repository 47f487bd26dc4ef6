package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"navi/bot"
	"navi/enforcement"
	"navi/filter"
	"navi/journal"
	"navi/model"

	"github.com/bwmarrin/discordgo"
)

const messageCheckTimeout = time.Minute

// checkMessage runs the text filters and then, if the message survived, the
// content filters over its links and attachments.
func checkMessage(s *discordgo.Session, b *bot.Bot, m *discordgo.Message) {
	if m == nil || m.GuildID == "" || m.Author == nil {
		return
	}
	if s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), messageCheckTimeout)
	defer cancel()

	perms, err := b.Platform.ChannelPermissions(ctx, m.Author.ID, m.ChannelID)
	if err != nil {
		log.Printf("[Handlers] Could not resolve permissions of %s in %s: %v", m.Author.ID, m.ChannelID, err)
	}
	exempt, err := b.Immunity.Exempt(ctx, m.GuildID, m.Author.ID, perms, m.Author.Bot)
	if err != nil {
		log.Printf("[Handlers] %v", err)
		return
	}
	if exempt {
		return
	}

	scopes, err := b.Filters.Scopes(ctx, m.GuildID, filterChannel(s, m.ChannelID))
	if err != nil {
		log.Printf("[Handlers] %v", err)
		return
	}
	msg := enforcement.Message{
		GuildID:   m.GuildID,
		GuildName: guildName(s, m.GuildID),
		ChannelID: m.ChannelID,
		MessageID: m.ID,
		AuthorID:  m.Author.ID,
	}

	if v := filter.Resolve(m.Content, scopes); v != nil {
		reportEnforcement(b.Journal, m.GuildID, b.Enforcer.Enforce(ctx, v, msg))
		if v.Severity() >= model.SeverityBlock {
			return
		}
	}

	urls := messageURLs(m)
	if len(urls) == 0 {
		return
	}
	rules, err := b.Content.Rules(ctx, m.GuildID)
	if err != nil {
		log.Printf("[Handlers] %v", err)
		return
	}
	if v := b.Checker.Check(ctx, urls, rules); v != nil {
		reportEnforcement(b.Journal, m.GuildID, b.Enforcer.EnforceContent(ctx, v, msg))
	}
}

// messageURLs returns the links in the message text followed by its attachments.
func messageURLs(m *discordgo.Message) []string {
	urls := filter.ExtractURLs(m.Content)
	for _, a := range m.Attachments {
		if a.URL != "" {
			urls = append(urls, a.URL)
		}
	}
	return urls
}

// filterChannel maps threads onto their parent, which is where channel filters live.
func filterChannel(s *discordgo.Session, channelID string) string {
	ch, err := s.State.Channel(channelID)
	if err != nil || ch == nil {
		return channelID
	}
	if ch.IsThread() && ch.ParentID != "" {
		return ch.ParentID
	}
	return channelID
}

func guildName(s *discordgo.Session, guildID string) string {
	if g, err := s.State.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	return guildID
}

func reportEnforcement(events journal.Emitter, guildID string, err error) {
	if err == nil {
		return
	}
	log.Printf("[Handlers] Enforcement in guild %s incomplete: %v", guildID, err)
	var roleErr *enforcement.RoleError
	if errors.As(err, &roleErr) {
		events.Emit(journal.Event{
			Path:    "filter.jail",
			GuildID: guildID,
			Level:   journal.Error,
			Icon:    "⛔",
			Content: fmt.Sprintf("could not apply <@&%s> to <@%s>; check the bot's role position and permissions", roleErr.RoleID, roleErr.UserID),
		})
	}
}

func quoteShort(s string) string {
	return enforcement.Quote(enforcement.Truncate(s, 500))
}
