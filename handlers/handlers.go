package handlers

import (
	"context"
	"fmt"
	"log"
	"time"

	"navi/bot"
	"navi/filter"
	"navi/journal"
	"navi/model"

	"github.com/bwmarrin/discordgo"
)

type commandHandler func(s *discordgo.Session, i *discordgo.InteractionCreate)

func Register(b *bot.Bot) {
	b.CommandHandlers = commandHandlers(b)
	members := newMemberScanner(b)
	b.Filters.OnChange(func(guildID string, scope model.ScopeKey, f *filter.Filter) {
		members.rescan(context.Background(), guildID, scope, f)
	})
	addHandlers(b, members)
}

func commandHandlers(b *bot.Bot) map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		"filter":        moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleFilterCommand(s, i, b) }),
		"contentfilter": moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleContentFilterCommand(s, i, b) }),
		"immunity":      moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleImmunityCommand(s, i, b) }),
		"jailrole":      moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleJailRoleCommand(s, i, b) }),
		"muterole":      moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleMuteRoleCommand(s, i, b) }),
		"journal":       moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleJournalCommand(s, i, b) }),
		"temprole":      moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleTempRoleCommand(s, i, b) }),
		"mute":          moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleMuteCommand(s, i, b) }),
		"tasks":         moderatorOnly(b, func(s *discordgo.Session, i *discordgo.InteractionCreate) { handleTasksCommand(s, i, b) }),
		"remind": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleRemindCommand(s, i, b)
		},
		"status": func(s *discordgo.Session, i *discordgo.InteractionCreate) {
			handleStatusCommand(s, i, b)
		},
	}
}

func addHandlers(b *bot.Bot, members *memberScanner) {
	b.Session.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		log.Printf("Logged in as: %v#%v", s.State.User.Username, s.State.User.Discriminator)
	})
	b.Session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		handleInteractionCreate(s, i, b)
	})

	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		checkMessage(s, b, m.Message)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		if m.Author == nil || m.GuildID == "" {
			return
		}
		if m.BeforeUpdate != nil && m.BeforeUpdate.Content != m.Content {
			b.Journal.Emit(journal.Event{
				Path:      "message.edit",
				GuildID:   m.GuildID,
				ChannelID: m.ChannelID,
				Icon:      "✏️",
				Content:   fmt.Sprintf("<@%s> edited a message in <#%s>\nbefore: %s", m.Author.ID, m.ChannelID, quoteShort(m.BeforeUpdate.Content)),
			})
		}
		checkMessage(s, b, m.Message)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageDelete) {
		if m.GuildID == "" {
			return
		}
		content := fmt.Sprintf("message %s deleted in <#%s>", m.ID, m.ChannelID)
		if before := m.BeforeDelete; before != nil && before.Author != nil {
			content = fmt.Sprintf("message by <@%s> deleted in <#%s>\n%s", before.Author.ID, m.ChannelID, quoteShort(before.Content))
		}
		b.Journal.Emit(journal.Event{Path: "message.delete", GuildID: m.GuildID, ChannelID: m.ChannelID, Icon: "🗑", Content: content})
	})

	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		b.Journal.Emit(journal.Event{
			Path:    "member.join",
			GuildID: m.GuildID,
			Icon:    "📥",
			Content: fmt.Sprintf("<@%s> joined", m.User.ID),
		})
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		members.checkNames(ctx, m.GuildID, m.Member, true, true, nil)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		nickChanged, nameChanged := true, false
		if before := m.BeforeUpdate; before != nil {
			nickChanged = before.Nick != m.Nick
			nameChanged = before.User != nil && before.User.Username != m.User.Username
		}
		if !nickChanged && !nameChanged {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		members.checkNames(ctx, m.GuildID, m.Member, nameChanged, nickChanged, nil)
	})
	b.Session.AddHandler(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		b.Journal.Emit(journal.Event{
			Path:    "member.leave",
			GuildID: m.GuildID,
			Icon:    "📤",
			Content: fmt.Sprintf("<@%s> (%s) left", m.User.ID, m.User.Username),
		})
	})

	b.Session.AddHandler(func(s *discordgo.Session, c *discordgo.ChannelDelete) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		n, err := b.Filters.DropScope(ctx, model.ChannelScope(c.ID))
		if err != nil {
			log.Printf("[Handlers] %v", err)
			return
		}
		if n > 0 {
			log.Printf("[Handlers] Dropped %d filters of deleted channel %s", n, c.ID)
		}
	})
	b.Session.AddHandler(func(s *discordgo.Session, g *discordgo.GuildDelete) {
		// Unavailable means an outage, not a removal.
		if g.Unavailable {
			return
		}
		log.Printf("[Handlers] Removed from guild %s, dropping its settings", g.ID)
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		b.ForgetGuild(ctx, g.ID)
	})
}

func handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	if i.GuildID == "" || i.Member == nil {
		return
	}
	if h, ok := b.CommandHandlers[i.ApplicationCommandData().Name]; ok {
		h(s, i)
	}
}
