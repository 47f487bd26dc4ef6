package journal

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"navi/model"

	"github.com/bwmarrin/discordgo"
)

// LogSink writes every event to the process log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Write(_ context.Context, e Event) error {
	log.Printf("[Journal] %s %s guild=%s channel=%s: %s", e.Level, e.Path, e.GuildID, e.ChannelID, e.Content)
	return nil
}

// EmbedSender posts embeds to a channel. *discordgo.Session satisfies it.
type EmbedSender interface {
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// SettingsLookup resolves the per-guild journal channel.
type SettingsLookup interface {
	GuildSettings(ctx context.Context, guildID string) (*model.GuildSettings, error)
}

// ChannelSink relays events as embeds to the guild's journal channel,
// falling back to a global log channel when the guild has none.
type ChannelSink struct {
	sender   EmbedSender
	settings SettingsLookup
	fallback string
}

// NewChannelSink creates a relay sink. fallback may be empty.
func NewChannelSink(sender EmbedSender, settings SettingsLookup, fallback string) *ChannelSink {
	return &ChannelSink{sender: sender, settings: settings, fallback: fallback}
}

func (s *ChannelSink) Name() string { return "channel" }

func (s *ChannelSink) Write(ctx context.Context, e Event) error {
	channelID := s.fallback
	if e.GuildID != "" && s.settings != nil {
		gs, err := s.settings.GuildSettings(ctx, e.GuildID)
		if err != nil {
			return fmt.Errorf("failed to resolve journal channel: %w", err)
		}
		if gs.JournalChannelID != "" {
			channelID = gs.JournalChannelID
		}
	}
	if channelID == "" {
		return nil
	}
	_, err := s.sender.ChannelMessageSendEmbed(channelID, Embed(e), discordgo.WithContext(ctx))
	return err
}

// maxEmbedDescription is Discord's limit on embed descriptions.
const maxEmbedDescription = 4096

// Embed renders an event as a Discord embed.
func Embed(e Event) *discordgo.MessageEmbed {
	title := e.Path
	if e.Icon != "" {
		title = e.Icon + " " + title
	}
	content := e.Content
	if utf8.RuneCountInString(content) > maxEmbedDescription {
		content = string([]rune(content)[:maxEmbedDescription-1]) + "…"
	}
	embed := &discordgo.MessageEmbed{
		Title:       title,
		Description: content,
		Color:       color(e.Level),
		Footer:      &discordgo.MessageEmbedFooter{Text: string(e.Level)},
	}
	if !e.Time.IsZero() {
		embed.Timestamp = e.Time.Format("2006-01-02T15:04:05Z07:00")
	}
	if e.ChannelID != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Channel", Value: "<#" + e.ChannelID + ">", Inline: true})
	}
	return embed
}

func color(level Level) int {
	switch level {
	case Info:
		return 3066993 // Green
	case Warn:
		return 15105570 // Orange
	case Error:
		return 15158332 // Red
	default:
		return 3447003 // Blue
	}
}
