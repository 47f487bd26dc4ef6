package handlers

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"time"

	"navi/bot"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
)

func handleJailRoleCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	setGuildRole(s, i, "jail", b.Store.SetJailRole)
}

func handleMuteRoleCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	setGuildRole(s, i, "mute", b.Store.SetMuteRole)
}

func setGuildRole(s *discordgo.Session, i *discordgo.InteractionCreate, name string, set func(ctx context.Context, guildID, roleID string) error) {
	ctx, cancel := commandContext()
	defer cancel()

	roleID := commandOptions(i).id("role")
	if err := set(ctx, i.GuildID, roleID); err != nil {
		log.Printf("[Handlers] /%srole: %v", name, err)
		utils.SendErrorResponse(s, i, "Could not save the setting.")
		return
	}
	if roleID == "" {
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ The %s role has been cleared.", name))
		return
	}
	utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ The %s role is now <@&%s>.", name, roleID))
}

func handleJournalCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	channelID := commandOptions(i).id("channel")
	if err := b.Store.SetJournalChannel(ctx, i.GuildID, channelID); err != nil {
		log.Printf("[Handlers] /journal: %v", err)
		utils.SendErrorResponse(s, i, "Could not save the setting.")
		return
	}
	if channelID == "" {
		utils.SendSimpleResponse(s, i, "✅ Moderation events go to the bot's log channel again.")
		return
	}
	utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ Moderation events are now posted to <#%s>.", channelID))
}

func handleStatusCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	info := utils.CollectSystemInfo()
	dbSize, err := b.Store.Size(ctx)
	if err != nil {
		log.Printf("[Handlers] /status: %v", err)
	}

	embed := &discordgo.MessageEmbed{
		Title: "System status",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "💻 OS", Value: orDash(info.Platform), Inline: true},
			{Name: "🔧 Kernel", Value: orDash(info.KernelVersion), Inline: true},
			{Name: "🐹 Go", Value: runtime.Version(), Inline: true},
			{Name: "🔼 CPUs", Value: fmt.Sprintf("%d", info.CPUCount), Inline: true},
			{Name: "🔥 CPU usage", Value: fmt.Sprintf("%.1f%%", info.CPUPercent), Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", info.MemPercent, info.MemUsed/1024/1024, info.MemTotal/1024/1024), Inline: true},
			{Name: "🗃️ Database", Value: fmt.Sprintf("%d KB", dbSize/1024), Inline: true},
			{Name: "⏱️ Latency", Value: s.HeartbeatLatency().Round(time.Millisecond).String(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", info.Goroutines), Inline: true},
			{Name: "🏠 Guilds", Value: fmt.Sprintf("%d", len(s.State.Guilds)), Inline: true},
			{Name: "⏰ Armed tasks", Value: fmt.Sprintf("%d", len(b.Tasks.List(""))), Inline: true},
			{Name: "🕒 Uptime", Value: utils.FormatDuration(b.Uptime().Round(time.Second)), Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	utils.SendEmbedResponse(s, i, embed)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
