package bot

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"navi/commands"
	"navi/enforcement"
	"navi/filter"
	"navi/journal"
	"navi/model"
	"navi/platform"
	"navi/scheduler"
	"navi/utils"
	"navi/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"google.golang.org/grpc"
)

// rescanWindow limits member re-scans to one per guild per window.
const rescanWindow = 10 * time.Minute

type Bot struct {
	Session            *discordgo.Session
	RegisteredCommands []*discordgo.ApplicationCommand
	config             atomic.Value // *model.Config
	CommandHandlers    map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)

	Store    *database.Store
	Platform *platform.Discord
	Journal  *journal.Journal
	Filters  *filter.Registry
	Content  *filter.ContentRegistry
	Immunity *filter.Immunity
	Checker  *filter.ContentChecker
	Enforcer *enforcement.Pipeline
	Tasks    *scheduler.Scheduler
	Rescans  *utils.Cooldown

	cron       *cron.Cron
	grpcServer *grpc.Server
	startedAt  time.Time
}

func (b *Bot) GetConfig() *model.Config {
	return b.config.Load().(*model.Config)
}

func (b *Bot) GetSession() *discordgo.Session {
	return b.Session
}

// New wires the session, the filter engine and the scheduler around store.
func New(cfg *model.Config, store *database.Store) (*Bot, error) {
	dg, err := discordgo.New("Bot " + cfg.BotToken)
	if err != nil {
		return nil, err
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent |
		discordgo.IntentsGuildMembers
	dg.StateEnabled = true
	dg.State.MaxMessageCount = 500

	discord := platform.NewDiscord(dg)
	j := journal.New(512, journal.LogSink{}, journal.NewChannelSink(dg, store, cfg.LogChannelID))

	b := &Bot{
		Session:  dg,
		Store:    store,
		Platform: discord,
		Journal:  j,
		Filters:  filter.NewRegistry(store),
		Content:  filter.NewContentRegistry(store),
		Immunity: filter.NewImmunity(store, cfg.Immunity),
		Checker:  filter.NewContentChecker(utils.NewDownloader(nil, cfg.Download), 4),
		Enforcer: enforcement.New(discord, discord, store, j, cfg.Enforcement),
		Tasks: scheduler.New(store, discord, scheduler.Services{
			Messenger: discord,
			Members:   discord,
			Settings:  store,
		}, j),
		Rescans: utils.NewCooldown(rescanWindow),
	}
	b.Enforcer.SetScheduler(b.Tasks)
	b.config.Store(cfg)
	return b, nil
}

func (b *Bot) Close() {
	log.Println("Gracefully shutting down.")
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
	if b.grpcServer != nil {
		b.grpcServer.GracefulStop()
	}
	b.Tasks.Stop()
	b.Journal.Close()
	b.Session.Close()
	if err := b.Store.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}
}

// RefreshCommands overwrites the slash commands of a guild.
func (b *Bot) RefreshCommands(guildID string) {
	cmds := commands.GenerateCommands()
	log.Printf("Registering %d commands for guild %s...", len(cmds), guildID)
	registered, err := b.Session.ApplicationCommandBulkOverwrite(b.Session.State.User.ID, guildID, cmds)
	if err != nil {
		log.Printf("cannot update commands for guild '%s': %v", guildID, err)
		return
	}
	b.RegisteredCommands = append(b.RegisteredCommands, registered...)
}

// ForgetGuild drops every cached and stored setting of a guild the bot left.
func (b *Bot) ForgetGuild(ctx context.Context, guildID string) {
	if _, err := b.Filters.DropScope(ctx, model.ServerScope(guildID)); err != nil {
		log.Printf("[Bot] Failed to drop filters of guild %s: %v", guildID, err)
	}
	if err := b.Store.DeleteGuildContentFilters(ctx, guildID); err != nil {
		log.Printf("[Bot] %v", err)
	}
	b.Content.Forget(guildID)
	if err := b.Store.DeleteGuildSettings(ctx, guildID); err != nil {
		log.Printf("[Bot] %v", err)
	}
	for _, t := range b.Tasks.List(guildID) {
		if err := b.Tasks.Cancel(ctx, t.Record.ID); err != nil {
			log.Printf("[Bot] Failed to cancel task %d: %v", t.Record.ID, err)
		}
	}
	if n, err := b.Store.DeleteGuildTasks(ctx, guildID); err != nil {
		log.Printf("[Bot] %v", err)
	} else if n > 0 {
		log.Printf("[Bot] Removed %d unarmed tasks of guild %s", n, guildID)
	}
}

// Uptime returns how long the bot has been running.
func (b *Bot) Uptime() time.Duration {
	if b.startedAt.IsZero() {
		return 0
	}
	return time.Since(b.startedAt)
}
