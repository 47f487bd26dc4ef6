package bot

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"navi/grpc/server"
	"navi/journal"

	"github.com/bwmarrin/discordgo"
)

func (b *Bot) Run() {
	b.startedAt = time.Now()
	b.Journal.Start()

	err := b.Session.Open()
	if err != nil {
		log.Fatalf("Error opening connection: %v", err)
	}

	log.Println("Registering commands for all guilds...")
	b.RegisteredCommands = make([]*discordgo.ApplicationCommand, 0)
	guilds, err := b.Session.UserGuilds(200, "", "", false)
	if err != nil {
		log.Printf("Could not fetch guilds: %v", err)
	}
	for _, guild := range guilds {
		b.RefreshCommands(guild.ID)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	if _, err := b.Tasks.Rehydrate(ctx); err != nil {
		log.Printf("Error rehydrating scheduled tasks: %v", err)
	}
	cancel()
	b.Tasks.Start()

	if err := b.startMaintenance(); err != nil {
		log.Printf("Error starting maintenance jobs: %v", err)
	}
	if addr := b.GetConfig().GRPC.Address; addr != "" {
		lis, err := net.Listen("tcp", addr)
		if err != nil {
			log.Printf("Error starting gRPC listener on %s: %v", addr, err)
		} else {
			b.grpcServer = server.Serve(lis, server.NewModerationServer(b.Filters, b.Tasks))
		}
	}

	fmt.Println("Bot is now running. Press CTRL-C to exit.")
	b.Journal.Emit(journal.Event{Path: "system.startup", Content: "Bot has started successfully.", Icon: "🚀"})
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
}
