package bot

import (
	"context"
	"fmt"
	"log"
	"time"

	"navi/journal"
	"navi/utils"

	"github.com/robfig/cron/v3"
)

// startMaintenance schedules the housekeeping cron jobs.
func (b *Bot) startMaintenance() error {
	cfg := b.GetConfig().Maintenance
	c := cron.New()

	if cfg.OptimizeSpec != "" {
		if _, err := c.AddFunc(cfg.OptimizeSpec, b.optimizeDatabase); err != nil {
			return fmt.Errorf("invalid optimize spec %q: %w", cfg.OptimizeSpec, err)
		}
	}
	if cfg.StatusSpec != "" {
		if _, err := c.AddFunc(cfg.StatusSpec, b.reportStatus); err != nil {
			return fmt.Errorf("invalid status spec %q: %w", cfg.StatusSpec, err)
		}
	}
	c.Start()
	b.cron = c
	log.Printf("[Maintenance] Scheduled %d jobs", len(c.Entries()))
	return nil
}

func (b *Bot) optimizeDatabase() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if err := b.Store.Optimize(ctx); err != nil {
		log.Printf("[Maintenance] %v", err)
		return
	}
	log.Println("[Maintenance] Database optimized")
}

// StatusLine summarizes host and database state in one line.
func (b *Bot) StatusLine(ctx context.Context) string {
	info := utils.CollectSystemInfo()
	size, err := b.Store.Size(ctx)
	if err != nil {
		log.Printf("[Maintenance] Failed to read database size: %v", err)
	}
	return fmt.Sprintf("%s, db %d KB, %d tasks armed, up %s",
		info, size/1024, len(b.Tasks.List("")), b.Uptime().Round(time.Second))
}

func (b *Bot) reportStatus() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	line := b.StatusLine(ctx)
	log.Printf("[Maintenance] %s", line)
	b.Journal.Emit(journal.Event{Path: "system.status", Content: line, Icon: "📊"})
}
