package handlers

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"navi/bot"
	"navi/model"
	"navi/scheduler"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
)

const (
	minReminderDelay    = 10 * time.Second
	minReminderInterval = time.Minute
	maxTaskDelay        = 365 * 24 * time.Hour
)

func parseDelay(value string, floor time.Duration) (time.Duration, error) {
	d, err := utils.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d < floor {
		return 0, fmt.Errorf("duration must be at least %s", utils.FormatDuration(floor))
	}
	if d > maxTaskDelay {
		return 0, fmt.Errorf("duration must be at most %s", utils.FormatDuration(maxTaskDelay))
	}
	return d, nil
}

func handleRemindCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	opts := commandOptions(i)
	delay, err := parseDelay(opts.str("in"), minReminderDelay)
	if err != nil {
		utils.SendErrorResponse(s, i, err.Error())
		return
	}
	var every time.Duration
	if v := opts.str("every"); v != "" {
		if every, err = parseDelay(v, minReminderInterval); err != nil {
			utils.SendErrorResponse(s, i, err.Error())
			return
		}
	}

	userID := i.Member.User.ID
	params := model.SendMessageParams{Body: opts.str("message")}
	if opts.boolean("dm") {
		params.UserID = userID
	} else {
		params.ChannelID = i.ChannelID
	}
	rec, err := model.NewTask(model.TaskSendMessage, i.GuildID, userID, time.Now().Add(delay), params)
	if err != nil {
		log.Printf("[Handlers] /remind: %v", err)
		utils.SendErrorResponse(s, i, "Could not create the reminder.")
		return
	}
	rec.SetInterval(every)

	id, err := b.Tasks.Schedule(ctx, rec)
	if err != nil {
		log.Printf("[Handlers] /remind: %v", err)
		utils.SendErrorResponse(s, i, "Could not schedule the reminder.")
		return
	}
	msg := fmt.Sprintf("⏰ Reminder #%d set for %s.", id, relativeTime(rec.DueAt))
	if every > 0 {
		msg += fmt.Sprintf(" It repeats every %s.", utils.FormatDuration(every))
	}
	utils.SendSimpleResponse(s, i, msg)
}

func handleTempRoleCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	opts := commandOptions(i)
	userID, roleID := opts.id("user"), opts.id("role")
	d, err := parseDelay(opts.str("duration"), time.Minute)
	if err != nil {
		utils.SendErrorResponse(s, i, err.Error())
		return
	}

	reason := fmt.Sprintf("temporary role granted by %s for %s", i.Member.User.Username, utils.FormatDuration(d))
	if err := b.Platform.AddRole(ctx, i.GuildID, userID, roleID, reason); err != nil {
		log.Printf("[Handlers] /temprole: %v", err)
		utils.SendErrorResponse(s, i, "Could not grant the role. Check the bot's role position.")
		return
	}

	rec, err := model.NewTask(model.TaskRoleChange, i.GuildID, i.Member.User.ID, time.Now().Add(d), model.RoleChangeParams{
		UserID: userID,
		Remove: []string{roleID},
		Reason: "temporary role expired",
	})
	if err == nil {
		_, err = b.Tasks.Schedule(ctx, rec)
	}
	if err != nil {
		log.Printf("[Handlers] /temprole: %v", err)
		utils.SendErrorResponse(s, i, "The role was granted but its removal could not be scheduled.")
		return
	}
	utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ <@%s> has <@&%s> until %s.", userID, roleID, relativeTime(rec.DueAt)))
}

func handleMuteCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	opts := commandOptions(i)
	userID, reason := opts.id("user"), opts.str("reason")
	d, err := parseDelay(opts.str("duration"), time.Minute)
	if err != nil {
		utils.SendErrorResponse(s, i, err.Error())
		return
	}
	gs, err := b.Store.GuildSettings(ctx, i.GuildID)
	if err != nil {
		log.Printf("[Handlers] /mute: %v", err)
		utils.SendErrorResponse(s, i, "Could not load the server settings.")
		return
	}
	if gs.MuteRoleID == "" {
		utils.SendErrorResponse(s, i, "No mute role is configured. Set one with /muterole.")
		return
	}

	if err := b.Platform.AddRole(ctx, i.GuildID, userID, gs.MuteRoleID, reason); err != nil {
		log.Printf("[Handlers] /mute: %v", err)
		utils.SendErrorResponse(s, i, "Could not mute the member. Check the bot's role position.")
		return
	}
	rec, err := model.NewTask(model.TaskPunishment, i.GuildID, i.Member.User.ID, time.Now().Add(d), model.PunishmentParams{
		UserID: userID,
		Type:   model.PunishmentMute,
		Action: model.PunishmentRelieve,
		Reason: "mute expired: " + reason,
	})
	if err == nil {
		_, err = b.Tasks.Schedule(ctx, rec)
	}
	if err != nil {
		log.Printf("[Handlers] /mute: %v", err)
		utils.SendErrorResponse(s, i, "The member was muted but the unmute could not be scheduled.")
		return
	}
	utils.SendSimpleResponse(s, i, fmt.Sprintf("🔇 <@%s> is muted until %s.", userID, relativeTime(rec.DueAt)))
}

func handleTasksCommand(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	ctx, cancel := commandContext()
	defer cancel()

	sub, opts := subcommand(i)
	switch sub {
	case "list":
		tasks := b.Tasks.List(i.GuildID)
		utils.SendEmbedResponse(s, i, &discordgo.MessageEmbed{
			Title:       fmt.Sprintf("Scheduled tasks (%d)", len(tasks)),
			Color:       0x5865F2,
			Description: taskLines(tasks),
		})

	case "cancel":
		opt, ok := opts["id"]
		if !ok {
			utils.SendErrorResponse(s, i, "Missing task ID.")
			return
		}
		id := opt.IntValue()
		// Only tasks of this guild may be cancelled from it.
		if t, ok := b.Tasks.Get(id); !ok || t.Record.GuildID != i.GuildID {
			utils.SendErrorResponse(s, i, fmt.Sprintf("No scheduled task #%d in this server.", id))
			return
		}
		if err := b.Tasks.Cancel(ctx, id); err != nil {
			if errors.Is(err, scheduler.ErrTaskNotFound) {
				utils.SendErrorResponse(s, i, fmt.Sprintf("No scheduled task #%d in this server.", id))
				return
			}
			log.Printf("[Handlers] /tasks cancel: %v", err)
			utils.SendErrorResponse(s, i, "Could not cancel the task.")
			return
		}
		utils.SendSimpleResponse(s, i, fmt.Sprintf("✅ Task #%d cancelled.", id))
	}
}

func taskLine(t scheduler.TaskInfo) string {
	line := fmt.Sprintf("`#%d` %s · %s · by %s", t.Record.ID, relativeTime(t.Record.DueAt), t.Description, t.Causer.Name)
	if every := t.Record.Interval(); every > 0 {
		line += " · every " + utils.FormatDuration(every)
	}
	return line
}

func taskLines(tasks []scheduler.TaskInfo) string {
	if len(tasks) == 0 {
		return "*none*"
	}
	var sb strings.Builder
	for n, t := range tasks {
		line := taskLine(t) + "\n"
		if sb.Len()+len(line) > 3900 {
			fmt.Fprintf(&sb, "… and %d more", len(tasks)-n)
			break
		}
		sb.WriteString(line)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
