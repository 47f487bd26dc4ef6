package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"navi/model"
)

// Messenger posts to channels and direct messages.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, body string) error
	SendDirect(ctx context.Context, userID, body string) error
}

// MemberEditor mutates member roles.
type MemberEditor interface {
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
}

// Settings resolves the mute and jail roles of a guild.
type Settings interface {
	GuildSettings(ctx context.Context, guildID string) (*model.GuildSettings, error)
}

// Services are the collaborators actions run against.
type Services struct {
	Messenger Messenger
	Members   MemberEditor
	Settings  Settings
}

type roleChange struct {
	p model.RoleChangeParams
}

func (a roleChange) Execute(ctx context.Context, svc Services, task *Task) error {
	var errs []error
	for _, roleID := range a.p.Add {
		if err := svc.Members.AddRole(ctx, task.Record.GuildID, a.p.UserID, roleID, a.p.Reason); err != nil {
			errs = append(errs, fmt.Errorf("add role %s: %w", roleID, err))
		}
	}
	for _, roleID := range a.p.Remove {
		if err := svc.Members.RemoveRole(ctx, task.Record.GuildID, a.p.UserID, roleID, a.p.Reason); err != nil {
			errs = append(errs, fmt.Errorf("remove role %s: %w", roleID, err))
		}
	}
	return errors.Join(errs...)
}

func (a roleChange) Describe() string {
	var parts []string
	if len(a.p.Add) > 0 {
		parts = append(parts, "add "+mentionRoles(a.p.Add))
	}
	if len(a.p.Remove) > 0 {
		parts = append(parts, "remove "+mentionRoles(a.p.Remove))
	}
	return fmt.Sprintf("%s for <@%s>", strings.Join(parts, ", "), a.p.UserID)
}

func mentionRoles(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = "<@&" + id + ">"
	}
	return strings.Join(out, " ")
}

type sendMessage struct {
	p model.SendMessageParams
}

func (a sendMessage) Execute(ctx context.Context, svc Services, task *Task) error {
	body := fmt.Sprintf("⏰ Reminder from %s: %s", task.Causer.Name, a.p.Body)
	if a.p.UserID != "" {
		return svc.Messenger.SendDirect(ctx, a.p.UserID, body)
	}
	return svc.Messenger.SendMessage(ctx, a.p.ChannelID, body)
}

func (a sendMessage) Describe() string {
	target := "<#" + a.p.ChannelID + ">"
	if a.p.UserID != "" {
		target = "DM <@" + a.p.UserID + ">"
	}
	return fmt.Sprintf("message to %s", target)
}

type punishment struct {
	p model.PunishmentParams
}

func (a punishment) Execute(ctx context.Context, svc Services, task *Task) error {
	gs, err := svc.Settings.GuildSettings(ctx, task.Record.GuildID)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}
	roleID := gs.JailRoleID
	if a.p.Type == model.PunishmentMute {
		roleID = gs.MuteRoleID
	}
	if roleID == "" {
		return fmt.Errorf("no %s role configured", a.p.Type)
	}
	if a.p.Action == model.PunishmentApply {
		return svc.Members.AddRole(ctx, task.Record.GuildID, a.p.UserID, roleID, a.p.Reason)
	}
	return svc.Members.RemoveRole(ctx, task.Record.GuildID, a.p.UserID, roleID, a.p.Reason)
}

func (a punishment) Describe() string {
	return fmt.Sprintf("%s %s for <@%s>", a.p.Action, a.p.Type, a.p.UserID)
}
