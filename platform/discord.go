package platform

import (
	"context"
	"fmt"

	"navi/scheduler"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
)

// Discord adapts a session to the messaging, member and directory
// interfaces used by enforcement and the scheduler.
type Discord struct {
	session *discordgo.Session
}

// NewDiscord wraps a session.
func NewDiscord(s *discordgo.Session) *Discord {
	return &Discord{session: s}
}

// DeleteMessage deletes a message, recording reason in the audit log.
func (d *Discord) DeleteMessage(ctx context.Context, channelID, messageID, reason string) error {
	err := d.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

// SendDirect sends a direct message to a user.
func (d *Discord) SendDirect(ctx context.Context, userID, body string) error {
	return utils.SendPrivateMessage(d.session, userID, body, discordgo.WithContext(ctx))
}

// SendMessage posts to a channel.
func (d *Discord) SendMessage(ctx context.Context, channelID, body string) error {
	if _, err := d.session.ChannelMessageSend(channelID, body, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// AddRole adds a role to a member.
func (d *Discord) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	err := d.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("failed to add role %s to user %s: %w", roleID, userID, err)
	}
	return nil
}

// RemoveRole removes a role from a member.
func (d *Discord) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	err := d.session.GuildMemberRoleRemove(guildID, userID, roleID, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("failed to remove role %s from user %s: %w", roleID, userID, err)
	}
	return nil
}

// SetNickname sets a member's nickname; an empty nickname clears it.
func (d *Discord) SetNickname(ctx context.Context, guildID, userID, nickname, reason string) error {
	err := d.session.GuildMemberNickname(guildID, userID, nickname, discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason))
	if err != nil {
		return fmt.Errorf("failed to set nickname of user %s: %w", userID, err)
	}
	return nil
}

// GuildName resolves a guild from the state cache, falling back to the API.
func (d *Discord) GuildName(ctx context.Context, guildID string) (string, error) {
	if g, err := d.session.State.Guild(guildID); err == nil {
		return g.Name, nil
	}
	g, err := d.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to resolve guild %s: %w", guildID, err)
	}
	return g.Name, nil
}

// User resolves a user into a scheduler identity.
func (d *Discord) User(ctx context.Context, userID string) (scheduler.Identity, error) {
	u, err := d.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		return scheduler.Identity{}, fmt.Errorf("failed to resolve user %s: %w", userID, err)
	}
	return scheduler.Identity{ID: u.ID, Name: u.Username}, nil
}

// ChannelPermissions returns a member's effective permissions in a channel.
func (d *Discord) ChannelPermissions(ctx context.Context, userID, channelID string) (int64, error) {
	if perms, err := d.session.State.UserChannelPermissions(userID, channelID); err == nil {
		return perms, nil
	}
	return d.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
}

// GuildPermissions returns a member's guild-wide permissions, computed from its roles.
func (d *Discord) GuildPermissions(ctx context.Context, guildID string, member *discordgo.Member) (int64, error) {
	g, err := d.session.State.Guild(guildID)
	if err != nil {
		if g, err = d.session.Guild(guildID, discordgo.WithContext(ctx)); err != nil {
			return 0, fmt.Errorf("failed to resolve guild %s: %w", guildID, err)
		}
	}
	if member.User != nil && g.OwnerID == member.User.ID {
		return discordgo.PermissionAll, nil
	}
	var perms int64
	for _, role := range g.Roles {
		if role.ID == guildID {
			perms |= role.Permissions
			continue
		}
		for _, id := range member.Roles {
			if id == role.ID {
				perms |= role.Permissions
			}
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll, nil
	}
	return perms, nil
}

// Members walks every member of a guild, calling fn for each page.
func (d *Discord) Members(ctx context.Context, guildID string, fn func([]*discordgo.Member) error) error {
	after := ""
	for {
		page, err := d.session.GuildMembers(guildID, after, 1000, discordgo.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to list members of guild %s: %w", guildID, err)
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(page) < 1000 {
			return nil
		}
		after = page[len(page)-1].User.ID
	}
}
