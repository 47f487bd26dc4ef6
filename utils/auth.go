package utils

import (
	"github.com/bwmarrin/discordgo"
)

// Permission levels
const (
	DeveloperPermission = "developer"
	AdminPermission     = "admin"
	GuestPermission     = "guest"
)

func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// CheckPermission returns the highest permission level of a member. Guild
// administrators and holders of a configured admin role count as admins.
func CheckPermission(member *discordgo.Member, perms int64, developerUserIDs, adminRoleIDs []string) string {
	if member == nil || member.User == nil {
		return GuestPermission
	}
	if contains(developerUserIDs, member.User.ID) {
		return DeveloperPermission
	}
	if perms&discordgo.PermissionAdministrator != 0 || perms&discordgo.PermissionManageGuild != 0 {
		return AdminPermission
	}
	for _, roleID := range member.Roles {
		if contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}
	return GuestPermission
}

// IsModerator reports whether a permission level may manage moderation settings.
func IsModerator(level string) bool {
	return level == DeveloperPermission || level == AdminPermission
}
