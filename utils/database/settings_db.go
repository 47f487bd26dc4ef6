package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"navi/model"
)

// GuildSettings returns the settings of a guild; unset guilds get empty settings.
func (s *Store) GuildSettings(ctx context.Context, guildID string) (*model.GuildSettings, error) {
	var gs model.GuildSettings
	err := s.db.GetContext(ctx, &gs, "SELECT * FROM guild_settings WHERE guild_id = ?", guildID)
	if errors.Is(err, sql.ErrNoRows) {
		return &model.GuildSettings{GuildID: guildID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings for guild %s: %w", guildID, err)
	}
	return &gs, nil
}

func (s *Store) setGuildColumn(ctx context.Context, guildID, column, value string) error {
	// column is always one of the constants below, never user input.
	query := fmt.Sprintf(`INSERT INTO guild_settings (guild_id, %[1]s) VALUES (?, ?)
		ON CONFLICT(guild_id) DO UPDATE SET %[1]s = excluded.%[1]s`, column)
	if _, err := s.db.ExecContext(ctx, query, guildID, value); err != nil {
		return fmt.Errorf("failed to update %s for guild %s: %w", column, guildID, err)
	}
	return nil
}

// SetJailRole sets the restriction role applied by Jail enforcement. Empty clears it.
func (s *Store) SetJailRole(ctx context.Context, guildID, roleID string) error {
	return s.setGuildColumn(ctx, guildID, "jail_role_id", roleID)
}

// SetMuteRole sets the role applied by mute punishments.
func (s *Store) SetMuteRole(ctx context.Context, guildID, roleID string) error {
	return s.setGuildColumn(ctx, guildID, "mute_role_id", roleID)
}

// SetJournalChannel sets the channel journal events of a guild are relayed to.
func (s *Store) SetJournalChannel(ctx context.Context, guildID, channelID string) error {
	return s.setGuildColumn(ctx, guildID, "journal_channel_id", channelID)
}

// DeleteGuildSettings removes the settings row of a guild.
func (s *Store) DeleteGuildSettings(ctx context.Context, guildID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM guild_settings WHERE guild_id = ?", guildID); err != nil {
		return fmt.Errorf("failed to delete settings for guild %s: %w", guildID, err)
	}
	return nil
}
