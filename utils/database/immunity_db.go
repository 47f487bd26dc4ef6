package database

import (
	"context"
	"fmt"
)

// ListImmunities returns the user IDs immune to filters in a guild.
func (s *Store) ListImmunities(ctx context.Context, guildID string) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, "SELECT user_id FROM filter_immunities WHERE guild_id = ?", guildID); err != nil {
		return nil, fmt.Errorf("failed to list immunities for guild %s: %w", guildID, err)
	}
	return ids, nil
}

// AddImmunity makes a member immune. Adding twice is a no-op.
func (s *Store) AddImmunity(ctx context.Context, guildID, userID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO filter_immunities (guild_id, user_id) VALUES (?, ?)", guildID, userID)
	if err != nil {
		return fmt.Errorf("failed to add immunity for user %s: %w", userID, err)
	}
	return nil
}

// RemoveImmunity revokes immunity and reports whether it existed.
func (s *Store) RemoveImmunity(ctx context.Context, guildID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM filter_immunities WHERE guild_id = ? AND user_id = ?", guildID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove immunity for user %s: %w", userID, err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}
