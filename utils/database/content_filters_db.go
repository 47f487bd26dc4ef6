package database

import (
	"context"
	"fmt"

	"navi/model"

	"github.com/jmoiron/sqlx"
)

// ListContentFilters returns the content filters of a guild.
func (s *Store) ListContentFilters(ctx context.Context, guildID string) ([]model.ContentFilterRule, error) {
	var rules []model.ContentFilterRule
	if err := s.db.SelectContext(ctx, &rules, "SELECT * FROM content_filters WHERE guild_id = ? ORDER BY id", guildID); err != nil {
		return nil, fmt.Errorf("failed to list content filters for guild %s: %w", guildID, err)
	}
	return rules, nil
}

// SaveContentFilter inserts or updates a content filter.
func (s *Store) SaveContentFilter(ctx context.Context, rule model.ContentFilterRule) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `INSERT INTO content_filters (guild_id, hash, severity)
			VALUES (:guild_id, :hash, :severity)
			ON CONFLICT(guild_id, hash) DO UPDATE SET severity = excluded.severity`
		if _, err := tx.NamedExecContext(ctx, query, rule); err != nil {
			return fmt.Errorf("failed to upsert content filter %s: %w", rule.Hash, err)
		}
		return nil
	})
}

// DeleteContentFilter deletes a content filter and reports whether it existed.
func (s *Store) DeleteContentFilter(ctx context.Context, guildID, hash string) (bool, error) {
	var n int64
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM content_filters WHERE guild_id = ? AND hash = ?", guildID, hash)
		if err != nil {
			return fmt.Errorf("failed to delete content filter %s: %w", hash, err)
		}
		n, err = rowsAffected(res)
		return err
	})
	return n > 0, err
}

// DeleteGuildContentFilters removes every content filter of a guild.
func (s *Store) DeleteGuildContentFilters(ctx context.Context, guildID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM content_filters WHERE guild_id = ?", guildID)
	if err != nil {
		return fmt.Errorf("failed to delete content filters of guild %s: %w", guildID, err)
	}
	return nil
}
