package database

import (
	"context"
	"fmt"

	"navi/model"

	"github.com/jmoiron/sqlx"
)

// ListFilters returns the filters of one scope in insertion order.
func (s *Store) ListFilters(ctx context.Context, scope model.ScopeKey) ([]model.FilterRule, error) {
	var rules []model.FilterRule
	query := "SELECT * FROM filters WHERE scope = ? AND scope_id = ? ORDER BY id"
	if err := s.db.SelectContext(ctx, &rules, query, scope.Kind, scope.ID); err != nil {
		return nil, fmt.Errorf("failed to list filters for %s: %w", scope, err)
	}
	return rules, nil
}

// ListGuildFilters returns every text filter of a guild, server and channel scopes alike.
func (s *Store) ListGuildFilters(ctx context.Context, guildID string) ([]model.FilterRule, error) {
	var rules []model.FilterRule
	query := "SELECT * FROM filters WHERE guild_id = ? ORDER BY scope, scope_id, id"
	if err := s.db.SelectContext(ctx, &rules, query, guildID); err != nil {
		return nil, fmt.Errorf("failed to list filters for guild %s: %w", guildID, err)
	}
	return rules, nil
}

// SaveFilter inserts a filter or replaces the severity of the existing one with the same text.
func (s *Store) SaveFilter(ctx context.Context, rule model.FilterRule) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `INSERT INTO filters (guild_id, scope, scope_id, text, severity)
			VALUES (:guild_id, :scope, :scope_id, :text, :severity)
			ON CONFLICT(scope, scope_id, text) DO UPDATE SET severity = excluded.severity`
		if _, err := tx.NamedExecContext(ctx, query, rule); err != nil {
			return fmt.Errorf("failed to upsert filter %q: %w", rule.Text, err)
		}
		return nil
	})
}

// DeleteFilter deletes a filter and reports whether it existed.
func (s *Store) DeleteFilter(ctx context.Context, scope model.ScopeKey, text string) (bool, error) {
	var n int64
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM filters WHERE scope = ? AND scope_id = ? AND text = ?", scope.Kind, scope.ID, text)
		if err != nil {
			return fmt.Errorf("failed to delete filter %q: %w", text, err)
		}
		n, err = rowsAffected(res)
		return err
	})
	return n > 0, err
}

// DeleteScopeFilters deletes every filter of a scope. Removing a guild's
// server scope cascades to all its channel scopes.
func (s *Store) DeleteScopeFilters(ctx context.Context, scope model.ScopeKey) (int64, error) {
	var n int64
	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		var (
			query = "DELETE FROM filters WHERE scope = ? AND scope_id = ?"
			args  = []interface{}{scope.Kind, scope.ID}
		)
		if scope.Kind == model.ScopeServer {
			query = "DELETE FROM filters WHERE guild_id = ?"
			args = []interface{}{scope.ID}
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete filters of %s: %w", scope, err)
		}
		n, err = rowsAffected(res)
		return err
	})
	return n, err
}
