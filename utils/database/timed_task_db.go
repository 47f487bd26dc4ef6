package database

import (
	"context"
	"fmt"

	"navi/model"
)

// InsertTask persists a scheduled task and returns its new ID.
func (s *Store) InsertTask(ctx context.Context, task *model.TaskRecord) (int64, error) {
	query := `INSERT INTO scheduled_tasks (guild_id, causer_id, due_at, recurrence_seconds, kind, params)
              VALUES (:guild_id, :causer_id, :due_at, :recurrence_seconds, :kind, :params)`

	row := *task
	row.DueAt = task.DueAt.UTC()
	res, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return 0, fmt.Errorf("failed to insert scheduled task: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

// ListTasks returns every persisted task.
func (s *Store) ListTasks(ctx context.Context) ([]model.TaskRecord, error) {
	var tasks []model.TaskRecord
	if err := s.db.SelectContext(ctx, &tasks, "SELECT * FROM scheduled_tasks ORDER BY due_at, id"); err != nil {
		return nil, fmt.Errorf("failed to list scheduled tasks: %w", err)
	}
	return tasks, nil
}

// GetTask returns a single task by ID.
func (s *Store) GetTask(ctx context.Context, id int64) (*model.TaskRecord, error) {
	var task model.TaskRecord
	if err := s.db.GetContext(ctx, &task, "SELECT * FROM scheduled_tasks WHERE id = ?", id); err != nil {
		return nil, fmt.Errorf("failed to get scheduled task %d: %w", id, err)
	}
	return &task, nil
}

// DeleteTask deletes a task and reports whether it existed.
func (s *Store) DeleteTask(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	n, err := rowsAffected(res)
	return n > 0, err
}

// DeleteGuildTasks removes every task of a guild.
func (s *Store) DeleteGuildTasks(ctx context.Context, guildID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE guild_id = ?", guildID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks of guild %s: %w", guildID, err)
	}
	return rowsAffected(res)
}
