package model

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TaskKind selects the shape of a task's parameter payload.
type TaskKind string

const (
	TaskRoleChange  TaskKind = "role_change"
	TaskSendMessage TaskKind = "send_message"
	TaskPunishment  TaskKind = "punishment"
)

// TaskRecord is the durable form of a scheduled action.
type TaskRecord struct {
	ID         int64         `db:"id"`
	GuildID    string        `db:"guild_id"`
	CauserID   string        `db:"causer_id"`
	DueAt      time.Time     `db:"due_at"`
	Recurrence sql.NullInt64 `db:"recurrence_seconds"`
	Kind       TaskKind      `db:"kind"`
	Params     string        `db:"params"`
}

// Interval returns the recurrence interval, or zero for one-shot tasks.
func (t *TaskRecord) Interval() time.Duration {
	if !t.Recurrence.Valid || t.Recurrence.Int64 <= 0 {
		return 0
	}
	return time.Duration(t.Recurrence.Int64) * time.Second
}

// Recurring reports whether the task re-arms after each execution.
func (t *TaskRecord) Recurring() bool {
	return t.Interval() > 0
}

// SetInterval sets or clears the recurrence interval. Sub-second precision is dropped.
func (t *TaskRecord) SetInterval(d time.Duration) {
	secs := int64(d / time.Second)
	if secs <= 0 {
		t.Recurrence = sql.NullInt64{}
		return
	}
	t.Recurrence = sql.NullInt64{Int64: secs, Valid: true}
}

// RoleChangeParams adds and removes roles from a member.
type RoleChangeParams struct {
	UserID string   `json:"user_id"`
	Add    []string `json:"add,omitempty"`
	Remove []string `json:"remove,omitempty"`
	Reason string   `json:"reason"`
}

// SendMessageParams posts a message to a channel, or to a user's DMs when UserID is set.
type SendMessageParams struct {
	ChannelID string `json:"channel_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Body      string `json:"body"`
}

// PunishmentType is the restriction a punishment task applies or relieves.
type PunishmentType string

const (
	PunishmentMute PunishmentType = "mute"
	PunishmentJail PunishmentType = "jail"
)

// PunishmentAction is either apply or relieve.
type PunishmentAction string

const (
	PunishmentApply   PunishmentAction = "apply"
	PunishmentRelieve PunishmentAction = "relieve"
)

// PunishmentParams applies or relieves a mute/jail restriction.
type PunishmentParams struct {
	UserID string           `json:"user_id"`
	Type   PunishmentType   `json:"type"`
	Action PunishmentAction `json:"action"`
	Reason string           `json:"reason"`
}

// NewTask builds a task record with its params serialized.
func NewTask(kind TaskKind, guildID, causerID string, dueAt time.Time, params interface{}) (*TaskRecord, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize %s params: %w", kind, err)
	}
	return &TaskRecord{
		GuildID:  guildID,
		CauserID: causerID,
		DueAt:    dueAt,
		Kind:     kind,
		Params:   string(raw),
	}, nil
}
