package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"navi/model"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrAlreadyArmed = errors.New("task already armed")
	ErrUnknownKind  = errors.New("unknown task kind")
)

// State is the lifecycle position of an armed task.
type State int

const (
	Pending State = iota
	Running
	Cancelled
	Done
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Cancelled:
		return "cancelled"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Identity is the resolved causer of a task.
type Identity struct {
	ID          string
	Name        string
	Placeholder bool
}

// PlaceholderIdentity stands in for a causer that can no longer be resolved.
func PlaceholderIdentity(id string) Identity {
	return Identity{ID: id, Name: "unknown user", Placeholder: true}
}

// Task is a record with its decoded action, owned by the scheduler once armed.
type Task struct {
	Record model.TaskRecord
	Causer Identity

	action Action
	state  State
	armed  bool
}

// NewTask decodes a record into a task.
func NewTask(rec model.TaskRecord, causer Identity) (*Task, error) {
	action, err := Decode(rec)
	if err != nil {
		return nil, err
	}
	return &Task{Record: rec, Causer: causer, action: action}, nil
}

// DueNext returns the next execution time of a task. A due time not yet
// passed is returned as is. A passed one-shot task is complete and yields
// false. A passed recurring task advances to the first boundary
// due + k*interval that is not before now, skipping missed runs.
func DueNext(task *model.TaskRecord, now time.Time) (time.Time, bool) {
	if !task.DueAt.Before(now) {
		return task.DueAt, true
	}
	interval := task.Interval()
	if interval <= 0 {
		return time.Time{}, false
	}
	elapsed := now.Sub(task.DueAt)
	k := elapsed / interval
	if elapsed%interval != 0 {
		k++
	}
	return task.DueAt.Add(k * interval), true
}

// Action is the executable payload of a task kind.
type Action interface {
	Execute(ctx context.Context, svc Services, task *Task) error
	Describe() string
}

// Decode builds the action for a record's kind.
func Decode(rec model.TaskRecord) (Action, error) {
	switch rec.Kind {
	case model.TaskRoleChange:
		var p model.RoleChangeParams
		if err := decodeParams(rec, &p); err != nil {
			return nil, err
		}
		if p.UserID == "" || len(p.Add)+len(p.Remove) == 0 {
			return nil, fmt.Errorf("task %d: role change needs a user and at least one role", rec.ID)
		}
		return roleChange{p}, nil
	case model.TaskSendMessage:
		var p model.SendMessageParams
		if err := decodeParams(rec, &p); err != nil {
			return nil, err
		}
		if p.ChannelID == "" && p.UserID == "" {
			return nil, fmt.Errorf("task %d: message has no target", rec.ID)
		}
		return sendMessage{p}, nil
	case model.TaskPunishment:
		var p model.PunishmentParams
		if err := decodeParams(rec, &p); err != nil {
			return nil, err
		}
		if p.Type != model.PunishmentMute && p.Type != model.PunishmentJail {
			return nil, fmt.Errorf("task %d: unknown punishment type %q", rec.ID, p.Type)
		}
		if p.Action != model.PunishmentApply && p.Action != model.PunishmentRelieve {
			return nil, fmt.Errorf("task %d: unknown punishment action %q", rec.ID, p.Action)
		}
		return punishment{p}, nil
	}
	return nil, fmt.Errorf("%w: %q (task %d)", ErrUnknownKind, rec.Kind, rec.ID)
}

func decodeParams(rec model.TaskRecord, v interface{}) error {
	if err := json.Unmarshal([]byte(rec.Params), v); err != nil {
		return fmt.Errorf("task %d: failed to decode %s params: %w", rec.ID, rec.Kind, err)
	}
	return nil
}
