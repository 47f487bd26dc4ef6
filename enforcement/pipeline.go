package enforcement

import (
	"context"
	"fmt"
	"log"
	"time"

	"navi/filter"
	"navi/journal"
	"navi/model"

	"github.com/sourcegraph/conc"
)

// Messenger deletes messages and sends direct messages.
type Messenger interface {
	DeleteMessage(ctx context.Context, channelID, messageID, reason string) error
	SendDirect(ctx context.Context, userID, body string) error
}

// MemberEditor mutates member roles and nicknames with an audit log reason.
type MemberEditor interface {
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	SetNickname(ctx context.Context, guildID, userID, nickname, reason string) error
}

// Settings resolves per-guild moderation settings.
type Settings interface {
	GuildSettings(ctx context.Context, guildID string) (*model.GuildSettings, error)
}

// Scheduler persists and arms deferred tasks.
type Scheduler interface {
	Schedule(ctx context.Context, task *model.TaskRecord) (int64, error)
}

// RoleError reports a restriction role that could not be applied.
type RoleError struct {
	GuildID string
	UserID  string
	RoleID  string
	Err     error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("failed to apply role %s to user %s: %v", e.RoleID, e.UserID, e.Err)
}

func (e *RoleError) Unwrap() error { return e.Err }

// Message locates the content a violation was found in.
type Message struct {
	GuildID   string
	GuildName string
	ChannelID string
	MessageID string
	AuthorID  string
}

// NameKind distinguishes account usernames from per-guild nicknames.
type NameKind string

const (
	Username NameKind = "username"
	Nickname NameKind = "nickname"
)

// Member identifies a member whose name is being enforced.
type Member struct {
	GuildID string
	UserID  string
}

// Pipeline executes the graduated response to a violation.
type Pipeline struct {
	messenger Messenger
	members   MemberEditor
	settings  Settings
	journal   journal.Emitter
	scheduler Scheduler
	cfg       model.EnforcementConfig
	now       func() time.Time
}

// New creates a pipeline. Auto relief stays off until a scheduler is attached.
func New(m Messenger, e MemberEditor, s Settings, j journal.Emitter, cfg model.EnforcementConfig) *Pipeline {
	return &Pipeline{messenger: m, members: e, settings: s, journal: j, cfg: cfg, now: time.Now}
}

// SetScheduler attaches the scheduler used for timed jail relief.
func (p *Pipeline) SetScheduler(s Scheduler) {
	p.scheduler = s
}

// Enforce applies the response for a text violation found in a message.
func (p *Pipeline) Enforce(ctx context.Context, v *filter.Violation, msg Message) error {
	if v == nil {
		return nil
	}
	sev := v.Severity()
	p.journal.Emit(journal.Event{
		Path:      "filter." + sev.String(),
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Level:     levelFor(sev),
		Icon:      "🚩",
		Content: fmt.Sprintf("<@%s> matched `%s` (%s scope)\n%s",
			msg.AuthorID, v.Filter.Text(), v.Scope.Kind, Quote(Truncate(v.Content, MaxQuotedRunes))),
	})
	if sev < model.SeverityBlock {
		return nil
	}

	reason := fmt.Sprintf("matched filter %q", v.Filter.Text())
	p.block(
		func() error { return p.messenger.DeleteMessage(ctx, msg.ChannelID, msg.MessageID, reason) },
		func() error {
			return p.messenger.SendDirect(ctx, msg.AuthorID, messageNotice(msg.GuildName, msg.ChannelID, v.Filter.Text(), v.Content))
		},
	)

	if sev < model.SeverityJail {
		return nil
	}
	return p.jail(ctx, msg.GuildID, msg.ChannelID, msg.AuthorID, reason)
}

// EnforceContent applies the response for a blocked file linked from a message.
func (p *Pipeline) EnforceContent(ctx context.Context, v *filter.ContentViolation, msg Message) error {
	if v == nil {
		return nil
	}
	p.journal.Emit(journal.Event{
		Path:      "filter.content." + v.Severity.String(),
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Level:     levelFor(v.Severity),
		Icon:      "📎",
		Content:   fmt.Sprintf("<@%s> linked blocked content %s\nhash `%s`", msg.AuthorID, v.URL, v.Hash),
	})
	if v.Severity < model.SeverityBlock {
		return nil
	}

	reason := "linked blocked content " + v.Hash
	p.block(
		func() error { return p.messenger.DeleteMessage(ctx, msg.ChannelID, msg.MessageID, reason) },
		func() error { return p.messenger.SendDirect(ctx, msg.AuthorID, contentNotice(msg.ChannelID, v.URL)) },
	)

	if v.Severity < model.SeverityJail {
		return nil
	}
	return p.jail(ctx, msg.GuildID, msg.ChannelID, msg.AuthorID, reason)
}

// EnforceName applies the response for a username or nickname violation.
// A Block on a username is masked and always escalates to Jail; a Block on a
// nickname only clears it.
func (p *Pipeline) EnforceName(ctx context.Context, v *filter.Violation, m Member, kind NameKind) error {
	if v == nil {
		return nil
	}
	sev := v.Severity()
	p.journal.Emit(journal.Event{
		Path:    "filter.name." + sev.String(),
		GuildID: m.GuildID,
		Level:   levelFor(sev),
		Icon:    "🏷",
		Content: fmt.Sprintf("<@%s> has a %s matching `%s`\n%s",
			m.UserID, kind, v.Filter.Text(), Quote(Truncate(v.Content, MaxQuotedRunes))),
	})
	if sev < model.SeverityBlock {
		return nil
	}

	reason := fmt.Sprintf("%s matched filter %q", kind, v.Filter.Text())
	nickname, action := "", "cleared"
	if kind == Username {
		nickname = p.cfg.MaskedNickname
		action = fmt.Sprintf("masked as %q", nickname)
	}
	p.block(
		func() error { return p.members.SetNickname(ctx, m.GuildID, m.UserID, nickname, reason) },
		func() error {
			return p.messenger.SendDirect(ctx, m.UserID, nameNotice(kind, v.Filter.Text(), v.Content, action))
		},
	)

	if kind == Nickname && sev < model.SeverityJail {
		return nil
	}
	return p.jail(ctx, m.GuildID, "", m.UserID, reason)
}

// block runs the removal and the notice concurrently; neither failure affects the other.
func (p *Pipeline) block(remove, notify func() error) {
	var wg conc.WaitGroup
	wg.Go(func() {
		if err := remove(); err != nil {
			log.Printf("[Enforcement] Removal failed: %v", err)
		}
	})
	wg.Go(func() {
		if err := notify(); err != nil {
			log.Printf("[Enforcement] Notice failed: %v", err)
		}
	})
	if r := wg.WaitAndRecover(); r != nil {
		log.Printf("[Enforcement] Side effect panicked: %v", r.Value)
	}
}

func (p *Pipeline) jail(ctx context.Context, guildID, channelID, userID, reason string) error {
	gs, err := p.settings.GuildSettings(ctx, guildID)
	if err != nil {
		return fmt.Errorf("failed to load guild settings: %w", err)
	}
	if gs.JailRoleID == "" {
		p.journal.Emit(journal.Event{
			Path:      "filter.jail",
			GuildID:   guildID,
			ChannelID: channelID,
			Level:     journal.Warn,
			Icon:      "⚠️",
			Content:   fmt.Sprintf("cannot jail: no jail role configured (user <@%s>)", userID),
		})
		return nil
	}

	if err := p.members.AddRole(ctx, guildID, userID, gs.JailRoleID, reason); err != nil {
		return &RoleError{GuildID: guildID, UserID: userID, RoleID: gs.JailRoleID, Err: err}
	}
	p.journal.Emit(journal.Event{
		Path:      "filter.jail",
		GuildID:   guildID,
		ChannelID: channelID,
		Level:     journal.Warn,
		Icon:      "⛓",
		Content:   fmt.Sprintf("<@%s> jailed: %s", userID, reason),
	})

	if p.cfg.JailDuration > 0 && p.scheduler != nil {
		p.scheduleRelief(ctx, guildID, userID, reason)
	}
	return nil
}

func (p *Pipeline) scheduleRelief(ctx context.Context, guildID, userID, reason string) {
	task, err := model.NewTask(model.TaskPunishment, guildID, userID, p.now().Add(p.cfg.JailDuration), model.PunishmentParams{
		UserID: userID,
		Type:   model.PunishmentJail,
		Action: model.PunishmentRelieve,
		Reason: "automatic relief after " + reason,
	})
	if err != nil {
		log.Printf("[Enforcement] Failed to build relief task for user %s: %v", userID, err)
		return
	}
	if _, err := p.scheduler.Schedule(ctx, task); err != nil {
		log.Printf("[Enforcement] Failed to schedule relief for user %s: %v", userID, err)
	}
}

func levelFor(sev model.Severity) journal.Level {
	if sev >= model.SeverityBlock {
		return journal.Warn
	}
	return journal.Info
}
