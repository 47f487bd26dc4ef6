package enforcement

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"navi/filter"
	"navi/journal"
	"navi/model"

	"github.com/google/go-cmp/cmp"
)

type recorder struct {
	mu        sync.Mutex
	deleted   []string
	dms       []string
	roles     []string
	nicknames []string
	events    []journal.Event
	tasks     []*model.TaskRecord

	failDelete bool
	failDM     bool
	failRole   error
	jailRole   string
}

func (r *recorder) DeleteMessage(_ context.Context, channelID, messageID, _ string) error {
	if r.failDelete {
		return errors.New("missing permissions")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, channelID+"/"+messageID)
	return nil
}

func (r *recorder) SendDirect(_ context.Context, userID, body string) error {
	if r.failDM {
		return errors.New("cannot send messages to this user")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dms = append(r.dms, userID+": "+body)
	return nil
}

func (r *recorder) AddRole(_ context.Context, _, userID, roleID, _ string) error {
	if r.failRole != nil {
		return r.failRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, userID+"+"+roleID)
	return nil
}

func (r *recorder) RemoveRole(_ context.Context, _, userID, roleID, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roles = append(r.roles, userID+"-"+roleID)
	return nil
}

func (r *recorder) SetNickname(_ context.Context, _, userID, nickname, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nicknames = append(r.nicknames, userID+"="+nickname)
	return nil
}

func (r *recorder) GuildSettings(_ context.Context, guildID string) (*model.GuildSettings, error) {
	return &model.GuildSettings{GuildID: guildID, JailRoleID: r.jailRole}, nil
}

func (r *recorder) Emit(e journal.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Schedule(_ context.Context, task *model.TaskRecord) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return int64(len(r.tasks)), nil
}

func (r *recorder) eventContents() []string {
	var out []string
	for _, e := range r.events {
		out = append(out, e.Content)
	}
	return out
}

func newPipeline(r *recorder) *Pipeline {
	return New(r, r, r, r, model.EnforcementConfig{MaskedNickname: "filtered name"})
}

func violation(t *testing.T, text string, sev model.Severity, content string) *filter.Violation {
	t.Helper()
	m, err := filter.Compile(text)
	if err != nil {
		t.Fatalf("Compile(%q): %v", text, err)
	}
	scopes := []filter.ScopedFilters{{
		Scope:   model.ServerScope("g1"),
		Filters: []*filter.Filter{{Matcher: m, Severity: sev}},
	}}
	v := filter.Resolve(content, scopes)
	if v == nil {
		t.Fatalf("%q did not match %q", content, text)
	}
	return v
}

var msg = Message{GuildID: "g1", ChannelID: "c1", MessageID: "m1", AuthorID: "u1"}

func TestEnforceFlagOnlyJournals(t *testing.T) {
	r := &recorder{}
	if err := newPipeline(r).Enforce(context.Background(), violation(t, "meh", model.SeverityFlag, "so meh"), msg); err != nil {
		t.Fatal(err)
	}
	if len(r.events) != 1 || r.events[0].Path != "filter.flag" {
		t.Fatalf("events = %+v, want a single filter.flag", r.events)
	}
	if !strings.Contains(r.events[0].Content, "meh") {
		t.Errorf("flag event %q does not name the filter", r.events[0].Content)
	}
	if len(r.deleted)+len(r.dms)+len(r.roles) != 0 {
		t.Errorf("flag had side effects: %+v", r)
	}
}

func TestEnforceBlockDeletesAndNotifies(t *testing.T) {
	r := &recorder{}
	v := violation(t, "badword", model.SeverityBlock, "this is badword here")
	if err := newPipeline(r).Enforce(context.Background(), v, msg); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"c1/m1"}, r.deleted); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}
	if len(r.dms) != 1 || !strings.Contains(r.dms[0], "badword") {
		t.Fatalf("dms = %q, want exactly one mentioning badword", r.dms)
	}
	if len(r.roles) != 0 {
		t.Errorf("block applied roles: %v", r.roles)
	}
}

func TestEnforceBlockSideEffectsAreIndependent(t *testing.T) {
	r := &recorder{failDelete: true}
	v := violation(t, "badword", model.SeverityBlock, "badword")
	if err := newPipeline(r).Enforce(context.Background(), v, msg); err != nil {
		t.Fatalf("Enforce returned %v for a best-effort failure", err)
	}
	if len(r.dms) != 1 {
		t.Errorf("DM not sent after delete failure: %v", r.dms)
	}

	r = &recorder{failDM: true}
	if err := newPipeline(r).Enforce(context.Background(), v, msg); err != nil {
		t.Fatalf("Enforce returned %v for a best-effort failure", err)
	}
	if len(r.deleted) != 1 {
		t.Errorf("message not deleted after DM failure: %v", r.deleted)
	}
}

func TestEnforceJail(t *testing.T) {
	r := &recorder{jailRole: "jail"}
	p := newPipeline(r)
	p.cfg.JailDuration = time.Hour
	p.SetScheduler(r)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	if err := p.Enforce(context.Background(), violation(t, "worst", model.SeverityJail, "worst"), msg); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"u1+jail"}, r.roles); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if len(r.deleted) != 1 || len(r.dms) != 1 {
		t.Errorf("jail skipped block effects: deleted=%v dms=%v", r.deleted, r.dms)
	}
	if len(r.tasks) != 1 {
		t.Fatalf("scheduled %d relief tasks, want 1", len(r.tasks))
	}
	task := r.tasks[0]
	if task.Kind != model.TaskPunishment || !task.DueAt.Equal(now.Add(time.Hour)) || task.Recurring() {
		t.Errorf("relief task = %+v", task)
	}
}

func TestEnforceJailRoleFailure(t *testing.T) {
	r := &recorder{jailRole: "jail", failRole: errors.New("hierarchy")}
	err := newPipeline(r).Enforce(context.Background(), violation(t, "worst", model.SeverityJail, "worst"), msg)
	var roleErr *RoleError
	if !errors.As(err, &roleErr) || roleErr.RoleID != "jail" {
		t.Fatalf("Enforce error = %v, want *RoleError", err)
	}
	if len(r.deleted) != 1 || len(r.dms) != 1 {
		t.Errorf("block effects did not run before role failure")
	}
}

func TestEnforceContentWithoutJailRole(t *testing.T) {
	r := &recorder{}
	v := &filter.ContentViolation{URL: "https://cdn.example/x.png", Hash: strings.Repeat("a", 64), Severity: model.SeverityJail}
	if err := newPipeline(r).EnforceContent(context.Background(), v, msg); err != nil {
		t.Fatalf("EnforceContent error: %v", err)
	}
	if len(r.deleted) != 1 || len(r.dms) != 1 {
		t.Errorf("block effects missing: deleted=%v dms=%v", r.deleted, r.dms)
	}
	if len(r.roles) != 0 {
		t.Errorf("roles applied without jail role: %v", r.roles)
	}
	var warned bool
	for _, e := range r.events {
		if e.Level == journal.Warn && strings.Contains(e.Content, "no jail role configured") {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no jail warning in %q", r.eventContents())
	}
}

func TestEnforceNameUsernameForcesJail(t *testing.T) {
	r := &recorder{jailRole: "jail"}
	v := violation(t, "slur", model.SeverityBlock, "slur123")
	if err := newPipeline(r).EnforceName(context.Background(), v, Member{GuildID: "g1", UserID: "u1"}, Username); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"u1=filtered name"}, r.nicknames); diff != "" {
		t.Errorf("nicknames mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"u1+jail"}, r.roles); diff != "" {
		t.Errorf("roles mismatch (-want +got):\n%s", diff)
	}
	if len(r.dms) != 1 || !strings.Contains(r.dms[0], "masked") {
		t.Errorf("dms = %q, want one naming the rename", r.dms)
	}
}

func TestEnforceNameNicknameClearsOnly(t *testing.T) {
	r := &recorder{jailRole: "jail"}
	v := violation(t, "slur", model.SeverityBlock, "slurry")
	if err := newPipeline(r).EnforceName(context.Background(), v, Member{GuildID: "g1", UserID: "u1"}, Nickname); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"u1="}, r.nicknames); diff != "" {
		t.Errorf("nicknames mismatch (-want +got):\n%s", diff)
	}
	if len(r.roles) != 0 {
		t.Errorf("nickname block jailed: %v", r.roles)
	}
}

func TestTruncate(t *testing.T) {
	short := strings.Repeat("é", MaxQuotedRunes)
	if got := Truncate(short, MaxQuotedRunes); got != short {
		t.Errorf("Truncate changed content at the limit")
	}
	long := short + "overflow"
	got := Truncate(long, MaxQuotedRunes)
	if !strings.HasSuffix(got, tooLongMarker) || !strings.HasPrefix(got, short) {
		t.Errorf("Truncate(long) = ...%q", got[len(got)-40:])
	}
}

func TestNoticesFitDiscordLimit(t *testing.T) {
	lines := strings.Repeat("badword\n", 400)
	notices := map[string]string{
		"message":      messageNotice("Some Guild", "123456789012345678", "badword", lines),
		"long filter":  messageNotice(strings.Repeat("g", 100), "123456789012345678", strings.Repeat("f", 3000), lines),
		"nickname":     nameNotice(Nickname, "badword", lines, "cleared"),
		"single line":  messageNotice("Some Guild", "1", "badword", strings.Repeat("é", 5000)),
		"content link": contentNotice("1", "https://example.com/"+strings.Repeat("a", 3000)),
	}
	for name, n := range notices {
		if got := utf8.RuneCountInString(n); got > MaxMessageRunes {
			t.Errorf("%s notice has %d runes, want at most %d", name, got, MaxMessageRunes)
		}
		if name != "content link" && !strings.HasSuffix(n, tooLongMarker) {
			t.Errorf("%s notice does not mark the cut", name)
		}
	}

	short := messageNotice("Some Guild", "1", "badword", "one\ntwo")
	want := "Your message in <#1> (Some Guild) was removed because it matched the filter `badword`.\n> one\n> two"
	if short != want {
		t.Errorf("messageNotice() = %q, want %q", short, want)
	}
}
