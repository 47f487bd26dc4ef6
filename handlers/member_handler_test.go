package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"navi/enforcement"
	"navi/filter"
	"navi/journal"
	"navi/model"
	"navi/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
)

type fakeMembers struct {
	pages [][]*discordgo.Member
	walks int
}

func (f *fakeMembers) GuildPermissions(context.Context, string, *discordgo.Member) (int64, error) {
	return 0, nil
}

func (f *fakeMembers) Members(_ context.Context, _ string, fn func([]*discordgo.Member) error) error {
	f.walks++
	for _, page := range f.pages {
		if err := fn(page); err != nil {
			return err
		}
	}
	return nil
}

type fakeImmunity map[string]bool

func (f fakeImmunity) Exempt(_ context.Context, _, userID string, _ int64, bot bool) (bool, error) {
	return bot || f[userID], nil
}

type fakeScopes []filter.ScopedFilters

func (f fakeScopes) Scopes(context.Context, string, string) ([]filter.ScopedFilters, error) {
	return f, nil
}

type recordingEnforcer struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingEnforcer) EnforceName(_ context.Context, v *filter.Violation, m enforcement.Member, kind enforcement.NameKind) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, m.UserID+" "+string(kind)+" "+v.Filter.Text())
	return r.err
}

type eventLog struct{ events []journal.Event }

func (l *eventLog) Emit(e journal.Event) { l.events = append(l.events, e) }

func serverFilter(t *testing.T, def string, severity model.Severity) *filter.Filter {
	t.Helper()
	m, err := filter.Compile(def)
	if err != nil {
		t.Fatal(err)
	}
	return &filter.Filter{Matcher: m, Severity: severity}
}

func member(id, username, nick string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: username}, Nick: nick}
}

func newTestScanner(members *fakeMembers, enforcer *recordingEnforcer, filters ...*filter.Filter) (*memberScanner, *eventLog) {
	events := &eventLog{}
	return &memberScanner{
		members:  members,
		immunity: fakeImmunity{"immune": true},
		filters:  fakeScopes{{Scope: model.ServerScope("g1"), Filters: filters}},
		enforcer: enforcer,
		journal:  events,
		rescans:  utils.NewCooldown(time.Hour),
	}, events
}

func TestCheckNamesBlockedUsernameSkipsNickname(t *testing.T) {
	enf := &recordingEnforcer{}
	ms, _ := newTestScanner(&fakeMembers{}, enf, serverFilter(t, "slur", model.SeverityBlock))

	ms.checkNames(context.Background(), "g1", member("u1", "slurmaster", "slur fan"), true, true, nil)

	if diff := cmp.Diff([]string{"u1 username slur"}, enf.calls); diff != "" {
		t.Errorf("enforcements mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckNamesFlaggedUsernameStillChecksNickname(t *testing.T) {
	enf := &recordingEnforcer{}
	ms, _ := newTestScanner(&fakeMembers{}, enf,
		serverFilter(t, "meh", model.SeverityFlag),
		serverFilter(t, "slur", model.SeverityBlock),
	)

	ms.checkNames(context.Background(), "g1", member("u1", "mehmeh", "ѕlur"), true, true, nil)

	want := []string{"u1 username meh", "u1 nickname slur"}
	if diff := cmp.Diff(want, enf.calls); diff != "" {
		t.Errorf("enforcements mismatch (-want +got):\n%s", diff)
	}
}

func TestCheckNamesSkipsExemptAndUnchanged(t *testing.T) {
	enf := &recordingEnforcer{}
	ms, _ := newTestScanner(&fakeMembers{}, enf, serverFilter(t, "slur", model.SeverityBlock))
	ctx := context.Background()

	ms.checkNames(ctx, "g1", member("immune", "slur", "slur"), true, true, nil)
	bot := member("b1", "slurbot", "")
	bot.User.Bot = true
	ms.checkNames(ctx, "g1", bot, true, true, nil)
	ms.checkNames(ctx, "g1", &discordgo.Member{}, true, true, nil)
	// Only the nickname changed, and it is clean.
	ms.checkNames(ctx, "g1", member("u2", "slur", "fine"), false, true, nil)

	if len(enf.calls) != 0 {
		t.Errorf("unexpected enforcements: %v", enf.calls)
	}
}

func TestCheckNamesReportsRoleErrors(t *testing.T) {
	enf := &recordingEnforcer{err: &enforcement.RoleError{GuildID: "g1", UserID: "u1", RoleID: "jail"}}
	ms, events := newTestScanner(&fakeMembers{}, enf, serverFilter(t, "slur", model.SeverityJail))

	ms.checkNames(context.Background(), "g1", member("u1", "slur", ""), true, true, nil)

	if len(events.events) != 1 || events.events[0].Level != journal.Error {
		t.Errorf("journal events = %+v, want one error", events.events)
	}
}

func TestRescanChecksOnlyTheNewFilter(t *testing.T) {
	added := serverFilter(t, "spam", model.SeverityBlock)
	members := &fakeMembers{pages: [][]*discordgo.Member{
		{member("u1", "spammer", ""), member("u2", "clean", "")},
		{member("u3", "slur", "spam king")},
	}}
	enf := &recordingEnforcer{}
	ms, _ := newTestScanner(members, enf, serverFilter(t, "slur", model.SeverityJail), added)
	ctx := context.Background()

	ms.rescan(ctx, "g1", model.ChannelScope("c1"), added)
	if members.walks != 0 {
		t.Fatal("channel filter triggered a member re-scan")
	}

	ms.rescan(ctx, "g1", model.ServerScope("g1"), added)
	want := []string{"u1 username spam", "u3 nickname spam"}
	if diff := cmp.Diff(want, enf.calls); diff != "" {
		t.Errorf("enforcements mismatch (-want +got):\n%s", diff)
	}

	ms.rescan(ctx, "g1", model.ServerScope("g1"), added)
	if members.walks != 1 {
		t.Errorf("members walked %d times, want 1 within the cooldown", members.walks)
	}
}
