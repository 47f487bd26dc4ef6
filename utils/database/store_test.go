package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"navi/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jmoiron/sqlx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "navi.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFilterUpsertReplacesSeverity(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := model.ServerScope("g1")

	for _, sev := range []model.Severity{model.SeverityBlock, model.SeverityJail} {
		rule := model.FilterRule{GuildID: "g1", Scope: scope.Kind, ScopeID: scope.ID, Text: "foo", Severity: sev}
		if err := s.SaveFilter(ctx, rule); err != nil {
			t.Fatalf("SaveFilter(%v): %v", sev, err)
		}
	}
	if err := s.SaveFilter(ctx, model.FilterRule{GuildID: "g1", Scope: scope.Kind, ScopeID: scope.ID, Text: "bar", Severity: model.SeverityFlag}); err != nil {
		t.Fatalf("SaveFilter(bar): %v", err)
	}

	got, err := s.ListFilters(ctx, scope)
	if err != nil {
		t.Fatalf("ListFilters: %v", err)
	}
	want := []model.FilterRule{
		{GuildID: "g1", Scope: model.ScopeServer, ScopeID: "g1", Text: "foo", Severity: model.SeverityJail},
		{GuildID: "g1", Scope: model.ScopeServer, ScopeID: "g1", Text: "bar", Severity: model.SeverityFlag},
	}
	if diff := cmp.Diff(want, got, cmpopts.IgnoreFields(model.FilterRule{}, "ID")); diff != "" {
		t.Errorf("ListFilters mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteFilter(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	scope := model.ChannelScope("c1")

	existed, err := s.DeleteFilter(ctx, scope, "absent")
	if err != nil || existed {
		t.Fatalf("DeleteFilter(absent) = %v, %v; want false, nil", existed, err)
	}
	if err := s.SaveFilter(ctx, model.FilterRule{GuildID: "g1", Scope: scope.Kind, ScopeID: scope.ID, Text: "foo", Severity: model.SeverityFlag}); err != nil {
		t.Fatal(err)
	}
	existed, err = s.DeleteFilter(ctx, scope, "foo")
	if err != nil || !existed {
		t.Fatalf("DeleteFilter(foo) = %v, %v; want true, nil", existed, err)
	}
}

func TestDeleteScopeFiltersCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	rules := []model.FilterRule{
		{GuildID: "g1", Scope: model.ScopeServer, ScopeID: "g1", Text: "a", Severity: model.SeverityFlag},
		{GuildID: "g1", Scope: model.ScopeChannel, ScopeID: "c1", Text: "b", Severity: model.SeverityFlag},
		{GuildID: "g1", Scope: model.ScopeChannel, ScopeID: "c2", Text: "c", Severity: model.SeverityFlag},
		{GuildID: "g2", Scope: model.ScopeServer, ScopeID: "g2", Text: "d", Severity: model.SeverityFlag},
	}
	for _, r := range rules {
		if err := s.SaveFilter(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.DeleteScopeFilters(ctx, model.ChannelScope("c1"))
	if err != nil || n != 1 {
		t.Fatalf("DeleteScopeFilters(channel) = %d, %v; want 1, nil", n, err)
	}
	n, err = s.DeleteScopeFilters(ctx, model.ServerScope("g1"))
	if err != nil || n != 2 {
		t.Fatalf("DeleteScopeFilters(server) = %d, %v; want 2, nil", n, err)
	}
	left, err := s.ListGuildFilters(ctx, "g2")
	if err != nil || len(left) != 1 {
		t.Fatalf("ListGuildFilters(g2) = %v, %v; want one rule", left, err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO filter_immunities (guild_id, user_id) VALUES ('g1', 'u1')"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTx error = %v, want boom", err)
	}
	ids, err := s.ListImmunities(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Errorf("immunities after rollback = %v, want none", ids)
	}
}

func TestContentFiltersAndImmunities(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	hash := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	if err := s.SaveContentFilter(ctx, model.ContentFilterRule{GuildID: "g1", Hash: hash, Severity: model.SeverityBlock}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveContentFilter(ctx, model.ContentFilterRule{GuildID: "g1", Hash: hash, Severity: model.SeverityJail}); err != nil {
		t.Fatal(err)
	}
	rules, err := s.ListContentFilters(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rules) != 1 || rules[0].Severity != model.SeverityJail {
		t.Errorf("ListContentFilters = %+v, want one jail rule", rules)
	}
	if existed, err := s.DeleteContentFilter(ctx, "g1", hash); err != nil || !existed {
		t.Errorf("DeleteContentFilter = %v, %v; want true, nil", existed, err)
	}

	for i := 0; i < 2; i++ {
		if err := s.AddImmunity(ctx, "g1", "u1"); err != nil {
			t.Fatal(err)
		}
	}
	ids, err := s.ListImmunities(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"u1"}, ids); diff != "" {
		t.Errorf("ListImmunities mismatch (-want +got):\n%s", diff)
	}
	if existed, _ := s.RemoveImmunity(ctx, "g1", "u2"); existed {
		t.Error("RemoveImmunity(u2) = true, want false")
	}
}

func TestGuildSettings(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	gs, err := s.GuildSettings(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(&model.GuildSettings{GuildID: "g1"}, gs); diff != "" {
		t.Errorf("default settings mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetJailRole(ctx, "g1", "r-jail"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetJournalChannel(ctx, "g1", "c-journal"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetMuteRole(ctx, "g1", "r-mute"); err != nil {
		t.Fatal(err)
	}
	gs, err = s.GuildSettings(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	want := &model.GuildSettings{GuildID: "g1", JailRoleID: "r-jail", MuteRoleID: "r-mute", JournalChannelID: "c-journal"}
	if diff := cmp.Diff(want, gs); diff != "" {
		t.Errorf("settings mismatch (-want +got):\n%s", diff)
	}
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	due := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	oneShot, err := model.NewTask(model.TaskSendMessage, "g1", "u1", due, model.SendMessageParams{ChannelID: "c1", Body: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	recurring, err := model.NewTask(model.TaskRoleChange, "g1", "u1", due.Add(time.Hour), model.RoleChangeParams{UserID: "u2", Add: []string{"r1"}})
	if err != nil {
		t.Fatal(err)
	}
	recurring.SetInterval(time.Minute)

	id1, err := s.InsertTask(ctx, oneShot)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.InsertTask(ctx, recurring)
	if err != nil {
		t.Fatal(err)
	}
	if id1 == id2 || id1 == 0 {
		t.Fatalf("InsertTask ids = %d, %d; want distinct non-zero", id1, id2)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 2 {
		t.Fatalf("ListTasks returned %d tasks, want 2", len(tasks))
	}
	if !tasks[0].DueAt.Equal(due) || tasks[0].Recurring() {
		t.Errorf("first task = %+v, want one-shot due %v", tasks[0], due)
	}
	if tasks[1].Interval() != time.Minute {
		t.Errorf("second task interval = %v, want 1m", tasks[1].Interval())
	}

	if existed, err := s.DeleteTask(ctx, id1); err != nil || !existed {
		t.Errorf("DeleteTask(%d) = %v, %v; want true, nil", id1, existed, err)
	}
	if existed, _ := s.DeleteTask(ctx, id1); existed {
		t.Errorf("second DeleteTask(%d) = true, want false", id1)
	}
	got, err := s.GetTask(ctx, id2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Kind != model.TaskRoleChange {
		t.Errorf("GetTask kind = %s, want role_change", got.Kind)
	}
}
