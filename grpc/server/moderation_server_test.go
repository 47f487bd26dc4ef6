package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"navi/filter"
	"navi/grpc/client"
	"navi/grpc/server"
	"navi/model"
	"navi/scheduler"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeFilters struct {
	scopes []filter.ScopedFilters
}

func (f fakeFilters) Scopes(_ context.Context, guildID, channelID string) ([]filter.ScopedFilters, error) {
	return f.scopes, nil
}

type fakeTasks struct {
	infos     []scheduler.TaskInfo
	cancelled []int64
}

func (f *fakeTasks) List(string) []scheduler.TaskInfo { return f.infos }

func (f *fakeTasks) Cancel(_ context.Context, id int64) error {
	if id != 7 {
		return scheduler.ErrTaskNotFound
	}
	f.cancelled = append(f.cancelled, id)
	return nil
}

func startServer(t *testing.T, filters server.FilterSource, tasks server.TaskSource) *client.Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	gs := server.Serve(lis, server.NewModerationServer(filters, tasks))
	t.Cleanup(gs.Stop)

	c, err := client.Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func compiled(t *testing.T, text string, sev model.Severity) *filter.Filter {
	t.Helper()
	m, err := filter.Compile(text)
	if err != nil {
		t.Fatal(err)
	}
	return &filter.Filter{Matcher: m, Severity: sev}
}

func TestListAndCheckFilters(t *testing.T) {
	filters := fakeFilters{scopes: []filter.ScopedFilters{
		{Scope: model.ServerScope("g1"), Filters: []*filter.Filter{compiled(t, "badword", model.SeverityBlock)}},
		{Scope: model.ChannelScope("c1"), Filters: []*filter.Filter{compiled(t, "regex:spam+", model.SeverityFlag)}},
	}}
	c := startServer(t, filters, &fakeTasks{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := c.ListFilters(ctx, "g1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	want := []map[string]interface{}{
		{"scope": "server", "scope_id": "g1", "text": "badword", "syntax": "text", "severity": "block"},
		{"scope": "channel", "scope_id": "c1", "text": "regex:spam+", "syntax": "regex", "severity": "flag"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListFilters mismatch (-want +got):\n%s", diff)
	}

	res, err := c.CheckContent(ctx, "g1", "c1", "this is bаdword")
	if err != nil {
		t.Fatal(err)
	}
	if res["matched"] != true || res["text"] != "badword" || res["severity"] != "block" {
		t.Errorf("CheckContent = %v", res)
	}

	_, err = c.ListFilters(ctx, "", "")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("ListFilters without guild error = %v, want InvalidArgument", err)
	}
}

func TestTasks(t *testing.T) {
	rec := model.TaskRecord{ID: 7, GuildID: "g1", Kind: model.TaskSendMessage, DueAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rec.SetInterval(time.Hour)
	tasks := &fakeTasks{infos: []scheduler.TaskInfo{{Record: rec, Causer: scheduler.Identity{Name: "alice"}, State: scheduler.Pending, Description: "message to <#c1>"}}}
	c := startServer(t, fakeFilters{}, tasks)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got, err := c.ListTasks(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	want := []map[string]interface{}{{
		"id": float64(7), "guild_id": "g1", "kind": "send_message", "due_at": "2026-01-01T00:00:00Z",
		"state": "pending", "causer": "alice", "description": "message to <#c1>", "interval_seconds": float64(3600),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTasks mismatch (-want +got):\n%s", diff)
	}

	if err := c.CancelTask(ctx, 7); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{7}, tasks.cancelled); diff != "" {
		t.Errorf("cancelled mismatch (-want +got):\n%s", diff)
	}
	err = c.CancelTask(ctx, 8)
	if status.Code(err) != codes.NotFound {
		t.Errorf("CancelTask(8) error = %v, want NotFound", err)
	}
}
