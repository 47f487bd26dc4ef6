package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeAdmin struct {
	calls []string
}

func (f *fakeAdmin) ListFilters(_ context.Context, guildID, channelID string) ([]map[string]interface{}, error) {
	f.calls = append(f.calls, "filters "+guildID+" "+channelID)
	return []map[string]interface{}{{"text": "spam", "severity": "block"}}, nil
}

func (f *fakeAdmin) CheckContent(_ context.Context, guildID, channelID, content string) (map[string]interface{}, error) {
	f.calls = append(f.calls, "check "+guildID+" "+channelID+" "+content)
	return map[string]interface{}{"matched": false}, nil
}

func (f *fakeAdmin) ListTasks(_ context.Context, guildID string) ([]map[string]interface{}, error) {
	f.calls = append(f.calls, "tasks "+guildID)
	return nil, nil
}

func (f *fakeAdmin) CancelTask(_ context.Context, id int64) error {
	if id != 7 {
		return errors.New("not found")
	}
	f.calls = append(f.calls, "cancel")
	return nil
}

func TestRun(t *testing.T) {
	tests := []struct {
		args []string
		call string
		out  string
	}{
		{args: []string{"filters", "g1"}, call: "filters g1 ", out: "severity=block text=spam\n"},
		{args: []string{"filters", "g1", "c1"}, call: "filters g1 c1", out: "severity=block text=spam\n"},
		{args: []string{"check", "g1", "c1", "free", "money"}, call: "check g1 c1 free money", out: "matched=false\n"},
		{args: []string{"tasks", "g1"}, call: "tasks g1", out: "(none)\n"},
		{args: []string{"cancel", "7"}, call: "cancel", out: "task 7 cancelled\n"},
	}
	for _, tt := range tests {
		f := &fakeAdmin{}
		var out bytes.Buffer
		if err := run(context.Background(), f, tt.args, &out); err != nil {
			t.Errorf("run(%v) error = %v", tt.args, err)
			continue
		}
		if diff := cmp.Diff([]string{tt.call}, f.calls); diff != "" {
			t.Errorf("run(%v) calls mismatch (-want +got):\n%s", tt.args, diff)
		}
		if got := out.String(); got != tt.out {
			t.Errorf("run(%v) printed %q, want %q", tt.args, got, tt.out)
		}
	}
}

func TestRunRejectsBadArguments(t *testing.T) {
	for _, args := range [][]string{nil, {"tasks"}, {"cancel", "x"}, {"cancel", "8"}, {"teleport", "g1"}} {
		if err := run(context.Background(), &fakeAdmin{}, args, &bytes.Buffer{}); err == nil {
			t.Errorf("run(%v) should fail", args)
		}
	}
}
