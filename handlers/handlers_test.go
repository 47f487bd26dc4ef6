package handlers

import (
	"strings"
	"testing"
	"time"

	"navi/filter"
	"navi/model"
	"navi/scheduler"

	"github.com/bwmarrin/discordgo"
	"github.com/google/go-cmp/cmp"
)

func commandInteraction(opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type: discordgo.InteractionApplicationCommand,
		Data: discordgo.ApplicationCommandInteractionData{Name: "filter", Options: opts},
	}}
}

func TestSubcommand(t *testing.T) {
	i := commandInteraction(&discordgo.ApplicationCommandInteractionDataOption{
		Type: discordgo.ApplicationCommandOptionSubCommand,
		Name: "add",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{
			{Type: discordgo.ApplicationCommandOptionString, Name: "text", Value: "hello"},
			{Type: discordgo.ApplicationCommandOptionChannel, Name: "channel", Value: "c9"},
			{Type: discordgo.ApplicationCommandOptionBoolean, Name: "dm", Value: true},
		},
	})

	sub, opts := subcommand(i)
	if sub != "add" {
		t.Fatalf("subcommand = %q, want add", sub)
	}
	if got := opts.str("text"); got != "hello" {
		t.Errorf("str(text) = %q", got)
	}
	if got := opts.id("channel"); got != "c9" {
		t.Errorf("id(channel) = %q", got)
	}
	if !opts.boolean("dm") {
		t.Error("boolean(dm) = false")
	}
	if got := opts.str("missing"); got != "" {
		t.Errorf("str(missing) = %q, want empty", got)
	}
}

func TestSubcommandWithoutSubcommands(t *testing.T) {
	i := commandInteraction(&discordgo.ApplicationCommandInteractionDataOption{
		Type: discordgo.ApplicationCommandOptionRole, Name: "role", Value: "r1",
	})
	sub, opts := subcommand(i)
	if sub != "" || opts.id("role") != "r1" {
		t.Errorf("subcommand = %q, role = %q", sub, opts.id("role"))
	}
}

func TestScopeKey(t *testing.T) {
	tests := []struct {
		kind    string
		want    model.ScopeKey
		wantErr bool
	}{
		{kind: "server", want: model.ServerScope("g1")},
		{kind: "channel", want: model.ChannelScope("c1")},
		{kind: "user", wantErr: true},
		{kind: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := scopeKey(tt.kind, "g1", "c1")
		if (err != nil) != tt.wantErr {
			t.Errorf("scopeKey(%q) error = %v, wantErr %v", tt.kind, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("scopeKey(%q) = %v, want %v", tt.kind, got, tt.want)
		}
	}
	if _, err := scopeKey("channel", "g1", ""); err == nil {
		t.Error("channel scope without a channel should fail")
	}
}

func TestFilterLines(t *testing.T) {
	if got := filterLines(nil); got != "*none*" {
		t.Errorf("filterLines(nil) = %q", got)
	}

	var filters []*filter.Filter
	for _, def := range []string{"spam", "regex:fr[e3]e"} {
		m, err := filter.Compile(def)
		if err != nil {
			t.Fatal(err)
		}
		filters = append(filters, &filter.Filter{Matcher: m, Severity: model.SeverityBlock})
	}
	want := "`spam` · block\n`regex:fr[e3]e` · block"
	if got := filterLines(filters); got != want {
		t.Errorf("filterLines() = %q, want %q", got, want)
	}

	var many []*filter.Filter
	m, _ := filter.Compile(strings.Repeat("x", 100))
	for n := 0; n < 50; n++ {
		many = append(many, &filter.Filter{Matcher: m, Severity: model.SeverityFlag})
	}
	if got := []rune(filterLines(many)); len(got) > 1024 {
		t.Errorf("filterLines() has %d runes, exceeds embed field limit", len(got))
	}
}

func TestContentLinesSorted(t *testing.T) {
	a, b := strings.Repeat("a", 64), strings.Repeat("b", 64)
	got := contentLines(map[string]model.Severity{b: model.SeverityJail, a: model.SeverityFlag})
	want := "`" + a + "` · flag\n`" + b + "` · jail"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("contentLines() mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskLines(t *testing.T) {
	due := time.Unix(1700000000, 0)
	rec := model.TaskRecord{ID: 7, GuildID: "g1", DueAt: due}
	rec.SetInterval(2 * time.Hour)
	info := scheduler.TaskInfo{
		Record:      rec,
		Causer:      scheduler.Identity{ID: "u1", Name: "<@u1>"},
		Description: "send a message to <#c1>",
	}

	want := "`#7` <t:1700000000:R> · send a message to <#c1> · by <@u1> · every 2h0m0s"
	if got := taskLine(info); got != want {
		t.Errorf("taskLine() = %q, want %q", got, want)
	}
	if got := taskLines(nil); got != "*none*" {
		t.Errorf("taskLines(nil) = %q", got)
	}

	var many []scheduler.TaskInfo
	for n := 0; n < 200; n++ {
		many = append(many, info)
	}
	got := taskLines(many)
	if len(got) > 4096 || !strings.Contains(got, "more") {
		t.Errorf("taskLines() should cut long lists, got %d bytes", len(got))
	}
}

func TestParseDelay(t *testing.T) {
	if d, err := parseDelay("1d2h", time.Minute); err != nil || d != 26*time.Hour {
		t.Errorf("parseDelay(1d2h) = %v, %v", d, err)
	}
	for _, bad := range []string{"30s", "nonsense", "400d"} {
		if _, err := parseDelay(bad, time.Minute); err == nil {
			t.Errorf("parseDelay(%q) should fail", bad)
		}
	}
}

func TestMessageURLs(t *testing.T) {
	m := &discordgo.Message{
		Content: "look https://files.example.com/a.png and https://files.example.com/a.png again",
		Attachments: []*discordgo.MessageAttachment{
			{URL: "https://cdn.discordapp.com/attachments/1/2/b.gif"},
			{URL: ""},
		},
	}
	want := []string{"https://files.example.com/a.png", "https://cdn.discordapp.com/attachments/1/2/b.gif"}
	if diff := cmp.Diff(want, messageURLs(m)); diff != "" {
		t.Errorf("messageURLs() mismatch (-want +got):\n%s", diff)
	}
}
