package router

import (
	"context"
	"testing"

	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

func testLogger() logx.Logger { return logx.Nop() }

func TestParseCommand(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		name string
		args string
		ok   bool
	}{
		{"/start", "start", "", true},
		{"  /Start@ChurchBot  ", "start", "", true},
		{"/add_event Choir 2026-04-07 10:00 Bring robes", "add_event", "Choir 2026-04-07 10:00 Bring robes", true},
		{"/broadcast   hello  all ", "broadcast", "hello  all", true},
		{"hello", "", "", false},
		{"/", "", "", false},
		{"/@bot", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := parseCommand(tc.in)
		if name != tc.name || args != tc.args || ok != tc.ok {
			t.Fatalf("parseCommand(%q) = %q, %q, %v; want %q, %q, %v", tc.in, name, args, ok, tc.name, tc.args, tc.ok)
		}
	}
}

func TestSanitizeCommand(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"start":            "start",
		"/View-Events":     "view_events",
		"broadcast status": "broadcast_status",
		"__x__":            "x",
		"!!!":              "",
	}
	for in, want := range cases {
		if got := sanitizeCommand(in); got != want {
			t.Fatalf("sanitizeCommand(%q) = %q, want %q", in, got, want)
		}
	}
}

type menuRecorder struct{ got []kit.BotCommand }

func (m *menuRecorder) UpdateMenuCommands(ctx context.Context, cmds []kit.BotCommand) error {
	m.got = cmds
	return nil
}

func TestPublishMenuDropsDuplicates(t *testing.T) {
	t.Parallel()

	rec := &menuRecorder{}
	err := PublishMenu(context.Background(), rec, []kit.BotCommand{
		{Command: "start", Description: "Start"},
		{Command: "/start", Description: "again"},
		{Command: "view-events", Description: " Events "},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []kit.BotCommand{{Command: "start", Description: "Start"}, {Command: "view_events", Description: "Events"}}
	if len(rec.got) != len(want) || rec.got[0] != want[0] || rec.got[1] != want[1] {
		t.Fatalf("menu = %+v, want %+v", rec.got, want)
	}

	// adapters without a menu are ignored
	if err := PublishMenu(context.Background(), struct{}{}, nil); err != nil {
		t.Fatal(err)
	}
}
