package admin

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"churchbot/internal/notifier/broadcast"
	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

const adminID = 7885357096

type captureSender struct {
	mu   sync.Mutex
	msgs []string
}

func (c *captureSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, text)
	return kit.MessageRef{ChatID: to.ChatID}, nil
}

func (c *captureSender) SendMedia(ctx context.Context, to kit.ChatTarget, m kit.Media, opt *kit.SendOptions) (kit.MessageRef, error) {
	return kit.MessageRef{}, nil
}

func (c *captureSender) last() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msgs[len(c.msgs)-1]
}

func newAdmin(t *testing.T) (*Service, *storage.Memory, *captureSender) {
	t.Helper()
	store := storage.NewMemory()
	out := &captureSender{}
	bc := broadcast.New(broadcast.Config{RatePerSec: 1000}, out, store, nil, logx.Nop())
	svc := New(adminID, Deps{Store: store, Out: out, Broadcast: bc, Location: time.UTC})
	svc.now = func() time.Time { return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC) }
	return svc, store, out
}

func TestShowMembersGated(t *testing.T) {
	t.Parallel()
	svc, store, out := newAdmin(t)
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, 42, 42, "show_members", ""))
	require.Equal(t, "You are not authorized to view this information.", out.last())

	require.NoError(t, svc.Handle(ctx, adminID, adminID, "show_members", ""))
	require.Equal(t, "No registered members found.", out.last())

	require.NoError(t, store.UpsertMember(ctx, storage.Member{RecipientID: 1, FirstName: "Grace", LastName: "Adams", Phone: "555", Email: "g@x.com", Address: "1 Main St"}))
	require.NoError(t, svc.Handle(ctx, adminID, adminID, "show_members", ""))
	require.Equal(t, "📋 Registered Members:\n\nName: Grace Adams\nPhone: 555\nEmail: g@x.com\nAddress: 1 Main St\n", out.last())
}

func TestAddEvent(t *testing.T) {
	t.Parallel()
	svc, store, out := newAdmin(t)
	ctx := context.Background()

	require.NoError(t, svc.Handle(ctx, adminID, adminID, "add_event", "Youth_Vigil 2026-07-03 18:30 Bring your Bible"))
	require.Equal(t, "✅ Event added: Youth Vigil at Fri 03 Jul 2026 18:30", out.last())

	evs, err := store.ListEvents(ctx, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, evs, 1)
	require.Equal(t, "Bring your Bible", evs[0].Message)

	require.NoError(t, svc.Handle(ctx, adminID, adminID, "add_event", "Vigil tomorrow"))
	require.True(t, strings.HasPrefix(out.last(), addEventUsage))

	require.NoError(t, svc.Handle(ctx, adminID, adminID, "add_event", "Old 2020-01-01 10:00 gone"))
	require.Contains(t, out.last(), "in the past")
}

func TestParseEvent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		args string
		ok   bool
	}{
		{"Choir 2026-09-01 09:00 Practice", true},
		{"Choir 2026-13-01 09:00 Practice", false},
		{"Choir 2026-09-01 9am Practice", false},
		{"Choir 2026-09-01 09:00", false},
	}
	for _, tt := range tests {
		_, err := parseEvent(tt.args, time.UTC)
		if (err == nil) != tt.ok {
			t.Fatalf("parseEvent(%q) err = %v, want ok=%v", tt.args, err, tt.ok)
		}
	}
}

func TestBroadcastCommandRunsInline(t *testing.T) {
	t.Parallel()
	svc, store, out := newAdmin(t)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, store.UpsertMember(ctx, storage.Member{RecipientID: i}))
	}
	require.NoError(t, svc.Handle(ctx, adminID, adminID, "broadcast", "Service moved to 10am"))
	require.Equal(t, "📣 Broadcast finished: 3 sent, 0 failed of 3.", out.last())

	require.NoError(t, svc.Handle(ctx, adminID, adminID, "broadcast_status", ""))
	require.Contains(t, out.last(), "admin done: 3/3 sent")

	require.NoError(t, svc.Handle(ctx, 5, 5, "broadcast", "spam"))
	require.Equal(t, textUnauthorized, out.last())
}

func TestHandlesAndCommands(t *testing.T) {
	t.Parallel()
	svc, _, _ := newAdmin(t)
	require.True(t, svc.Handles("Show_Members"))
	require.False(t, svc.Handles("start"))
	require.Len(t, svc.Commands(), 4)

	svc.SetAdmin(99)
	require.True(t, svc.IsAdmin(99))
	require.False(t, svc.IsAdmin(adminID))
	require.False(t, svc.IsAdmin(0))
}
