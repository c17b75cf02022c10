package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"churchbot/internal/flow"
	kit "churchbot/internal/transport"
)

type fakeConv struct {
	mu       sync.Mutex
	seen     map[int64][]flow.Event
	inflight map[int64]*atomic.Int32
	overlap  atomic.Bool
	panicOn  string
}

func newFakeConv() *fakeConv {
	return &fakeConv{seen: map[int64][]flow.Event{}, inflight: map[int64]*atomic.Int32{}}
}

func (f *fakeConv) Handle(ctx context.Context, recipient, chatID int64, ev flow.Event) error {
	f.mu.Lock()
	c := f.inflight[recipient]
	if c == nil {
		c = &atomic.Int32{}
		f.inflight[recipient] = c
	}
	f.mu.Unlock()

	if c.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer c.Add(-1)

	if t, ok := ev.(flow.Text); ok && f.panicOn != "" && t.Body == f.panicOn {
		panic("boom")
	}
	time.Sleep(time.Duration(recipient%3) * time.Millisecond)

	f.mu.Lock()
	f.seen[recipient] = append(f.seen[recipient], ev)
	f.mu.Unlock()
	return nil
}

func (f *fakeConv) events(recipient int64) []flow.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]flow.Event(nil), f.seen[recipient]...)
}

type fakeAdmin struct {
	mu    sync.Mutex
	calls []string
}

func (a *fakeAdmin) Handles(name string) bool { return name == "show_members" }

func (a *fakeAdmin) Handle(ctx context.Context, from, chatID int64, name, args string) error {
	a.mu.Lock()
	a.calls = append(a.calls, fmt.Sprintf("%d:%s:%s", from, name, args))
	a.mu.Unlock()
	return nil
}

type fakeCallbacks struct{ answered atomic.Int32 }

func (c *fakeCallbacks) AnswerCallback(ctx context.Context, id, text string) error {
	c.answered.Add(1)
	return nil
}

func textUpdate(from int64, text string) kit.Update {
	return kit.Update{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: from, FromID: from, Text: text}}
}

// run feeds ups through a router and waits for the loop to drain.
func run(t *testing.T, r *Router, ups []kit.Update) {
	t.Helper()
	ch := make(chan kit.Update, len(ups))
	for _, up := range ups {
		ch <- up
	}
	close(ch)
	done := make(chan error, 1)
	go func() { done <- r.DispatchLoop(context.Background(), ch) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch loop did not stop")
	}
}

func TestRouterKeepsPerRecipientOrder(t *testing.T) {
	t.Parallel()

	conv := newFakeConv()
	r := New(Config{Workers: 4, QueueSize: 8}, conv, nil, nil, testLogger())

	const n = 25
	var ups []kit.Update
	for i := range n {
		for from := int64(1); from <= 5; from++ {
			ups = append(ups, textUpdate(from, fmt.Sprint(i)))
		}
	}
	run(t, r, ups)

	require.False(t, conv.overlap.Load(), "one recipient was handled concurrently")
	for from := int64(1); from <= 5; from++ {
		got := conv.events(from)
		require.Len(t, got, n)
		for i, ev := range got {
			require.Equal(t, flow.Text{Body: fmt.Sprint(i)}, ev)
		}
	}
	require.False(t, r.Running())
}

func TestRouterRecoversFromHandlerPanic(t *testing.T) {
	t.Parallel()

	conv := newFakeConv()
	conv.panicOn = "explode"
	cb := &fakeCallbacks{}
	r := New(Config{Workers: 1}, conv, nil, cb, testLogger())

	run(t, r, []kit.Update{
		textUpdate(7, "explode"),
		textUpdate(7, "after"),
		{Kind: kit.UpdateCallback, Callback: &kit.Callback{ID: "cb1", FromID: 7, ChatID: 7, Data: "prayer"}},
	})

	require.Equal(t, []flow.Event{flow.Text{Body: "after"}, flow.Button{Tag: "prayer"}}, conv.events(7))
	require.EqualValues(t, 1, cb.answered.Load())
}

func TestRouterSendsAdminCommandsToAdmin(t *testing.T) {
	t.Parallel()

	conv := newFakeConv()
	adm := &fakeAdmin{}
	r := New(Config{Workers: 2}, conv, adm, nil, testLogger())

	run(t, r, []kit.Update{
		textUpdate(9, "/show_members@churchbot"),
		textUpdate(9, "/start"),
		textUpdate(9, "/view_events  soon "),
		{Kind: kit.UpdateMessage, Message: &kit.Message{ChatID: 1, Text: "no sender"}},
	})

	require.Equal(t, []string{"9:show_members:"}, adm.calls)
	require.Equal(t, []flow.Event{
		flow.Command{Name: "start"},
		flow.Command{Name: "view_events", Args: "soon"},
	}, conv.events(9))
}

func TestShardIsStable(t *testing.T) {
	t.Parallel()

	for _, id := range []int64{1, 42, 7885357096, -100123} {
		a := shard(id, 8)
		require.Equal(t, a, shard(id, 8))
		require.GreaterOrEqual(t, a, 0)
		require.Less(t, a, 8)
	}
}
