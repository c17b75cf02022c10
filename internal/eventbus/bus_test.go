package eventbus

import "testing"

func TestPublishFansOut(t *testing.T) {
	t.Parallel()
	bus := New()
	a, unsubA := bus.Subscribe(1)
	b, unsubB := bus.Subscribe(1)
	defer unsubA()
	defer unsubB()

	bus.Publish(Event{Type: MemberRegistered, Recipient: 42})

	for _, ch := range []<-chan Event{a, b} {
		e := <-ch
		if e.Type != MemberRegistered || e.Recipient != 42 || e.Time.IsZero() {
			t.Fatalf("unexpected event %+v", e)
		}
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	t.Parallel()
	bus := New()
	ch, unsub := bus.Subscribe(1)
	bus.Publish(Event{Type: "a"})
	bus.Publish(Event{Type: "b"})
	unsub()
	unsub()

	var got []string
	for e := range ch {
		got = append(got, e.Type)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("got %v, want [a]", got)
	}
	bus.Publish(Event{Type: "after-unsubscribe"})
}
