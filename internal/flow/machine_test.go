package flow

import (
	"context"
	"strings"
	"testing"
	"time"

	"churchbot/internal/content"
	"churchbot/internal/session"
	"churchbot/internal/storage"
)

var fixedNow = time.Date(2026, 4, 5, 10, 0, 0, 0, time.UTC)

type harness struct {
	t     *testing.T
	m     *Machine
	store *storage.Memory
	st    session.State
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := storage.NewMemory()
	m := NewMachine(content.Default(), store, WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))
	return &harness{t: t, m: m, store: store, st: session.Idle{}}
}

// send advances the machine and applies the effect to the memory store.
func (h *harness) send(ev Event) []Reply {
	h.t.Helper()
	ctx := context.Background()
	step := h.m.Advance(ctx, 42, h.st, ev)
	if step.Effect == nil {
		h.st = step.Next
		return step.Replies
	}
	var err error
	switch e := step.Effect.(type) {
	case SaveMember:
		err = h.store.UpsertMember(ctx, e.Member)
	case AppendPrayer:
		_, err = h.store.AppendPrayer(ctx, 42, e.Body, e.At)
	case CompleteLesson:
		_, err = h.store.UpsertProgress(ctx, 42, e.Lesson, e.At)
	case RecordAttendance:
		err = h.store.RecordAttendance(ctx, e.Attendance)
	}
	if err != nil {
		h.t.Fatalf("effect %T failed: %v", step.Effect, err)
	}
	h.st = step.Next
	return step.Replies
}

func texts(rs []Reply) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.Text
	}
	return out
}

func TestRegistrationScenario(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.send(Command{Name: "start"})
	if len(replies) != 2 || !strings.HasPrefix(replies[0].Text, "📖 Welcome to Reconciliation Church Of God!") {
		t.Fatalf("start replies = %q", texts(replies))
	}
	if replies[1].Text != "Please enter your first name:" {
		t.Fatalf("first prompt = %q", replies[1].Text)
	}

	inputs := []string{"Grace", "Adams", "555-1234", "01-01", "Single", "Female", "g@x.com", "1 Main St", "Nurse"}
	prompts := []string{
		"Please enter your last name:",
		"Please enter your phone number:",
		"Please enter your Day and Month of birth DD-MM:",
		"Please enter your marital status:",
		"Please enter your Gender Male/Female:",
		"Please enter your email address:",
		"Please enter your address:",
		"Please enter your occupation:",
	}
	for i, in := range inputs {
		replies = h.send(Text{Body: in})
		if i < len(prompts) {
			if len(replies) != 1 || replies[0].Text != prompts[i] {
				t.Fatalf("after %q replies = %q, want %q", in, texts(replies), prompts[i])
			}
			continue
		}
		if len(replies) != 2 {
			t.Fatalf("completion replies = %q", texts(replies))
		}
		if replies[0].Text != "Welcome to our church family!" || replies[0].Media != nil {
			t.Fatalf("welcome reply = %+v", replies[0])
		}
		if replies[1].Text != "Thanks for Joining Us!, Grace! Kindly click on the Menu button to access the church services." {
			t.Fatalf("joined reply = %q", replies[1].Text)
		}
	}

	if !session.IsIdle(h.st) {
		t.Fatalf("session = %s, want idle", h.st.Name())
	}
	got, ok, _ := h.store.GetMember(context.Background(), 42)
	if !ok {
		t.Fatal("member not stored")
	}
	want := storage.Member{
		RecipientID: 42, FirstName: "Grace", LastName: "Adams", Phone: "555-1234", Birthday: "01-01",
		MaritalStatus: "Single", Gender: "Female", Email: "g@x.com", Address: "1 Main St", Occupation: "Nurse",
		RegisteredAt: fixedNow,
	}
	if got != want {
		t.Fatalf("member = %+v\nwant %+v", got, want)
	}
}

func TestRegistrationWelcomeMedia(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.m.cat.Media.Welcome = "welcome.mp4"
	h.st = session.Registering{Step: session.StepOccupation}
	replies := h.send(Text{Body: "Pastor"})
	if replies[0].Media == nil || replies[0].Media.Path != "welcome.mp4" || replies[0].Media.Caption != "🎉 Welcome to our church family!" {
		t.Fatalf("welcome media = %+v", replies[0].Media)
	}
	if replies[0].Text == "" {
		t.Fatal("media reply needs a text fallback")
	}
}

func TestRegistrationBlankInputReprompts(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.send(Command{Name: "start"})
	h.send(Text{Body: "Grace"})
	replies := h.send(Text{Body: "   "})
	if texts(replies)[0] != "Please enter your last name:" {
		t.Fatalf("replies = %q", texts(replies))
	}
	if reg := h.st.(session.Registering); reg.Step != session.StepLastName {
		t.Fatalf("step = %s", reg.Step)
	}
}

func TestRegistrationFailureClearsSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	step := h.m.Advance(context.Background(), 42, session.Registering{Step: session.StepOccupation}, Text{Body: "x"})
	if step.OnFailure == nil || !session.IsIdle(step.OnFailure.Next) {
		t.Fatalf("OnFailure = %+v", step.OnFailure)
	}
	if step.OnFailure.Replies[0].Text != "Registration failed. Please try again." {
		t.Fatalf("failure reply = %q", step.OnFailure.Replies[0].Text)
	}
}

func TestNewFlowDiscardsPartialRegistration(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.send(Command{Name: "start"})
	h.send(Text{Body: "Grace"})
	h.send(Text{Body: "Adams"})

	h.send(Button{Tag: TagPrayer})
	if _, ok := h.st.(session.AwaitingPrayer); !ok {
		t.Fatalf("session = %s", h.st.Name())
	}
	h.send(Text{Body: "Pray for my family"})

	if _, ok, _ := h.store.GetMember(context.Background(), 42); ok {
		t.Fatal("partial registration must not be persisted")
	}
	prayers := h.store.Prayers()
	if len(prayers) != 1 || prayers[0].Body != "Pray for my family" {
		t.Fatalf("prayers = %+v", prayers)
	}

	// a second /start restarts from the first field
	h.send(Command{Name: "start"})
	h.send(Text{Body: "Ruth"})
	h.send(Command{Name: "start"})
	if reg := h.st.(session.Registering); reg.Step != session.StepFirstName || reg.Draft[session.StepFirstName] != "" {
		t.Fatalf("restart kept draft: %+v", reg)
	}
}

func TestPrayerFailureKeepsAwaiting(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	step := h.m.Advance(context.Background(), 42, session.AwaitingPrayer{}, Text{Body: "heal me"})
	if _, ok := step.Effect.(AppendPrayer); !ok {
		t.Fatalf("effect = %T", step.Effect)
	}
	if _, ok := step.OnFailure.Next.(session.AwaitingPrayer); !ok {
		t.Fatalf("failure next = %s", step.OnFailure.Next.Name())
	}
	if step.OnFailure.Replies[0].Text != "Failed to save request. Please try again." {
		t.Fatalf("failure reply = %q", step.OnFailure.Replies[0].Text)
	}
}

func TestLessonProgression(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	replies := h.send(Button{Tag: TagLessons})
	if !strings.HasPrefix(replies[0].Text, "📖 Lesson 1: The Creation") {
		t.Fatalf("first lesson = %q", replies[0].Text)
	}
	if !session.IsIdle(h.st) {
		t.Fatal("showing a lesson must not open a session")
	}
	done := replies[0].Inline[0][0].Data

	replies = h.send(Button{Tag: done})
	if replies[0].Text != "❓ Question 1/2:\nWhat did God create on the first day?" {
		t.Fatalf("question = %q", replies[0].Text)
	}
	replies = h.send(Button{Tag: TagQuizNext})
	if replies[0].Text != "❓ Question 2/2:\nWhat was the final act of creation?" {
		t.Fatalf("question = %q", replies[0].Text)
	}
	replies = h.send(Button{Tag: TagQuizNext})
	if !strings.HasPrefix(replies[0].Text, "🎉 You've finished the questions for Lesson 1: The Creation") || !session.IsIdle(h.st) {
		t.Fatalf("quiz end = %q state=%s", replies[0].Text, h.st.Name())
	}

	replies = h.send(Button{Tag: TagBible})
	if !strings.HasPrefix(replies[0].Text, "📖 Lesson 2: The Fall of Man") {
		t.Fatalf("second lesson = %q", replies[0].Text)
	}
	h.send(Button{Tag: replies[0].Inline[0][0].Data})

	replies = h.send(Button{Tag: TagLessons})
	if replies[0].Text != "🎉 You've completed all available lessons! Check back later for new content." {
		t.Fatalf("course complete = %q", replies[0].Text)
	}
	if !session.IsIdle(h.st) {
		t.Fatalf("course complete must not create a session, got %s", h.st.Name())
	}
}

func TestLessonDoneMalformed(t *testing.T) {
	t.Parallel()
	tests := []string{"lesson:done:9", "lesson:done:-1", "lesson:done:abc", "lesson:done"}
	for _, tag := range tests {
		tag := tag
		t.Run(tag, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t)
			h.st = session.AwaitingPrayer{}
			step := h.m.Advance(context.Background(), 42, h.st, Button{Tag: tag})
			if step.Effect != nil {
				t.Fatalf("effect = %T, want none", step.Effect)
			}
			if _, ok := step.Next.(session.AwaitingPrayer); !ok {
				t.Fatalf("state changed to %s", step.Next.Name())
			}
			if step.Replies[0].Text != textGeneric {
				t.Fatalf("reply = %q", step.Replies[0].Text)
			}
		})
	}
}

func TestQuizNextWithoutQuiz(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	replies := h.send(Button{Tag: TagQuizNext})
	if replies[0].Text != textQuizInactive {
		t.Fatalf("reply = %q", replies[0].Text)
	}
}

func TestUnmatchedTextFallsBack(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	for _, ev := range []Event{Text{Body: "hello"}, Button{Tag: "nope"}, Command{Name: "dance"}} {
		replies := h.send(ev)
		if len(replies) != 1 || replies[0].Text != "Please use the menu to select an option." {
			t.Fatalf("%T replies = %q", ev, texts(replies))
		}
	}
	members, _ := h.store.ListMembers(context.Background())
	if len(members) != 0 || len(h.store.Prayers()) != 0 || len(h.store.Attendance()) != 0 {
		t.Fatal("fallback must not write")
	}
}

func TestMenuDuringFlowKeepsSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.send(Command{Name: "start"})
	h.send(Text{Body: "Grace"})

	replies := h.send(Text{Body: " 📜 Menu "})
	if !strings.Contains(replies[0].Text, "8. 📝 Register") {
		t.Fatalf("menu for guest = %q", replies[0].Text)
	}
	if reg, ok := h.st.(session.Registering); !ok || reg.Step != session.StepLastName {
		t.Fatalf("session = %#v", h.st)
	}
}

func TestStartReturningMember(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	_ = h.store.UpsertMember(context.Background(), storage.Member{RecipientID: 42, FirstName: "Grace"})
	replies := h.send(Command{Name: "start"})
	if replies[0].Text != "Welcome back, Grace! Please click on the menu to access the church services." {
		t.Fatalf("reply = %q", replies[0].Text)
	}
	if strings.Contains(replies[1].Text, "Register") || len(replies[1].Inline) != 7 {
		t.Fatalf("member menu = %q (%d rows)", replies[1].Text, len(replies[1].Inline))
	}
	if last := replies[1].Inline[6][0]; last.Data != TagEvents || !strings.Contains(replies[1].Text, "7. 🗓 Upcoming Events") {
		t.Fatalf("events entry = %+v", last)
	}
}

func TestAttendanceAndCheckin(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	replies := h.send(Button{Tag: TagAttendance})
	if replies[0].Text != "Did you attend the service today?" || len(replies[0].Inline[0]) != 2 {
		t.Fatalf("prompt = %+v", replies[0])
	}
	h.send(Button{Tag: replies[0].Inline[0][0].Data})
	got := h.store.Attendance()
	if len(got) != 1 || got[0].Status != storage.AttendanceYes || got[0].ServiceDate != "2026-04-05" {
		t.Fatalf("attendance = %+v", got)
	}

	for _, b := range CheckinButtons()[0] {
		replies = h.send(Button{Tag: b.Data})
		if replies[0].Text == textFallback {
			t.Fatalf("check-in %s fell back", b.Data)
		}
	}
}

func TestEventsListing(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	replies := h.send(Command{Name: "view_events"})
	if replies[0].Text != "No upcoming events." {
		t.Fatalf("empty listing = %q", replies[0].Text)
	}
	_, _ = h.store.AddEvent(context.Background(), storage.Event{Name: "Choir", StartsAt: fixedNow.Add(48 * time.Hour)})
	replies = h.send(Button{Tag: TagEvents})
	if replies[0].Text != "Upcoming Events:\nChoir at Tue 07 Apr 2026 10:00" {
		t.Fatalf("listing = %q", replies[0].Text)
	}
}

func TestCancelClearsFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.send(Button{Tag: TagPrayer})
	h.send(Command{Name: "cancel"})
	if !session.IsIdle(h.st) {
		t.Fatalf("session = %s", h.st.Name())
	}
}
