// Package flow is the conversation state machine. It is pure decision
// logic: given the recipient's session, an inbound event and read-only
// facts it returns the next session, the replies and at most one write.
// Writes are applied by the caller, which picks the success or failure
// outcome depending on the result.
package flow

import (
	"context"
	"strings"
	"time"

	"churchbot/internal/content"
	"churchbot/internal/session"
	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
)

// Event is an inbound interaction: Text, Button or Command.
type Event interface{ isEvent() }

type Text struct{ Body string }

// Button is a pressed inline affordance; Tag is its callback data.
type Button struct{ Tag string }

// Command is a slash command without the leading slash.
type Command struct {
	Name string
	Args string
}

func (Text) isEvent()    {}
func (Button) isEvent()  {}
func (Command) isEvent() {}

// Reply is one outbound message. When Media is set it is sent instead of
// Text; Text is the fallback used if the media cannot be delivered.
type Reply struct {
	Text     string
	Media    *kit.Media
	Inline   [][]kit.Button
	Keyboard [][]string
}

// Effect is the single write a step asks for.
type Effect interface{ isEffect() }

type SaveMember struct{ Member storage.Member }

type AppendPrayer struct {
	Body string
	At   time.Time
}

type CompleteLesson struct {
	Lesson int
	At     time.Time
}

type RecordAttendance struct{ Attendance storage.Attendance }

func (SaveMember) isEffect()       {}
func (AppendPrayer) isEffect()     {}
func (CompleteLesson) isEffect()   {}
func (RecordAttendance) isEffect() {}

// Outcome is the session and replies to use when the effect fails.
type Outcome struct {
	Next    session.State
	Replies []Reply
}

// Step is the result of one Advance call. Next and Replies apply when
// Effect is nil or succeeds. A nil OnFailure keeps the current session and
// replies with the generic retry message.
type Step struct {
	Next      session.State
	Replies   []Reply
	Effect    Effect
	OnFailure *Outcome
}

// GenericFailure is the reply used when a write or a read fails.
func GenericFailure() Reply {
	return Reply{Text: textGeneric, Keyboard: MenuKeyboard()}
}

// Facts are the reads the machine may perform.
type Facts interface {
	GetMember(ctx context.Context, recipientID int64) (storage.Member, bool, error)
	GetProgress(ctx context.Context, recipientID int64) (storage.Progress, bool, error)
	ListEvents(ctx context.Context, from, to time.Time) ([]storage.Event, error)
}

type Option func(*Machine)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

// WithLocation sets the zone used for attendance dates and event listings.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithEventHorizon sets how far ahead the events listing looks.
func WithEventHorizon(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.horizon = d
		}
	}
}

type Machine struct {
	cat     *content.Catalog
	facts   Facts
	now     func() time.Time
	loc     *time.Location
	horizon time.Duration
}

func NewMachine(cat *content.Catalog, facts Facts, opts ...Option) *Machine {
	m := &Machine{
		cat:     cat,
		facts:   facts,
		now:     time.Now,
		loc:     time.Local,
		horizon: 30 * 24 * time.Hour,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Advance decides what happens next for recipient.
func (m *Machine) Advance(ctx context.Context, recipient int64, st session.State, ev Event) Step {
	if st == nil {
		st = session.Idle{}
	}
	switch e := ev.(type) {
	case Command:
		return m.onCommand(ctx, recipient, st, e)
	case Button:
		return m.onButton(ctx, recipient, st, e)
	case Text:
		return m.onText(ctx, recipient, st, e)
	}
	return fallback(st)
}

func (m *Machine) onCommand(ctx context.Context, recipient int64, st session.State, c Command) Step {
	switch strings.ToLower(c.Name) {
	case "start":
		return m.start(ctx, recipient, st)
	case "register":
		return beginRegistration(false)
	case "menu":
		return m.mainMenu(ctx, recipient, st)
	case "cancel":
		return Step{Next: session.Idle{}, Replies: []Reply{{Text: textCancelled, Keyboard: MenuKeyboard()}}}
	case "view_events", "events":
		return m.events(ctx, st)
	}
	return fallback(st)
}

func (m *Machine) onButton(ctx context.Context, recipient int64, st session.State, b Button) Step {
	scope, action, payload := kit.ParseData(b.Tag)
	switch scope {
	case "menu":
		return m.mainMenu(ctx, recipient, st)
	case "register":
		return beginRegistration(false)
	case "prayer":
		return Step{Next: session.AwaitingPrayer{}, Replies: []Reply{{Text: textPrayerPrompt}}}
	case "bible":
		return m.startLesson(ctx, recipient, st)
	case "lesson":
		switch action {
		case "start", "":
			return m.startLesson(ctx, recipient, st)
		case "done":
			return m.completeLesson(st, payload)
		}
	case "quiz":
		if action == "next" {
			return m.nextQuestion(st)
		}
	case "donate":
		return m.donate(st, action)
	case "attendance":
		return m.attendance(recipient, st, action)
	case "checkin":
		if text, ok := checkinReplies[action]; ok {
			return keep(st, Reply{Text: text, Keyboard: MenuKeyboard()})
		}
	case "videos":
		return m.serviceVideo(st)
	case "events":
		return m.events(ctx, st)
	}
	return fallback(st)
}

func (m *Machine) onText(ctx context.Context, recipient int64, st session.State, t Text) Step {
	body := strings.TrimSpace(t.Body)
	if body == MenuLabel {
		return m.mainMenu(ctx, recipient, st)
	}
	switch s := st.(type) {
	case session.Registering:
		return m.register(recipient, s, body)
	case session.AwaitingPrayer:
		if body == "" {
			return keep(st, Reply{Text: textPrayerPrompt})
		}
		return Step{
			Next:    session.Idle{},
			Replies: []Reply{{Text: textPrayerSaved, Keyboard: MenuKeyboard()}},
			Effect:  AppendPrayer{Body: body, At: m.now()},
			OnFailure: &Outcome{
				Next:    session.AwaitingPrayer{},
				Replies: []Reply{{Text: textPrayerFailed, Keyboard: MenuKeyboard()}},
			},
		}
	}
	return fallback(st)
}

// keep leaves the session untouched.
func keep(st session.State, replies ...Reply) Step {
	return Step{Next: st, Replies: replies}
}

func fallback(st session.State) Step {
	return keep(st, Reply{Text: textFallback, Keyboard: MenuKeyboard()})
}

func failure(st session.State) Step {
	return keep(st, GenericFailure())
}
