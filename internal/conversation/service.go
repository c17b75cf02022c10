// Package conversation applies state machine steps: it persists the
// requested effect, stores the next session and delivers the replies.
package conversation

import (
	"context"
	"fmt"
	"sync"

	"churchbot/internal/eventbus"
	"churchbot/internal/flow"
	"churchbot/internal/session"
	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

// Sender is the outbound part of the transport.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	SendMedia(ctx context.Context, to kit.ChatTarget, media kit.Media, opt *kit.SendOptions) (kit.MessageRef, error)
}

type Service struct {
	machine  *flow.Machine
	sessions *session.Manager
	store    storage.Store
	out      Sender
	bus      eventbus.Bus
	log      logx.Logger

	// uploaded media path -> telegram file id
	files sync.Map
}

func New(machine *flow.Machine, sessions *session.Manager, store storage.Store, out Sender, bus eventbus.Bus, log logx.Logger) *Service {
	if bus == nil {
		bus = eventbus.Nop()
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		machine:  machine,
		sessions: sessions,
		store:    store,
		out:      out,
		bus:      bus,
		log:      log,
	}
}

// Handle runs one inbound event for recipient. Callers must not run two
// Handle calls for the same recipient concurrently.
//
// Persistence failures are turned into replies; the returned error only
// reports a failed send.
func (s *Service) Handle(ctx context.Context, recipient, chatID int64, ev flow.Event) error {
	cur := s.sessions.Get(recipient)
	step := s.machine.Advance(ctx, recipient, cur, ev)

	next, replies := step.Next, step.Replies
	if step.Effect != nil {
		if err := s.apply(ctx, recipient, step.Effect); err != nil {
			s.log.Warn("effect failed",
				logx.Int64("recipient", recipient),
				logx.String("effect", fmt.Sprintf("%T", step.Effect)),
				logx.String("state", cur.Name()),
				logx.Err(err),
			)
			if step.OnFailure != nil {
				next, replies = step.OnFailure.Next, step.OnFailure.Replies
			} else {
				next, replies = cur, []flow.Reply{flow.GenericFailure()}
			}
		}
	}
	if next == nil {
		next = cur
	}
	s.sessions.Begin(recipient, next)
	if next.Name() != cur.Name() {
		s.log.Debug("session changed", logx.Int64("recipient", recipient), logx.String("from", cur.Name()), logx.String("to", next.Name()))
	}

	return s.deliver(ctx, kit.ChatTarget{ChatID: chatID}, replies)
}

func (s *Service) apply(ctx context.Context, recipient int64, eff flow.Effect) error {
	switch e := eff.(type) {
	case flow.SaveMember:
		if err := s.store.UpsertMember(ctx, e.Member); err != nil {
			return err
		}
		s.bus.Publish(eventbus.Event{Type: eventbus.MemberRegistered, Recipient: recipient, Data: e.Member})
	case flow.AppendPrayer:
		id, err := s.store.AppendPrayer(ctx, recipient, e.Body, e.At)
		if err != nil {
			return err
		}
		s.bus.Publish(eventbus.Event{Type: eventbus.PrayerSubmitted, Recipient: recipient, Data: id})
	case flow.CompleteLesson:
		p, err := s.store.UpsertProgress(ctx, recipient, e.Lesson, e.At)
		if err != nil {
			return err
		}
		s.bus.Publish(eventbus.Event{Type: eventbus.LessonCompleted, Recipient: recipient, Data: p})
	case flow.RecordAttendance:
		if err := s.store.RecordAttendance(ctx, e.Attendance); err != nil {
			return err
		}
		s.bus.Publish(eventbus.Event{Type: eventbus.AttendanceMarked, Recipient: recipient, Data: e.Attendance})
	default:
		return fmt.Errorf("unknown effect %T", eff)
	}
	return nil
}

// deliver sends replies in order and stops at the first failure.
func (s *Service) deliver(ctx context.Context, to kit.ChatTarget, replies []flow.Reply) error {
	for i, r := range replies {
		opt := &kit.SendOptions{Inline: r.Inline, Keyboard: r.Keyboard}
		if r.Media != nil {
			if s.sendMedia(ctx, to, *r.Media, opt) {
				continue
			}
			if r.Text == "" {
				continue
			}
		}
		if _, err := s.out.SendText(ctx, to, r.Text, opt); err != nil {
			return fmt.Errorf("send reply %d/%d to %d: %w", i+1, len(replies), to.ChatID, err)
		}
	}
	return nil
}

// sendMedia reports whether the media went out. Failures fall back to text.
func (s *Service) sendMedia(ctx context.Context, to kit.ChatTarget, m kit.Media, opt *kit.SendOptions) bool {
	if id, ok := s.files.Load(m.Path); ok && m.FileID == "" {
		m.FileID = id.(string)
	}
	ref, err := s.out.SendMedia(ctx, to, m, opt)
	if err != nil {
		s.log.Warn("media send failed, using text", logx.String("path", m.Path), logx.Int64("chat_id", to.ChatID), logx.Err(err))
		if m.FileID != "" {
			s.files.Delete(m.Path)
		}
		return false
	}
	if ref.FileID != "" && m.Path != "" {
		s.files.Store(m.Path, ref.FileID)
	}
	return true
}

// Sessions returns the number of active flows.
func (s *Service) Sessions() int { return s.sessions.Len() }
