package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

const addEventUsage = "Usage: /add_event <name> <YYYY-MM-DD> <HH:MM> <message>"

// parseEvent parses "<name> <YYYY-MM-DD> <HH:MM> <message>". Underscores in
// the name become spaces.
func parseEvent(args string, loc *time.Location) (storage.Event, error) {
	f := strings.Fields(args)
	if len(f) < 4 {
		return storage.Event{}, fmt.Errorf("expected 4 arguments, got %d", len(f))
	}
	at, err := time.ParseInLocation("2006-01-02 15:04", f[1]+" "+f[2], loc)
	if err != nil {
		return storage.Event{}, fmt.Errorf("bad date or time: %w", err)
	}
	return storage.Event{
		Name:     strings.ReplaceAll(f[0], "_", " "),
		StartsAt: at,
		Message:  strings.Join(f[3:], " "),
	}, nil
}

func (s *Service) addEvent(ctx context.Context, chat kit.ChatTarget, args string) error {
	ev, err := parseEvent(args, s.d.Location)
	if err != nil {
		return s.reply(ctx, chat, addEventUsage+"\n"+err.Error())
	}
	now := s.now()
	if ev.StartsAt.Before(now) {
		return s.reply(ctx, chat, "That time is in the past. "+addEventUsage)
	}
	ev.CreatedAt = now
	id, err := s.d.Store.AddEvent(ctx, ev)
	if err != nil {
		s.d.Log.Error("add event failed", logx.Err(err))
		return s.reply(ctx, chat, "Failed to save event. Please try again.")
	}
	s.d.Log.Info("event added", logx.Int64("id", id), logx.String("name", ev.Name), logx.Time("starts_at", ev.StartsAt))
	return s.reply(ctx, chat, fmt.Sprintf("✅ Event added: %s at %s", ev.Name, ev.StartsAt.In(s.d.Location).Format("Mon 02 Jan 2006 15:04")))
}
