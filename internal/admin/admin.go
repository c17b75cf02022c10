// Package admin implements the commands reserved for the configured
// administrator. Access control is a single recipient id comparison.
package admin

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"churchbot/internal/notifier/broadcast"
	"churchbot/internal/storage"
	"churchbot/internal/task/scheduler"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

const textUnauthorized = "You are not authorized to view this information."

type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, name string, factory broadcast.Factory) (broadcast.Report, error)
	Recent(n int) []broadcast.Report
}

type Schedules interface {
	Snapshot() scheduler.Snapshot
}

// Runner starts background work that outlives the request.
type Runner interface {
	Go0(name string, fn func(ctx context.Context))
}

type Deps struct {
	Store     storage.Store
	Out       Sender
	Broadcast Broadcaster
	Schedules Schedules
	Runner    Runner
	Location  *time.Location
	Log       logx.Logger
}

type Service struct {
	adminID atomic.Int64
	d       Deps
	now     func() time.Time
}

func New(adminID int64, d Deps) *Service {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	s := &Service{d: d, now: time.Now}
	s.adminID.Store(adminID)
	return s
}

// SetAdmin changes the administrator at runtime.
func (s *Service) SetAdmin(id int64) { s.adminID.Store(id) }

// AdminID is the current administrator; zero means none.
func (s *Service) AdminID() int64 { return s.adminID.Load() }

func (s *Service) IsAdmin(id int64) bool { return id != 0 && id == s.adminID.Load() }

type command struct {
	desc string
	run  func(s *Service, ctx context.Context, chat kit.ChatTarget, args string) error
}

var commands = map[string]command{
	"show_members":     {"List registered members", (*Service).showMembers},
	"add_event":        {"Add an event: <name> <YYYY-MM-DD> <HH:MM> <message>", (*Service).addEvent},
	"broadcast":        {"Send a message to every member", (*Service).broadcast},
	"broadcast_status": {"Recent broadcasts and schedules", (*Service).status},
}

// Handles reports whether name is an admin command.
func (s *Service) Handles(name string) bool {
	_, ok := commands[strings.ToLower(name)]
	return ok
}

// Commands lists the admin commands for the platform menu.
func (s *Service) Commands() []kit.BotCommand {
	out := make([]kit.BotCommand, 0, len(commands))
	for _, name := range []string{"show_members", "add_event", "broadcast", "broadcast_status"} {
		out = append(out, kit.BotCommand{Command: name, Description: commands[name].desc})
	}
	return out
}

// Handle runs an admin command for from. Non-admins get the refusal text.
func (s *Service) Handle(ctx context.Context, from, chatID int64, name, args string) error {
	cmd, ok := commands[strings.ToLower(name)]
	if !ok {
		return fmt.Errorf("unknown admin command %q", name)
	}
	chat := kit.ChatTarget{ChatID: chatID}
	if !s.IsAdmin(from) {
		s.d.Log.Warn("admin command refused", logx.String("cmd", name), logx.Int64("from", from))
		return s.reply(ctx, chat, textUnauthorized)
	}
	s.d.Log.Info("admin command", logx.String("cmd", name), logx.Int64("from", from))
	return cmd.run(s, ctx, chat, strings.TrimSpace(args))
}

func (s *Service) reply(ctx context.Context, chat kit.ChatTarget, text string) error {
	_, err := s.d.Out.SendText(ctx, chat, text, &kit.SendOptions{DisablePreview: true})
	return err
}
