package admin

import (
	"context"
	"fmt"
	"strings"
	"time"

	"churchbot/internal/notifier/broadcast"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

// broadcast sends args to every member in the background and reports back.
func (s *Service) broadcast(ctx context.Context, chat kit.ChatTarget, args string) error {
	if args == "" {
		return s.reply(ctx, chat, "Usage: /broadcast <message>")
	}
	text := args
	run := func(ctx context.Context) {
		rep, err := s.d.Broadcast.Broadcast(ctx, "admin", func(int64) broadcast.Payload {
			return broadcast.Text(text, nil)
		})
		msg := ""
		if err != nil {
			msg = "❌ Broadcast failed: " + err.Error()
		} else {
			msg = fmt.Sprintf("📣 Broadcast finished: %d sent, %d failed of %d.", rep.Sent, rep.Failed, rep.Total)
		}
		if err := s.reply(ctx, chat, msg); err != nil {
			s.d.Log.Warn("broadcast report not delivered", logx.Err(err))
		}
	}
	if s.d.Runner == nil {
		run(ctx)
		return nil
	}
	s.d.Runner.Go0("admin.broadcast", run)
	return s.reply(ctx, chat, "📣 Broadcast started.")
}

func (s *Service) status(ctx context.Context, chat kit.ChatTarget, _ string) error {
	var b strings.Builder
	b.WriteString("📊 Broadcasts\n")
	recent := s.d.Broadcast.Recent(5)
	if len(recent) == 0 {
		b.WriteString("none yet\n")
	}
	for _, r := range recent {
		state := "done"
		if r.Running {
			state = "running"
		}
		fmt.Fprintf(&b, "- %s %s: %d/%d sent, %d failed (%s, %s ago)\n",
			r.Name, state, r.Sent, r.Total, r.Failed, r.Duration().Round(time.Millisecond), s.now().Sub(r.StartedAt).Round(time.Second))
	}

	if s.d.Schedules != nil {
		snap := s.d.Schedules.Snapshot()
		fmt.Fprintf(&b, "\n⏰ Schedules (%s)\n", snap.Timezone)
		if !snap.Running {
			b.WriteString("scheduler stopped\n")
		}
		for _, it := range snap.Schedules {
			next := "-"
			if !it.Next.IsZero() {
				next = it.Next.Format("02 Jan 15:04:05")
			}
			fmt.Fprintf(&b, "- %s [%s] next %s, runs %d, failures %d\n", it.Name, it.Spec, next, it.Runs, it.Failures)
			if it.LastErr != "" {
				fmt.Fprintf(&b, "  last error: %s\n", it.LastErr)
			}
		}
	}
	return s.reply(ctx, chat, strings.TrimRight(b.String(), "\n"))
}
