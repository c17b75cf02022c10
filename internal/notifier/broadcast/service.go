package broadcast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"churchbot/internal/eventbus"
	logx "churchbot/pkg/logx"
)

const (
	defaultWorkers     = 8
	defaultRatePerSec  = 25
	defaultSendTimeout = 30 * time.Second
	defaultHistory     = 50
)

func New(cfg Config, out Sender, members Members, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop()
	}
	s := &Service{
		out:     out,
		members: members,
		bus:     bus,
		log:     log,
		status:  map[string]*Report{},
	}
	s.Apply(cfg)
	return s
}

// Apply swaps limits at runtime. Running broadcasts keep their settings.
func (s *Service) Apply(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = defaultRatePerSec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.History <= 0 {
		cfg.History = defaultHistory
	}
	s.mu.Lock()
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	s.mu.Unlock()
}

// Broadcast delivers to every registered member. The error is non-nil only
// when the member list cannot be read; delivery failures are counted in
// the report.
func (s *Service) Broadcast(ctx context.Context, name string, factory Factory) (Report, error) {
	members, err := s.members.ListMembers(ctx)
	if err != nil {
		s.log.Error("broadcast aborted: list members", logx.String("name", name), logx.Err(err))
		return Report{}, fmt.Errorf("list members: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.RecipientID)
	}
	return s.Deliver(ctx, name, ids, factory), nil
}

// Deliver sends factory's payload to each recipient with bounded
// concurrency. A failed recipient is logged and counted; it never stops
// the others. Failed sends are not retried.
func (s *Service) Deliver(ctx context.Context, name string, recipients []int64, factory Factory) Report {
	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	id := uuid.NewString()
	start := time.Now()
	s.track(&Report{ID: id, Name: name, Total: len(recipients), StartedAt: start, Running: true}, cfg.History)
	log := s.log.With(logx.String("run", id), logx.String("name", name))
	log.Info("broadcast started", logx.Int("recipients", len(recipients)), logx.Int("workers", cfg.Workers))

	r := &run{
		svc:     s,
		id:      id,
		log:     log,
		limiter: lim,
		timeout: cfg.SendTimeout,
	}

	var g errgroup.Group
	g.SetLimit(cfg.Workers)
	for _, rcpt := range recipients {
		if ctx.Err() != nil {
			break
		}
		rcpt := rcpt
		g.Go(func() error {
			r.deliver(ctx, rcpt, factory)
			return nil
		})
	}
	_ = g.Wait()

	rep := s.finish(id)
	fields := []logx.Field{
		logx.Int("total", rep.Total),
		logx.Int("sent", rep.Sent),
		logx.Int("failed", rep.Failed),
		logx.Int("skipped", rep.Skipped),
		logx.Duration("dur", rep.Duration()),
	}
	if rep.Failed > 0 {
		log.Warn("broadcast finished with failures", fields...)
	} else {
		log.Info("broadcast finished", fields...)
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.BroadcastFinished, Data: rep})
	return rep
}
