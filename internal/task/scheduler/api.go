package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "churchbot/pkg/logx"
)

// AddDaily registers a calendar trigger. After a restart the job fires at
// the next natural occurrence of the time.
func (s *Service) AddDaily(name string, d Daily, job Job) error {
	spec, err := d.Spec()
	if err != nil {
		return err
	}
	return s.AddCron(name, spec, job)
}

// AddCron registers a raw cron spec (5 or 6 fields, or a descriptor).
func (s *Service) AddCron(name, spec string, job Job) error {
	sched, err := s.parser.Parse(spec)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return s.add(scheduleDef{name: name, spec: spec, sched: func(bool) cron.Schedule { return sched }, job: job})
}

// AddInterval registers a fixed period trigger.
func (s *Service) AddInterval(name string, iv Interval, job Job) error {
	if iv.Every < time.Second {
		return fmt.Errorf("schedule %s: interval must be at least 1s", name)
	}
	if iv.Delay < 0 {
		return fmt.Errorf("schedule %s: negative delay", name)
	}
	spec := fmt.Sprintf("@every %s", iv.Every)
	if iv.Delay > 0 {
		spec += fmt.Sprintf(" (first after %s)", iv.Delay)
	}
	return s.add(scheduleDef{
		name: name,
		spec: spec,
		sched: func(resume bool) cron.Schedule {
			sc := &intervalSchedule{every: cron.Every(iv.Every), delay: iv.Delay}
			sc.started.Store(resume)
			return sc
		},
		job: job,
	})
}

func (s *Service) add(d scheduleDef) error {
	if strings.TrimSpace(d.name) == "" {
		return errors.New("name required")
	}
	if d.job == nil {
		return errors.New("job required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.timeout == 0 {
		d.timeout = s.cfg.JobTimeout
	}
	job := d.job
	if i := s.indexLocked(d.name); i >= 0 {
		cur := &s.defs[i]
		// Same trigger: keep the cron entry, its next activation and the stats.
		if cur.spec == d.spec {
			cur.fn.Store(&job)
			cur.job = job
			if cur.timeout != d.timeout {
				cur.timeout = d.timeout
				if s.c != nil && cur.entryID != 0 {
					s.c.Remove(cur.entryID)
					s.scheduleLocked(cur, cur.live)
				}
			}
			return nil
		}
		d.stats = cur.stats
		resume := cur.activated()
		s.removeLocked(d.name)
		s.defs = append(s.defs, d)
		return s.registerLocked(&s.defs[len(s.defs)-1], resume)
	}
	d.stats = &runStats{}
	s.defs = append(s.defs, d)
	return s.registerLocked(&s.defs[len(s.defs)-1], false)
}

func (s *Service) registerLocked(d *scheduleDef, resume bool) error {
	job := d.job
	d.fn = &atomic.Pointer[Job]{}
	d.fn.Store(&job)
	if s.c == nil {
		return nil
	}
	s.addCronLocked(d, resume)
	s.log.Debug("schedule registered", logx.String("name", d.name), logx.String("spec", d.spec))
	return nil
}

// Remove unschedules name. It reports whether something was removed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(strings.TrimSpace(name))
}

func (s *Service) indexLocked(name string) int {
	for i := range s.defs {
		if s.defs[i].name == name {
			return i
		}
	}
	return -1
}

func (s *Service) removeLocked(name string) bool {
	n := 0
	removed := false
	for _, d := range s.defs {
		if d.name == name {
			if s.c != nil && d.entryID != 0 {
				s.c.Remove(d.entryID)
			}
			removed = true
			continue
		}
		s.defs[n] = d
		n++
	}
	s.defs = s.defs[:n]
	return removed
}

// addCronLocked schedules d on the current cron with a fresh schedule.
func (s *Service) addCronLocked(d *scheduleDef, resume bool) {
	s.scheduleLocked(d, d.sched(resume))
}

// scheduleLocked adds d to the current cron using sc. Re-adding with the
// same schedule value keeps its next activation.
func (s *Service) scheduleLocked(d *scheduleDef, sc cron.Schedule) {
	def := *d
	runCtx := s.runCtx
	logger := cronLogger{log: s.log.With(logx.String("job", d.name))}
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).Then(cron.FuncJob(func() {
		s.run(runCtx, def)
	}))
	d.live = sc
	d.entryID = s.c.Schedule(sc, job)
}

func (s *Service) run(parent context.Context, d scheduleDef) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := parent, context.CancelFunc(func() {})
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, d.timeout)
	}
	defer cancel()

	st := d.stats
	st.mu.Lock()
	// A run from a replaced cron instance may still be in flight.
	if st.running {
		st.mu.Unlock()
		s.log.Info("job still running; activation skipped", logx.String("job", d.name))
		return
	}
	st.running = true
	st.mu.Unlock()
	job := *d.fn.Load()

	start := time.Now()
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		err = job(ctx)
	}()
	dur := time.Since(start)

	st.mu.Lock()
	st.running = false
	st.runs++
	st.lastDur = dur
	st.lastEnd = time.Now()
	st.lastErr = ""
	if err != nil {
		st.failures++
		st.lastErr = err.Error()
	}
	st.mu.Unlock()

	if err != nil {
		s.log.Warn("job failed", logx.String("job", d.name), logx.Duration("dur", dur), logx.Err(err))
		return
	}
	s.log.Debug("job finished", logx.String("job", d.name), logx.Duration("dur", dur))
}

// intervalSchedule is cron.Every with a configurable first activation.
type intervalSchedule struct {
	every   cron.ConstantDelaySchedule
	delay   time.Duration
	started atomic.Bool
}

func (s *intervalSchedule) Next(t time.Time) time.Time {
	if s.started.CompareAndSwap(false, true) {
		return t.Add(s.delay)
	}
	return s.every.Next(t)
}
