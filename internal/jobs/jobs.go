// Package jobs defines the scheduled broadcasts and registers them with
// the scheduler.
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"churchbot/internal/content"
	"churchbot/internal/flow"
	"churchbot/internal/notifier/broadcast"
	"churchbot/internal/storage"
	"churchbot/internal/task/scheduler"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

const (
	MorningVerse   = "morning_verse"
	EveningCheckin = "evening_checkin"
	EventReminder  = "event_reminder"
	Uplift         = "uplift"
)

const (
	textMorning       = "☀️ Good Morning!\n\nToday's Bible Verse:\n%s"
	textEvening       = "🌙 Good Evening! How was your day?"
	textPrayerMeeting = "🔔 Reminder: Don't forget the Prayer Meeting coming up soon this evening!"
	textEventReminder = "📢 Reminder: %s\n%s"
	textUplift        = "🔔 How is your day going? Here is a video to uplift your spirits!"
	textUpliftCaption = "Enjoy this uplifting video!"
)

type DailyJob struct {
	Enabled bool
	Hour    int
	Minute  int
	Days    []time.Weekday
}

type IntervalJob struct {
	Enabled bool
	Every   time.Duration
	Delay   time.Duration
}

type Config struct {
	MorningVerse   DailyJob
	EveningCheckin DailyJob
	EventReminder  IntervalJob
	Uplift         IntervalJob
	// LookAhead is how far ahead the event reminder looks for stored events.
	LookAhead time.Duration
}

// Defaults are the church's usual schedule.
func Defaults() Config {
	return Config{
		MorningVerse:   DailyJob{Enabled: true, Hour: 7},
		EveningCheckin: DailyJob{Enabled: true, Hour: 19},
		EventReminder:  IntervalJob{Enabled: true, Every: 60 * time.Second},
		Uplift:         IntervalJob{Enabled: true, Every: 300 * time.Second},
		LookAhead:      24 * time.Hour,
	}
}

// Broadcaster delivers a payload to every member.
type Broadcaster interface {
	Broadcast(ctx context.Context, name string, factory broadcast.Factory) (broadcast.Report, error)
}

// Events lists stored church events.
type Events interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]storage.Event, error)
}

type Scheduler interface {
	AddDaily(name string, d scheduler.Daily, job scheduler.Job) error
	AddInterval(name string, iv scheduler.Interval, job scheduler.Job) error
	Remove(name string) bool
}

type Jobs struct {
	cat    *content.Catalog
	bc     Broadcaster
	events Events
	log    logx.Logger
	now    func() time.Time

	lookAhead time.Duration

	mu       sync.Mutex
	reminded map[int64]time.Time // event id -> start time
}

func New(cat *content.Catalog, bc Broadcaster, events Events, lookAhead time.Duration, log logx.Logger) *Jobs {
	if log.IsZero() {
		log = logx.Nop()
	}
	if lookAhead <= 0 {
		lookAhead = 24 * time.Hour
	}
	return &Jobs{
		cat:       cat,
		bc:        bc,
		events:    events,
		log:       log,
		now:       time.Now,
		lookAhead: lookAhead,
		reminded:  map[int64]time.Time{},
	}
}

// Register adds every enabled job to s and removes disabled ones, so it
// can be called again after a config reload.
func (j *Jobs) Register(s Scheduler, cfg Config) error {
	daily := []struct {
		name string
		cfg  DailyJob
		run  scheduler.Job
	}{
		{MorningVerse, cfg.MorningVerse, j.MorningVerse},
		{EveningCheckin, cfg.EveningCheckin, j.EveningCheckin},
	}
	for _, d := range daily {
		if !d.cfg.Enabled {
			if s.Remove(d.name) {
				j.log.Info("job disabled", logx.String("job", d.name))
			}
			continue
		}
		if err := s.AddDaily(d.name, scheduler.Daily{Hour: d.cfg.Hour, Minute: d.cfg.Minute, Days: d.cfg.Days}, d.run); err != nil {
			return fmt.Errorf("register %s: %w", d.name, err)
		}
	}

	interval := []struct {
		name string
		cfg  IntervalJob
		run  scheduler.Job
	}{
		{EventReminder, cfg.EventReminder, j.EventReminder},
		{Uplift, cfg.Uplift, j.Uplift},
	}
	for _, iv := range interval {
		if !iv.cfg.Enabled {
			if s.Remove(iv.name) {
				j.log.Info("job disabled", logx.String("job", iv.name))
			}
			continue
		}
		if err := s.AddInterval(iv.name, scheduler.Interval{Every: iv.cfg.Every, Delay: iv.cfg.Delay}, iv.run); err != nil {
			return fmt.Errorf("register %s: %w", iv.name, err)
		}
	}
	return nil
}

func (j *Jobs) MorningVerse(ctx context.Context) error {
	_, err := j.bc.Broadcast(ctx, MorningVerse, func(int64) broadcast.Payload {
		return broadcast.Text(fmt.Sprintf(textMorning, j.cat.RandomVerse()), &kit.SendOptions{Keyboard: flow.MenuKeyboard()})
	})
	return err
}

func (j *Jobs) EveningCheckin(ctx context.Context) error {
	p := broadcast.Text(textEvening, &kit.SendOptions{Inline: flow.CheckinButtons()})
	_, err := j.bc.Broadcast(ctx, EveningCheckin, func(int64) broadcast.Payload { return p })
	return err
}

// EventReminder announces stored events starting within the look-ahead
// window, once per event. With nothing to announce it sends the standing
// prayer meeting reminder.
func (j *Jobs) EventReminder(ctx context.Context) error {
	p, err := j.reminderPayload(ctx)
	if err != nil {
		return err
	}
	_, err = j.bc.Broadcast(ctx, EventReminder, func(int64) broadcast.Payload { return p })
	return err
}

func (j *Jobs) reminderPayload(ctx context.Context) (broadcast.Payload, error) {
	now := j.now()
	var evs []storage.Event
	if j.events != nil {
		var err error
		evs, err = j.events.ListEvents(ctx, now, now.Add(j.lookAhead))
		if err != nil {
			return broadcast.Payload{}, fmt.Errorf("list events: %w", err)
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	for id, at := range j.reminded {
		if at.Before(now) {
			delete(j.reminded, id)
		}
	}
	var parts []broadcast.Part
	for _, e := range evs {
		if _, done := j.reminded[e.ID]; done {
			continue
		}
		j.reminded[e.ID] = e.StartsAt
		parts = append(parts, broadcast.Part{Text: fmt.Sprintf(textEventReminder, e.Name, e.Message)})
	}
	if len(parts) == 0 {
		return broadcast.Text(textPrayerMeeting, nil), nil
	}
	j.log.Info("announcing events", logx.Int("count", len(parts)))
	return broadcast.Payload{Parts: parts}, nil
}

func (j *Jobs) Uplift(ctx context.Context) error {
	parts := []broadcast.Part{{Text: textUplift}}
	if path := j.cat.Media.Uplift; path != "" {
		parts = append(parts, broadcast.Part{Media: &kit.Media{Kind: kit.MediaVideo, Path: path, Caption: textUpliftCaption}})
	}
	p := broadcast.Payload{Parts: parts}
	_, err := j.bc.Broadcast(ctx, Uplift, func(int64) broadcast.Payload { return p })
	return err
}
