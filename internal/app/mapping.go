package app

import (
	"fmt"
	"strings"
	"time"

	"churchbot/internal/config"
	"churchbot/internal/content"
	"churchbot/internal/jobs"
	"churchbot/internal/notifier"
	"churchbot/internal/notifier/broadcast"
	"churchbot/internal/observability/ops"
	"churchbot/internal/storage"
	"churchbot/internal/task/scheduler"
	"churchbot/internal/transport/telegram/router"
	logx "churchbot/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Admin: logx.AdminConfig{
			Enabled:    l.Admin.Enabled,
			MinLevel:   l.Admin.MinLevel,
			RatePerSec: l.Admin.RatePerSec,
		},
	}
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	busy, err := config.Duration("storage.busy_timeout", sc.BusyTimeout)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      strings.ToLower(strings.TrimSpace(sc.Driver)),
		Path:        strings.TrimSpace(sc.Path),
		DSN:         strings.TrimSpace(sc.DSN),
		BusyTimeout: busy,
	}, nil
}

func mapMedia(cfg *config.Config) content.Media {
	c := cfg.Content
	return content.Media{
		Welcome: strings.TrimSpace(c.WelcomeVideo),
		Uplift:  strings.TrimSpace(c.UpliftVideo),
		Service: strings.TrimSpace(c.ServiceVideo),
	}
}

func mapRouter(cfg *config.Config) (router.Config, error) {
	timeout, err := config.Duration("router.timeout", cfg.Router.Timeout)
	if err != nil {
		return router.Config{}, err
	}
	return router.Config{Workers: cfg.Router.Workers, QueueSize: cfg.Router.QueueSize, Timeout: timeout}, nil
}

func mapBroadcast(cfg *config.Config) (broadcast.Config, error) {
	b := cfg.Broadcast
	timeout, err := config.Duration("broadcast.send_timeout", b.SendTimeout)
	if err != nil {
		return broadcast.Config{}, err
	}
	return broadcast.Config{
		Workers:     b.Workers,
		RatePerSec:  b.RatePerSec,
		SendTimeout: timeout,
		History:     b.History,
	}, nil
}

func mapNotifier(cfg *config.Config) (notifier.Config, error) {
	n := cfg.Notifier
	window, err := config.Duration("notifier.dedup_window", n.DedupWindow)
	if err != nil {
		return notifier.Config{}, err
	}
	return notifier.Config{
		Enabled:     n.Enabled,
		RatePerSec:  n.RatePerSec,
		RetryMax:    n.RetryMax,
		DedupWindow: window,
	}, nil
}

func mapScheduler(cfg *config.Config) (scheduler.Config, error) {
	s := cfg.Scheduler
	timeout, err := config.Duration("scheduler.job_timeout", s.JobTimeout)
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{Enabled: s.Enabled, Timezone: strings.TrimSpace(s.Timezone), JobTimeout: timeout}, nil
}

func mapJobs(cfg *config.Config) (jobs.Config, error) {
	j := cfg.Scheduler.Jobs
	var out jobs.Config
	var err error
	if out.MorningVerse, err = mapDaily("scheduler.jobs.morning_verse", j.MorningVerse); err != nil {
		return jobs.Config{}, err
	}
	if out.EveningCheckin, err = mapDaily("scheduler.jobs.evening_checkin", j.EveningCheckin); err != nil {
		return jobs.Config{}, err
	}
	if out.EventReminder, err = mapInterval("scheduler.jobs.event_reminder", j.EventReminder); err != nil {
		return jobs.Config{}, err
	}
	if out.Uplift, err = mapInterval("scheduler.jobs.uplift", j.Uplift); err != nil {
		return jobs.Config{}, err
	}
	if out.LookAhead, err = config.DurationOr("scheduler.look_ahead", cfg.Scheduler.LookAhead, 24*time.Hour); err != nil {
		return jobs.Config{}, err
	}
	return out, nil
}

func mapDaily(path string, c config.DailyJobConfig) (jobs.DailyJob, error) {
	if !c.Enabled {
		return jobs.DailyJob{}, nil
	}
	h, m, err := scheduler.ParseClock(c.At)
	if err != nil {
		return jobs.DailyJob{}, fmt.Errorf("%s.at: %w", path, err)
	}
	days, err := scheduler.ParseWeekdays(c.Days)
	if err != nil {
		return jobs.DailyJob{}, fmt.Errorf("%s.days: %w", path, err)
	}
	return jobs.DailyJob{Enabled: true, Hour: h, Minute: m, Days: days}, nil
}

func mapInterval(path string, c config.IntervalJobConfig) (jobs.IntervalJob, error) {
	if !c.Enabled {
		return jobs.IntervalJob{}, nil
	}
	every, err := config.Duration(path+".every", c.Every)
	if err != nil {
		return jobs.IntervalJob{}, err
	}
	delay, err := config.Duration(path+".delay", c.Delay)
	if err != nil {
		return jobs.IntervalJob{}, err
	}
	return jobs.IntervalJob{Enabled: true, Every: every, Delay: delay}, nil
}

func mapOps(cfg *config.Config) ops.Config {
	o := cfg.Ops
	return ops.Config{
		Enabled:       o.Enabled,
		Addr:          strings.TrimSpace(o.Addr),
		Token:         strings.TrimSpace(o.Token),
		AllowInsecure: o.AllowInsecure,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  60 * time.Second,
	}
}
