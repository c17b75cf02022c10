package app

import (
	"context"
	"slices"
	"strings"

	"churchbot/internal/config"
	logx "churchbot/pkg/logx"
)

// reloadLoop applies published configs until ctx is done. Bursts collapse
// to the newest config.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(4)
	defer a.cfgm.Unsubscribe(sub)
	applied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			next = drainLatest(sub, next)
			change := config.Diff(applied, next)
			if change.Empty() {
				a.log.Debug("config reload without effective changes")
				continue
			}
			a.apply(ctx, next, change)
			applied = next
			a.log.Info("config applied", append([]logx.Field{logx.String("changed", strings.Join(change.Sections, ","))}, change.Fields...)...)
		}
	}
}

func drainLatest(ch <-chan *config.Config, cur *config.Config) *config.Config {
	for {
		select {
		case c, ok := <-ch:
			if !ok || c == nil {
				return cur
			}
			cur = c
		default:
			return cur
		}
	}
}

// apply pushes the live-reloadable sections of cfg into running components.
func (a *App) apply(ctx context.Context, cfg *config.Config, change config.Change) {
	has := func(s string) bool { return slices.Contains(change.Sections, s) }

	if has("logging") {
		a.logs.Apply(mapLogging(cfg))
	}
	if has("admin") {
		a.admin.SetAdmin(cfg.Telegram.AdminUserID)
		a.logs.SetAdmin(cfg.Telegram.AdminUserID)
	}
	if has("broadcast") {
		if bc, err := mapBroadcast(cfg); err != nil {
			a.log.Warn("broadcast config kept", logx.Err(err))
		} else {
			a.bcast.Apply(bc)
		}
	}
	if has("notifier") {
		a.applyNotifier(ctx, cfg)
	}
	if has("scheduler") {
		a.applyScheduler(ctx, cfg)
	}
	if has("ops") {
		if err := a.ops.Reconfigure(ctx, mapOps(cfg)); err != nil {
			a.log.Warn("ops endpoint reconfigure failed", logx.Err(err))
		}
	}
	a.restartRequired(change.Restart)
}

func (a *App) applyNotifier(ctx context.Context, cfg *config.Config) {
	nc, err := mapNotifier(cfg)
	if err != nil {
		a.log.Warn("notifier config kept", logx.Err(err))
		return
	}
	was := a.notif.Enabled()
	a.notif.Apply(nc)
	switch {
	case was && !nc.Enabled:
		a.notif.Stop(ctx)
		a.log.Info("notifier disabled via config")
	case !was && nc.Enabled:
		a.notif.Start(ctx, a.bus)
		a.log.Info("notifier enabled via config")
	}
}

func (a *App) applyScheduler(ctx context.Context, cfg *config.Config) {
	sc, err := mapScheduler(cfg)
	if err != nil {
		a.log.Warn("scheduler config kept", logx.Err(err))
		return
	}
	jc, err := mapJobs(cfg)
	if err != nil {
		a.log.Warn("scheduler jobs kept", logx.Err(err))
		return
	}
	was := a.sched.Enabled()
	a.sched.Apply(sc)
	if err := a.jobs.Register(a.sched, jc); err != nil {
		a.log.Warn("job registration failed", logx.Err(err))
	}
	switch {
	case was && !sc.Enabled:
		a.sched.Stop(ctx)
		a.log.Info("scheduler disabled via config")
	case !was && sc.Enabled:
		a.sched.Start(ctx)
		a.log.Info("scheduler enabled via config")
	}
}
