// Package app wires churchbot's components together and owns their
// lifecycle: start order, config hot reload and the staged stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"churchbot/internal/admin"
	"churchbot/internal/config"
	"churchbot/internal/content"
	"churchbot/internal/conversation"
	"churchbot/internal/eventbus"
	"churchbot/internal/flow"
	"churchbot/internal/jobs"
	"churchbot/internal/notifier"
	"churchbot/internal/notifier/broadcast"
	"churchbot/internal/observability/ops"
	rtsup "churchbot/internal/runtime/supervisor"
	"churchbot/internal/session"
	"churchbot/internal/storage"
	"churchbot/internal/task/scheduler"
	kit "churchbot/internal/transport"
	telegram "churchbot/internal/transport/telegram/adapter"
	"churchbot/internal/transport/telegram/router"
	logx "churchbot/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter *telegram.Adapter
	conv    *conversation.Service
	bcast   *broadcast.Service
	notif   *notifier.Service
	sched   *scheduler.Service
	jobs    *jobs.Jobs
	admin   *admin.Service
	router  *router.Router
	ops     *ops.Server

	updates      chan kit.Update
	routerCancel context.CancelFunc
	routerDone   chan struct{}
}

// New loads the config at cfgPath and builds every component. Nothing
// runs until Start.
func New(ctx context.Context, cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	pollTimeout, err := config.DurationOr("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	ad, err := telegram.New(telegram.Config{Token: cfg.Telegram.Token, PollTimeout: pollTimeout},
		logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	logSvc, root := logx.New(mapLogging(cfg), ad)
	logSvc.SetAdmin(cfg.Telegram.AdminUserID)
	log := root.With(logx.String("comp", "app"))
	comp := func(name string) logx.Logger { return root.With(logx.String("comp", name)) }

	sc, err := mapStorage(cfg)
	if err != nil {
		return nil, err
	}
	octx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := storage.Open(octx, sc, comp("storage"))
	cancel()
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	log.Info("storage opened", logx.String("driver", sc.Driver))

	a, err := build(cfg, store, ad, logSvc, root)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.cfgm = cfgm
	return a, nil
}

func build(cfg *config.Config, store storage.Store, ad *telegram.Adapter, logSvc *logx.Service, root logx.Logger) (*App, error) {
	comp := func(name string) logx.Logger { return root.With(logx.String("comp", name)) }
	a := &App{
		log:     comp("app"),
		logs:    logSvc,
		bus:     eventbus.New(),
		store:   store,
		adapter: ad,
		updates: make(chan kit.Update, 256),
	}

	cat, err := content.Load(cfg.Content.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}
	cat.Media = mapMedia(cfg)

	schedCfg, err := mapScheduler(cfg)
	if err != nil {
		return nil, err
	}
	a.sched = scheduler.New(schedCfg, comp("scheduler"))
	loc := a.sched.Location()

	machine := flow.NewMachine(cat, store, flow.WithLocation(loc))
	a.conv = conversation.New(machine, session.NewManager(), store, ad, a.bus, comp("conversation"))

	bcCfg, err := mapBroadcast(cfg)
	if err != nil {
		return nil, err
	}
	a.bcast = broadcast.New(bcCfg, ad, store, a.bus, comp("broadcast"))

	jobsCfg, err := mapJobs(cfg)
	if err != nil {
		return nil, err
	}
	a.jobs = jobs.New(cat, a.bcast, store, jobsCfg.LookAhead, comp("jobs"))
	if err := a.jobs.Register(a.sched, jobsCfg); err != nil {
		return nil, err
	}

	a.admin = admin.New(cfg.Telegram.AdminUserID, admin.Deps{
		Store:     store,
		Out:       ad,
		Broadcast: a.bcast,
		Schedules: a.sched,
		Runner:    appRunner{a},
		Location:  loc,
		Log:       comp("admin"),
	})

	nCfg, err := mapNotifier(cfg)
	if err != nil {
		return nil, err
	}
	a.notif = notifier.New(nCfg, ad, a.admin.AdminID, comp("notifier"))

	rCfg, err := mapRouter(cfg)
	if err != nil {
		return nil, err
	}
	a.router = router.New(rCfg, a.conv, a.admin, ad, comp("router"))
	a.ops = ops.New(mapOps(cfg), a.status, comp("ops"))
	return a, nil
}

// appRunner runs admin background work under the app supervisor.
type appRunner struct{ a *App }

func (r appRunner) Go0(name string, fn func(ctx context.Context)) {
	if sup := r.a.sup; sup != nil {
		sup.Go0(name, fn)
	}
}

// Done is closed when the app stops or hits a fatal error.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	if a.sup != nil {
		return errors.New("app already started")
	}
	a.sup = rtsup.NewSupervisor(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))
	if a.cfgm != nil {
		a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	}

	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return err
	}
	a.sup.Go0("telegram.menu", func(c context.Context) {
		if err := router.PublishMenu(c, a.adapter, flow.Commands()); err != nil {
			a.log.Warn("menu commands not published", logx.Err(err))
		}
	})

	if a.sched.Enabled() {
		a.sched.Start(a.sup.Context())
	}
	a.notif.Start(a.sup.Context(), a.bus)

	rctx, rcancel := context.WithCancel(a.sup.Context())
	a.routerCancel = rcancel
	a.routerDone = make(chan struct{})
	a.sup.Go("router.dispatch", func(context.Context) error {
		defer close(a.routerDone)
		return a.router.DispatchLoop(rctx, a.updates)
	})

	if err := a.ops.Start(a.sup.Context()); err != nil {
		a.log.Warn("ops endpoint not started", logx.Err(err))
	}

	a.sup.Go0("eventbus.log", a.logEvents)
	if a.cfgm != nil {
		a.sup.Go0("config.reload", a.reloadLoop)
		a.sup.Go("config.watch", a.cfgm.Watch)
	}

	a.log.Info("app started")
	return nil
}

func (a *App) logEvents(ctx context.Context) {
	events, unsub := a.bus.Subscribe(128)
	defer unsub()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			switch e.Type {
			case eventbus.MemberRegistered:
				a.log.Info("member registered", logx.Int64("recipient", e.Recipient))
			case eventbus.BroadcastFinished:
				if r, ok := e.Data.(broadcast.Report); ok {
					a.log.Info("broadcast finished", logx.String("name", r.Name), logx.Int("sent", r.Sent), logx.Int("failed", r.Failed))
				}
			default:
				a.log.Debug("event", logx.String("type", e.Type), logx.Int64("recipient", e.Recipient))
			}
		}
	}
}

// Stop shuts down in order: ops, scheduler, notifier, router, adapter, storage.
// Each step is bounded so one stuck component cannot hold the rest.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	a.stopStep(ctx, "ops", time.Second, func(c context.Context) error { a.ops.Stop(c); return nil })
	a.stopStep(ctx, "scheduler", 3*time.Second, func(c context.Context) error { a.sched.Stop(c); return nil })
	a.stopStep(ctx, "notifier", time.Second, func(c context.Context) error { a.notif.Stop(c); return nil })
	a.stopStep(ctx, "router", 3*time.Second, func(c context.Context) error {
		a.routerCancel()
		select {
		case <-a.routerDone:
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	a.stopStep(ctx, "adapter", 3*time.Second, a.adapter.Stop)
	a.stopStep(ctx, "storage", 2*time.Second, func(context.Context) error { return a.store.Close() })

	a.sup.Cancel()
	a.stopStep(ctx, "supervisor", 2*time.Second, func(c context.Context) error {
		err := a.sup.Wait(c)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	a.log.Info("stopped")
	return a.logs.Close()
}

// status is the document served at /status.
func (a *App) status(context.Context) any {
	doc := struct {
		Scheduler  scheduler.Snapshot     `json:"scheduler"`
		Broadcasts []broadcast.Report     `json:"broadcasts"`
		Alerts     []notifier.HistoryItem `json:"alerts"`
		Goroutines rtsup.Counters         `json:"goroutines"`
		Router     bool                   `json:"router_running"`
	}{
		Scheduler:  a.sched.Snapshot(),
		Broadcasts: a.bcast.Recent(10),
		Alerts:     a.notif.Recent(),
		Router:     a.router.Running(),
	}
	if a.sup != nil {
		doc.Goroutines = a.sup.Counters()
	}
	return doc
}

// restartRequired logs sections that changed but only apply on restart.
func (a *App) restartRequired(sections []string) {
	if len(sections) == 0 {
		return
	}
	a.log.Warn("config changed; restart required to apply", logx.String("sections", strings.Join(sections, ",")))
}
