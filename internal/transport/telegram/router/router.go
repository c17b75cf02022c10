// Package router turns transport updates into flow events and runs them
// on a fixed pool of workers. Updates are sharded by recipient so each
// recipient is handled by one worker, in arrival order.
package router

import (
	"context"
	"hash/fnv"
	"runtime"
	"strconv"
	"sync"
	"time"

	"churchbot/internal/flow"
	rtsup "churchbot/internal/runtime/supervisor"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

type Config struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Conversation handles member-facing events.
type Conversation interface {
	Handle(ctx context.Context, recipient, chatID int64, ev flow.Event) error
}

// Admin handles the gated admin commands.
type Admin interface {
	Handles(name string) bool
	Handle(ctx context.Context, from, chatID int64, name, args string) error
}

type Callbacks interface {
	AnswerCallback(ctx context.Context, callbackID string, text string) error
}

type Router struct {
	cfg   Config
	conv  Conversation
	admin Admin
	cb    Callbacks
	log   logx.Logger

	handler HandlerFunc

	runMu   sync.Mutex
	running bool
	sup     *rtsup.Supervisor
}

// New builds a router. admin and cb may be nil.
func New(cfg Config, conv Conversation, admin Admin, cb Callbacks, log logx.Logger) *Router {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = max(2, runtime.NumCPU())
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	r := &Router{cfg: cfg, conv: conv, admin: admin, cb: cb, log: log}
	r.handler = Chain(r.handle,
		MWPanicRecover(log),
		MWRequestLog(log),
		MWTimeout(cfg.Timeout),
	)
	return r
}

// Running reports whether DispatchLoop is active.
func (r *Router) Running() bool {
	r.runMu.Lock()
	defer r.runMu.Unlock()
	return r.running
}

// DispatchLoop reads updates until ctx is done or updates is closed.
func (r *Router) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	sup := rtsup.NewSupervisor(ctx,
		rtsup.WithLogger(r.log),
		rtsup.WithCancelOnError(false),
	)
	queues := make([]chan *Request, r.cfg.Workers)
	for i := range queues {
		q := make(chan *Request, r.cfg.QueueSize)
		queues[i] = q
		idx := i
		sup.GoRestart("router.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case req, ok := <-q:
					if !ok {
						return nil
					}
					_ = r.handler(c, req)
				}
			}
		},
			rtsup.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			rtsup.WithStopOnCleanExit(true),
		)
	}

	r.runMu.Lock()
	r.running = true
	r.sup = sup
	r.runMu.Unlock()
	r.log.Info("dispatcher started", logx.Int("workers", len(queues)), logx.Int("queue_size", r.cfg.QueueSize))

	defer func() {
		for _, q := range queues {
			close(q)
		}
		// Workers drain what is already queued unless ctx is gone.
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		sup.Cancel()

		r.runMu.Lock()
		r.running = false
		r.sup = nil
		r.runMu.Unlock()
		r.log.Info("dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			req := r.request(up)
			if req == nil {
				continue
			}
			r.enqueue(ctx, queues[shard(req.FromID, len(queues))], req)
		}
	}
}

// enqueue blocks when the shard is full; dropping would break ordering.
func (r *Router) enqueue(ctx context.Context, q chan<- *Request, req *Request) {
	select {
	case q <- req:
		return
	default:
	}
	r.log.Warn("worker queue full; waiting", logx.Int64("from_id", req.FromID), logx.Int("queue_size", cap(q)))
	select {
	case q <- req:
	case <-ctx.Done():
	}
}

func shard(recipient int64, n int) int {
	h := fnv.New32a()
	var b [8]byte
	for i := range b {
		b[i] = byte(recipient >> (8 * i))
	}
	h.Write(b[:])
	return int(h.Sum32() % uint32(n))
}

func (r *Router) handle(ctx context.Context, req *Request) error {
	if req.CallbackID != "" && r.cb != nil {
		// Clear the button spinner whatever the outcome.
		defer func() { _ = r.cb.AnswerCallback(context.WithoutCancel(ctx), req.CallbackID, "") }()
	}
	if req.Admin {
		return r.admin.Handle(ctx, req.FromID, req.Chat.ChatID, req.Command, req.Args)
	}
	return r.conv.Handle(ctx, req.FromID, req.Chat.ChatID, req.Event)
}
