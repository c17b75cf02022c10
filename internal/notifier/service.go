package notifier

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"churchbot/internal/eventbus"
	rtsup "churchbot/internal/runtime/supervisor"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

var (
	ErrDisabled  = errors.New("notifier disabled")
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

const historySize = 100

// Service is safe for concurrent use.
type Service struct {
	out   Sender
	admin func() int64
	log   logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
	queue   chan Alert
	sup     *rtsup.Supervisor

	dmu   sync.Mutex
	dedup map[string]time.Time

	hmu     sync.Mutex
	history []HistoryItem
}

// New builds the service. admin returns the current administrator id; zero
// drops alerts.
func New(cfg Config, out Sender, admin func() int64, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{out: out, admin: admin, log: log, dedup: map[string]time.Time{}}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Enabled
}

// Apply swaps rate, retry and dedup settings. Enabling or disabling takes
// effect on the next Start or Stop.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 128
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	cfg.RetryMax = max(0, cfg.RetryMax)
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start runs the delivery worker and, when bus is non-nil, turns bus
// events into alerts. It is a no-op when disabled or already running.
func (s *Service) Start(ctx context.Context, bus eventbus.Bus) {
	s.mu.Lock()
	if s.queue != nil || !s.cfg.Enabled {
		s.mu.Unlock()
		return
	}
	q := make(chan Alert, s.cfg.QueueSize)
	sup := rtsup.NewSupervisor(ctx, rtsup.WithLogger(s.log), rtsup.WithCancelOnError(false))
	s.queue, s.sup = q, sup
	s.mu.Unlock()

	sup.GoRestart0("notifier.worker", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case a, ok := <-q:
				if !ok {
					return
				}
				s.send(c, a)
			}
		}
	})
	if bus != nil {
		events, unsub := bus.Subscribe(64)
		sup.Go0("notifier.events", func(c context.Context) {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return
				case e, ok := <-events:
					if !ok {
						return
					}
					if a, ok := alertFor(e); ok {
						if err := s.Notify(c, a); err != nil && !errors.Is(err, ErrStopped) {
							s.log.Debug("alert not queued", logx.String("event", e.Type), logx.Err(err))
						}
					}
				}
			}
		})
	}
	s.log.Info("notifier started", logx.Int("queue_size", cap(q)))
}

// Stop cancels the worker and waits for it until ctx is done. Queued
// alerts are dropped.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	s.queue, s.sup = nil, nil
	s.mu.Unlock()
	if sup == nil {
		return
	}
	sup.Cancel()
	if err := sup.Wait(ctx); err != nil {
		s.log.Warn("notifier stop", logx.Err(err))
	}
}

// Notify queues a for delivery without blocking.
func (s *Service) Notify(ctx context.Context, a Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	enabled, q, window := s.cfg.Enabled, s.queue, s.cfg.DedupWindow
	s.mu.Unlock()
	switch {
	case !enabled:
		return ErrDisabled
	case q == nil:
		return ErrStopped
	}
	if window > 0 && !s.dedupAllow(dedupKey(a), window) {
		return nil
	}
	select {
	case q <- a:
		return nil
	default:
		return ErrQueueFull
	}
}

// Recent returns delivered alerts, oldest first.
func (s *Service) Recent() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}

func (s *Service) send(ctx context.Context, a Alert) {
	to := int64(0)
	if s.admin != nil {
		to = s.admin()
	}
	if to == 0 || a.Text == "" {
		return
	}
	s.mu.Lock()
	cfg, lim := s.cfg, s.limiter
	s.mu.Unlock()

	attempts := 1 + cfg.RetryMax
	for attempt := 1; ; attempt++ {
		if err := lim.Wait(ctx); err != nil {
			return
		}
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_, err := s.out.SendText(cctx, kit.ChatTarget{ChatID: to}, a.Text, &kit.SendOptions{DisablePreview: true})
		cancel()
		if err == nil {
			s.remember(a.Text)
			return
		}
		if attempt >= attempts {
			s.log.Warn("alert send failed", logx.Int("attempts", attempt), logx.Err(err))
			return
		}
		t := time.NewTimer(retryDelay(cfg, attempt))
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

func (s *Service) remember(text string) {
	s.hmu.Lock()
	s.history = append(s.history, HistoryItem{At: time.Now(), Text: text})
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
	s.hmu.Unlock()
}

func dedupKey(a Alert) string {
	if a.Key != "" {
		return a.Key
	}
	h := fnv.New64a()
	h.Write([]byte(a.Text))
	return strconv.FormatUint(h.Sum64(), 16)
}

// dedupAllow reports whether key is outside its suppression window and
// opens a new one. Expired keys are pruned on the way.
func (s *Service) dedupAllow(key string, window time.Duration) bool {
	now := time.Now()
	s.dmu.Lock()
	defer s.dmu.Unlock()
	if until, ok := s.dedup[key]; ok && now.Before(until) {
		return false
	}
	for k, until := range s.dedup {
		if !now.Before(until) {
			delete(s.dedup, k)
		}
	}
	s.dedup[key] = now.Add(window)
	return true
}

// retryDelay is exponential from RetryBase with 0.7..1.3 jitter, capped at
// RetryMaxDelay.
func retryDelay(cfg Config, attempt int) time.Duration {
	d := cfg.RetryBase
	for i := 1; i < attempt && d < cfg.RetryMaxDelay; i++ {
		d *= 2
	}
	d = time.Duration(float64(d) * (0.7 + rand.Float64()*0.6))
	return min(d, cfg.RetryMaxDelay)
}
