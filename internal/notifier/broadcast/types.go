package broadcast

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"churchbot/internal/eventbus"
	"churchbot/internal/storage"
	kit "churchbot/internal/transport"
	logx "churchbot/pkg/logx"
)

type Config struct {
	Workers     int
	RatePerSec  int
	SendTimeout time.Duration
	// History bounds the number of retained run reports.
	History int
}

// Part is one outbound message of a payload. Media wins over Text.
type Part struct {
	Text    string
	Media   *kit.Media
	Options *kit.SendOptions
}

// Payload is what one recipient receives in a run, in order.
type Payload struct {
	Parts []Part
}

// Text is a single text part payload.
func Text(text string, opt *kit.SendOptions) Payload {
	return Payload{Parts: []Part{{Text: text, Options: opt}}}
}

// Factory builds the payload for one recipient. It may vary per recipient.
// An empty payload skips the recipient.
type Factory func(recipient int64) Payload

// Sender is the outbound part of the transport.
type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
	SendMedia(ctx context.Context, to kit.ChatTarget, media kit.Media, opt *kit.SendOptions) (kit.MessageRef, error)
}

// Members lists the broadcast audience.
type Members interface {
	ListMembers(ctx context.Context) ([]storage.Member, error)
}

// Report summarizes one run.
type Report struct {
	ID        string
	Name      string
	Total     int
	Sent      int
	Failed    int
	Skipped   int
	Failures  []int64
	StartedAt time.Time
	DoneAt    time.Time
	Running   bool
}

func (r Report) Duration() time.Duration {
	if r.DoneAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.DoneAt.Sub(r.StartedAt)
}

type Service struct {
	mu sync.Mutex

	cfg     Config
	out     Sender
	members Members
	bus     eventbus.Bus
	log     logx.Logger
	limiter *rate.Limiter

	statusMu sync.RWMutex
	status   map[string]*Report
	order    []string
}
