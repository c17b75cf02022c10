package notifier

import (
	"context"
	"time"

	kit "churchbot/internal/transport"
)

type Config struct {
	Enabled       bool
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
	// DedupWindow suppresses identical alerts; zero disables it.
	DedupWindow time.Duration
}

// Alert is one message for the administrator. Alerts with the same Key
// inside the dedup window are sent once; an empty Key uses the text.
type Alert struct {
	Key  string
	Text string
}

type HistoryItem struct {
	At   time.Time
	Text string
}

type Sender interface {
	SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error)
}
