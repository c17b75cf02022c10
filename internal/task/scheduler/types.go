package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "churchbot/pkg/logx"
)

type Config struct {
	Enabled bool
	// Timezone is an IANA zone, e.g. "Africa/Lagos". Empty means Local.
	Timezone string
	// JobTimeout bounds one run. Zero disables the bound.
	JobTimeout time.Duration
}

// Job is the work done on each activation.
type Job func(ctx context.Context) error

// Daily fires at Hour:Minute in the scheduler timezone. Empty Days means
// every day.
type Daily struct {
	Hour   int
	Minute int
	Days   []time.Weekday
}

// Interval fires every Every, the first time Delay after registration.
type Interval struct {
	Every time.Duration
	Delay time.Duration
}

type scheduleDef struct {
	name string
	spec string
	// sched builds the schedule for a cron instance. resume is set when the
	// job already had its first activation.
	sched   func(resume bool) cron.Schedule
	timeout time.Duration
	job     Job
	entryID cron.EntryID
	live    cron.Schedule
	// fn is shared by every copy of the def so re-registration can swap the
	// job without touching the cron entry.
	fn    *atomic.Pointer[Job]
	stats *runStats
}

// activated reports whether the job already had a run.
func (d *scheduleDef) activated() bool {
	if d.stats == nil {
		return false
	}
	d.stats.mu.Lock()
	defer d.stats.mu.Unlock()
	return d.stats.runs > 0 || d.stats.running
}

type runStats struct {
	mu       sync.Mutex
	running  bool
	runs     uint64
	failures uint64
	lastErr  string
	lastDur  time.Duration
	lastEnd  time.Time
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	parser cron.Parser
	c      *cron.Cron
	defs   []scheduleDef

	runCtx    context.Context
	runCancel context.CancelFunc
}

type ScheduleInfo struct {
	Name     string
	Spec     string
	Timeout  time.Duration
	Next     time.Time
	Prev     time.Time
	Running  bool
	Runs     uint64
	Failures uint64
	LastErr  string
	LastDur  time.Duration
}

type Snapshot struct {
	Enabled   bool
	Running   bool
	Timezone  string
	Schedules []ScheduleInfo
}
