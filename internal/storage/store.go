package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "churchbot/pkg/logx"
)

// Store is the persistence contract used by the conversation flows,
// the broadcast dispatcher and the admin commands. Implementations
// are safe for concurrent use.
type Store interface {
	UpsertMember(ctx context.Context, m Member) error
	GetMember(ctx context.Context, recipientID int64) (Member, bool, error)
	ListMembers(ctx context.Context) ([]Member, error)

	AppendPrayer(ctx context.Context, recipientID int64, body string, at time.Time) (int64, error)

	// UpsertProgress adds lesson to the completed set. The last completed
	// lesson only moves forward.
	UpsertProgress(ctx context.Context, recipientID int64, lesson int, at time.Time) (Progress, error)
	GetProgress(ctx context.Context, recipientID int64) (Progress, bool, error)

	RecordAttendance(ctx context.Context, a Attendance) error

	AddEvent(ctx context.Context, e Event) (int64, error)
	// ListEvents returns events starting in [from, to), ordered by start time.
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)

	Close() error
}

// Open initializes the configured store.
func Open(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "memory":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return openSQLite(ctx, cfg, log)
	case "postgres", "postgresql", "pgx":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}

func mergeCompleted(set []int, lesson int) []int {
	for i, v := range set {
		if v == lesson {
			return set
		}
		if v > lesson {
			out := make([]int, 0, len(set)+1)
			out = append(out, set[:i]...)
			out = append(out, lesson)
			return append(out, set[i:]...)
		}
	}
	return append(set, lesson)
}
