package storage

import (
	"errors"
	"time"
)

var ErrClosed = errors.New("storage closed")

// Config configures storage.
//
// Driver values:
//   - "memory": process-local maps, for tests and dry runs
//   - "sqlite": SQLite database file (modernc, pure Go)
//   - "postgres": PostgreSQL via pgx
type Config struct {
	Driver      string
	Path        string        // sqlite file
	DSN         string        // postgres connection string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Member is a completed registration, keyed by recipient id.
type Member struct {
	RecipientID   int64
	FirstName     string
	LastName      string
	Phone         string
	Birthday      string // DD-MM as typed by the member
	MaritalStatus string
	Gender        string
	Email         string
	Address       string
	Occupation    string
	RegisteredAt  time.Time
}

func (m Member) FullName() string {
	if m.LastName == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.LastName
}

type PrayerRequest struct {
	ID          int64
	RecipientID int64
	Body        string
	CreatedAt   time.Time
}

// Progress tracks lesson completion. LastCompleted is -1 when nothing is completed.
type Progress struct {
	RecipientID   int64
	LastCompleted int
	Completed     []int
	UpdatedAt     time.Time
}

// Next is the index of the lesson to read next.
func (p Progress) Next() int { return p.LastCompleted + 1 }

type AttendanceStatus string

const (
	AttendanceYes AttendanceStatus = "Yes"
	AttendanceNo  AttendanceStatus = "No"
)

type Attendance struct {
	RecipientID int64
	ServiceDate string // YYYY-MM-DD
	Status      AttendanceStatus
	RecordedAt  time.Time
}

// Event is a church event announced by the admin.
type Event struct {
	ID        int64
	Name      string
	StartsAt  time.Time
	Message   string
	CreatedAt time.Time
}
