package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	logx "churchbot/pkg/logx"
)

// Timestamps are stored as fixed-width UTC text so lexical order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}

type sqlStore struct {
	db  *sqlx.DB
	log logx.Logger
}

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)", path, busy.Milliseconds())

	mdb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	mdb.SetMaxOpenConns(1)
	if err := migrateUp(mdb, dialectSQLite, log); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection serializes writers at the driver boundary.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return &sqlStore{db: db, log: log}, nil
}

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	mdb, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := migrateUp(mdb, dialectPostgres, log); err != nil {
		return nil, err
	}

	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &sqlStore{db: db, log: log}, nil
}

type memberRow struct {
	RecipientID   int64  `db:"recipient_id"`
	FirstName     string `db:"first_name"`
	LastName      string `db:"last_name"`
	Phone         string `db:"phone"`
	Birthday      string `db:"birthday"`
	MaritalStatus string `db:"marital_status"`
	Gender        string `db:"gender"`
	Email         string `db:"email"`
	Address       string `db:"address"`
	Occupation    string `db:"occupation"`
	RegisteredAt  string `db:"registered_at"`
}

func (r memberRow) member() Member {
	return Member{
		RecipientID:   r.RecipientID,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Phone:         r.Phone,
		Birthday:      r.Birthday,
		MaritalStatus: r.MaritalStatus,
		Gender:        r.Gender,
		Email:         r.Email,
		Address:       r.Address,
		Occupation:    r.Occupation,
		RegisteredAt:  parseTime(r.RegisteredAt),
	}
}

const memberColumns = `recipient_id, first_name, last_name, phone, birthday, marital_status, gender, email, address, occupation, registered_at`

func (s *sqlStore) UpsertMember(ctx context.Context, m Member) error {
	row := memberRow{
		RecipientID:   m.RecipientID,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Phone:         m.Phone,
		Birthday:      m.Birthday,
		MaritalStatus: m.MaritalStatus,
		Gender:        m.Gender,
		Email:         m.Email,
		Address:       m.Address,
		Occupation:    m.Occupation,
		RegisteredAt:  formatTime(m.RegisteredAt),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (:recipient_id, :first_name, :last_name, :phone, :birthday, :marital_status, :gender, :email, :address, :occupation, :registered_at)
		ON CONFLICT (recipient_id) DO UPDATE SET
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			phone = excluded.phone,
			birthday = excluded.birthday,
			marital_status = excluded.marital_status,
			gender = excluded.gender,
			email = excluded.email,
			address = excluded.address,
			occupation = excluded.occupation,
			registered_at = excluded.registered_at`, row)
	if err != nil {
		return fmt.Errorf("upsert member %d: %w", m.RecipientID, err)
	}
	return nil
}

func (s *sqlStore) GetMember(ctx context.Context, recipientID int64) (Member, bool, error) {
	var row memberRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT `+memberColumns+` FROM members WHERE recipient_id = ?`), recipientID)
	if errors.Is(err, sql.ErrNoRows) {
		return Member{}, false, nil
	}
	if err != nil {
		return Member{}, false, fmt.Errorf("get member %d: %w", recipientID, err)
	}
	return row.member(), true, nil
}

func (s *sqlStore) ListMembers(ctx context.Context) ([]Member, error) {
	var rows []memberRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT `+memberColumns+` FROM members ORDER BY recipient_id`); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	out := make([]Member, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.member())
	}
	return out, nil
}

func (s *sqlStore) AppendPrayer(ctx context.Context, recipientID int64, body string, at time.Time) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.db.Rebind(`INSERT INTO prayer_requests (recipient_id, body, created_at) VALUES (?, ?, ?) RETURNING id`),
		recipientID, body, formatTime(at),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("append prayer for %d: %w", recipientID, err)
	}
	return id, nil
}

type progressRow struct {
	RecipientID int64  `db:"recipient_id"`
	LastLesson  int    `db:"last_lesson"`
	Completed   string `db:"completed_lessons"`
	UpdatedAt   string `db:"updated_at"`
}

func (r progressRow) progress() Progress {
	return Progress{
		RecipientID:   r.RecipientID,
		LastCompleted: r.LastLesson,
		Completed:     parseCompleted(r.Completed),
		UpdatedAt:     parseTime(r.UpdatedAt),
	}
}

func (s *sqlStore) UpsertProgress(ctx context.Context, recipientID int64, lesson int, at time.Time) (Progress, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Progress{}, fmt.Errorf("begin progress tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var cur progressRow
	err = tx.GetContext(ctx, &cur, tx.Rebind(`SELECT recipient_id, last_lesson, completed_lessons, updated_at FROM lesson_progress WHERE recipient_id = ?`), recipientID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Progress{}, fmt.Errorf("read progress %d: %w", recipientID, err)
	}

	last := lesson
	if err == nil {
		last = max(cur.LastLesson, lesson)
	}
	p := Progress{
		RecipientID:   recipientID,
		LastCompleted: last,
		Completed:     mergeCompleted(parseCompleted(cur.Completed), lesson),
		UpdatedAt:     at,
	}
	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO lesson_progress (recipient_id, last_lesson, completed_lessons, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (recipient_id) DO UPDATE SET
			last_lesson = excluded.last_lesson,
			completed_lessons = excluded.completed_lessons,
			updated_at = excluded.updated_at`),
		recipientID, last, formatCompleted(p.Completed), formatTime(at))
	if err != nil {
		return Progress{}, fmt.Errorf("upsert progress %d: %w", recipientID, err)
	}
	if err := tx.Commit(); err != nil {
		return Progress{}, fmt.Errorf("commit progress %d: %w", recipientID, err)
	}
	return p, nil
}

func (s *sqlStore) GetProgress(ctx context.Context, recipientID int64) (Progress, bool, error) {
	var row progressRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`SELECT recipient_id, last_lesson, completed_lessons, updated_at FROM lesson_progress WHERE recipient_id = ?`), recipientID)
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{RecipientID: recipientID, LastCompleted: -1}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("get progress %d: %w", recipientID, err)
	}
	return row.progress(), true, nil
}

func (s *sqlStore) RecordAttendance(ctx context.Context, a Attendance) error {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO attendance (recipient_id, service_date, status, recorded_at) VALUES (?, ?, ?, ?)`),
		a.RecipientID, a.ServiceDate, string(a.Status), formatTime(a.RecordedAt))
	if err != nil {
		return fmt.Errorf("record attendance %d: %w", a.RecipientID, err)
	}
	return nil
}

type eventRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	StartsAt  string `db:"starts_at"`
	Message   string `db:"message"`
	CreatedAt string `db:"created_at"`
}

func (s *sqlStore) AddEvent(ctx context.Context, e Event) (int64, error) {
	var id int64
	err := s.db.QueryRowxContext(ctx,
		s.db.Rebind(`INSERT INTO events (name, starts_at, message, created_at) VALUES (?, ?, ?, ?) RETURNING id`),
		e.Name, formatTime(e.StartsAt), e.Message, formatTime(e.CreatedAt),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add event %q: %w", e.Name, err)
	}
	return id, nil
}

func (s *sqlStore) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows,
		s.db.Rebind(`SELECT id, name, starts_at, message, created_at FROM events WHERE starts_at >= ? AND starts_at < ? ORDER BY starts_at, id`),
		formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]Event, 0, len(rows))
	for _, r := range rows {
		out = append(out, Event{
			ID:        r.ID,
			Name:      r.Name,
			StartsAt:  parseTime(r.StartsAt),
			Message:   r.Message,
			CreatedAt: parseTime(r.CreatedAt),
		})
	}
	return out, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}

func parseCompleted(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			out = append(out, n)
		}
	}
	return out
}

func formatCompleted(set []int) string {
	parts := make([]string, len(set))
	for i, n := range set {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
