package storage

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store. Data is lost on restart.
type Memory struct {
	mu sync.RWMutex

	closed     bool
	members    map[int64]Member
	prayers    []PrayerRequest
	progress   map[int64]Progress
	attendance []Attendance
	events     []Event
	seq        int64
}

func NewMemory() *Memory {
	return &Memory{
		members:  map[int64]Member{},
		progress: map[int64]Progress{},
	}
}

func (m *Memory) UpsertMember(ctx context.Context, mem Member) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.members[mem.RecipientID] = mem
	return nil
}

func (m *Memory) GetMember(ctx context.Context, recipientID int64) (Member, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Member{}, false, ErrClosed
	}
	mem, ok := m.members[recipientID]
	return mem, ok, nil
}

func (m *Memory) ListMembers(ctx context.Context) ([]Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make([]Member, 0, len(m.members))
	for _, mem := range m.members {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecipientID < out[j].RecipientID })
	return out, nil
}

func (m *Memory) AppendPrayer(ctx context.Context, recipientID int64, body string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	m.seq++
	m.prayers = append(m.prayers, PrayerRequest{ID: m.seq, RecipientID: recipientID, Body: body, CreatedAt: at})
	return m.seq, nil
}

// Prayers returns a copy of every stored prayer request.
func (m *Memory) Prayers() []PrayerRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.prayers)
}

func (m *Memory) UpsertProgress(ctx context.Context, recipientID int64, lesson int, at time.Time) (Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Progress{}, ErrClosed
	}
	p, ok := m.progress[recipientID]
	if !ok {
		p = Progress{RecipientID: recipientID, LastCompleted: lesson}
	}
	p.LastCompleted = max(p.LastCompleted, lesson)
	p.Completed = mergeCompleted(slices.Clone(p.Completed), lesson)
	p.UpdatedAt = at
	m.progress[recipientID] = p
	return p, nil
}

func (m *Memory) GetProgress(ctx context.Context, recipientID int64) (Progress, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return Progress{}, false, ErrClosed
	}
	p, ok := m.progress[recipientID]
	if !ok {
		return Progress{RecipientID: recipientID, LastCompleted: -1}, false, nil
	}
	p.Completed = slices.Clone(p.Completed)
	return p, true, nil
}

func (m *Memory) RecordAttendance(ctx context.Context, a Attendance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.attendance = append(m.attendance, a)
	return nil
}

// Attendance returns a copy of every attendance answer.
func (m *Memory) Attendance() []Attendance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.attendance)
}

func (m *Memory) AddEvent(ctx context.Context, e Event) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}
	m.seq++
	e.ID = m.seq
	m.events = append(m.events, e)
	return e.ID, nil
}

func (m *Memory) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []Event
	for _, e := range m.events {
		if !e.StartsAt.Before(from) && e.StartsAt.Before(to) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
