package session

import "sync"

// Manager stores one State per recipient. Safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	items map[int64]State
}

func NewManager() *Manager {
	return &Manager{items: map[int64]State{}}
}

// Begin replaces the recipient's state. Beginning Idle clears it.
func (m *Manager) Begin(recipient int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if IsIdle(st) {
		delete(m.items, recipient)
		return
	}
	m.items[recipient] = st
}

// Get returns Idle when the recipient has no active flow.
func (m *Manager) Get(recipient int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st, ok := m.items[recipient]; ok {
		return st
	}
	return Idle{}
}

func (m *Manager) Clear(recipient int64) {
	m.mu.Lock()
	delete(m.items, recipient)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
