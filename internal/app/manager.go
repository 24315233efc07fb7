package app

import (
	"math/rand/v2"
	"sync"

	"github.com/dolthub/swiss"
	"github.com/google/uuid"

	"seabattle/internal/game"
)

// Manager is the in-memory registry of live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions *swiss.Map[uuid.UUID, *Session]
	opts     Options
}

func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: swiss.NewMap[uuid.UUID, *Session](64),
		opts:     opts,
	}
}

func (m *Manager) Create(player string, cfg game.Config, mode game.Mode) (*Session, error) {
	s, err := NewSession(player, cfg, mode, m.sessionOptions())
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.sessions.Put(s.ID, s)
	m.mu.Unlock()
	return s, nil
}

// sessionOptions seeds a private source for each session from the shared
// one, since sessions draw from their sources concurrently.
func (m *Manager) sessionOptions() Options {
	opts := m.opts
	if opts.Rand != nil {
		m.mu.Lock()
		opts.Rand = rand.New(rand.NewPCG(m.opts.Rand.Uint64(), m.opts.Rand.Uint64()))
		m.mu.Unlock()
	}
	return opts
}

func (m *Manager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions.Get(id)
}

// Discard removes and closes a session, cancelling its pending move.
func (m *Manager) Discard(id uuid.UUID) bool {
	m.mu.Lock()
	s, ok := m.sessions.Get(id)
	if ok {
		m.sessions.Delete(id)
	}
	m.mu.Unlock()
	if ok {
		s.Close()
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessions.Count()
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	var all []*Session
	m.sessions.Iter(func(_ uuid.UUID, s *Session) bool {
		all = append(all, s)
		return false
	})
	m.sessions.Clear()
	m.mu.Unlock()
	for _, s := range all {
		s.Close()
	}
}
