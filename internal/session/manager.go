package session

import (
	"context"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Factory builds a session for a new id.
type Factory func(id string) *Session

// Manager owns the live sessions. Sessions are handed out by id; there is no
// process-wide current booking.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	factory   Factory
	retention time.Duration
	idle      time.Duration
	clock     func() time.Time
	logger    *zap.Logger
	onEvict   func(id string)
}

type ManagerOption func(*Manager)

func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) { m.idle = d }
}

func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) { m.clock = clock }
}

// WithEvictHook runs after a session is dropped by Sweep or Delete.
func WithEvictHook(fn func(id string)) ManagerOption {
	return func(m *Manager) { m.onEvict = fn }
}

func NewManager(factory Factory, retention time.Duration, logger *zap.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:  make(map[string]*Session),
		factory:   factory,
		retention: retention,
		clock:     time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create() *Session {
	s := m.factory(uuid.NewString())
	m.mu.Lock()
	m.sessions[s.ID()] = s
	m.mu.Unlock()
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.Reset()
		m.evicted(id)
	}
	return ok
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep resets and drops sessions whose order outlived the retention window
// or that sat idle too long. It returns the dropped ids.
func (m *Manager) Sweep(now time.Time) []string {
	m.mu.RLock()
	var expired []string
	for id, s := range m.sessions {
		if s.Expired(now, m.retention, m.idle) {
			expired = append(expired, id)
		}
	}
	m.mu.RUnlock()

	var dropped []string
	for _, id := range expired {
		if m.Delete(id) {
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if dropped := m.Sweep(m.clock()); len(dropped) > 0 {
				m.logger.Info("cleared expired booking sessions", zap.Int("count", len(dropped)))
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) evicted(id string) {
	if m.onEvict != nil {
		m.onEvict(id)
	}
}
