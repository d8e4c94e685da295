package session

import (
	"sync"
	"time"

	"github.com/chaos-io/maskbrush/util"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

// Manager 按 ID 管理会话
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
	now      func() time.Time
}

func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts,
		now:      time.Now,
	}
}

func (m *Manager) Create() *Session {
	s := New(ksuid.New().String(), m.opts)
	s.now = m.now
	s.lastActive = m.now()

	m.mu.Lock()
	m.sessions[s.id] = s
	m.mu.Unlock()

	util.Logger.Info("session created", zap.String("session", s.id))
	return s
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Destroy 删除会话并释放它的展示句柄
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	util.Logger.Info("session destroyed", zap.String("session", id))
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep 清理空闲超过 idle 的会话，返回清理数量
func (m *Manager) Sweep(idle time.Duration) int {
	deadline := m.now().Add(-idle)

	m.mu.Lock()
	var expired []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(deadline) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		util.Logger.Info("session expired", zap.String("session", s.id))
	}
	return len(expired)
}
