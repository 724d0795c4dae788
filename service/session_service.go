package service

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tieubaoca/support-assistant/repository"
	"github.com/tieubaoca/support-assistant/types"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Session is one conversation. Turns on a session are serialised by its
// mutex; the agent is created on the first turn and dropped on reset.
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	turn     sync.Mutex
	mu       sync.Mutex
	messages []types.ChatMessage
	agent    *SupportAgent
}

func NewSession(userID string) *Session {
	return &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: time.Now(),
	}
}

// Messages returns a copy of the conversation history.
func (s *Session) Messages() []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.ChatMessage(nil), s.messages...)
}

// Reset clears the history and drops the agent so the next turn starts
// fresh. It waits for a running turn to finish.
func (s *Session) Reset() {
	s.turn.Lock()
	defer s.turn.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.agent = nil
}

func (s *Session) appendMessage(msg types.ChatMessage) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	s.messages = append(s.messages, msg)
}

type SessionManager struct {
	repo   repository.SessionRepo[*Session]
	logger *zap.Logger
}

func NewSessionManager(repo repository.SessionRepo[*Session], logger *zap.Logger) *SessionManager {
	repo.OnEvicted(func(id string, s *Session) {
		logger.Debug("Session closed", zap.String("session_id", id))
	})
	return &SessionManager{repo: repo, logger: logger}
}

func (m *SessionManager) Create(userID string) *Session {
	session := NewSession(userID)
	m.repo.Save(session.ID, session)
	m.logger.Debug("Session created", zap.String("session_id", session.ID), zap.String("user_id", userID))
	return session
}

func (m *SessionManager) Get(id string) (*Session, error) {
	session, ok := m.repo.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (m *SessionManager) Reset(id string) (*Session, error) {
	session, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	session.Reset()
	return session, nil
}

func (m *SessionManager) Destroy(id string) error {
	if _, ok := m.repo.Get(id); !ok {
		return ErrSessionNotFound
	}
	m.repo.Delete(id)
	return nil
}
