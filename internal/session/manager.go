package session

import "fmt"

// Manager creates and resumes sessions and converts them to cookie tokens.
type Manager struct {
	store  Store
	tokens *TokenIssuer
}

func NewManager(store Store, tokens *TokenIssuer) *Manager {
	return &Manager{store: store, tokens: tokens}
}

func (m *Manager) Start() (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	return New(m.store, id), nil
}

func (m *Manager) Resume(token string) (*Session, error) {
	sid, err := m.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	return New(m.store, sid), nil
}

func (m *Manager) Token(s *Session) (string, error) {
	token, err := m.tokens.Issue(s.ID())
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}
	return token, nil
}

func (m *Manager) MaxAge() int {
	return int(m.tokens.TTL().Seconds())
}
