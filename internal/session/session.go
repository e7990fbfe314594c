package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/gofrs/uuid"
)

const (
	KeyLoggedIn = "logged_in"
	KeyUserID   = "user_id"
)

var ErrUnauthorized = errors.New("unauthorized")

// Store persists per-session key/value pairs.
type Store interface {
	Get(ctx context.Context, sid, key string) (string, error)
	Set(ctx context.Context, sid, key, value string) error
	Clear(ctx context.Context, sid, key string) error
}

// Identity is the request-scoped view of who the caller is.
type Identity struct {
	SessionID  string
	CustomerID int64
	LoggedIn   bool
}

func (i Identity) Authenticated() bool {
	return i.LoggedIn && i.CustomerID > 0
}

// Session scopes Store access to a single caller.
type Session struct {
	id    string
	store Store
}

func New(store Store, id string) *Session {
	return &Session{id: id, store: store}
}

func NewID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return id.String(), nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Get(ctx context.Context, key string) (string, error) {
	return s.store.Get(ctx, s.id, key)
}

func (s *Session) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.id, key, value)
}

func (s *Session) Clear(ctx context.Context, key string) error {
	return s.store.Clear(ctx, s.id, key)
}

// MarkAuthenticated records the customer as logged in for this session.
func (s *Session) MarkAuthenticated(ctx context.Context, customerID int64) error {
	if err := s.Set(ctx, KeyLoggedIn, "true"); err != nil {
		return fmt.Errorf("session: failed to set %s: %w", KeyLoggedIn, err)
	}
	if err := s.Set(ctx, KeyUserID, strconv.FormatInt(customerID, 10)); err != nil {
		return fmt.Errorf("session: failed to set %s: %w", KeyUserID, err)
	}
	return nil
}

func (s *Session) ClearAuthentication(ctx context.Context) error {
	if err := s.Clear(ctx, KeyLoggedIn); err != nil {
		return fmt.Errorf("session: failed to clear %s: %w", KeyLoggedIn, err)
	}
	if err := s.Clear(ctx, KeyUserID); err != nil {
		return fmt.Errorf("session: failed to clear %s: %w", KeyUserID, err)
	}
	return nil
}

// Identity reads the authentication keys. A session with missing or
// malformed keys yields an unauthenticated identity, not an error.
func (s *Session) Identity(ctx context.Context) (Identity, error) {
	identity := Identity{SessionID: s.id}

	loggedIn, err := s.Get(ctx, KeyLoggedIn)
	if err != nil {
		return identity, fmt.Errorf("session: failed to read %s: %w", KeyLoggedIn, err)
	}
	if loggedIn != "true" {
		return identity, nil
	}

	rawID, err := s.Get(ctx, KeyUserID)
	if err != nil {
		return identity, fmt.Errorf("session: failed to read %s: %w", KeyUserID, err)
	}
	customerID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || customerID <= 0 {
		return identity, nil
	}

	identity.CustomerID = customerID
	identity.LoggedIn = true
	return identity, nil
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok
}
