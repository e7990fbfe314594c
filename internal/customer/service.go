package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/sokoswift/internal/session"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidInput       = errors.New("invalid registration input")
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (*Customer, error)
	Login(ctx context.Context, sess *session.Session, email, password string) (int64, error)
	Logout(ctx context.Context, sess *session.Session) error
	GetByID(ctx context.Context, id int64) (*Customer, error)
}

type service struct {
	repo Repository
	cost int
}

func NewService(repo Repository) Service {
	return &service{repo: repo, cost: bcrypt.DefaultCost}
}

func (s *service) Register(ctx context.Context, in RegisterInput) (*Customer, error) {
	firstName, lastName := SplitName(in.Name)
	email := normalizeEmail(in.Email)
	phone := strings.TrimSpace(in.Phone)

	if firstName == "" || email == "" || phone == "" || in.Password == "" {
		return nil, ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			log.Warn().Str("email", email).Msg("service: password exceeds bcrypt input limit")
			return nil, fmt.Errorf("%w: password longer than 72 bytes", ErrInvalidInput)
		}
		log.Error().Err(err).Msg("service: failed to generate password hash")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}

	c := &Customer{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		Phone:        phone,
		PasswordHash: string(hash),
	}

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			log.Warn().Str("email", email).Msg("service: registration with existing email or phone")
			return nil, ErrDuplicateIdentity
		}
		log.Error().Err(err).Msg("service: failed to create customer in repository")
		return nil, fmt.Errorf("service: failed to save customer: %w", err)
	}
	c.ID = id

	log.Info().Int64("customer_id", id).Msg("service: customer registered")
	return c, nil
}

// Login verifies the credentials and, on success, marks sess as authenticated
// for the returned customer id.
func (s *service) Login(ctx context.Context, sess *session.Session, email, password string) (int64, error) {
	c, err := s.repo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrInvalidCredentials
		}
		log.Error().Err(err).Msg("service: failed to get customer by email")
		return 0, fmt.Errorf("service: failed to get customer by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		log.Warn().Int64("customer_id", c.ID).Msg("service: password mismatch")
		return 0, ErrInvalidCredentials
	}

	if err := sess.MarkAuthenticated(ctx, c.ID); err != nil {
		log.Error().Err(err).Int64("customer_id", c.ID).Msg("service: failed to store session")
		return 0, fmt.Errorf("service: failed to establish session: %w", err)
	}

	return c.ID, nil
}

func (s *service) Logout(ctx context.Context, sess *session.Session) error {
	if err := sess.ClearAuthentication(ctx); err != nil {
		log.Error().Err(err).Str("session_id", sess.ID()).Msg("service: failed to clear session")
		return fmt.Errorf("service: failed to clear session: %w", err)
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Customer, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Int64("customer_id", id).Msg("service: failed to get customer by id")
		return nil, fmt.Errorf("service: failed to get customer by id %d: %w", id, err)
	}
	return c, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
