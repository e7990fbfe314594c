package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound          = errors.New("customer not found")
	ErrDuplicateIdentity = errors.New("email or phone already registered")
)

type Repository interface {
	Create(ctx context.Context, customer *Customer) (int64, error)
	GetByID(ctx context.Context, id int64) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
}

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, customer *Customer) (int64, error) {
	query := `
		INSERT INTO customers (first_name, last_name, email, phone_number, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.db.QueryRow(ctx, query,
		customer.FirstName,
		customer.LastName,
		customer.Email,
		customer.Phone,
		customer.PasswordHash,
	).Scan(&customer.ID, &customer.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return 0, ErrDuplicateIdentity
		}
		return 0, fmt.Errorf("repository: failed to insert customer: %w", err)
	}

	return customer.ID, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone_number, password_hash, created_at
		FROM customers
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (*Customer, error) {
	query := `
		SELECT id, first_name, last_name, email, phone_number, password_hash, created_at
		FROM customers
		WHERE email = $1
	`
	return r.scanOne(ctx, query, email)
}

func (r *postgresRepository) scanOne(ctx context.Context, query string, arg any) (*Customer, error) {
	var c Customer
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.FirstName,
		&c.LastName,
		&c.Email,
		&c.Phone,
		&c.PasswordHash,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select customer: %w", err)
	}
	return &c, nil
}
