package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/postboard/postboard/internal/shared"
)

// Repository defines the credential store consumed by the auth core.
// Lookups return shared.ErrNotFound when no account matches; Insert returns
// shared.ErrDuplicateIdentity when the username or email is taken.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Insert(ctx context.Context, account Account) (*Account, error)
}

const uniqueViolation = "23505"

const accountColumns = `id, username, email, hashed_password, COALESCE(display_name, ''),
	COALESCE(bio, ''), COALESCE(avatar_url, ''), created_at`

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches an account by its exact, case-sensitive username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE username = $1`, username)
	return scanAccount(row)
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM users WHERE email = $1`, email)
	return scanAccount(row)
}

// Insert persists a new account and returns it with the store-assigned ID and
// creation time.
func (r *PGRepository) Insert(ctx context.Context, account Account) (*Account, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (username, email, hashed_password, display_name, bio, avatar_url, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), now())
		RETURNING `+accountColumns,
		account.Username, account.Email, account.PasswordHash, account.DisplayName, account.Bio, account.AvatarURL,
	)
	created, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, shared.ErrDuplicateIdentity
		}
		return nil, err
	}
	return created, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.DisplayName, &a.Bio, &a.AvatarURL, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("auth: scan account: %w", err)
	}
	return &a, nil
}

var _ Repository = (*PGRepository)(nil)
