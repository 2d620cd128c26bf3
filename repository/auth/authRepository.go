package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	perrors "github.com/pkg/errors"

	"libraryapi/model"
	"libraryapi/util/database"
)

var ErrNotFound = errors.New("user not found")

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

type repo struct{ db *database.DB }

func New(db *database.DB) Repo { return &repo{db: db} }

// Create keeps the driver error reachable through errors.As so callers can
// classify unique violations.
func (r *repo) Create(ctx context.Context, u *model.User) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO users(email, first_name, last_name, is_staff, password_hash)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		u.Email, u.FirstName, u.LastName, u.IsStaff, u.PasswordHash,
	).Scan(&u.ID, &u.CreatedAt)
	return perrors.Wrap(err, "insert user")
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	u := &model.User{}
	err := r.db.Pool.QueryRow(ctx, `
        SELECT id, email, first_name, last_name, is_staff, password_hash, created_at
        FROM users
        WHERE lower(email) = lower($1)`,
		email,
	).Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.IsStaff, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, perrors.Wrap(err, "user by email")
	}
	return u, nil
}
