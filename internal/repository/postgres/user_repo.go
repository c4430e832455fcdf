package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/stockfolio/internal/errs"
	"github.com/and161185/stockfolio/internal/model"
	"github.com/and161185/stockfolio/internal/repository"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, username, email, pwd_hash, salt_auth, created_at`

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	const q = `
INSERT INTO users (id, username, email, pwd_hash, salt_auth)
VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.Pool.Exec(ctx, q, u.ID, u.Username, u.Email, u.PwdHash, u.SaltAuth)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

func (r *UserRepo) getBy(ctx context.Context, where string, arg any) (*model.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE ` + where
	var u model.User
	err := r.db.Pool.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.Email, &u.PwdHash, &u.SaltAuth, &u.CreatedAt)
	if err != nil {
		return nil, rowErr(err)
	}
	return &u, nil
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.getBy(ctx, "id=$1", id)
}

// GetByUsername selects a user by username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getBy(ctx, "username=$1", username)
}

// GetByEmail selects a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getBy(ctx, "lower(email)=lower($1)", email)
}

// UpdatePassword replaces the password hash and salt.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash, salt []byte) error {
	const q = `UPDATE users SET pwd_hash=$2, salt_auth=$3 WHERE id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, id, hash, salt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
