package repository

import (
	"context"
	"database/sql"
	"errors"
	"go-auth-api/logger"
	"go-auth-api/model"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrDuplicateEmail is returned by CreateUser when the email column's unique
// constraint rejects the insert.
var ErrDuplicateEmail = errors.New("email already registered")

// IUserRepository defines the contract for principal persistence, including
// the single-slot refresh token operations.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
}

// UserRepository implements IUserRepository on top of PostgreSQL.
type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, email, first_name, last_name, password_hash, role, refresh_token, refresh_token_expires_at, created_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(&user.ID, &user.Email, &user.FirstName, &user.LastName,
		&user.PasswordHash, &user.Role, &user.RefreshToken, &user.RefreshTokenExpiresAt, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	query := `INSERT INTO users (id, email, first_name, last_name, password_hash, role)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err := r.DB.QueryRowContext(ctx, query,
		user.ID, user.Email, user.FirstName, user.LastName, user.PasswordHash, user.Role,
	).Scan(&user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrDuplicateEmail
		}
		logger.Log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	return scanUser(r.DB.QueryRowContext(ctx, query, id))
}

// SetRefreshToken unconditionally overwrites the refresh slot. Used at login,
// where a fresh issuance is allowed to replace whatever was stored before.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	query := `UPDATE users SET refresh_token=$1, refresh_token_expires_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, token, expiresAt, id)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to store refresh token")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RotateRefreshToken validates and rotates the refresh slot in one atomic
// statement: the update only matches while the stored token equals oldToken
// and has not expired. A false return means the presented token is stale,
// already rotated by a concurrent request, or the user does not exist —
// indistinguishable on purpose.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, oldToken, newToken string, expiresAt time.Time) (bool, error) {
	query := `UPDATE users SET refresh_token=$1, refresh_token_expires_at=$2
	          WHERE id=$3 AND refresh_token=$4 AND refresh_token_expires_at > NOW()`
	res, err := r.DB.ExecContext(ctx, query, newToken, expiresAt, id, oldToken)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to rotate refresh token")
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func (r *UserRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users SET refresh_token=NULL, refresh_token_expires_at=NULL WHERE id=$1`
	_, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to clear refresh token")
	}
	return err
}
