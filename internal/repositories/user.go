package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-todo/internal/models"
)

type UserReadRepository struct {
	db *sqlx.DB
}

func NewUserReadRepository(db *sqlx.DB) *UserReadRepository {
	return &UserReadRepository{db: db}
}

// GetByEmail returns the user with the exact email, or nil when none exists.
func (r *UserReadRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := r.db.Rebind(`
		SELECT id, email, password_hash, created_at
		FROM users
		WHERE email = ?
		LIMIT 1
	`)

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)

	logQuery(ctx, query, []any{email}, user.ID, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

type UserWriteRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewUserWriteRepository(db *sqlx.DB) *UserWriteRepository {
	return &UserWriteRepository{db: db, now: time.Now}
}

// Save inserts a new user and returns its generated id. A duplicate email
// yields ErrUniqueViolation.
func (r *UserWriteRepository) Save(ctx context.Context, email, passwordHash string) (int64, error) {
	query := r.db.Rebind(`
		INSERT INTO users (email, password_hash, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)

	var id int64
	err := r.db.GetContext(ctx, &id, query, email, passwordHash, r.now().UTC())

	// The hash stays out of the logs.
	logQuery(ctx, query, []any{email, "[REDACTED]"}, id, err)

	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: users.email", ErrUniqueViolation)
		}
		return 0, err
	}
	return id, nil
}
