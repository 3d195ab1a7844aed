package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-todo/internal/models"
)

const todoColumns = `id, title, description, is_completed, user_id, created_at, updated_at`

// TodoReadRepository handles todo read operations. Every lookup is scoped to
// the owner, so a todo owned by someone else is indistinguishable from a
// missing one.
type TodoReadRepository struct {
	db *sqlx.DB
}

func NewTodoReadRepository(db *sqlx.DB) *TodoReadRepository {
	return &TodoReadRepository{db: db}
}

// GetByID returns the todo with the given id owned by userID, or nil.
func (r *TodoReadRepository) GetByID(ctx context.Context, id, userID int64) (*models.Todo, error) {
	query := r.db.Rebind(`
		SELECT ` + todoColumns + `
		FROM todos
		WHERE id = ? AND user_id = ?
	`)

	var todo models.Todo
	err := r.db.GetContext(ctx, &todo, query, id, userID)

	logQuery(ctx, query, []any{id, userID}, todo.ID, err)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &todo, nil
}

// ListByUserID returns every todo owned by userID, newest first.
func (r *TodoReadRepository) ListByUserID(ctx context.Context, userID int64) ([]models.Todo, error) {
	query := r.db.Rebind(`
		SELECT ` + todoColumns + `
		FROM todos
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`)

	todos := make([]models.Todo, 0)
	err := r.db.SelectContext(ctx, &todos, query, userID)

	logQuery(ctx, query, []any{userID}, len(todos), err)

	if err != nil {
		return nil, err
	}
	return todos, nil
}

// TodoWriteRepository handles todo write operations
type TodoWriteRepository struct {
	db *sqlx.DB
}

func NewTodoWriteRepository(db *sqlx.DB) *TodoWriteRepository {
	return &TodoWriteRepository{db: db}
}

// Save inserts the todo and fills in its generated id.
func (r *TodoWriteRepository) Save(ctx context.Context, todo *models.Todo) error {
	query := r.db.Rebind(`
		INSERT INTO todos (title, description, is_completed, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`)
	args := []any{todo.Title, todo.Description, todo.IsCompleted, todo.UserID, todo.CreatedAt, todo.UpdatedAt}

	var id int64
	err := r.db.GetContext(ctx, &id, query, args...)

	logQuery(ctx, query, args, id, err)

	if err != nil {
		return err
	}
	todo.ID = id
	return nil
}

// Update applies the non-nil fields of patch to the todo owned by userID in a
// single statement and returns the stored result, or nil when the todo does
// not exist for that owner.
func (r *TodoWriteRepository) Update(ctx context.Context, id, userID int64, patch models.TodoPatch, updatedAt time.Time) (*models.Todo, error) {
	query := r.db.Rebind(`
		UPDATE todos
		SET title = COALESCE(?, title),
		    description = COALESCE(?, description),
		    is_completed = COALESCE(?, is_completed),
		    updated_at = ?
		WHERE id = ? AND user_id = ?
	`)
	args := []any{patch.Title, patch.Description, patch.IsCompleted, updatedAt, id, userID}

	res, err := r.db.ExecContext(ctx, query, args...)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logQuery(ctx, query, args, rowsAffected, err)

	if err != nil {
		return nil, err
	}
	if rowsAffected == 0 {
		return nil, nil
	}

	return NewTodoReadRepository(r.db).GetByID(ctx, id, userID)
}

// Delete removes the todo owned by userID. It reports false when nothing
// matched.
func (r *TodoWriteRepository) Delete(ctx context.Context, id, userID int64) (bool, error) {
	query := r.db.Rebind(`
		DELETE FROM todos
		WHERE id = ? AND user_id = ?
	`)

	res, err := r.db.ExecContext(ctx, query, id, userID)
	var rowsAffected int64
	if res != nil {
		rowsAffected, _ = res.RowsAffected()
	}

	logQuery(ctx, query, []any{id, userID}, rowsAffected, err)

	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}
