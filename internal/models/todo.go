package models

import "time"

// Todo represents a todo row in the database
// swagger:model Todo
type Todo struct {
	ID          int64     `json:"id" db:"id"`                    // Unique todo identifier
	Title       string    `json:"title" db:"title"`              // Non-empty title
	Description *string   `json:"description" db:"description"`  // Optional description, null when absent
	IsCompleted bool      `json:"isCompleted" db:"is_completed"` // Completion flag
	UserID      int64     `json:"userId" db:"user_id"`           // Owner of the todo
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`     // Creation timestamp
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`     // Timestamp of the last update
}

// TodoPatch carries the fields of a partial update. Nil fields are left
// unchanged.
type TodoPatch struct {
	Title       *string
	Description *string
	IsCompleted *bool
}
