package models

import "time"

// User represents a user record in the database
type User struct {
	ID           int64     `json:"id" db:"id"`                // Primary key
	Email        string    `json:"email" db:"email"`          // Unique email, case-sensitive as stored
	PasswordHash string    `json:"-" db:"password_hash"`      // bcrypt hash, never serialized
	CreatedAt    time.Time `json:"createdAt" db:"created_at"` // Registration timestamp
}
