package auth

import (
	"time"
)

const sessionKey = "user_id"

// Length of the plaintext bearer token handed to clients. Only its SHA-256
// hash is stored.
const tokenLength = 26

type User struct {
	ID           string    `json:"id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	Role         string    `json:"role" db:"role"`
	PasswordHash []byte    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

type UserSignup struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type Token struct {
	Hash   []byte    `json:"-" db:"token_hash"`
	UserID string    `json:"-" db:"user_id"`
	Expiry time.Time `json:"expiry" db:"expiry"`

	// Plaintext is only populated on creation and never persisted.
	Plaintext string `json:"token" db:"-"`
}
