package auth

import (
	"context"
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/random"
)

func CreateUser(ctx context.Context, db sqlx.ExtContext, user User) error {
	const q = `
	INSERT INTO users (user_id, email, username, role, password_hash, created_at, updated_at)
	VALUES (:user_id, :email, :username, :role, :password_hash, :created_at, :updated_at)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, user); err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}

	return nil
}

func FetchUserByEmail(ctx context.Context, db sqlx.ExtContext, email string) (User, error) {
	const q = `SELECT * FROM users WHERE email = $1`

	var user User
	if err := sqlx.GetContext(ctx, db, &user, q, email); err != nil {
		return User{}, err
	}

	return user, nil
}

func FetchUser(ctx context.Context, db sqlx.ExtContext, id string) (User, error) {
	const q = `SELECT * FROM users WHERE user_id = $1`

	var user User
	if err := sqlx.GetContext(ctx, db, &user, q, id); err != nil {
		return User{}, err
	}

	return user, nil
}

// GenerateToken mints a new bearer token for the user, storing only its hash.
func GenerateToken(ctx context.Context, db sqlx.ExtContext, userID string, ttl time.Duration) (Token, error) {
	plain, err := random.StringSecure(tokenLength)
	if err != nil {
		return Token{}, fmt.Errorf("generating token: %w", err)
	}

	hash := sha256.Sum256([]byte(plain))

	tk := Token{
		Hash:      hash[:],
		UserID:    userID,
		Expiry:    time.Now().UTC().Add(ttl),
		Plaintext: plain,
	}

	const q = `
	INSERT INTO tokens (token_hash, user_id, expiry)
	VALUES (:token_hash, :user_id, :expiry)`

	if _, err := sqlx.NamedExecContext(ctx, db, q, tk); err != nil {
		return Token{}, fmt.Errorf("inserting token: %w", err)
	}

	return tk, nil
}

// FetchTokenUser resolves a plaintext bearer token to its user, honoring
// the token expiry.
func FetchTokenUser(ctx context.Context, db sqlx.ExtContext, plaintext string) (User, error) {
	const q = `
	SELECT users.* FROM users
	INNER JOIN tokens ON tokens.user_id = users.user_id
	WHERE tokens.token_hash = $1 AND tokens.expiry > $2`

	hash := sha256.Sum256([]byte(plaintext))

	var user User
	if err := sqlx.GetContext(ctx, db, &user, q, hash[:], time.Now().UTC()); err != nil {
		return User{}, err
	}

	return user, nil
}

func DeleteUserTokens(ctx context.Context, db sqlx.ExtContext, userID string) error {
	const q = `DELETE FROM tokens WHERE user_id = $1`

	if _, err := db.ExecContext(ctx, q, userID); err != nil {
		return fmt.Errorf("deleting tokens: %w", err)
	}

	return nil
}
