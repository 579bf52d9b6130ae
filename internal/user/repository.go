package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fkhayef/splitthebill/internal/database"
)

// Repository handles user data persistence
type Repository struct {
	db *database.DB
}

// NewRepository creates a new user repository with database dependency injected
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var createdAt int64
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.AvatarURL, &createdAt); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return u, nil
}

// Upsert inserts a user or updates the profile of the existing one with the
// same telegram id. Missing profile fields keep their stored values.
func (r *Repository) Upsert(ctx context.Context, req *UpsertUserRequest, now time.Time) (*User, error) {
	query := `
		INSERT INTO users (telegram_id, username, avatar_url, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (telegram_id) DO UPDATE
		SET username = COALESCE(excluded.username, users.username),
		    avatar_url = COALESCE(excluded.avatar_url, users.avatar_url)
		RETURNING id, telegram_id, username, avatar_url, created_at
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, req.TelegramID, req.Username, req.AvatarURL, now.Unix()))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return u, nil
}

// GetByID retrieves a user by their ID
func (r *Repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, telegram_id, username, avatar_url, created_at
		FROM users
		WHERE id = $1
	`

	u, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}
