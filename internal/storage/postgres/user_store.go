package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

// UserStore implements storage.UserStore using PostgreSQL.
type UserStore struct {
	db     *sql.DB
	ownsDB bool
}

// NewUserStore opens its own connection pool at dsn.
func NewUserStore(dsn string) (*UserStore, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	return &UserStore{db: db, ownsDB: true}, nil
}

// NewUserStoreWithDB shares an existing pool, typically the story store's.
func NewUserStoreWithDB(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

// GetUser retrieves a user by ID.
func (s *UserStore) GetUser(ctx context.Context, id string) (*types.User, error) {
	var (
		user           types.User
		bookmarks      []byte
		createdStories []byte
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, profile_photo, bookmarks, created_stories, created_at
		FROM users WHERE id = $1`, id).Scan(
		&user.ID, &user.Email, &user.Name, &user.ProfilePhoto,
		&bookmarks, &createdStories, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	if err := json.Unmarshal(bookmarks, &user.Bookmarks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmarks: %w", err)
	}
	if err := json.Unmarshal(createdStories, &user.CreatedStories); err != nil {
		return nil, fmt.Errorf("failed to unmarshal created stories: %w", err)
	}
	return &user, nil
}

// UpsertUser inserts the user or updates the mutable profile fields.
func (s *UserStore) UpsertUser(ctx context.Context, user *types.User) error {
	if user.ID == "" {
		return fmt.Errorf("%w: user id is required", storage.ErrInvalidInput)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	bookmarks, err := json.Marshal(emptyIfNil(user.Bookmarks))
	if err != nil {
		return fmt.Errorf("failed to marshal bookmarks: %w", err)
	}
	createdStories, err := json.Marshal(emptyIfNil(user.CreatedStories))
	if err != nil {
		return fmt.Errorf("failed to marshal created stories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, profile_photo, bookmarks, created_stories, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			profile_photo = EXCLUDED.profile_photo,
			bookmarks = EXCLUDED.bookmarks,
			created_stories = EXCLUDED.created_stories`,
		user.ID, user.Email, user.Name, user.ProfilePhoto,
		bookmarks, createdStories, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// Close closes the pool when this store owns it.
func (s *UserStore) Close() error {
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

var _ storage.UserStore = (*UserStore)(nil)
