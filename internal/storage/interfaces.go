package storage

import (
	"context"
	"errors"

	"github.com/illude/illude/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a write carries malformed data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConcurrentModification is returned when an optimistic append loses
	// the race against another writer on the same story.
	ErrConcurrentModification = errors.New("story was modified concurrently")
)

// ListOptions filters and bounds story listings.
type ListOptions struct {
	OwnerID string // restrict to one owner's stories
	Status  string // restrict to one story status
	Search  string // substring match on title and description
	Limit   int
	Offset  int
	SortBy  string // "created_at", "updated_at", or "title"
	SortDir string // "asc" or "desc"
}

// StoryStore persists stories with their chapters and memory.
type StoryStore interface {
	// CreateStory stores a new story and returns it with its assigned ID.
	CreateStory(ctx context.Context, story *types.Story) error

	// GetStory retrieves a story by ID, including chapters and memory.
	GetStory(ctx context.Context, id string) (*types.Story, error)

	// UpdateStory replaces a story's bible fields and status. Chapters and
	// memory are not touched; use AppendChapter for those.
	UpdateStory(ctx context.Context, story *types.Story) error

	// DeleteStory removes a story and all of its chapters.
	DeleteStory(ctx context.Context, id string) error

	// ListStories returns story summaries matching the options, newest first
	// unless the options say otherwise.
	ListStories(ctx context.Context, opts ListOptions) ([]types.StorySummary, error)

	// AppendChapter atomically appends a chapter, replaces the story memory,
	// and sets the status to active. The write only succeeds when the story
	// currently has expectedChapters chapters; otherwise it returns
	// ErrConcurrentModification and persists nothing.
	AppendChapter(ctx context.Context, storyID string, expectedChapters int, chapter types.Chapter, memory types.StoryMemory) error

	// Close releases the underlying database resources.
	Close() error
}

// UserStore persists user profiles and bookmarks.
type UserStore interface {
	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id string) (*types.User, error)

	// UpsertUser creates the user if absent, otherwise updates the mutable
	// profile fields and bookmark list.
	UpsertUser(ctx context.Context, user *types.User) error

	// Close releases the underlying database resources.
	Close() error
}
