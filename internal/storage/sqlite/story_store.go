package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

// StoryStore implements storage.StoryStore using SQLite.
type StoryStore struct {
	db *sql.DB
}

// NewStoryStore opens a SQLite database, configures WAL mode, and creates
// the schema.
func NewStoryStore(dsn string) (*StoryStore, error) {
	db, err := openDB(dsn)
	if err != nil {
		return nil, err
	}
	return &StoryStore{db: db}, nil
}

// openDB opens and configures a SQLite connection shared by both stores.
func openDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY errors under concurrent load.
	// WAL mode allows concurrent readers to proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// DB exposes the underlying handle so the user store can share the
// connection (and SQLite's single-writer serialization) with the story store.
func (s *StoryStore) DB() *sql.DB {
	return s.db
}

// storyBible is the JSON document stored in the bible column.
type storyBible struct {
	Characters       []types.Character `json:"characters"`
	Settings         string            `json:"settings,omitempty"`
	Worldbuilding    []string          `json:"worldbuilding,omitempty"`
	PowerSystem      []string          `json:"powerSystem,omitempty"`
	MagicSystem      []string          `json:"magicSystem,omitempty"`
	TechnologySystem []string          `json:"technologySystem,omitempty"`
	Rules            []string          `json:"rules,omitempty"`
	Lore             []string          `json:"lore,omitempty"`
	History          []string          `json:"history,omitempty"`
	Culture          []string          `json:"culture,omitempty"`
	Plot             string            `json:"plot,omitempty"`
	Conflict         string            `json:"conflict,omitempty"`
}

func bibleFromStory(story *types.Story) storyBible {
	return storyBible{
		Characters:       story.Characters,
		Settings:         story.Settings,
		Worldbuilding:    story.Worldbuilding,
		PowerSystem:      story.PowerSystem,
		MagicSystem:      story.MagicSystem,
		TechnologySystem: story.TechnologySystem,
		Rules:            story.Rules,
		Lore:             story.Lore,
		History:          story.History,
		Culture:          story.Culture,
		Plot:             story.Plot,
		Conflict:         story.Conflict,
	}
}

func (b storyBible) applyTo(story *types.Story) {
	story.Characters = b.Characters
	story.Settings = b.Settings
	story.Worldbuilding = b.Worldbuilding
	story.PowerSystem = b.PowerSystem
	story.MagicSystem = b.MagicSystem
	story.TechnologySystem = b.TechnologySystem
	story.Rules = b.Rules
	story.Lore = b.Lore
	story.History = b.History
	story.Culture = b.Culture
	story.Plot = b.Plot
	story.Conflict = b.Conflict
}

// CreateStory stores a new story. An empty ID is assigned a fresh UUID.
func (s *StoryStore) CreateStory(ctx context.Context, story *types.Story) error {
	if story.Title == "" {
		return fmt.Errorf("%w: story title is required", storage.ErrInvalidInput)
	}
	if story.ID == "" {
		story.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.LastUpdated = now
	if story.Status == "" {
		story.Status = types.StatusDraft
	}

	bibleJSON, err := json.Marshal(bibleFromStory(story))
	if err != nil {
		return fmt.Errorf("failed to marshal bible: %w", err)
	}
	memoryJSON, err := json.Marshal(story.Memory)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stories (id, title, description, status, owner_id, owner_email, owner_name,
			bible, memory, chapter_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		story.ID, story.Title, story.Description, string(story.Status),
		story.OwnerID, story.OwnerEmail, story.OwnerName,
		string(bibleJSON), string(memoryJSON), len(story.Chapters),
		story.CreatedAt, story.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to insert story: %w", err)
	}

	for _, ch := range story.Chapters {
		if err := s.insertChapter(ctx, s.db, story.ID, ch); err != nil {
			return err
		}
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *StoryStore) insertChapter(ctx context.Context, db execer, storyID string, ch types.Chapter) error {
	keyEvents, err := json.Marshal(emptyIfNil(ch.KeyEvents))
	if err != nil {
		return fmt.Errorf("failed to marshal key events: %w", err)
	}
	involved, err := json.Marshal(emptyIfNil(ch.CharactersInvolved))
	if err != nil {
		return fmt.Errorf("failed to marshal characters involved: %w", err)
	}
	plotPoints, err := json.Marshal(emptyIfNil(ch.NewPlotPoints))
	if err != nil {
		return fmt.Errorf("failed to marshal plot points: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO chapters (story_id, chapter_number, title, content, user_direction,
			ai_summary, key_events, characters_involved, new_plot_points, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		storyID, ch.ChapterNumber, ch.Title, ch.Content, ch.UserDirection,
		ch.AISummary, string(keyEvents), string(involved), string(plotPoints), ch.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert chapter %d: %w", ch.ChapterNumber, err)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// GetStory retrieves a story with its chapters and memory.
func (s *StoryStore) GetStory(ctx context.Context, id string) (*types.Story, error) {
	var (
		story      types.Story
		status     string
		bibleJSON  string
		memoryJSON string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, owner_id, owner_email, owner_name,
			bible, memory, created_at, updated_at
		FROM stories WHERE id = ?`, id).Scan(
		&story.ID, &story.Title, &story.Description, &status,
		&story.OwnerID, &story.OwnerEmail, &story.OwnerName,
		&bibleJSON, &memoryJSON, &story.CreatedAt, &story.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("story %s: %w", id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query story: %w", err)
	}

	story.Status = types.StoryStatus(status)

	var bible storyBible
	if err := json.Unmarshal([]byte(bibleJSON), &bible); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bible: %w", err)
	}
	bible.applyTo(&story)

	if err := json.Unmarshal([]byte(memoryJSON), &story.Memory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory: %w", err)
	}

	chapters, err := s.loadChapters(ctx, id)
	if err != nil {
		return nil, err
	}
	story.Chapters = chapters
	return &story, nil
}

func (s *StoryStore) loadChapters(ctx context.Context, storyID string) ([]types.Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chapter_number, title, content, user_direction, ai_summary,
			key_events, characters_involved, new_plot_points, created_at
		FROM chapters WHERE story_id = ? ORDER BY chapter_number`, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	chapters := []types.Chapter{}
	for rows.Next() {
		var (
			ch         types.Chapter
			keyEvents  string
			involved   string
			plotPoints string
		)
		if err := rows.Scan(&ch.ChapterNumber, &ch.Title, &ch.Content, &ch.UserDirection,
			&ch.AISummary, &keyEvents, &involved, &plotPoints, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		if err := json.Unmarshal([]byte(keyEvents), &ch.KeyEvents); err != nil {
			return nil, fmt.Errorf("failed to unmarshal key events: %w", err)
		}
		if err := json.Unmarshal([]byte(involved), &ch.CharactersInvolved); err != nil {
			return nil, fmt.Errorf("failed to unmarshal characters involved: %w", err)
		}
		if err := json.Unmarshal([]byte(plotPoints), &ch.NewPlotPoints); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plot points: %w", err)
		}
		chapters = append(chapters, ch)
	}
	return chapters, rows.Err()
}

// UpdateStory replaces a story's bible fields and status. Chapters and
// memory are left untouched.
func (s *StoryStore) UpdateStory(ctx context.Context, story *types.Story) error {
	if story.ID == "" {
		return fmt.Errorf("%w: story id is required", storage.ErrInvalidInput)
	}
	if story.Status != "" && !types.IsValidStoryStatus(string(story.Status)) {
		return fmt.Errorf("%w: unknown status %q", storage.ErrInvalidInput, story.Status)
	}

	bibleJSON, err := json.Marshal(bibleFromStory(story))
	if err != nil {
		return fmt.Errorf("failed to marshal bible: %w", err)
	}

	story.LastUpdated = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE stories SET title = ?, description = ?, status = ?, bible = ?, updated_at = ?
		WHERE id = ?`,
		story.Title, story.Description, string(story.Status), string(bibleJSON),
		story.LastUpdated, story.ID)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("story %s: %w", story.ID, storage.ErrNotFound)
	}
	return nil
}

// DeleteStory removes a story and all of its chapters.
func (s *StoryStore) DeleteStory(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("story %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ListStories returns story summaries matching the options.
func (s *StoryStore) ListStories(ctx context.Context, opts storage.ListOptions) ([]types.StorySummary, error) {
	query := `
		SELECT id, title, description, status, owner_id, owner_email, owner_name,
			chapter_count, created_at, updated_at
		FROM stories`
	var (
		conds []string
		args  []interface{}
	)
	if opts.OwnerID != "" {
		conds = append(conds, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, opts.Status)
	}
	if opts.Search != "" {
		conds = append(conds, "(title LIKE ? OR description LIKE ?)")
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	query += " ORDER BY " + sortColumn(opts.SortBy) + " " + sortDirection(opts.SortDir)

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stories: %w", err)
	}
	defer rows.Close()

	summaries := []types.StorySummary{}
	for rows.Next() {
		var (
			sum    types.StorySummary
			status string
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Description, &status,
			&sum.OwnerID, &sum.OwnerEmail, &sum.OwnerName,
			&sum.ChapterCount, &sum.CreatedAt, &sum.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan story summary: %w", err)
		}
		sum.Status = types.StoryStatus(status)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// sortColumn maps a ListOptions sort key onto a whitelisted column.
// Column names cannot be bound as placeholders so the mapping is explicit.
func sortColumn(sortBy string) string {
	switch sortBy {
	case "created_at":
		return "created_at"
	case "title":
		return "title"
	default:
		return "updated_at"
	}
}

func sortDirection(dir string) string {
	if dir == "asc" {
		return "ASC"
	}
	return "DESC"
}

// AppendChapter atomically appends a chapter, replaces the memory, and marks
// the story active. The conditional update on chapter_count guarantees
// at most one writer per logical next chapter number.
func (s *StoryStore) AppendChapter(ctx context.Context, storyID string, expectedChapters int, chapter types.Chapter, memory types.StoryMemory) error {
	if chapter.Content == "" {
		return fmt.Errorf("%w: chapter content is required", storage.ErrInvalidInput)
	}
	if chapter.ChapterNumber != expectedChapters+1 {
		return fmt.Errorf("%w: chapter number %d does not follow %d existing chapters",
			storage.ErrInvalidInput, chapter.ChapterNumber, expectedChapters)
	}

	memoryJSON, err := json.Marshal(memory)
	if err != nil {
		return fmt.Errorf("failed to marshal memory: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE stories
		SET memory = ?, status = ?, chapter_count = chapter_count + 1, updated_at = ?
		WHERE id = ? AND chapter_count = ?`,
		string(memoryJSON), string(types.StatusActive), time.Now().UTC(),
		storyID, expectedChapters)
	if err != nil {
		return fmt.Errorf("failed to update story: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM stories WHERE id = ?)`, storyID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check story existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("story %s: %w", storyID, storage.ErrNotFound)
		}
		return fmt.Errorf("story %s: %w", storyID, storage.ErrConcurrentModification)
	}

	if err := s.insertChapter(ctx, tx, storyID, chapter); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chapter append: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *StoryStore) Close() error {
	return s.db.Close()
}

var _ storage.StoryStore = (*StoryStore)(nil)
