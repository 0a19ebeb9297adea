// Package types defines the core data structures for the Illude story system:
// stories, chapters, continuity memory, and the ephemeral analysis records
// produced by the chapter-continuity pipeline.
package types

import "time"

// StoryStatus represents the lifecycle status of a story.
type StoryStatus string

// Story lifecycle status constants
const (
	// StatusDraft indicates a story that has been created but has no chapters yet
	StatusDraft StoryStatus = "draft"

	// StatusActive indicates a story with at least one generated chapter
	StatusActive StoryStatus = "active"

	// StatusCompleted indicates a story the author has marked as finished
	StatusCompleted StoryStatus = "completed"

	// StatusPaused indicates a story the author has set aside
	StatusPaused StoryStatus = "paused"
)

// IsValidStoryStatus reports whether s is one of the known lifecycle statuses.
func IsValidStoryStatus(s string) bool {
	switch StoryStatus(s) {
	case StatusDraft, StatusActive, StatusCompleted, StatusPaused:
		return true
	}
	return false
}

// Character is a single character in the story bible.
// Only the name is required; the descriptive fields feed prompt construction.
type Character struct {
	Name          string `json:"name"`
	Appearance    string `json:"appearance,omitempty"`
	Personality   string `json:"personality,omitempty"`
	Background    string `json:"background,omitempty"`
	Goals         string `json:"goals,omitempty"`
	Backstory     string `json:"backstory,omitempty"`
	Relationships string `json:"relationships,omitempty"`
}

// Chapter is a single generated chapter. Chapters are owned by their story
// by composition and are never referenced independently.
type Chapter struct {
	ChapterNumber int    `json:"chapterNumber"` // 1-based, contiguous, immutable once assigned
	Title         string `json:"title,omitempty"`
	Content       string `json:"content"` // generated prose, never empty

	// UserDirection holds the user's instruction when the chapter was
	// generated in user-directed mode; empty for autonomous chapters.
	UserDirection string `json:"userDirection,omitempty"`

	// Fields extracted from the chapter analysis
	AISummary          string   `json:"aiSummary,omitempty"`
	KeyEvents          []string `json:"keyEvents,omitempty"`
	CharactersInvolved []string `json:"charactersInvolved,omitempty"`
	NewPlotPoints      []string `json:"newPlotPoints,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Story is the aggregate root: the story bible, the ordered chapter
// sequence, and the continuity memory. Invariant: chapter numbers are
// contiguous starting at 1, matching sequence position.
type Story struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Story bible — the static creative setup supplied at creation time
	Characters       []Character `json:"characters"`
	Settings         string      `json:"settings,omitempty"`
	Worldbuilding    []string    `json:"worldbuilding,omitempty"`
	PowerSystem      []string    `json:"powerSystem,omitempty"`
	MagicSystem      []string    `json:"magicSystem,omitempty"`
	TechnologySystem []string    `json:"technologySystem,omitempty"`
	Rules            []string    `json:"rules,omitempty"`
	Lore             []string    `json:"lore,omitempty"`
	History          []string    `json:"history,omitempty"`
	Culture          []string    `json:"culture,omitempty"`
	Plot             string      `json:"plot,omitempty"`
	Conflict         string      `json:"conflict,omitempty"`

	Chapters []Chapter   `json:"chapters"`
	Memory   StoryMemory `json:"memory"`
	Status   StoryStatus `json:"status"`

	// Ownership; all empty in the anonymous deployment variant
	OwnerID    string `json:"ownerId,omitempty"`
	OwnerEmail string `json:"ownerEmail,omitempty"`
	OwnerName  string `json:"ownerName,omitempty"`

	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// CharacterNames returns the names of all characters in the story bible,
// in bible order. Used for the analysis-parser fallback.
func (s *Story) CharacterNames() []string {
	names := make([]string, 0, len(s.Characters))
	for _, c := range s.Characters {
		names = append(names, c.Name)
	}
	return names
}

// LastChapter returns the most recent chapter, or nil for an empty story.
func (s *Story) LastChapter() *Chapter {
	if len(s.Chapters) == 0 {
		return nil
	}
	return &s.Chapters[len(s.Chapters)-1]
}

// StorySummary is the projection returned by list queries: enough for
// library and community views without loading chapter prose or memory.
type StorySummary struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	OwnerID      string      `json:"ownerId,omitempty"`
	OwnerEmail   string      `json:"ownerEmail,omitempty"`
	OwnerName    string      `json:"ownerName,omitempty"`
	Status       StoryStatus `json:"status"`
	ChapterCount int         `json:"chapterCount"`
	CreatedAt    time.Time   `json:"createdAt"`
	LastUpdated  time.Time   `json:"lastUpdated"`
}
