package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/illude/illude/internal/llm"
	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

// scriptedGenerator returns canned responses in call order and records the
// prompts it received.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (g *scriptedGenerator) Complete(_ context.Context, prompt string) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return "", llm.ErrEmptyGeneration
}

func (g *scriptedGenerator) GetModel() string { return "scripted" }

// fakeStore is an in-memory StoryStore with the same optimistic append
// semantics as the real backends.
type fakeStore struct {
	stories map[string]*types.Story
	nextID  int

	appendErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{stories: make(map[string]*types.Story)}
}

func (s *fakeStore) CreateStory(_ context.Context, story *types.Story) error {
	if story.ID == "" {
		s.nextID++
		story.ID = fmt.Sprintf("story-%d", s.nextID)
	}
	clone := *story
	s.stories[story.ID] = &clone
	return nil
}

func (s *fakeStore) GetStory(_ context.Context, id string) (*types.Story, error) {
	story, ok := s.stories[id]
	if !ok {
		return nil, fmt.Errorf("story %s: %w", id, storage.ErrNotFound)
	}
	clone := *story
	clone.Chapters = append([]types.Chapter(nil), story.Chapters...)
	return &clone, nil
}

func (s *fakeStore) UpdateStory(_ context.Context, story *types.Story) error {
	if _, ok := s.stories[story.ID]; !ok {
		return fmt.Errorf("story %s: %w", story.ID, storage.ErrNotFound)
	}
	clone := *story
	s.stories[story.ID] = &clone
	return nil
}

func (s *fakeStore) DeleteStory(_ context.Context, id string) error {
	if _, ok := s.stories[id]; !ok {
		return fmt.Errorf("story %s: %w", id, storage.ErrNotFound)
	}
	delete(s.stories, id)
	return nil
}

func (s *fakeStore) ListStories(_ context.Context, _ storage.ListOptions) ([]types.StorySummary, error) {
	return nil, nil
}

func (s *fakeStore) AppendChapter(_ context.Context, storyID string, expectedChapters int, chapter types.Chapter, memory types.StoryMemory) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	story, ok := s.stories[storyID]
	if !ok {
		return fmt.Errorf("story %s: %w", storyID, storage.ErrNotFound)
	}
	if len(story.Chapters) != expectedChapters {
		return fmt.Errorf("story %s: %w", storyID, storage.ErrConcurrentModification)
	}
	story.Chapters = append(story.Chapters, chapter)
	story.Memory = memory
	story.Status = types.StatusActive
	return nil
}

func (s *fakeStore) Close() error { return nil }

func seededStory(t *testing.T, store *fakeStore) *types.Story {
	t.Helper()
	story := &types.Story{
		Title: "The Hollow Crown",
		Characters: []types.Character{
			{Name: "Mira", Personality: "reckless"},
			{Name: "Dax", Personality: "cautious"},
		},
		Conflict: "Mira vs the guild",
		Status:   types.StatusActive,
		Memory:   types.NewStoryMemory([]types.Character{{Name: "Mira", Personality: "reckless"}, {Name: "Dax", Personality: "cautious"}}, "Mira vs the guild"),
		Chapters: []types.Chapter{
			{ChapterNumber: 1, Content: "## Chapter 1: The Heist\n\nThe vault stood open.\nMira froze."},
		},
	}
	if err := store.CreateStory(context.Background(), story); err != nil {
		t.Fatalf("seed story: %v", err)
	}
	return story
}

func TestInitializeStory(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGenerator{responses: []string{"## Chapter 1: The Heist\n\nThe vault stood open."}}
	eng := NewStoryEngine(store, gen)

	story, err := eng.InitializeStory(context.Background(), &types.Story{
		Title: "The Hollow Crown",
		Characters: []types.Character{
			{Name: "Mira", Personality: "reckless"},
		},
		Conflict: "Mira vs the guild",
	})
	if err != nil {
		t.Fatalf("InitializeStory: %v", err)
	}

	if story.ID == "" {
		t.Error("story should have an assigned ID")
	}
	if len(story.Chapters) != 1 || story.Chapters[0].ChapterNumber != 1 {
		t.Fatalf("expected one chapter numbered 1, got %+v", story.Chapters)
	}
	if story.Chapters[0].Title != "The Heist" {
		t.Errorf("chapter title = %q", story.Chapters[0].Title)
	}
	if story.Status != types.StatusActive {
		t.Errorf("status = %q", story.Status)
	}

	// Memory seeded from the bible.
	arc := story.Memory.Arc("Mira")
	if arc == nil || arc.CurrentState != "reckless" {
		t.Errorf("arc should be seeded from personality, got %+v", arc)
	}
	if len(story.Memory.Conflicts) != 1 || story.Memory.Conflicts[0] != "Mira vs the guild" {
		t.Errorf("conflicts = %v", story.Memory.Conflicts)
	}

	if len(gen.prompts) != 1 {
		t.Errorf("first-chapter flow should make exactly one generation call, made %d", len(gen.prompts))
	}

	persisted, err := store.GetStory(context.Background(), story.ID)
	if err != nil || len(persisted.Chapters) != 1 {
		t.Errorf("story should be persisted with its chapter: %v", err)
	}
}

func TestInitializeStoryGenerationFailure(t *testing.T) {
	store := newFakeStore()
	gen := &scriptedGenerator{errs: []error{errors.New("backend down")}}
	eng := NewStoryEngine(store, gen)

	_, err := eng.InitializeStory(context.Background(), &types.Story{Title: "Doomed"})
	if err == nil {
		t.Fatal("expected error when generation fails")
	}
	if len(store.stories) != 0 {
		t.Error("no story should be persisted when the first chapter fails")
	}
}

func TestGenerateChapterFullPipeline(t *testing.T) {
	store := newFakeStore()
	story := seededStory(t, store)

	gen := &scriptedGenerator{responses: []string{
		// continuity analysis
		`{"endingType": "cliffhanger", "continuityNeeds": "immediate_continuation", "tonalState": "tense"}`,
		// chapter text
		"## Chapter 2: The Drop\n\nMira let go.",
		// chapter analysis
		`{"summary": "Mira escapes", "keyEvents": ["the drop"], "newPlotPoints": ["the sewers"], "characterDevelopments": [{"character": "Mira", "development": "commits fully"}]}`,
	}}
	eng := NewStoryEngine(store, gen)

	var started, completed []ChapterEvent
	eng.OnChapterStarted = func(ev ChapterEvent) { started = append(started, ev) }
	eng.OnChapterCompleted = func(ev ChapterEvent) { completed = append(completed, ev) }

	chapter, updated, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:      story.ID,
		GenerateType: llm.GenerateModeAI,
	})
	if err != nil {
		t.Fatalf("GenerateChapter: %v", err)
	}

	if chapter.ChapterNumber != 2 {
		t.Errorf("chapter number = %d, want 2", chapter.ChapterNumber)
	}
	if chapter.AISummary != "Mira escapes" {
		t.Errorf("AISummary = %q", chapter.AISummary)
	}
	if len(gen.prompts) != 3 {
		t.Fatalf("full flow should make three generation calls, made %d", len(gen.prompts))
	}

	// The chapter prompt (second call) carries the strict continuity template.
	if !strings.Contains(gen.prompts[1], "Do NOT skip time") {
		t.Error("chapter prompt should use the immediate-continuation template")
	}

	// Memory folded and persisted.
	if updated.Memory.Arc("Mira").CurrentState != "commits fully" {
		t.Errorf("arc state = %q", updated.Memory.Arc("Mira").CurrentState)
	}
	persisted, _ := store.GetStory(context.Background(), story.ID)
	if len(persisted.Chapters) != 2 {
		t.Errorf("persisted chapters = %d, want 2", len(persisted.Chapters))
	}

	if len(started) != 1 || started[0].Stage != "started" || started[0].ChapterNumber != 2 {
		t.Errorf("started events = %+v", started)
	}
	if len(completed) != 1 || completed[0].Stage != "completed" {
		t.Errorf("completed events = %+v", completed)
	}
}

func TestGenerateChapterUnparseableContinuityUsesFallback(t *testing.T) {
	store := newFakeStore()
	story := seededStory(t, store)

	gen := &scriptedGenerator{responses: []string{
		"the model rambled with no JSON",
		"## Chapter 2: Aftermath\n\nDust settled.",
		"also not JSON",
	}}
	eng := NewStoryEngine(store, gen)

	chapter, updated, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:      story.ID,
		GenerateType: llm.GenerateModeAI,
	})
	if err != nil {
		t.Fatalf("GenerateChapter: %v", err)
	}

	if chapter.ChapterNumber != 2 {
		t.Errorf("chapter number = %d, want 2", chapter.ChapterNumber)
	}
	// Fallback directive selects the scene-break template.
	if !strings.Contains(gen.prompts[1], "light transition") {
		t.Error("fallback directive should select the scene-break template")
	}
	// Fallback analysis: generic summary, all bible characters, no deltas.
	if chapter.AISummary != "Chapter 2 continues the story" {
		t.Errorf("AISummary = %q", chapter.AISummary)
	}
	if len(chapter.CharactersInvolved) != 2 {
		t.Errorf("CharactersInvolved = %v", chapter.CharactersInvolved)
	}
	if len(updated.Memory.PlotPoints) != 0 {
		t.Errorf("fallback analysis should not grow plot points, got %v", updated.Memory.PlotPoints)
	}
}

func TestGenerateChapterGenerationFailureFailsRequest(t *testing.T) {
	store := newFakeStore()
	story := seededStory(t, store)

	gen := &scriptedGenerator{
		responses: []string{`{"endingType": "cliffhanger", "continuityNeeds": "immediate_continuation"}`},
		errs:      []error{nil, errors.New("backend down")},
	}
	eng := NewStoryEngine(store, gen)

	_, _, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:      story.ID,
		GenerateType: llm.GenerateModeAI,
	})
	if err == nil {
		t.Fatal("expected error when chapter generation fails")
	}

	persisted, _ := store.GetStory(context.Background(), story.ID)
	if len(persisted.Chapters) != 1 {
		t.Error("no partial chapter may be persisted on failure")
	}
}

func TestGenerateChapterUserDirectedRequiresDirection(t *testing.T) {
	store := newFakeStore()
	story := seededStory(t, store)
	eng := NewStoryEngine(store, &scriptedGenerator{})

	_, _, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:       story.ID,
		GenerateType:  llm.GenerateModeUserDirected,
		UserDirection: "   ",
	})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestGenerateChapterUserDirectionRecorded(t *testing.T) {
	store := newFakeStore()
	story := seededStory(t, store)

	gen := &scriptedGenerator{responses: []string{
		`{"endingType": "natural_conclusion", "continuityNeeds": "scene_break"}`,
		"## Chapter 2: The Meeting\n\nThey met at dawn.",
		`{"summary": "A meeting"}`,
	}}
	eng := NewStoryEngine(store, gen)

	chapter, _, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:       story.ID,
		GenerateType:  llm.GenerateModeUserDirected,
		UserDirection: "Mira meets the fence at dawn",
	})
	if err != nil {
		t.Fatalf("GenerateChapter: %v", err)
	}

	if chapter.UserDirection != "Mira meets the fence at dawn" {
		t.Errorf("UserDirection = %q", chapter.UserDirection)
	}
	if !strings.Contains(gen.prompts[1], "USER DIRECTION: Mira meets the fence at dawn") {
		t.Error("chapter prompt should carry the user direction")
	}
}

func TestGenerateChapterNotFound(t *testing.T) {
	eng := NewStoryEngine(newFakeStore(), &scriptedGenerator{})

	_, _, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:      "missing",
		GenerateType: llm.GenerateModeAI,
	})
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGenerateChapterConcurrentModification(t *testing.T) {
	store := newFakeStore()
	story := seededStory(t, store)
	store.appendErr = fmt.Errorf("story: %w", storage.ErrConcurrentModification)

	gen := &scriptedGenerator{responses: []string{
		`{"endingType": "natural_conclusion", "continuityNeeds": "scene_break"}`,
		"## Chapter 2: Clash\n\nContent.",
		`{"summary": "s"}`,
	}}
	eng := NewStoryEngine(store, gen)

	_, _, err := eng.GenerateChapter(context.Background(), GenerateRequest{
		StoryID:      story.ID,
		GenerateType: llm.GenerateModeAI,
	})
	if !errors.Is(err, storage.ErrConcurrentModification) {
		t.Errorf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestChapterTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "standard heading", content: "## Chapter 2: The Drop\n\nBody.", want: "The Drop"},
		{name: "heading after blank lines", content: "\n\n## Chapter 1: Start\nBody.", want: "Start"},
		{name: "no heading", content: "Just prose with no heading.", want: ""},
		{name: "heading without colon", content: "## Chapter Two\nBody.", want: "Chapter Two"},
		{name: "empty content", content: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := chapterTitle(tt.content); got != tt.want {
				t.Errorf("chapterTitle(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}
