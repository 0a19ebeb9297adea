// Package engine implements the chapter-continuity pipeline: continuity
// classification, chapter generation, analysis extraction, and the memory
// fold that carries narrative state from one chapter to the next.
package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/illude/illude/internal/llm"
	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

// ChapterEvent describes the progress of a chapter-generation request.
// Events feed the websocket progress feed; the zero Chapter in a started
// event is intentional.
type ChapterEvent struct {
	StoryID       string    `json:"storyId"`
	ChapterNumber int       `json:"chapterNumber"`
	Stage         string    `json:"stage"` // "started" or "completed"
	Timestamp     time.Time `json:"timestamp"`
}

// GenerateRequest carries the caller's inputs for one new chapter.
type GenerateRequest struct {
	StoryID       string
	GenerateType  string // llm.GenerateModeAI or llm.GenerateModeUserDirected
	UserDirection string
}

// StoryEngine orchestrates story initialization and chapter generation
// against a story store and a text generation backend.
type StoryEngine struct {
	store storage.StoryStore
	gen   llm.TextGenerator

	// OnChapterStarted and OnChapterCompleted, when set, receive progress
	// events outside any lock; they must not block.
	OnChapterStarted   func(ChapterEvent)
	OnChapterCompleted func(ChapterEvent)
}

// NewStoryEngine creates a story engine.
func NewStoryEngine(store storage.StoryStore, gen llm.TextGenerator) *StoryEngine {
	return &StoryEngine{store: store, gen: gen}
}

// InitializeStory seeds the memory from the story bible, generates the
// opening chapter, and persists the story with that chapter. The returned
// story carries its assigned ID.
func (e *StoryEngine) InitializeStory(ctx context.Context, story *types.Story) (*types.Story, error) {
	if story.Title == "" {
		return nil, fmt.Errorf("%w: story title is required", storage.ErrInvalidInput)
	}

	story.Memory = types.NewStoryMemory(story.Characters, story.Conflict)
	story.Status = types.StatusActive
	story.Chapters = nil

	content, err := e.gen.Complete(ctx, llm.FirstChapterPrompt(story))
	if err != nil {
		return nil, fmt.Errorf("failed to generate first chapter: %w", err)
	}

	story.Chapters = []types.Chapter{{
		ChapterNumber:      1,
		Title:              chapterTitle(content),
		Content:            content,
		AISummary:          "The opening chapter that sets the stage for the story.",
		KeyEvents:          []string{},
		CharactersInvolved: story.CharacterNames(),
		NewPlotPoints:      []string{},
		CreatedAt:          time.Now().UTC(),
	}}

	if err := e.store.CreateStory(ctx, story); err != nil {
		return nil, fmt.Errorf("failed to save story: %w", err)
	}
	return story, nil
}

// GenerateChapter runs the full pipeline for the next chapter of a story:
// load, classify continuity, compose prompts, generate, analyze, fold
// memory, and persist atomically. A failed chapter generation fails the
// request with nothing persisted; a failed or unparseable analysis degrades
// to the fallback analysis and the request still succeeds.
func (e *StoryEngine) GenerateChapter(ctx context.Context, req GenerateRequest) (*types.Chapter, *types.Story, error) {
	if req.GenerateType == llm.GenerateModeUserDirected && strings.TrimSpace(req.UserDirection) == "" {
		return nil, nil, fmt.Errorf("%w: user-directed generation requires a direction", storage.ErrInvalidInput)
	}

	story, err := e.store.GetStory(ctx, req.StoryID)
	if err != nil {
		return nil, nil, err
	}

	nextNumber := len(story.Chapters) + 1
	e.notifyStarted(ChapterEvent{
		StoryID:       story.ID,
		ChapterNumber: nextNumber,
		Stage:         "started",
		Timestamp:     time.Now().UTC(),
	})

	var directive *types.ContinuityDirective
	if last := story.LastChapter(); last != nil {
		d := AnalyzeContinuity(ctx, e.gen, last.Content)
		directive = &d
	}

	prompt := llm.ChapterPrompt(story, directive, req.GenerateType, req.UserDirection, nextNumber)
	content, err := e.gen.Complete(ctx, prompt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate chapter: %w", err)
	}

	analysis := e.analyzeChapter(ctx, content, nextNumber, story.CharacterNames())

	chapter := types.Chapter{
		ChapterNumber:      nextNumber,
		Title:              chapterTitle(content),
		Content:            content,
		UserDirection:      req.UserDirection,
		AISummary:          analysis.Summary,
		KeyEvents:          analysis.KeyEvents,
		CharactersInvolved: analysis.CharactersInvolved,
		NewPlotPoints:      analysis.NewPlotPoints,
		CreatedAt:          time.Now().UTC(),
	}

	memory := UpdateMemory(story.Memory, analysis)

	if err := e.store.AppendChapter(ctx, story.ID, len(story.Chapters), chapter, memory); err != nil {
		return nil, nil, err
	}

	story.Chapters = append(story.Chapters, chapter)
	story.Memory = memory
	story.Status = types.StatusActive
	story.LastUpdated = chapter.CreatedAt

	e.notifyCompleted(ChapterEvent{
		StoryID:       story.ID,
		ChapterNumber: nextNumber,
		Stage:         "completed",
		Timestamp:     time.Now().UTC(),
	})
	return &chapter, story, nil
}

// analyzeChapter extracts continuity data from the generated chapter text.
// Analysis failures never fail the request.
func (e *StoryEngine) analyzeChapter(ctx context.Context, content string, chapterNumber int, characterNames []string) types.ChapterAnalysis {
	raw, err := e.gen.Complete(ctx, llm.ChapterAnalysisPrompt(content))
	if err != nil {
		log.Printf("engine: chapter analysis generation failed, using fallback: %v", err)
		return types.FallbackAnalysis(chapterNumber, characterNames)
	}

	analysis, outcome := llm.ParseChapterAnalysis(raw, chapterNumber, characterNames)
	if outcome.Fallback {
		log.Printf("engine: chapter analysis unparseable (%s), using fallback", outcome.Reason)
	}
	return analysis
}

func (e *StoryEngine) notifyStarted(ev ChapterEvent) {
	if e.OnChapterStarted != nil {
		e.OnChapterStarted(ev)
	}
}

func (e *StoryEngine) notifyCompleted(ev ChapterEvent) {
	if e.OnChapterCompleted != nil {
		e.OnChapterCompleted(ev)
	}
}

// chapterTitle extracts the title from a "## Chapter N: <title>" heading on
// the first non-empty line, or returns empty when the model ignored the
// heading mandate.
func chapterTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "##") {
			return ""
		}
		heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if idx := strings.Index(heading, ":"); idx != -1 {
			return strings.TrimSpace(heading[idx+1:])
		}
		return heading
	}
	return ""
}
