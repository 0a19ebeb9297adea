package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

func newTestStore(t *testing.T) *StoryStore {
	t.Helper()
	store, err := NewStoryStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleStory() *types.Story {
	return &types.Story{
		Title:       "The Hollow Crown",
		Description: "A heist gone wrong",
		Characters: []types.Character{
			{Name: "Mira", Personality: "reckless"},
			{Name: "Dax", Personality: "cautious"},
		},
		Settings:      "The city of Vell",
		Worldbuilding: []string{"guild-run underworld"},
		Rules:         []string{"no magic inside the vault"},
		Plot:          "steal the crown",
		Conflict:      "Mira vs the guild",
		Status:        types.StatusActive,
		OwnerID:       "user-1",
		OwnerEmail:    "mira@example.com",
		OwnerName:     "Mira Author",
		Memory:        types.NewStoryMemory([]types.Character{{Name: "Mira", Personality: "reckless"}}, "Mira vs the guild"),
		Chapters: []types.Chapter{
			{ChapterNumber: 1, Title: "The Heist", Content: "The vault stood open.", CharactersInvolved: []string{"Mira"}},
		},
	}
}

func TestStoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	story := sampleStory()
	require.NoError(t, store.CreateStory(ctx, story))
	require.NotEmpty(t, story.ID)

	got, err := store.GetStory(ctx, story.ID)
	require.NoError(t, err)

	assert.Equal(t, story.Title, got.Title)
	assert.Equal(t, story.Description, got.Description)
	assert.Equal(t, story.Characters, got.Characters)
	assert.Equal(t, story.Settings, got.Settings)
	assert.Equal(t, story.Worldbuilding, got.Worldbuilding)
	assert.Equal(t, story.Rules, got.Rules)
	assert.Equal(t, story.Plot, got.Plot)
	assert.Equal(t, story.Conflict, got.Conflict)
	assert.Equal(t, types.StatusActive, got.Status)
	assert.Equal(t, "user-1", got.OwnerID)

	require.Len(t, got.Chapters, 1)
	assert.Equal(t, 1, got.Chapters[0].ChapterNumber)
	assert.Equal(t, "The Heist", got.Chapters[0].Title)
	assert.Equal(t, []string{"Mira"}, got.Chapters[0].CharactersInvolved)

	require.Len(t, got.Memory.CharacterArcs, 1)
	assert.Equal(t, "reckless", got.Memory.CharacterArcs[0].CurrentState)
	assert.Equal(t, []string{"Mira vs the guild"}, got.Memory.Conflicts)
}

func TestGetStoryNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetStory(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateStoryRequiresTitle(t *testing.T) {
	store := newTestStore(t)
	err := store.CreateStory(context.Background(), &types.Story{})
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUpdateStory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	story := sampleStory()
	require.NoError(t, store.CreateStory(ctx, story))

	story.Title = "The Hollow Crown, Revised"
	story.Status = types.StatusCompleted
	story.Rules = append(story.Rules, "the crown must never leave Vell")
	require.NoError(t, store.UpdateStory(ctx, story))

	got, err := store.GetStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, "The Hollow Crown, Revised", got.Title)
	assert.Equal(t, types.StatusCompleted, got.Status)
	assert.Len(t, got.Rules, 2)
	// Chapters untouched by a bible update.
	assert.Len(t, got.Chapters, 1)
}

func TestUpdateStoryNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.UpdateStory(context.Background(), &types.Story{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteStoryCascadesChapters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	story := sampleStory()
	require.NoError(t, store.CreateStory(ctx, story))
	require.NoError(t, store.DeleteStory(ctx, story.ID))

	_, err := store.GetStory(ctx, story.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	var count int
	require.NoError(t, store.db.QueryRow(`SELECT COUNT(*) FROM chapters`).Scan(&count))
	assert.Zero(t, count)
}

func TestAppendChapter(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	story := sampleStory()
	story.Status = types.StatusDraft
	require.NoError(t, store.CreateStory(ctx, story))

	memory := story.Memory
	memory.PlotPoints = append(memory.PlotPoints, "the crown is hollow")

	chapter := types.Chapter{
		ChapterNumber: 2,
		Title:         "The Drop",
		Content:       "Mira let go.",
		AISummary:     "Mira escapes",
	}
	require.NoError(t, store.AppendChapter(ctx, story.ID, 1, chapter, memory))

	got, err := store.GetStory(ctx, story.ID)
	require.NoError(t, err)
	require.Len(t, got.Chapters, 2)
	assert.Equal(t, 2, got.Chapters[1].ChapterNumber)
	assert.Equal(t, types.StatusActive, got.Status)
	assert.Equal(t, []string{"the crown is hollow"}, got.Memory.PlotPoints)
}

func TestAppendChapterConcurrentModification(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	story := sampleStory()
	require.NoError(t, store.CreateStory(ctx, story))

	chapter := types.Chapter{ChapterNumber: 2, Content: "Second chapter."}
	require.NoError(t, store.AppendChapter(ctx, story.ID, 1, chapter, story.Memory))

	// A second writer that also read one chapter loses the race.
	stale := types.Chapter{ChapterNumber: 2, Content: "Conflicting second chapter."}
	err := store.AppendChapter(ctx, story.ID, 1, stale, story.Memory)
	assert.ErrorIs(t, err, storage.ErrConcurrentModification)

	got, _ := store.GetStory(ctx, story.ID)
	assert.Len(t, got.Chapters, 2)
	assert.Equal(t, "Second chapter.", got.Chapters[1].Content)
}

func TestAppendChapterNotFound(t *testing.T) {
	store := newTestStore(t)
	err := store.AppendChapter(context.Background(), "missing", 0,
		types.Chapter{ChapterNumber: 1, Content: "x"}, types.StoryMemory{})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAppendChapterRejectsWrongNumber(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	story := sampleStory()
	require.NoError(t, store.CreateStory(ctx, story))

	err := store.AppendChapter(ctx, story.ID, 1,
		types.Chapter{ChapterNumber: 5, Content: "x"}, story.Memory)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestListStories(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := sampleStory()
	require.NoError(t, store.CreateStory(ctx, first))

	second := sampleStory()
	second.Title = "Another Tale"
	second.OwnerID = "user-2"
	second.Status = types.StatusDraft
	second.Chapters = nil
	require.NoError(t, store.CreateStory(ctx, second))

	all, err := store.ListStories(ctx, storage.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := store.ListStories(ctx, storage.ListOptions{OwnerID: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, 1, mine[0].ChapterCount)

	drafts, err := store.ListStories(ctx, storage.ListOptions{Status: "draft"})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Another Tale", drafts[0].Title)

	search, err := store.ListStories(ctx, storage.ListOptions{Search: "Hollow"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, first.ID, search[0].ID)

	limited, err := store.ListStories(ctx, storage.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestUserStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	users := NewUserStoreWithDB(store.DB())
	ctx := context.Background()

	user := &types.User{
		ID:        "user-1",
		Email:     "mira@example.com",
		Name:      "Mira Author",
		Bookmarks: []string{"story-9"},
	}
	require.NoError(t, users.UpsertUser(ctx, user))

	got, err := users.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "mira@example.com", got.Email)
	assert.Equal(t, []string{"story-9"}, got.Bookmarks)

	// Upsert updates in place.
	user.Name = "M. Author"
	user.Bookmarks = append(user.Bookmarks, "story-10")
	require.NoError(t, users.UpsertUser(ctx, user))

	got, err = users.GetUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "M. Author", got.Name)
	assert.Len(t, got.Bookmarks, 2)
}

func TestUserStoreNotFound(t *testing.T) {
	store := newTestStore(t)
	users := NewUserStoreWithDB(store.DB())
	_, err := users.GetUser(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
