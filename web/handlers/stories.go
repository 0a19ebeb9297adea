package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/illude/illude/internal/auth"
	"github.com/illude/illude/internal/engine"
	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

// StoryHandler serves the story lifecycle endpoints.
type StoryHandler struct {
	stories storage.StoryStore
	users   storage.UserStore
	engine  *engine.StoryEngine
}

// NewStoryHandler creates a story handler.
func NewStoryHandler(stories storage.StoryStore, users storage.UserStore, eng *engine.StoryEngine) *StoryHandler {
	return &StoryHandler{stories: stories, users: users, engine: eng}
}

// setOwner stamps the session identity onto the story.
func setOwner(story *types.Story, session *auth.Session) {
	story.OwnerID = session.UserID
	story.OwnerEmail = session.Email
	story.OwnerName = session.Name
}

// InitStory handles POST /api/stories/init: create a story and generate its
// opening chapter in one request.
func (h *StoryHandler) InitStory(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req InitStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	story := req.Story
	setOwner(&story, session)

	saved, err := h.engine.InitializeStory(r.Context(), &story)
	if err != nil {
		respondStorageError(w, "Failed to create story", err)
		return
	}

	h.recordCreatedStory(r, session, saved.ID)

	respondJSON(w, http.StatusOK, InitStoryResponse{
		Chapter: saved.Chapters[0].Content,
		Story:   saved,
		StoryID: saved.ID,
	})
}

// CreateStory handles POST /api/stories: create a draft story with no
// chapters. The memory is seeded from the bible; generation happens later.
func (h *StoryHandler) CreateStory(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req InitStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	story := req.Story
	setOwner(&story, session)
	story.Chapters = nil
	story.Memory = types.NewStoryMemory(story.Characters, story.Conflict)
	story.Status = types.StatusDraft

	if err := h.stories.CreateStory(r.Context(), &story); err != nil {
		respondStorageError(w, "Failed to create story", err)
		return
	}

	h.recordCreatedStory(r, session, story.ID)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"story":   &story,
		"message": "Story created successfully",
	})
}

// recordCreatedStory appends the story to the session user's created list.
// Best effort: a failure here never fails the story request.
func (h *StoryHandler) recordCreatedStory(r *http.Request, session *auth.Session, storyID string) {
	user, err := h.users.GetUser(r.Context(), session.UserID)
	if err != nil {
		user = &types.User{
			ID:    session.UserID,
			Email: session.Email,
			Name:  session.Name,
		}
	}
	user.CreatedStories = append(user.CreatedStories, storyID)
	_ = h.users.UpsertUser(r.Context(), user)
}

// ListStories handles GET /api/stories. With ?mine=true the listing is
// restricted to the session user's stories; status, search, limit, and
// offset query parameters filter further.
func (h *StoryHandler) ListStories(w http.ResponseWriter, r *http.Request) {
	opts := storage.ListOptions{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  parseInt(r.URL.Query().Get("limit"), 0),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
		SortBy: r.URL.Query().Get("sort"),
	}

	if r.URL.Query().Get("mine") == "true" {
		session := auth.SessionFromContext(r.Context())
		if session == nil {
			respondError(w, http.StatusUnauthorized, "Authentication required", nil)
			return
		}
		opts.OwnerID = session.UserID
	}

	stories, err := h.stories.ListStories(r.Context(), opts)
	if err != nil {
		respondStorageError(w, "Failed to fetch stories", err)
		return
	}

	respondJSON(w, http.StatusOK, StoryListResponse{Stories: stories, Total: len(stories)})
}

// CommunityStories handles GET /api/community-stories: all stories with
// owner attribution, newest first.
func (h *StoryHandler) CommunityStories(w http.ResponseWriter, r *http.Request) {
	stories, err := h.stories.ListStories(r.Context(), storage.ListOptions{
		Limit:  parseInt(r.URL.Query().Get("limit"), 0),
		Offset: parseInt(r.URL.Query().Get("offset"), 0),
	})
	if err != nil {
		respondStorageError(w, "Failed to fetch community stories", err)
		return
	}

	respondJSON(w, http.StatusOK, StoryListResponse{Stories: stories, Total: len(stories)})
}

// GetStory handles GET /api/stories/{id}.
func (h *StoryHandler) GetStory(w http.ResponseWriter, r *http.Request) {
	id := extractID(r, "id")

	story, err := h.stories.GetStory(r.Context(), id)
	if err != nil {
		respondStorageError(w, "Story not found", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"story": story})
}

// UpdateStory handles PUT /api/stories/{id}: replace the story's bible and
// status. Only the owner may update.
func (h *StoryHandler) UpdateStory(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	id := extractID(r, "id")

	existing, err := h.stories.GetStory(r.Context(), id)
	if err != nil {
		respondStorageError(w, "Story not found", err)
		return
	}
	if existing.OwnerID != "" && existing.OwnerID != session.UserID {
		respondError(w, http.StatusForbidden, "Not the story owner", nil)
		return
	}

	var req InitStoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated := req.Story
	updated.ID = id
	updated.OwnerID = existing.OwnerID
	updated.OwnerEmail = existing.OwnerEmail
	updated.OwnerName = existing.OwnerName
	if updated.Status == "" {
		updated.Status = existing.Status
	}

	if err := h.stories.UpdateStory(r.Context(), &updated); err != nil {
		respondStorageError(w, "Failed to update story", err)
		return
	}

	story, err := h.stories.GetStory(r.Context(), id)
	if err != nil {
		respondStorageError(w, "Failed to load updated story", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"story":   story,
		"message": "Story updated successfully",
	})
}

// DeleteStory handles DELETE /api/stories/{id}. Only the owner may delete.
func (h *StoryHandler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	id := extractID(r, "id")

	existing, err := h.stories.GetStory(r.Context(), id)
	if err != nil {
		respondStorageError(w, "Story not found", err)
		return
	}
	if existing.OwnerID != "" && existing.OwnerID != session.UserID {
		respondError(w, http.StatusForbidden, "Not the story owner", nil)
		return
	}

	if err := h.stories.DeleteStory(r.Context(), id); err != nil {
		respondStorageError(w, "Failed to delete story", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Story deleted successfully",
	})
}
