package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/illude/illude/internal/auth"
	"github.com/illude/illude/internal/storage"
	"github.com/illude/illude/pkg/types"
)

// UserHandler serves profile and bookmark endpoints.
type UserHandler struct {
	users   storage.UserStore
	stories storage.StoryStore
}

// NewUserHandler creates a user handler.
func NewUserHandler(users storage.UserStore, stories storage.StoryStore) *UserHandler {
	return &UserHandler{users: users, stories: stories}
}

// getOrCreateUser loads the session user's record, creating it on first use.
func (h *UserHandler) getOrCreateUser(r *http.Request, session *auth.Session) (*types.User, error) {
	user, err := h.users.GetUser(r.Context(), session.UserID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	user = &types.User{
		ID:             session.UserID,
		Email:          session.Email,
		Name:           session.Name,
		Bookmarks:      []string{},
		CreatedStories: []string{},
	}
	if err := h.users.UpsertUser(r.Context(), user); err != nil {
		return nil, err
	}
	return user, nil
}

// GetProfile handles GET /api/user/profile. The created-stories list is
// refreshed from the story store on every read.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	user, err := h.getOrCreateUser(r, session)
	if err != nil {
		respondStorageError(w, "Failed to load profile", err)
		return
	}

	owned, err := h.stories.ListStories(r.Context(), storage.ListOptions{OwnerID: session.UserID})
	if err != nil {
		respondStorageError(w, "Failed to load profile", err)
		return
	}
	created := make([]string, 0, len(owned))
	for _, s := range owned {
		created = append(created, s.ID)
	}
	user.CreatedStories = created
	if err := h.users.UpsertUser(r.Context(), user); err != nil {
		respondStorageError(w, "Failed to save profile", err)
		return
	}

	respondJSON(w, http.StatusOK, ProfileResponse{User: user})
}

// UpdateProfile handles PUT /api/user/profile.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	user, err := h.getOrCreateUser(r, session)
	if err != nil {
		respondStorageError(w, "Failed to load profile", err)
		return
	}

	if req.Name != "" {
		user.Name = req.Name
	}
	if req.ProfilePhoto != "" {
		user.ProfilePhoto = req.ProfilePhoto
	}

	if err := h.users.UpsertUser(r.Context(), user); err != nil {
		respondStorageError(w, "Failed to update profile", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user":    user,
		"message": "Profile updated successfully",
	})
}

// ListBookmarks handles GET /api/user/bookmarks: the bookmark ID list plus
// summaries of the bookmarked stories, newest first.
func (h *UserHandler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	user, err := h.users.GetUser(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respondJSON(w, http.StatusOK, BookmarkListResponse{
				Bookmarks:         []string{},
				BookmarkedStories: []types.StorySummary{},
			})
			return
		}
		respondStorageError(w, "Failed to fetch bookmarks", err)
		return
	}

	summaries := []types.StorySummary{}
	for _, storyID := range user.Bookmarks {
		story, err := h.stories.GetStory(r.Context(), storyID)
		if err != nil {
			// Bookmarked story deleted since; skip it.
			continue
		}
		summaries = append(summaries, types.StorySummary{
			ID:           story.ID,
			Title:        story.Title,
			Description:  story.Description,
			OwnerID:      story.OwnerID,
			OwnerEmail:   story.OwnerEmail,
			OwnerName:    story.OwnerName,
			Status:       story.Status,
			ChapterCount: len(story.Chapters),
			CreatedAt:    story.CreatedAt,
			LastUpdated:  story.LastUpdated,
		})
	}

	respondJSON(w, http.StatusOK, BookmarkListResponse{
		Bookmarks:         user.Bookmarks,
		BookmarkedStories: summaries,
	})
}

// ManageBookmark handles POST /api/user/bookmarks: add or remove a bookmark.
func (h *UserHandler) ManageBookmark(w http.ResponseWriter, r *http.Request) {
	session := auth.SessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}

	var req BookmarkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.StoryID == "" || req.Action == "" {
		respondError(w, http.StatusBadRequest, "Missing storyId or action", nil)
		return
	}
	if req.Action != "add" && req.Action != "remove" {
		respondError(w, http.StatusBadRequest, "action must be \"add\" or \"remove\"", nil)
		return
	}

	if _, err := h.stories.GetStory(r.Context(), req.StoryID); err != nil {
		respondStorageError(w, "Story not found", err)
		return
	}

	user, err := h.getOrCreateUser(r, session)
	if err != nil {
		respondStorageError(w, "Failed to load profile", err)
		return
	}

	if req.Action == "add" {
		user.AddBookmark(req.StoryID)
	} else {
		user.RemoveBookmark(req.StoryID)
	}

	if err := h.users.UpsertUser(r.Context(), user); err != nil {
		respondStorageError(w, "Failed to save bookmark", err)
		return
	}

	respondJSON(w, http.StatusOK, BookmarkResponse{
		Success:       true,
		Bookmarked:    req.Action == "add",
		BookmarkCount: len(user.Bookmarks),
	})
}
