package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/illude/illude/internal/auth"
	"github.com/illude/illude/internal/engine"
	"github.com/illude/illude/internal/llm"
	"github.com/illude/illude/internal/storage"
)

// GenerateChapter handles POST /api/stories/{id}/chapters: run the full
// chapter-continuity pipeline and return the new chapter with the updated
// story. Only the owner may continue a story.
func (h *StoryHandler) GenerateChapter(w http.ResponseWriter, r *http.Request) {
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

	req := GenerateChapterRequest{GenerateType: llm.GenerateModeAI}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}
	if req.GenerateType == "" {
		req.GenerateType = llm.GenerateModeAI
	}
	if req.GenerateType != llm.GenerateModeAI && req.GenerateType != llm.GenerateModeUserDirected {
		respondError(w, http.StatusBadRequest, "generateType must be \"ai\" or \"user-directed\"", nil)
		return
	}

	chapter, story, err := h.engine.GenerateChapter(r.Context(), engine.GenerateRequest{
		StoryID:       id,
		GenerateType:  req.GenerateType,
		UserDirection: req.UserDirection,
	})
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrCircuitOpen):
			respondError(w, http.StatusServiceUnavailable, "Generation backend unavailable", err)
		case errors.Is(err, storage.ErrNotFound),
			errors.Is(err, storage.ErrInvalidInput),
			errors.Is(err, storage.ErrConcurrentModification):
			respondStorageError(w, "Failed to generate chapter", err)
		default:
			// Backend failure detail stays in the server log, not the response.
			log.Printf("chapter generation failed for story %s: %v", id, err)
			respondError(w, http.StatusInternalServerError, "Failed to generate chapter. Please try again.", nil)
		}
		return
	}

	respondJSON(w, http.StatusOK, GenerateChapterResponse{
		Chapter: chapter,
		Story:   story,
		Message: "Chapter generated successfully",
	})
}
