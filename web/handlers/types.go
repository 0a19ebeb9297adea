// Package handlers implements the HTTP API for Illude: story lifecycle,
// chapter generation, community listings, bookmarks, and the websocket
// progress feed.
package handlers

import "github.com/illude/illude/pkg/types"

// ErrorResponse is the standard error response format for the API.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// InitStoryRequest is the request body for POST /api/stories/init.
type InitStoryRequest struct {
	Story types.Story `json:"story"`
}

// InitStoryResponse is the response for POST /api/stories/init.
type InitStoryResponse struct {
	Chapter string       `json:"chapter"`
	Story   *types.Story `json:"story"`
	StoryID string       `json:"storyId"`
}

// GenerateChapterRequest is the request body for POST /api/stories/{id}/chapters.
type GenerateChapterRequest struct {
	UserDirection string `json:"userDirection"`
	GenerateType  string `json:"generateType"` // "ai" or "user-directed"
}

// GenerateChapterResponse is the response for POST /api/stories/{id}/chapters.
type GenerateChapterResponse struct {
	Chapter *types.Chapter `json:"chapter"`
	Story   *types.Story   `json:"story"`
	Message string         `json:"message"`
}

// StoryListResponse is the response for story listing endpoints.
type StoryListResponse struct {
	Stories []types.StorySummary `json:"stories"`
	Total   int                  `json:"total"`
}

// BookmarkRequest is the request body for POST /api/user/bookmarks.
type BookmarkRequest struct {
	StoryID string `json:"storyId"`
	Action  string `json:"action"` // "add" or "remove"
}

// BookmarkResponse is the response for POST /api/user/bookmarks.
type BookmarkResponse struct {
	Success       bool `json:"success"`
	Bookmarked    bool `json:"bookmarked"`
	BookmarkCount int  `json:"bookmarkCount"`
}

// BookmarkListResponse is the response for GET /api/user/bookmarks.
type BookmarkListResponse struct {
	Bookmarks         []string             `json:"bookmarks"`
	BookmarkedStories []types.StorySummary `json:"bookmarkedStories"`
}

// ProfileResponse is the response for GET /api/user/profile.
type ProfileResponse struct {
	User *types.User `json:"user"`
}

// UpdateProfileRequest is the request body for PUT /api/user/profile.
type UpdateProfileRequest struct {
	Name         string `json:"name"`
	ProfilePhoto string `json:"profilePhoto"`
}

// HealthResponse is the response for GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
