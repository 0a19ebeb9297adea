package types

import "time"

// User is an account record: identity from the external session provider
// plus the user's bookmarks and created-story references.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Name           string    `json:"name,omitempty"`
	ProfilePhoto   string    `json:"profilePhoto,omitempty"`
	Bookmarks      []string  `json:"bookmarks"`
	CreatedStories []string  `json:"createdStories"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HasBookmark reports whether the user has bookmarked the given story.
func (u *User) HasBookmark(storyID string) bool {
	for _, id := range u.Bookmarks {
		if id == storyID {
			return true
		}
	}
	return false
}

// AddBookmark appends storyID to the user's bookmarks if not already present.
func (u *User) AddBookmark(storyID string) {
	if !u.HasBookmark(storyID) {
		u.Bookmarks = append(u.Bookmarks, storyID)
	}
}

// RemoveBookmark removes storyID from the user's bookmarks.
func (u *User) RemoveBookmark(storyID string) {
	filtered := u.Bookmarks[:0]
	for _, id := range u.Bookmarks {
		if id != storyID {
			filtered = append(filtered, id)
		}
	}
	u.Bookmarks = filtered
}
