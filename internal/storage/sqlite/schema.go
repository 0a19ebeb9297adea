// Package sqlite provides SQLite implementations of the storage interfaces.
package sqlite

// Schema contains the SQL statements to create the database schema.
// Bible and memory are stored as JSON documents; the scalar columns exist
// for filtering and sorting list queries without deserializing documents.
const Schema = `
CREATE TABLE IF NOT EXISTS stories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',

    owner_id TEXT NOT NULL DEFAULT '',
    owner_email TEXT NOT NULL DEFAULT '',
    owner_name TEXT NOT NULL DEFAULT '',

    -- Story bible (characters, settings, world systems, plot, conflict) as JSON
    bible TEXT NOT NULL,

    -- Continuity memory as JSON
    memory TEXT NOT NULL,

    chapter_count INTEGER NOT NULL DEFAULT 0,

    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS chapters (
    story_id TEXT NOT NULL,
    chapter_number INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    user_direction TEXT NOT NULL DEFAULT '',
    ai_summary TEXT NOT NULL DEFAULT '',

    -- Analysis extracts as JSON arrays
    key_events TEXT NOT NULL DEFAULT '[]',
    characters_involved TEXT NOT NULL DEFAULT '[]',
    new_plot_points TEXT NOT NULL DEFAULT '[]',

    created_at TIMESTAMP NOT NULL,

    PRIMARY KEY (story_id, chapter_number),
    FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    profile_photo TEXT NOT NULL DEFAULT '',

    -- Story ID lists as JSON arrays
    bookmarks TEXT NOT NULL DEFAULT '[]',
    created_stories TEXT NOT NULL DEFAULT '[]',

    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stories_owner ON stories(owner_id);
CREATE INDEX IF NOT EXISTS idx_stories_status ON stories(status);
CREATE INDEX IF NOT EXISTS idx_stories_updated ON stories(updated_at);
`
