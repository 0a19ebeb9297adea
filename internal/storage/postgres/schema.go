// Package postgres provides PostgreSQL implementations of the storage interfaces.
package postgres

// Schema contains the SQL statements to create the database schema for
// PostgreSQL. Bible and memory documents are JSONB; scalar columns serve
// list filtering and sorting.
const Schema = `
CREATE TABLE IF NOT EXISTS stories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'draft',

    owner_id TEXT NOT NULL DEFAULT '',
    owner_email TEXT NOT NULL DEFAULT '',
    owner_name TEXT NOT NULL DEFAULT '',

    bible JSONB NOT NULL,
    memory JSONB NOT NULL,

    chapter_count INTEGER NOT NULL DEFAULT 0,

    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS chapters (
    story_id TEXT NOT NULL REFERENCES stories(id) ON DELETE CASCADE,
    chapter_number INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    user_direction TEXT NOT NULL DEFAULT '',
    ai_summary TEXT NOT NULL DEFAULT '',

    key_events JSONB NOT NULL DEFAULT '[]',
    characters_involved JSONB NOT NULL DEFAULT '[]',
    new_plot_points JSONB NOT NULL DEFAULT '[]',

    created_at TIMESTAMPTZ NOT NULL,

    PRIMARY KEY (story_id, chapter_number)
);

CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    profile_photo TEXT NOT NULL DEFAULT '',

    bookmarks JSONB NOT NULL DEFAULT '[]',
    created_stories JSONB NOT NULL DEFAULT '[]',

    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_stories_owner ON stories(owner_id);
CREATE INDEX IF NOT EXISTS idx_stories_status ON stories(status);
CREATE INDEX IF NOT EXISTS idx_stories_updated ON stories(updated_at);
`
