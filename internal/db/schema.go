package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    username      TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    name          TEXT NOT NULL,
    contact_info  TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_username_active
    ON users(username) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS items (
    id             INTEGER PRIMARY KEY,
    owner_id       INTEGER NOT NULL REFERENCES users(id),
    type           TEXT NOT NULL CHECK (type IN ('lost', 'found')),
    title          TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    ai_description TEXT NOT NULL DEFAULT '',
    location       TEXT NOT NULL DEFAULT '',
    status         TEXT NOT NULL DEFAULT 'open'
                   CHECK (status IN ('open', 'matching', 'negotiating', 'matched', 'closed')),
    image          BLOB,
    image_mime     TEXT,
    created_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_items_type_status ON items(type, status);

CREATE TABLE IF NOT EXISTS sessions (
    id               INTEGER PRIMARY KEY,
    lost_item_id     INTEGER REFERENCES items(id) ON DELETE SET NULL,
    found_item_id    INTEGER REFERENCES items(id) ON DELETE SET NULL,
    status           TEXT NOT NULL DEFAULT 'active'
                     CHECK (status IN ('active', 'pending_confirm', 'failed', 'confirmed',
                                       'rejected', 'schedule_pending', 'waiting_return',
                                       'returned', 'return_failed')),
    match_score      REAL NOT NULL DEFAULT 0,
    seeker_confirmed BOOLEAN,
    finder_confirmed BOOLEAN,
    created_at       DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at     DATETIME
);

CREATE TABLE IF NOT EXISTS session_turns (
    id         INTEGER PRIMARY KEY,
    session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    sender     TEXT NOT NULL CHECK (sender IN ('Seeker', 'Finder', 'System')),
    action     TEXT NOT NULL DEFAULT '',
    content    TEXT NOT NULL DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (session_id, seq)
);

CREATE TABLE IF NOT EXISTS failed_matches (
    id            INTEGER PRIMARY KEY,
    lost_item_id  INTEGER NOT NULL,
    found_item_id INTEGER NOT NULL,
    session_id    INTEGER,
    reason        TEXT NOT NULL DEFAULT '',
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_failed_matches_pair
    ON failed_matches(lost_item_id, found_item_id);

CREATE TABLE IF NOT EXISTS item_leases (
    item_id     INTEGER PRIMARY KEY REFERENCES items(id),
    session_id  INTEGER NOT NULL REFERENCES sessions(id),
    acquired_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    expires_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS schedules (
    id                INTEGER PRIMARY KEY,
    session_id        INTEGER NOT NULL UNIQUE REFERENCES sessions(id),
    proposed_time     DATETIME NOT NULL,
    proposed_location TEXT NOT NULL,
    notes             TEXT NOT NULL DEFAULT '',
    status            TEXT NOT NULL DEFAULT 'pending'
                      CHECK (status IN ('pending', 'approved', 'rejected')),
    reject_reason     TEXT NOT NULL DEFAULT '',
    seeker_confirmed  BOOLEAN NOT NULL DEFAULT 0,
    finder_confirmed  BOOLEAN NOT NULL DEFAULT 0,
    created_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at        DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS notifications (
    id         INTEGER PRIMARY KEY,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    kind       TEXT NOT NULL CHECK (kind IN ('match_found', 'confirm_request', 'schedule',
                                             'no_match', 'negotiation_update')),
    title      TEXT NOT NULL,
    message    TEXT NOT NULL DEFAULT '',
    session_id INTEGER,
    read       BOOLEAN NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, read);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// EnsureSchema creates all tables and indexes if they don't already exist.
func EnsureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
