package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

const sessionColumns = `id, lost_item_id, found_item_id, status, match_score,
                        seeker_confirmed, finder_confirmed, created_at, completed_at`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(&s.ID, &s.LostItemID, &s.FoundItemID, &s.Status, &s.MatchScore,
		&s.SeekerConfirmed, &s.FinderConfirmed, &s.CreatedAt, &s.CompletedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CreateSession creates a negotiation session in the active state.
func CreateSession(ctx context.Context, db *sql.DB, lostItemID, foundItemID int64, matchScore float64) (*model.Session, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO sessions (lost_item_id, found_item_id, match_score) VALUES (?, ?, ?)`,
		lostItemID, foundItemID, matchScore,
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting session id: %w", err)
	}

	return GetSession(ctx, db, id)
}

// GetSession returns a session by ID.
func GetSession(ctx context.Context, db *sql.DB, id int64) (*model.Session, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id,
	)
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return s, nil
}

// ListSessionsForUser returns sessions the user took part in, newest first.
// Closed sessions whose items were purged stay visible through the
// notifications that were sent about them.
func ListSessionsForUser(ctx context.Context, db *sql.DB, userID int64) ([]model.Session, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s
		 WHERE EXISTS (SELECT 1 FROM items i
		               WHERE i.id IN (s.lost_item_id, s.found_item_id) AND i.owner_id = ?)
		    OR EXISTS (SELECT 1 FROM notifications n
		               WHERE n.session_id = s.id AND n.user_id = ?)
		 ORDER BY s.created_at DESC, s.id DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// ListSessionsForItem returns all sessions referencing the item.
func ListSessionsForItem(ctx context.Context, db *sql.DB, itemID int64) ([]model.Session, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE lost_item_id = ? OR found_item_id = ? ORDER BY id`,
		itemID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions for item: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// SessionVisibleToUser reports whether the user owns one of the session's
// items or was notified about the session.
func SessionVisibleToUser(ctx context.Context, db *sql.DB, sessionID, userID int64) (bool, error) {
	var visible bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions s
		                JOIN items i ON i.id IN (s.lost_item_id, s.found_item_id)
		                WHERE s.id = ? AND i.owner_id = ?)
		     OR EXISTS (SELECT 1 FROM notifications WHERE session_id = ? AND user_id = ?)`,
		sessionID, userID, sessionID, userID,
	).Scan(&visible)
	if err != nil {
		return false, fmt.Errorf("checking session visibility: %w", err)
	}
	return visible, nil
}

// CountLiveSessionsForItem counts sessions that still hold the item.
func CountLiveSessionsForItem(ctx context.Context, db *sql.DB, itemID int64) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sessions
		 WHERE (lost_item_id = ? OR found_item_id = ?)
		   AND status IN ('active', 'pending_confirm', 'confirmed', 'schedule_pending', 'waiting_return')`,
		itemID, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting live sessions: %w", err)
	}
	return count, nil
}

// SetSessionStatus sets a session's status. If completed is true the
// completion timestamp is closed as well.
func SetSessionStatus(ctx context.Context, db *sql.DB, id int64, status string, completed bool) error {
	var err error
	if completed {
		_, err = db.ExecContext(ctx,
			`UPDATE sessions SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`,
			status, id,
		)
	} else {
		_, err = db.ExecContext(ctx,
			`UPDATE sessions SET status = ? WHERE id = ?`, status, id,
		)
	}
	if err != nil {
		return fmt.Errorf("setting session status: %w", err)
	}
	return nil
}

// SetSessionConfirmed records one party's tri-state ownership confirmation.
func SetSessionConfirmed(ctx context.Context, db *sql.DB, id int64, seeker bool, confirmed bool) error {
	column := "finder_confirmed"
	if seeker {
		column = "seeker_confirmed"
	}
	_, err := db.ExecContext(ctx,
		`UPDATE sessions SET `+column+` = ? WHERE id = ?`, confirmed, id,
	)
	if err != nil {
		return fmt.Errorf("setting session confirmation: %w", err)
	}
	return nil
}

// ResetSessionConfirmations clears both ownership confirmations back to
// undecided, used when a session is reopened.
func ResetSessionConfirmations(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sessions SET seeker_confirmed = NULL, finder_confirmed = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("resetting session confirmations: %w", err)
	}
	return nil
}

// ClearSessionItems nulls out a session's item references so the items can be
// deleted without leaving dangling foreign keys.
func ClearSessionItems(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sessions SET lost_item_id = NULL, found_item_id = NULL WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("clearing session items: %w", err)
	}
	return nil
}

// DeleteSession removes a session and its transcript.
func DeleteSession(ctx context.Context, db *sql.DB, id int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM session_turns WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting session turns: %w", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// AppendTurn appends a turn to a session's transcript, assigning the next
// sequence number.
func AppendTurn(ctx context.Context, db *sql.DB, sessionID int64, sender, action, content string) (*model.Turn, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO session_turns (session_id, seq, sender, action, content)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM session_turns WHERE session_id = ?), ?, ?, ?)`,
		sessionID, sessionID, sender, action, content,
	)
	if err != nil {
		return nil, fmt.Errorf("appending turn: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting turn id: %w", err)
	}

	t := &model.Turn{}
	err = db.QueryRowContext(ctx,
		`SELECT id, session_id, seq, sender, action, content, created_at
		 FROM session_turns WHERE id = ?`, id,
	).Scan(&t.ID, &t.SessionID, &t.Seq, &t.Sender, &t.Action, &t.Content, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("getting turn: %w", err)
	}
	return t, nil
}

// ListTurns returns a session's transcript in order.
func ListTurns(ctx context.Context, db *sql.DB, sessionID int64) ([]model.Turn, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, session_id, seq, sender, action, content, created_at
		 FROM session_turns WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var t model.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Seq, &t.Sender, &t.Action, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}
