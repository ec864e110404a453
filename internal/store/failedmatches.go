package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// RecordFailedMatch writes a permanent exclusion for a lost/found pair.
func RecordFailedMatch(ctx context.Context, db *sql.DB, lostItemID, foundItemID int64, sessionID *int64, reason string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO failed_matches (lost_item_id, found_item_id, session_id, reason)
		 VALUES (?, ?, ?, ?)`,
		lostItemID, foundItemID, sessionID, reason,
	)
	if err != nil {
		return fmt.Errorf("recording failed match: %w", err)
	}
	return nil
}

// HasFailedMatch reports whether the pair has ever been excluded.
func HasFailedMatch(ctx context.Context, db *sql.DB, lostItemID, foundItemID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM failed_matches WHERE lost_item_id = ? AND found_item_id = ?`,
		lostItemID, foundItemID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking failed match: %w", err)
	}
	return count > 0, nil
}

// ListFailedMatches returns all exclusions recorded against a lost item.
func ListFailedMatches(ctx context.Context, db *sql.DB, lostItemID int64) ([]model.FailedMatch, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, lost_item_id, found_item_id, session_id, reason, created_at
		 FROM failed_matches WHERE lost_item_id = ? ORDER BY id`,
		lostItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing failed matches: %w", err)
	}
	defer rows.Close()

	var matches []model.FailedMatch
	for rows.Next() {
		var m model.FailedMatch
		if err := rows.Scan(&m.ID, &m.LostItemID, &m.FoundItemID, &m.SessionID, &m.Reason, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning failed match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// DeleteFailedMatchesForPair removes the exclusion history of one pair.
// Used by the seeker's forced override so the pair isn't re-excluded.
func DeleteFailedMatchesForPair(ctx context.Context, db *sql.DB, lostItemID, foundItemID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM failed_matches WHERE lost_item_id = ? AND found_item_id = ?`,
		lostItemID, foundItemID,
	)
	if err != nil {
		return fmt.Errorf("deleting failed matches for pair: %w", err)
	}
	return nil
}

// DeleteFailedMatchesForItem removes all exclusion rows touching an item,
// on either side of the pair.
func DeleteFailedMatchesForItem(ctx context.Context, db *sql.DB, itemID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM failed_matches WHERE lost_item_id = ? OR found_item_id = ?`,
		itemID, itemID,
	)
	if err != nil {
		return fmt.Errorf("deleting failed matches for item: %w", err)
	}
	return nil
}
