package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

// AcquireLeases atomically locks both items of a session: each item must
// still be matchable, is moved to negotiating, and gets a lease row naming
// the session as its holder. Everything happens in a single transaction so
// an item is never attempted by two sessions at once.
func AcquireLeases(ctx context.Context, db *sql.DB, sessionID, lostItemID, foundItemID int64, ttl time.Duration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	expiresAt := time.Now().Add(ttl).UTC()

	for _, itemID := range []int64{lostItemID, foundItemID} {
		result, err := tx.ExecContext(ctx,
			`UPDATE items SET status = 'negotiating', updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND status IN ('open', 'matching')
			   AND id NOT IN (SELECT item_id FROM item_leases)`,
			itemID,
		)
		if err != nil {
			return fmt.Errorf("locking item %d: %w", itemID, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("locking item %d: %w", itemID, err)
		}
		if n == 0 {
			return fmt.Errorf("item %d is not available", itemID)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO item_leases (item_id, session_id, expires_at) VALUES (?, ?, ?)`,
			itemID, sessionID, expiresAt,
		); err != nil {
			return fmt.Errorf("leasing item %d: %w", itemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing leases: %w", err)
	}
	return nil
}

// ReleaseLeases drops a session's leases and moves the released items to the
// given status. Used on every terminal and rollback path.
func ReleaseLeases(ctx context.Context, db *sql.DB, sessionID int64, itemStatus string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id IN (SELECT item_id FROM item_leases WHERE session_id = ?)`,
		itemStatus, sessionID,
	); err != nil {
		return fmt.Errorf("releasing leased items: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM item_leases WHERE session_id = ?`, sessionID,
	); err != nil {
		return fmt.Errorf("dropping leases: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing lease release: %w", err)
	}
	return nil
}

// ExtendLeases pushes a session's lease expiry forward. Called between
// negotiation turns so a healthy session never loses its items.
func ExtendLeases(ctx context.Context, db *sql.DB, sessionID int64, ttl time.Duration) error {
	_, err := db.ExecContext(ctx,
		`UPDATE item_leases SET expires_at = ? WHERE session_id = ?`,
		time.Now().Add(ttl).UTC(), sessionID,
	)
	if err != nil {
		return fmt.Errorf("extending leases: %w", err)
	}
	return nil
}

// ReapExpiredLeases recovers items orphaned by a session run that died
// mid-negotiation: expired leases are dropped, their items revert to open and
// the holding sessions, if still active, are marked failed. Returns the
// number of reclaimed items.
func ReapExpiredLeases(ctx context.Context, db *sql.DB) (int, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	result, err := tx.ExecContext(ctx,
		`UPDATE items SET status = 'open', updated_at = CURRENT_TIMESTAMP
		 WHERE id IN (SELECT item_id FROM item_leases WHERE expires_at < ?)`,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("reverting orphaned items: %w", err)
	}
	reclaimed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reverting orphaned items: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET status = 'failed', completed_at = CURRENT_TIMESTAMP
		 WHERE status = 'active'
		   AND id IN (SELECT session_id FROM item_leases WHERE expires_at < ?)`,
		now,
	); err != nil {
		return 0, fmt.Errorf("failing orphaned sessions: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM item_leases WHERE expires_at < ?`, now,
	); err != nil {
		return 0, fmt.Errorf("dropping expired leases: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing lease reap: %w", err)
	}
	return int(reclaimed), nil
}

// GetLease returns the lease currently held on an item, or nil.
func GetLease(ctx context.Context, db *sql.DB, itemID int64) (*model.Lease, error) {
	l := &model.Lease{}
	err := db.QueryRowContext(ctx,
		`SELECT item_id, session_id, acquired_at, expires_at FROM item_leases WHERE item_id = ?`,
		itemID,
	).Scan(&l.ItemID, &l.SessionID, &l.AcquiredAt, &l.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting lease: %w", err)
	}
	return l, nil
}
