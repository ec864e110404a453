package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

const scheduleColumns = `id, session_id, proposed_time, proposed_location, notes, status,
                         reject_reason, seeker_confirmed, finder_confirmed, created_at, updated_at`

func scanSchedule(row interface{ Scan(...any) error }) (*model.Schedule, error) {
	s := &model.Schedule{}
	err := row.Scan(&s.ID, &s.SessionID, &s.ProposedTime, &s.ProposedLocation, &s.Notes,
		&s.Status, &s.RejectReason, &s.SeekerConfirmed, &s.FinderConfirmed,
		&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetScheduleBySession returns the session's return schedule, or nil.
// A session has at most one schedule row at a time.
func GetScheduleBySession(ctx context.Context, db *sql.DB, sessionID int64) (*model.Schedule, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE session_id = ?`, sessionID,
	)
	s, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting schedule: %w", err)
	}
	return s, nil
}

// UpsertScheduleProposal records a new pending proposal for the session.
// A previous rejected proposal is overwritten in place and its rejection
// reason and confirmation flags are cleared.
func UpsertScheduleProposal(ctx context.Context, db *sql.DB, sessionID int64, proposedTime time.Time, location, notes string) (*model.Schedule, error) {
	_, err := db.ExecContext(ctx,
		`INSERT INTO schedules (session_id, proposed_time, proposed_location, notes)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET
		     proposed_time = excluded.proposed_time,
		     proposed_location = excluded.proposed_location,
		     notes = excluded.notes,
		     status = 'pending',
		     reject_reason = '',
		     seeker_confirmed = 0,
		     finder_confirmed = 0,
		     updated_at = CURRENT_TIMESTAMP`,
		sessionID, proposedTime.UTC(), location, notes,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting schedule proposal: %w", err)
	}

	return GetScheduleBySession(ctx, db, sessionID)
}

// ApproveSchedule marks the session's pending proposal approved.
func ApproveSchedule(ctx context.Context, db *sql.DB, sessionID int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE schedules SET status = 'approved', updated_at = CURRENT_TIMESTAMP
		 WHERE session_id = ? AND status = 'pending'`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("approving schedule: %w", err)
	}
	return nil
}

// RejectSchedule marks the session's pending proposal rejected with a reason.
func RejectSchedule(ctx context.Context, db *sql.DB, sessionID int64, reason string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE schedules SET status = 'rejected', reject_reason = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE session_id = ? AND status = 'pending'`,
		reason, sessionID,
	)
	if err != nil {
		return fmt.Errorf("rejecting schedule: %w", err)
	}
	return nil
}

// SetScheduleReturnConfirmed records one party's return confirmation on the schedule.
func SetScheduleReturnConfirmed(ctx context.Context, db *sql.DB, sessionID int64, seeker bool, returned bool) error {
	column := "finder_confirmed"
	if seeker {
		column = "seeker_confirmed"
	}
	_, err := db.ExecContext(ctx,
		`UPDATE schedules SET `+column+` = ?, updated_at = CURRENT_TIMESTAMP WHERE session_id = ?`,
		returned, sessionID,
	)
	if err != nil {
		return fmt.Errorf("setting schedule return confirmation: %w", err)
	}
	return nil
}

// DeleteScheduleForSession removes the session's schedule row, if any.
func DeleteScheduleForSession(ctx context.Context, db *sql.DB, sessionID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM schedules WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	return nil
}
