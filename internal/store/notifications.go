package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// CreateNotification writes a notification to a user's inbox.
func CreateNotification(ctx context.Context, db *sql.DB, userID int64, kind, title, message string, sessionID *int64) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (user_id, kind, title, message, session_id)
		 VALUES (?, ?, ?, ?, ?)`,
		userID, kind, title, message, sessionID,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's notifications, newest first.
func ListNotifications(ctx context.Context, db *sql.DB, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, user_id, kind, title, message, session_id, read, created_at
	          FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Title, &n.Message, &n.SessionID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a user's notification as read. Returns false if
// the notification does not exist or belongs to another user.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id, userID int64) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return n > 0, nil
}

// DeleteNotificationsForSession removes all notifications tied to a session.
func DeleteNotificationsForSession(ctx context.Context, db *sql.DB, sessionID int64) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM notifications WHERE session_id = ?`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("deleting session notifications: %w", err)
	}
	return nil
}
