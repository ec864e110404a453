package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

const itemColumns = `id, owner_id, type, title, description, ai_description, location,
                     status, image_mime, created_at, updated_at`

func scanItem(row interface{ Scan(...any) error }) (*model.Item, error) {
	item := &model.Item{}
	var description, aiDescription, location, imageMime sql.NullString
	err := row.Scan(&item.ID, &item.OwnerID, &item.Type, &item.Title, &description,
		&aiDescription, &location, &item.Status, &imageMime, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.Description = description.String
	item.AIDescription = aiDescription.String
	item.Location = location.String
	item.ImageMime = imageMime.String
	return item, nil
}

// CreateItem creates a new reported item with status open.
func CreateItem(ctx context.Context, db *sql.DB, ownerID int64, itemType, title, description, location string) (*model.Item, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (owner_id, type, title, description, location) VALUES (?, ?, ?, ?, ?)`,
		ownerID, itemType, title, description, location,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items, optionally filtered by type, status and owner.
func ListItems(ctx context.Context, db *sql.DB, itemType, status string, ownerID int64) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if itemType != "" {
		query += ` AND type = ?`
		args = append(args, itemType)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	if ownerID > 0 {
		query += ` AND owner_id = ?`
		args = append(args, ownerID)
	}

	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// ListMatchableFoundItems returns found items that may still be paired with
// the given lost item: open or matching, not owned by the same user, and not
// already recorded as a failed match against it. Ordered by submission for a
// deterministic tie-break downstream.
func ListMatchableFoundItems(ctx context.Context, db *sql.DB, lostItemID, lostOwnerID int64) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE type = 'found'
		   AND status IN ('open', 'matching')
		   AND owner_id != ?
		   AND id NOT IN (SELECT found_item_id FROM failed_matches WHERE lost_item_id = ?)
		 ORDER BY id`,
		lostOwnerID, lostItemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing matchable found items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning found item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItemFields updates an item's user-editable metadata.
func UpdateItemFields(ctx context.Context, db *sql.DB, id int64, title, description, location string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, location = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		title, description, location, id,
	)
	if err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// SetItemStatus sets an item's status unconditionally.
func SetItemStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		status, id,
	)
	if err != nil {
		return fmt.Errorf("setting item status: %w", err)
	}
	return nil
}

// TransitionItemStatus moves an item from one of the expected statuses to the
// target status. Returns false without error if the item was not in any of
// the expected statuses (somebody else got there first).
func TransitionItemStatus(ctx context.Context, db *sql.DB, id int64, from []string, to string) (bool, error) {
	if len(from) == 0 {
		return false, fmt.Errorf("transitioning item status: no source statuses")
	}

	query := `UPDATE items SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status IN (?` +
		repeatPlaceholder(len(from)-1) + `)`
	args := []any{to, id}
	for _, s := range from {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transitioning item status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transitioning item status: %w", err)
	}
	return n > 0, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for range n {
		out += ", ?"
	}
	return out
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}

// SetItemAIDescription stores the machine-generated description for an item.
func SetItemAIDescription(ctx context.Context, db *sql.DB, id int64, description string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET ai_description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		description, id,
	)
	if err != nil {
		return fmt.Errorf("setting item ai description: %w", err)
	}
	return nil
}

// DeleteItem removes an item and its image permanently.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}
