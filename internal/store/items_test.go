package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

// testUser creates a user for tests and returns its ID.
func testUser(t *testing.T, database *sql.DB, username string) int64 {
	t.Helper()
	u, err := CreateUser(context.Background(), database, username, "hash", username, username+"@example.com")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", username, err)
	}
	return u.ID
}

func TestCreateAndGetItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := testUser(t, database, "ana")

	item, err := CreateItem(ctx, database, owner, model.TypeLost, "Headphones", "Black Sony headphones", "cafeteria")
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Type != model.TypeLost {
		t.Errorf("expected type 'lost', got %q", item.Type)
	}
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected status 'open', got %q", item.Status)
	}
	if item.Location != "cafeteria" {
		t.Errorf("expected location 'cafeteria', got %q", item.Location)
	}

	got, err := GetItem(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got == nil || got.Title != "Headphones" {
		t.Errorf("expected to get item back, got %+v", got)
	}
}

func TestGetItemNotFound(t *testing.T) {
	database := db.NewTestDB(t)

	item, err := GetItem(context.Background(), database, 999)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if item != nil {
		t.Errorf("expected nil for unknown item, got %+v", item)
	}
}

func TestListItemsFilters(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ana := testUser(t, database, "ana")
	bor := testUser(t, database, "bor")

	CreateItem(ctx, database, ana, model.TypeLost, "Umbrella", "", "")
	CreateItem(ctx, database, bor, model.TypeFound, "Umbrella", "", "")
	CreateItem(ctx, database, bor, model.TypeFound, "Wallet", "", "")

	found, err := ListItems(ctx, database, model.TypeFound, "", 0)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("expected 2 found items, got %d", len(found))
	}

	mine, _ := ListItems(ctx, database, "", "", ana)
	if len(mine) != 1 {
		t.Errorf("expected 1 item for ana, got %d", len(mine))
	}
}

func TestListMatchableFoundItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	ana := testUser(t, database, "ana")
	bor := testUser(t, database, "bor")

	lost, _ := CreateItem(ctx, database, ana, model.TypeLost, "Keys", "", "")
	own, _ := CreateItem(ctx, database, ana, model.TypeFound, "Keys", "", "")
	other, _ := CreateItem(ctx, database, bor, model.TypeFound, "Keys", "", "")
	excluded, _ := CreateItem(ctx, database, bor, model.TypeFound, "Key ring", "", "")
	closed, _ := CreateItem(ctx, database, bor, model.TypeFound, "Keychain", "", "")
	SetItemStatus(ctx, database, closed.ID, model.ItemStatusClosed)
	RecordFailedMatch(ctx, database, lost.ID, excluded.ID, nil, "no agreement")

	candidates, err := ListMatchableFoundItems(ctx, database, lost.ID, ana)
	if err != nil {
		t.Fatalf("ListMatchableFoundItems: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(candidates))
	}
	if candidates[0].ID != other.ID {
		t.Errorf("expected candidate %d, got %d", other.ID, candidates[0].ID)
	}
	if candidates[0].ID == own.ID {
		t.Error("same-owner item must not be a candidate")
	}
}

func TestTransitionItemStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := testUser(t, database, "ana")

	item, _ := CreateItem(ctx, database, owner, model.TypeLost, "Phone", "", "")

	ok, err := TransitionItemStatus(ctx, database, item.ID, []string{model.ItemStatusOpen}, model.ItemStatusMatching)
	if err != nil {
		t.Fatalf("TransitionItemStatus: %v", err)
	}
	if !ok {
		t.Fatal("expected open → matching to succeed")
	}

	// A second transition from open must now fail.
	ok, err = TransitionItemStatus(ctx, database, item.ID, []string{model.ItemStatusOpen}, model.ItemStatusMatching)
	if err != nil {
		t.Fatalf("TransitionItemStatus: %v", err)
	}
	if ok {
		t.Error("expected transition from wrong status to report false")
	}
}

func TestItemImageAndAIDescription(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := testUser(t, database, "ana")

	item, _ := CreateItem(ctx, database, owner, model.TypeFound, "Camera", "", "")
	SetItemImage(ctx, database, item.ID, []byte("fake image data"), "image/jpeg")
	SetItemAIDescription(ctx, database, item.ID, "A silver compact camera")

	data, mime, err := GetItemImage(ctx, database, item.ID)
	if err != nil {
		t.Fatalf("GetItemImage: %v", err)
	}
	if string(data) != "fake image data" || mime != "image/jpeg" {
		t.Errorf("unexpected image data %q mime %q", data, mime)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got.AIDescription != "A silver compact camera" {
		t.Errorf("expected ai description to be stored, got %q", got.AIDescription)
	}
}

func TestDeleteItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	owner := testUser(t, database, "ana")

	item, _ := CreateItem(ctx, database, owner, model.TypeLost, "Scarf", "", "")
	if err := DeleteItem(ctx, database, item.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	got, _ := GetItem(ctx, database, item.ID)
	if got != nil {
		t.Errorf("expected item to be gone, got %+v", got)
	}
}
