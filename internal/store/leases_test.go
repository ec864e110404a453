package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestAcquireAndReleaseLeases(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	if err := AcquireLeases(ctx, database, session.ID, lost.ID, found.ID, time.Minute); err != nil {
		t.Fatalf("AcquireLeases: %v", err)
	}

	for _, id := range []int64{lost.ID, found.ID} {
		item, _ := GetItem(ctx, database, id)
		if item.Status != model.ItemStatusNegotiating {
			t.Errorf("expected item %d negotiating, got %q", id, item.Status)
		}
		lease, _ := GetLease(ctx, database, id)
		if lease == nil || lease.SessionID != session.ID {
			t.Errorf("expected lease held by session %d, got %+v", session.ID, lease)
		}
	}

	if err := ReleaseLeases(ctx, database, session.ID, model.ItemStatusOpen); err != nil {
		t.Fatalf("ReleaseLeases: %v", err)
	}
	item, _ := GetItem(ctx, database, lost.ID)
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected item open after release, got %q", item.Status)
	}
	if lease, _ := GetLease(ctx, database, lost.ID); lease != nil {
		t.Error("expected lease to be dropped")
	}
}

func TestAcquireLeasesRefusesHeldItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, finderID, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	if err := AcquireLeases(ctx, database, session.ID, lost.ID, found.ID, time.Minute); err != nil {
		t.Fatalf("AcquireLeases: %v", err)
	}

	// A second session must not be able to grab the same found item.
	otherSeeker := testUser(t, database, "other-seeker")
	otherLost, _ := CreateItem(ctx, database, otherSeeker, model.TypeLost, "Headphones", "", "")
	_ = finderID
	second, _ := CreateSession(ctx, database, otherLost.ID, found.ID, 0.5)
	if err := AcquireLeases(ctx, database, second.ID, otherLost.ID, found.ID, time.Minute); err == nil {
		t.Fatal("expected second acquisition of a held item to fail")
	}

	// The failed acquisition must not have locked the other lost item.
	item, _ := GetItem(ctx, database, otherLost.ID)
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected failed acquisition to roll back, item status %q", item.Status)
	}
}

func TestReapExpiredLeases(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	// A lease that expired in the past, as left behind by a crashed run.
	if err := AcquireLeases(ctx, database, session.ID, lost.ID, found.ID, -time.Minute); err != nil {
		t.Fatalf("AcquireLeases: %v", err)
	}

	reclaimed, err := ReapExpiredLeases(ctx, database)
	if err != nil {
		t.Fatalf("ReapExpiredLeases: %v", err)
	}
	if reclaimed != 2 {
		t.Errorf("expected 2 reclaimed items, got %d", reclaimed)
	}

	item, _ := GetItem(ctx, database, lost.ID)
	if item.Status != model.ItemStatusOpen {
		t.Errorf("expected orphaned item to revert to open, got %q", item.Status)
	}
	got, _ := GetSession(ctx, database, session.ID)
	if got.Status != model.SessionFailed {
		t.Errorf("expected orphaned session to fail, got %q", got.Status)
	}
}

func TestExtendLeases(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	AcquireLeases(ctx, database, session.ID, lost.ID, found.ID, time.Second)
	before, _ := GetLease(ctx, database, lost.ID)

	if err := ExtendLeases(ctx, database, session.ID, time.Hour); err != nil {
		t.Fatalf("ExtendLeases: %v", err)
	}
	after, _ := GetLease(ctx, database, lost.ID)
	if !after.ExpiresAt.After(before.ExpiresAt) {
		t.Error("expected lease expiry to move forward")
	}
}
