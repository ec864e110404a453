package store

import (
	"context"
	"testing"

	"github.com/erazemk/najdeno/internal/db"
)

func TestRecordAndCheckFailedMatch(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	if err := RecordFailedMatch(ctx, database, lost.ID, found.ID, &session.ID, "agents rejected"); err != nil {
		t.Fatalf("RecordFailedMatch: %v", err)
	}

	excluded, err := HasFailedMatch(ctx, database, lost.ID, found.ID)
	if err != nil {
		t.Fatalf("HasFailedMatch: %v", err)
	}
	if !excluded {
		t.Error("expected pair to be excluded")
	}

	// Exclusion is per pair, not per item.
	if excluded, _ := HasFailedMatch(ctx, database, found.ID, lost.ID); excluded {
		t.Error("expected reversed pair not to be excluded")
	}
}

func TestDeleteFailedMatchesForPair(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)

	RecordFailedMatch(ctx, database, lost.ID, found.ID, nil, "first try")
	RecordFailedMatch(ctx, database, lost.ID, found.ID, nil, "second try")

	if err := DeleteFailedMatchesForPair(ctx, database, lost.ID, found.ID); err != nil {
		t.Fatalf("DeleteFailedMatchesForPair: %v", err)
	}
	if excluded, _ := HasFailedMatch(ctx, database, lost.ID, found.ID); excluded {
		t.Error("expected exclusion history to be cleared")
	}
}

func TestDeleteFailedMatchesForItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)

	RecordFailedMatch(ctx, database, lost.ID, found.ID, nil, "")
	if err := DeleteFailedMatchesForItem(ctx, database, found.ID); err != nil {
		t.Fatalf("DeleteFailedMatchesForItem: %v", err)
	}

	matches, _ := ListFailedMatches(ctx, database, lost.ID)
	if len(matches) != 0 {
		t.Errorf("expected no exclusions left, got %d", len(matches))
	}
}
