package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/db"
	"github.com/erazemk/najdeno/internal/model"
)

func TestUpsertScheduleProposal(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	when := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	schedule, err := UpsertScheduleProposal(ctx, database, session.ID, when, "library entrance", "bring your student card")
	if err != nil {
		t.Fatalf("UpsertScheduleProposal: %v", err)
	}
	if schedule.Status != model.SchedulePending {
		t.Errorf("expected status 'pending', got %q", schedule.Status)
	}
	if !schedule.ProposedTime.Equal(when) {
		t.Errorf("expected time %v, got %v", when, schedule.ProposedTime)
	}
}

func TestReproposalOverwritesRejected(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	first := time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC)
	UpsertScheduleProposal(ctx, database, session.ID, first, "library", "")
	RejectSchedule(ctx, database, session.ID, "busy that day")

	schedule, _ := GetScheduleBySession(ctx, database, session.ID)
	if schedule.Status != model.ScheduleRejected || schedule.RejectReason != "busy that day" {
		t.Fatalf("expected rejected schedule with reason, got %+v", schedule)
	}

	second := time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC)
	schedule, err := UpsertScheduleProposal(ctx, database, session.ID, second, "main hall", "")
	if err != nil {
		t.Fatalf("re-proposal: %v", err)
	}
	if schedule.Status != model.SchedulePending {
		t.Errorf("expected re-proposal to be pending, got %q", schedule.Status)
	}
	if schedule.RejectReason != "" {
		t.Errorf("expected stale rejection reason to be cleared, got %q", schedule.RejectReason)
	}
	if !schedule.ProposedTime.Equal(second) || schedule.ProposedLocation != "main hall" {
		t.Errorf("expected latest proposal to win, got %+v", schedule)
	}
}

func TestApproveScheduleOnlyPending(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	UpsertScheduleProposal(ctx, database, session.ID, time.Now(), "library", "")
	if err := ApproveSchedule(ctx, database, session.ID); err != nil {
		t.Fatalf("ApproveSchedule: %v", err)
	}
	schedule, _ := GetScheduleBySession(ctx, database, session.ID)
	if schedule.Status != model.ScheduleApproved {
		t.Errorf("expected approved, got %q", schedule.Status)
	}

	// Rejecting an already-approved schedule is a no-op.
	RejectSchedule(ctx, database, session.ID, "too late")
	schedule, _ = GetScheduleBySession(ctx, database, session.ID)
	if schedule.Status != model.ScheduleApproved {
		t.Errorf("expected approval to stick, got %q", schedule.Status)
	}
}

func TestScheduleReturnConfirmations(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	_, _, lost, found := testPair(t, database)
	session, _ := CreateSession(ctx, database, lost.ID, found.ID, 0.5)

	UpsertScheduleProposal(ctx, database, session.ID, time.Now(), "library", "")
	SetScheduleReturnConfirmed(ctx, database, session.ID, true, true)
	SetScheduleReturnConfirmed(ctx, database, session.ID, false, true)

	schedule, _ := GetScheduleBySession(ctx, database, session.ID)
	if !schedule.SeekerConfirmed || !schedule.FinderConfirmed {
		t.Errorf("expected both return confirmations set, got %+v", schedule)
	}
}
