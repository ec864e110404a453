package negotiation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// pendingSession drives a full matching run to pending_confirm and returns
// the session plus everyone involved.
func pendingSession(t *testing.T, svc *Service, database *sql.DB) (session *model.Session, seekerID, finderID int64, lost, found *model.Item) {
	t.Helper()
	ctx := context.Background()

	seekerID = testUser(t, database, "seeker")
	finderID = testUser(t, database, "finder")
	lost = testItem(t, database, seekerID, model.TypeLost, "black sony headphones")
	found = testItem(t, database, finderID, model.TypeFound, "black sony headphones")

	session, err := svc.RunAutoMatching(ctx, lost.ID)
	if err != nil {
		t.Fatalf("RunAutoMatching() failed: %v", err)
	}
	if session == nil || session.Status != model.SessionPendingConfirm {
		t.Fatalf("expected a pending_confirm session, got %v", session)
	}
	return session, seekerID, finderID, lost, found
}

func confirmedSession(t *testing.T, svc *Service, database *sql.DB) (*model.Session, int64, int64, *model.Item, *model.Item) {
	t.Helper()
	ctx := context.Background()
	session, seekerID, finderID, lost, found := pendingSession(t, svc, database)

	if _, err := svc.Confirm(ctx, session.ID, seekerID, true); err != nil {
		t.Fatalf("seeker confirm failed: %v", err)
	}
	session, err := svc.Confirm(ctx, session.ID, finderID, true)
	if err != nil {
		t.Fatalf("finder confirm failed: %v", err)
	}
	if session.Status != model.SessionConfirmed {
		t.Fatalf("session status = %q, want confirmed", session.Status)
	}
	return session, seekerID, finderID, lost, found
}

func waitingReturnSession(t *testing.T, svc *Service, database *sql.DB) (*model.Session, int64, int64, *model.Item, *model.Item) {
	t.Helper()
	ctx := context.Background()
	session, seekerID, finderID, lost, found := confirmedSession(t, svc, database)

	when := time.Now().Add(24 * time.Hour)
	if _, err := svc.ProposeSchedule(ctx, session.ID, finderID, when, "library entrance", ""); err != nil {
		t.Fatalf("proposing schedule failed: %v", err)
	}
	if _, err := svc.ApproveSchedule(ctx, session.ID, seekerID); err != nil {
		t.Fatalf("approving schedule failed: %v", err)
	}

	session, err := store.GetSession(ctx, database, session.ID)
	if err != nil || session.Status != model.SessionWaitingReturn {
		t.Fatalf("expected waiting_return, got %v (err=%v)", session, err)
	}
	return session, seekerID, finderID, lost, found
}

func TestConfirmBothParties(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, seekerID, finderID, lost, found := pendingSession(t, svc, database)

	after, err := svc.Confirm(ctx, session.ID, seekerID, true)
	if err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	if after.Status != model.SessionPendingConfirm {
		t.Fatalf("one-sided confirm should stay pending_confirm, got %q", after.Status)
	}

	// Repeating the same answer is a no-op, changing it is refused.
	if _, err := svc.Confirm(ctx, session.ID, seekerID, true); err != nil {
		t.Fatalf("repeated confirm should be a no-op: %v", err)
	}
	if _, err := svc.Confirm(ctx, session.ID, seekerID, false); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("changing an answer: err = %v, want ErrInvalidState", err)
	}

	after, err = svc.Confirm(ctx, session.ID, finderID, true)
	if err != nil {
		t.Fatalf("second confirm failed: %v", err)
	}
	if after.Status != model.SessionConfirmed {
		t.Fatalf("expected confirmed, got %q", after.Status)
	}

	// Confirmation settles both items: negotiating becomes matched.
	for _, id := range []int64{lost.ID, found.ID} {
		item, err := store.GetItem(ctx, database, id)
		if err != nil || item == nil {
			t.Fatalf("reading item %d: %v", id, err)
		}
		if item.Status != model.ItemStatusMatched {
			t.Fatalf("item %d status = %q, want matched", id, item.Status)
		}
	}

	// The finder is now asked to propose a handover.
	notifications, _ := store.ListNotifications(ctx, database, finderID, false)
	var kinds []string
	for _, n := range notifications {
		kinds = append(kinds, n.Kind)
	}
	if !containsKind(kinds, model.NotifySchedule) {
		t.Fatalf("expected a schedule notification for the finder, got %v", kinds)
	}
}

func containsKind(kinds []string, kind string) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func TestConfirmRejection(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, _, finderID, lost, found := pendingSession(t, svc, database)

	after, err := svc.Confirm(ctx, session.ID, finderID, false)
	if err != nil {
		t.Fatalf("rejection failed: %v", err)
	}
	if after.Status != model.SessionRejected {
		t.Fatalf("expected rejected, got %q", after.Status)
	}
	if after.CompletedAt == nil {
		t.Fatal("rejected session should be completed")
	}

	blocked, _ := store.HasFailedMatch(ctx, database, lost.ID, found.ID)
	if !blocked {
		t.Fatal("expected the pair to be blacklisted")
	}
	for _, id := range []int64{lost.ID, found.ID} {
		item, _ := store.GetItem(ctx, database, id)
		if item.Status != model.ItemStatusOpen {
			t.Fatalf("item %d status = %q, want open", id, item.Status)
		}
	}
}

func TestConfirmAccessAndState(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, seekerID, finderID, _, _ := pendingSession(t, svc, database)

	strangerID := testUser(t, database, "stranger")
	if _, err := svc.Confirm(ctx, session.ID, strangerID, true); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.Confirm(ctx, 999, seekerID, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing session: err = %v, want ErrNotFound", err)
	}

	if _, err := svc.Confirm(ctx, session.ID, seekerID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Confirm(ctx, session.ID, finderID, true); err != nil {
		t.Fatal(err)
	}
	// Confirming a session that already moved on is refused.
	if _, err := svc.Confirm(ctx, session.ID, seekerID, true); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("confirmed session: err = %v, want ErrInvalidState", err)
	}
}

func TestForceMatch(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, seekerID, finderID, lost, found := pendingSession(t, svc, database)

	if _, err := svc.Confirm(ctx, session.ID, finderID, false); err != nil {
		t.Fatalf("rejection failed: %v", err)
	}

	if _, err := svc.ForceMatch(ctx, session.ID, finderID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("finder force: err = %v, want ErrForbidden", err)
	}

	after, err := svc.ForceMatch(ctx, session.ID, seekerID)
	if err != nil {
		t.Fatalf("ForceMatch() failed: %v", err)
	}
	if after.Status != model.SessionPendingConfirm {
		t.Fatalf("expected pending_confirm, got %q", after.Status)
	}
	if after.SeekerConfirmed == nil || !*after.SeekerConfirmed {
		t.Fatal("forcing should count as the seeker's confirmation")
	}
	if after.FinderConfirmed != nil {
		t.Fatal("the finder's earlier answer should be reset")
	}

	blocked, _ := store.HasFailedMatch(ctx, database, lost.ID, found.ID)
	if blocked {
		t.Fatal("forcing must clear the pair's failed matches")
	}
	item, _ := store.GetItem(ctx, database, lost.ID)
	if item.Status != model.ItemStatusNegotiating {
		t.Fatalf("lost item status = %q, want negotiating", item.Status)
	}

	turns, _ := store.ListTurns(ctx, database, session.ID)
	if turns[len(turns)-1].Sender != model.SenderSystem {
		t.Fatal("forcing should leave a system turn in the transcript")
	}

	// The finder can now accept the forced match.
	final, err := svc.Confirm(ctx, session.ID, finderID, true)
	if err != nil {
		t.Fatalf("confirming forced match failed: %v", err)
	}
	if final.Status != model.SessionConfirmed {
		t.Fatalf("expected confirmed, got %q", final.Status)
	}
}

func TestForceMatchOnlyFromTerminalStates(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	session, seekerID, _, _, _ := pendingSession(t, svc, database)

	if _, err := svc.ForceMatch(context.Background(), session.ID, seekerID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("pending session: err = %v, want ErrInvalidState", err)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, seekerID, finderID, _, _ := confirmedSession(t, svc, database)

	when := time.Now().Add(24 * time.Hour)

	// Only the finder proposes, and a proposal needs substance.
	if _, err := svc.ProposeSchedule(ctx, session.ID, seekerID, when, "library", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("seeker propose: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.ProposeSchedule(ctx, session.ID, finderID, when, "  ", ""); !errors.Is(err, ErrBadInput) {
		t.Fatalf("empty location: err = %v, want ErrBadInput", err)
	}

	schedule, err := svc.ProposeSchedule(ctx, session.ID, finderID, when, "library entrance", "I'm there all day")
	if err != nil {
		t.Fatalf("propose failed: %v", err)
	}
	if schedule.Status != model.SchedulePending {
		t.Fatalf("schedule status = %q, want pending", schedule.Status)
	}

	// Only the seeker decides, and a rejection needs a reason.
	if _, err := svc.ApproveSchedule(ctx, session.ID, finderID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("finder approve: err = %v, want ErrForbidden", err)
	}
	if _, err := svc.RejectSchedule(ctx, session.ID, seekerID, ""); !errors.Is(err, ErrBadInput) {
		t.Fatalf("empty reason: err = %v, want ErrBadInput", err)
	}

	schedule, err = svc.RejectSchedule(ctx, session.ID, seekerID, "cannot make it that day")
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if schedule.Status != model.ScheduleRejected || schedule.RejectReason != "cannot make it that day" {
		t.Fatalf("unexpected schedule after rejection: %+v", schedule)
	}
	current, _ := store.GetSession(ctx, database, session.ID)
	if current.Status != model.SessionConfirmed {
		t.Fatalf("session after rejection = %q, want confirmed", current.Status)
	}

	// A fresh proposal wipes the rejection.
	schedule, err = svc.ProposeSchedule(ctx, session.ID, finderID, when.Add(time.Hour), "cafeteria", "")
	if err != nil {
		t.Fatalf("re-propose failed: %v", err)
	}
	if schedule.Status != model.SchedulePending || schedule.RejectReason != "" {
		t.Fatalf("unexpected schedule after re-proposal: %+v", schedule)
	}

	schedule, err = svc.ApproveSchedule(ctx, session.ID, seekerID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if schedule.Status != model.ScheduleApproved {
		t.Fatalf("schedule status = %q, want approved", schedule.Status)
	}
	current, _ = store.GetSession(ctx, database, session.ID)
	if current.Status != model.SessionWaitingReturn {
		t.Fatalf("session after approval = %q, want waiting_return", current.Status)
	}
}

func TestConfirmReturnCompletes(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, seekerID, finderID, lost, found := waitingReturnSession(t, svc, database)

	after, err := svc.ConfirmReturn(ctx, session.ID, seekerID, true)
	if err != nil {
		t.Fatalf("seeker return confirm failed: %v", err)
	}
	if after.Status != model.SessionWaitingReturn {
		t.Fatalf("one-sided return confirm should stay waiting_return, got %q", after.Status)
	}

	after, err = svc.ConfirmReturn(ctx, session.ID, finderID, true)
	if err != nil {
		t.Fatalf("finder return confirm failed: %v", err)
	}
	if after.Status != model.SessionReturned {
		t.Fatalf("expected returned, got %q", after.Status)
	}
	if after.LostItemID != nil || after.FoundItemID != nil {
		t.Fatal("a closed session should no longer reference its items")
	}

	// The items and their traces are gone, the transcript stays.
	for _, id := range []int64{lost.ID, found.ID} {
		item, err := store.GetItem(ctx, database, id)
		if err != nil {
			t.Fatalf("getting item: %v", err)
		}
		if item != nil {
			t.Fatalf("item %d should be purged after the return", id)
		}
	}
	turns, _ := store.ListTurns(ctx, database, session.ID)
	if len(turns) == 0 {
		t.Fatal("the transcript must survive as the audit record")
	}
}

func TestConfirmReturnDenied(t *testing.T) {
	svc, database := newTestService(t, Config{}, agreeScript...)
	ctx := context.Background()
	session, _, finderID, lost, found := waitingReturnSession(t, svc, database)

	after, err := svc.ConfirmReturn(ctx, session.ID, finderID, false)
	if err != nil {
		t.Fatalf("denial failed: %v", err)
	}
	if after.Status != model.SessionReturnFailed {
		t.Fatalf("expected return_failed, got %q", after.Status)
	}

	blocked, _ := store.HasFailedMatch(ctx, database, lost.ID, found.ID)
	if !blocked {
		t.Fatal("a failed handover should blacklist the pair")
	}
	for _, id := range []int64{lost.ID, found.ID} {
		item, _ := store.GetItem(ctx, database, id)
		if item.Status != model.ItemStatusOpen {
			t.Fatalf("item %d status = %q, want open", id, item.Status)
		}
	}
	schedule, _ := store.GetScheduleBySession(ctx, database, session.ID)
	if schedule != nil {
		t.Fatal("a denied handover should drop the schedule")
	}
}
