package negotiation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/najdeno/internal/match"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// RunAutoMatching finds candidates for a lost item and negotiates them one by
// one, best score first, until a session parks for confirmation or the
// candidates run out. Returns the successful session, or nil when no
// candidate worked.
//
// The lost item is moved to matching up front, which shuts out runs starting
// while the item is negotiating or settled. Two runs racing through the
// open/matching window are serialized by the item leases instead.
func (s *Service) RunAutoMatching(ctx context.Context, lostItemID int64) (*model.Session, error) {
	if reclaimed, err := store.ReapExpiredLeases(ctx, s.db); err != nil {
		slog.Warn("lease reap failed", "error", err)
	} else if reclaimed > 0 {
		slog.Info("reclaimed orphaned items", "count", reclaimed)
	}

	lost, err := store.GetItem(ctx, s.db, lostItemID)
	if err != nil {
		return nil, err
	}
	if lost == nil {
		return nil, fmt.Errorf("item %d: %w", lostItemID, ErrNotFound)
	}
	if lost.Type != model.TypeLost {
		return nil, fmt.Errorf("item %d is not a lost item: %w", lostItemID, ErrInvalidState)
	}

	ok, err := store.TransitionItemStatus(ctx, s.db, lost.ID,
		[]string{model.ItemStatusOpen, model.ItemStatusMatching}, model.ItemStatusMatching)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("item %d is already in a negotiation: %w", lostItemID, ErrInvalidState)
	}

	candidates, err := match.FindCandidates(ctx, s.db, lost, s.config.MinScore, s.config.CandidateLimit)
	if err != nil {
		s.revertLost(ctx, lost.ID)
		return nil, err
	}

	slog.Info("matching run started",
		"lost_item", lost.ID, "candidates", len(candidates))

	attempts := 0
	for _, candidate := range candidates {
		session, err := s.tryCandidate(ctx, lost, &candidate.Item, candidate.Score)
		if err != nil {
			s.revertLost(ctx, lost.ID)
			return nil, err
		}
		if session == nil {
			// Candidate was grabbed by another session in the meantime.
			continue
		}
		attempts++

		if session.Status == model.SessionPendingConfirm {
			slog.Info("negotiation agreed",
				"session", session.ID, "lost_item", lost.ID, "found_item", candidate.Item.ID)
			s.notifyMatchFound(ctx, lost, &candidate.Item, session)
			return session, nil
		}
	}

	s.revertLost(ctx, lost.ID)
	message := fmt.Sprintf("No matching found item is currently reported for %q. You will be notified when one appears.", lost.Title)
	if attempts > 0 {
		message = fmt.Sprintf("No matching found item could be verified for %q after %d attempts.", lost.Title, attempts)
	}
	s.notify(ctx, lost.OwnerID, model.NotifyNoMatch, "No match found", message, nil)
	return nil, nil
}

// tryCandidate creates a session for the pair, leases both items and runs the
// negotiation. A nil session without error means the candidate could not be
// leased and the run should move on.
func (s *Service) tryCandidate(ctx context.Context, lost, found *model.Item, score float64) (*model.Session, error) {
	session, err := store.CreateSession(ctx, s.db, lost.ID, found.ID, score)
	if err != nil {
		return nil, err
	}

	if err := store.AcquireLeases(ctx, s.db, session.ID, lost.ID, found.ID, s.config.LeaseTTL); err != nil {
		slog.Info("candidate unavailable",
			"session", session.ID, "found_item", found.ID, "error", err)
		if err := store.DeleteSession(ctx, s.db, session.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	return s.runSession(ctx, session, lost, found)
}

// revertLost puts a lost item back to open after an unsuccessful run, unless
// another session moved it on in the meantime.
func (s *Service) revertLost(ctx context.Context, lostItemID int64) {
	if _, err := store.TransitionItemStatus(ctx, s.db, lostItemID,
		[]string{model.ItemStatusMatching}, model.ItemStatusOpen); err != nil {
		slog.Warn("failed to revert lost item", "item", lostItemID, "error", err)
	}
}

func (s *Service) notifyMatchFound(ctx context.Context, lost, found *model.Item, session *model.Session) {
	s.notify(ctx, lost.OwnerID, model.NotifyMatchFound, "Possible match found",
		fmt.Sprintf("A found item matching %q was verified by negotiation. Please confirm it is yours.", lost.Title),
		&session.ID)
	s.notify(ctx, found.OwnerID, model.NotifyMatchFound, "Possible owner found",
		fmt.Sprintf("Someone looking for %q matched the item you reported. Please confirm the handover.", lost.Title),
		&session.ID)
}

// notify creates a notification and only logs on failure; a broken inbox
// must not fail the flow that triggered it.
func (s *Service) notify(ctx context.Context, userID int64, kind, title, message string, sessionID *int64) {
	if err := store.CreateNotification(ctx, s.db, userID, kind, title, message, sessionID); err != nil {
		slog.Warn("failed to create notification", "user", userID, "kind", kind, "error", err)
	}
}
