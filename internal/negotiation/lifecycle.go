package negotiation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// participants resolves the session's items and the caller's role. The caller
// must own one of the two items.
type participants struct {
	session *model.Session
	lost    *model.Item
	found   *model.Item
	seeker  bool // caller owns the lost item
}

func (s *Service) loadParticipants(ctx context.Context, sessionID, userID int64) (*participants, error) {
	session, err := store.GetSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session %d: %w", sessionID, ErrNotFound)
	}
	if session.LostItemID == nil || session.FoundItemID == nil {
		return nil, fmt.Errorf("session %d has no items: %w", sessionID, ErrInvalidState)
	}

	lost, err := store.GetItem(ctx, s.db, *session.LostItemID)
	if err != nil {
		return nil, err
	}
	found, err := store.GetItem(ctx, s.db, *session.FoundItemID)
	if err != nil {
		return nil, err
	}
	if lost == nil || found == nil {
		return nil, fmt.Errorf("session %d items are gone: %w", sessionID, ErrInvalidState)
	}

	p := &participants{session: session, lost: lost, found: found}
	switch userID {
	case lost.OwnerID:
		p.seeker = true
	case found.OwnerID:
		p.seeker = false
	default:
		return nil, fmt.Errorf("user %d is not part of session %d: %w", userID, sessionID, ErrForbidden)
	}
	return p, nil
}

func confirmedFlag(p *participants) *bool {
	if p.seeker {
		return p.session.SeekerConfirmed
	}
	return p.session.FinderConfirmed
}

// Confirm records one party's answer to "is this really your item / the right
// owner". Repeating an already-given answer is a no-op; changing it after the
// fact is refused. A rejection ends the session, records the pair as a failed
// match and frees the items. Once both parties confirm, the session moves to
// confirmed and the finder is asked to propose a handover.
func (s *Service) Confirm(ctx context.Context, sessionID, userID int64, confirmed bool) (*model.Session, error) {
	p, err := s.loadParticipants(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if p.session.Status != model.SessionPendingConfirm {
		return nil, fmt.Errorf("session %d is not awaiting confirmation: %w", sessionID, ErrInvalidState)
	}

	if prior := confirmedFlag(p); prior != nil {
		if *prior == confirmed {
			return p.session, nil
		}
		return nil, fmt.Errorf("confirmation for session %d was already given: %w", sessionID, ErrInvalidState)
	}

	if err := store.SetSessionConfirmed(ctx, s.db, sessionID, p.seeker, confirmed); err != nil {
		return nil, err
	}

	if !confirmed {
		return s.rollback(ctx, p, model.SessionRejected,
			fmt.Sprintf("ownership rejected by the %s", roleName(p.seeker)))
	}

	session, err := store.GetSession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.SeekerConfirmed != nil && *session.SeekerConfirmed &&
		session.FinderConfirmed != nil && *session.FinderConfirmed {
		if err := store.SetSessionStatus(ctx, s.db, sessionID, model.SessionConfirmed, false); err != nil {
			return nil, err
		}
		for _, itemID := range []int64{p.lost.ID, p.found.ID} {
			if err := store.SetItemStatus(ctx, s.db, itemID, model.ItemStatusMatched); err != nil {
				return nil, err
			}
		}
		if err := store.ExtendLeases(ctx, s.db, sessionID, s.config.LeaseTTL); err != nil {
			return nil, err
		}
		s.notify(ctx, p.found.OwnerID, model.NotifySchedule, "Match confirmed",
			"Both sides confirmed the match. Please propose a time and place for the handover.",
			&sessionID)
		return store.GetSession(ctx, s.db, sessionID)
	}

	other := p.found.OwnerID
	if !p.seeker {
		other = p.lost.OwnerID
	}
	s.notify(ctx, other, model.NotifyConfirmRequest, "Confirmation needed",
		fmt.Sprintf("The %s confirmed the match for %q. Please confirm it too.", roleName(p.seeker), p.lost.Title),
		&sessionID)
	return session, nil
}

// ForceMatch lets the lost item's owner resurrect a failed or rejected
// session, overriding the agents' verdict. The pair's failed-match records
// are cleared so the override sticks, the items are leased again and the
// session goes back to awaiting the finder's confirmation.
func (s *Service) ForceMatch(ctx context.Context, sessionID, userID int64) (*model.Session, error) {
	p, err := s.loadParticipants(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !p.seeker {
		return nil, fmt.Errorf("only the lost item's owner may force a match: %w", ErrForbidden)
	}
	if p.session.Status != model.SessionFailed && p.session.Status != model.SessionRejected {
		return nil, fmt.Errorf("session %d cannot be forced from status %q: %w",
			sessionID, p.session.Status, ErrInvalidState)
	}

	if err := store.AcquireLeases(ctx, s.db, sessionID, p.lost.ID, p.found.ID, s.config.LeaseTTL); err != nil {
		return nil, fmt.Errorf("items are no longer available: %w", ErrInvalidState)
	}

	if err := store.DeleteFailedMatchesForPair(ctx, s.db, p.lost.ID, p.found.ID); err != nil {
		return nil, err
	}
	if err := store.ResetSessionConfirmations(ctx, s.db, sessionID); err != nil {
		return nil, err
	}
	if err := store.SetSessionConfirmed(ctx, s.db, sessionID, true, true); err != nil {
		return nil, err
	}
	if err := store.SetSessionStatus(ctx, s.db, sessionID, model.SessionPendingConfirm, false); err != nil {
		return nil, err
	}
	if _, err := store.AppendTurn(ctx, s.db, sessionID, model.SenderSystem, "",
		"The lost item's owner forced this match, overriding the negotiation outcome."); err != nil {
		return nil, err
	}

	s.notify(ctx, p.found.OwnerID, model.NotifyConfirmRequest, "Match forced",
		fmt.Sprintf("The owner of %q insists your found item is theirs. Please confirm or reject the match.", p.lost.Title),
		&sessionID)
	return store.GetSession(ctx, s.db, sessionID)
}

// ProposeSchedule lets the finder propose (or revise) the handover meeting.
func (s *Service) ProposeSchedule(ctx context.Context, sessionID, userID int64, proposedTime time.Time, location, notes string) (*model.Schedule, error) {
	p, err := s.loadParticipants(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if p.seeker {
		return nil, fmt.Errorf("only the finder may propose a handover: %w", ErrForbidden)
	}
	if p.session.Status != model.SessionConfirmed && p.session.Status != model.SessionSchedulePending {
		return nil, fmt.Errorf("session %d is not ready for scheduling: %w", sessionID, ErrInvalidState)
	}
	if proposedTime.IsZero() || strings.TrimSpace(location) == "" {
		return nil, fmt.Errorf("a handover needs a time and a place: %w", ErrBadInput)
	}

	schedule, err := store.UpsertScheduleProposal(ctx, s.db, sessionID, proposedTime, location, notes)
	if err != nil {
		return nil, err
	}
	if err := store.SetSessionStatus(ctx, s.db, sessionID, model.SessionSchedulePending, false); err != nil {
		return nil, err
	}
	if err := store.ExtendLeases(ctx, s.db, sessionID, s.config.LeaseTTL); err != nil {
		return nil, err
	}
	if _, err := store.AppendTurn(ctx, s.db, sessionID, model.SenderSystem, "",
		fmt.Sprintf("Finder proposed a handover at %q on %s.", location, proposedTime.Format(time.RFC3339))); err != nil {
		return nil, err
	}

	s.notify(ctx, p.lost.OwnerID, model.NotifySchedule, "Handover proposed",
		fmt.Sprintf("The finder proposed meeting at %q on %s.", location, proposedTime.Format(time.RFC3339)),
		&sessionID)
	return schedule, nil
}

// ApproveSchedule is the seeker accepting the proposed handover.
func (s *Service) ApproveSchedule(ctx context.Context, sessionID, userID int64) (*model.Schedule, error) {
	p, err := s.requireSeekerSchedule(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	if err := store.ApproveSchedule(ctx, s.db, sessionID); err != nil {
		return nil, err
	}
	if err := store.SetSessionStatus(ctx, s.db, sessionID, model.SessionWaitingReturn, false); err != nil {
		return nil, err
	}
	if err := store.ExtendLeases(ctx, s.db, sessionID, s.config.LeaseTTL); err != nil {
		return nil, err
	}
	if _, err := store.AppendTurn(ctx, s.db, sessionID, model.SenderSystem, "",
		"Seeker approved the handover."); err != nil {
		return nil, err
	}

	s.notify(ctx, p.found.OwnerID, model.NotifySchedule, "Handover approved",
		"The owner approved your proposed meeting. Confirm the return once the item is handed over.",
		&sessionID)
	return store.GetScheduleBySession(ctx, s.db, sessionID)
}

// RejectSchedule is the seeker declining the proposal; the finder can then
// propose a different one.
func (s *Service) RejectSchedule(ctx context.Context, sessionID, userID int64, reason string) (*model.Schedule, error) {
	p, err := s.requireSeekerSchedule(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("a rejection needs a reason: %w", ErrBadInput)
	}

	if err := store.RejectSchedule(ctx, s.db, sessionID, reason); err != nil {
		return nil, err
	}
	if err := store.SetSessionStatus(ctx, s.db, sessionID, model.SessionConfirmed, false); err != nil {
		return nil, err
	}
	if _, err := store.AppendTurn(ctx, s.db, sessionID, model.SenderSystem, "",
		fmt.Sprintf("Seeker declined the handover proposal: %s", reason)); err != nil {
		return nil, err
	}

	s.notify(ctx, p.found.OwnerID, model.NotifySchedule, "Handover declined",
		fmt.Sprintf("The owner declined your proposed meeting: %s. Please propose another one.", reason),
		&sessionID)
	return store.GetScheduleBySession(ctx, s.db, sessionID)
}

func (s *Service) requireSeekerSchedule(ctx context.Context, sessionID, userID int64) (*participants, error) {
	p, err := s.loadParticipants(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if !p.seeker {
		return nil, fmt.Errorf("only the lost item's owner may decide on a handover: %w", ErrForbidden)
	}
	if p.session.Status != model.SessionSchedulePending {
		return nil, fmt.Errorf("session %d has no pending handover proposal: %w", sessionID, ErrInvalidState)
	}
	return p, nil
}

// ConfirmReturn records one party's word on whether the handover actually
// happened. A denial rolls the whole session back so the items can be matched
// again. Once both parties confirm, the case is closed for good: the items
// and their images are purged and the session keeps only its transcript.
func (s *Service) ConfirmReturn(ctx context.Context, sessionID, userID int64, returned bool) (*model.Session, error) {
	p, err := s.loadParticipants(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}
	if p.session.Status != model.SessionWaitingReturn {
		return nil, fmt.Errorf("session %d is not awaiting a return: %w", sessionID, ErrInvalidState)
	}

	if !returned {
		if err := store.DeleteScheduleForSession(ctx, s.db, sessionID); err != nil {
			return nil, err
		}
		if _, err := store.AppendTurn(ctx, s.db, sessionID, model.SenderSystem, "",
			fmt.Sprintf("The %s reported that the handover did not happen.", roleName(p.seeker))); err != nil {
			return nil, err
		}
		return s.rollback(ctx, p, model.SessionReturnFailed,
			fmt.Sprintf("handover denied by the %s", roleName(p.seeker)))
	}

	if err := store.SetScheduleReturnConfirmed(ctx, s.db, sessionID, p.seeker, true); err != nil {
		return nil, err
	}

	schedule, err := store.GetScheduleBySession(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if schedule == nil {
		return nil, fmt.Errorf("session %d has no schedule: %w", sessionID, ErrInvalidState)
	}
	if !schedule.SeekerConfirmed || !schedule.FinderConfirmed {
		other := p.found.OwnerID
		if !p.seeker {
			other = p.lost.OwnerID
		}
		s.notify(ctx, other, model.NotifyNegotiationUpdate, "Return confirmation needed",
			fmt.Sprintf("The %s confirmed the handover of %q. Please confirm it too.", roleName(p.seeker), p.lost.Title),
			&sessionID)
		return store.GetSession(ctx, s.db, sessionID)
	}

	return s.finalizeReturn(ctx, p)
}

// finalizeReturn closes out a completed case. Both item records, their
// images and every failed-match trace involving them are removed; the session
// row and transcript stay as the audit record.
func (s *Service) finalizeReturn(ctx context.Context, p *participants) (*model.Session, error) {
	sessionID := p.session.ID

	if err := store.ReleaseLeases(ctx, s.db, sessionID, model.ItemStatusClosed); err != nil {
		return nil, err
	}
	if err := store.SetSessionStatus(ctx, s.db, sessionID, model.SessionReturned, true); err != nil {
		return nil, err
	}
	if err := store.ClearSessionItems(ctx, s.db, sessionID); err != nil {
		return nil, err
	}
	for _, item := range []*model.Item{p.lost, p.found} {
		if err := store.DeleteFailedMatchesForItem(ctx, s.db, item.ID); err != nil {
			return nil, err
		}
		if err := store.DeleteItem(ctx, s.db, item.ID); err != nil {
			return nil, err
		}
	}
	if _, err := store.AppendTurn(ctx, s.db, sessionID, model.SenderSystem, "",
		"Item returned to its owner. Case closed."); err != nil {
		return nil, err
	}

	for _, userID := range []int64{p.lost.OwnerID, p.found.OwnerID} {
		s.notify(ctx, userID, model.NotifyNegotiationUpdate, "Item returned",
			fmt.Sprintf("The case for %q is closed. Thank you!", p.lost.Title), &sessionID)
	}
	return store.GetSession(ctx, s.db, sessionID)
}

// rollback terminates a session on a human rejection or a failed handover:
// the pair is blacklisted for future matching and both items go back to open.
func (s *Service) rollback(ctx context.Context, p *participants, status, reason string) (*model.Session, error) {
	sessionID := p.session.ID

	if err := store.SetSessionStatus(ctx, s.db, sessionID, status, true); err != nil {
		return nil, err
	}
	if err := store.RecordFailedMatch(ctx, s.db, p.lost.ID, p.found.ID, &sessionID, reason); err != nil {
		return nil, err
	}
	if err := store.ReleaseLeases(ctx, s.db, sessionID, model.ItemStatusOpen); err != nil {
		return nil, err
	}

	other := p.found.OwnerID
	if !p.seeker {
		other = p.lost.OwnerID
	}
	s.notify(ctx, other, model.NotifyNegotiationUpdate, "Session closed",
		fmt.Sprintf("The session for %q was closed: %s.", p.lost.Title, reason), &sessionID)
	return store.GetSession(ctx, s.db, sessionID)
}

func roleName(seeker bool) string {
	if seeker {
		return "seeker"
	}
	return "finder"
}
