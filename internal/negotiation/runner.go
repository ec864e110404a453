package negotiation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/erazemk/najdeno/internal/agent"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// runSession plays out one negotiation over already-leased items. The seeker
// opens and the sides strictly alternate. Every turn is persisted before it
// is mirrored into the agents, so a crash never loses a spoken turn.
//
// The session ends pending_confirm when a side agrees, or failed when a side
// rejects or the turn budget runs out. On failure the pair is recorded as a
// failed match and the items go back to open.
func (s *Service) runSession(ctx context.Context, session *model.Session, lost, found *model.Item) (*model.Session, error) {
	seeker := agent.NewSeeker(lost, s.engine)
	finder := agent.NewFinder(found, s.engine)

	speaker, listener := seeker, finder
	for turn := 1; turn <= s.config.MaxTurns; turn++ {
		decision := speaker.Decide(ctx)

		record, err := store.AppendTurn(ctx, s.db, session.ID, speaker.Role(), decision.Action, decision.Content)
		if err != nil {
			return nil, fmt.Errorf("recording turn %d: %w", turn, err)
		}
		speaker.Perceive(*record)
		listener.Perceive(*record)

		slog.Debug("negotiation turn",
			"session", session.ID, "turn", turn,
			"sender", record.Sender, "action", record.Action)

		switch decision.Action {
		case agent.ActionAgree:
			return s.concludeAgreed(ctx, session)
		case agent.ActionReject:
			return s.concludeFailed(ctx, session, lost, found,
				fmt.Sprintf("rejected by %s: %s", record.Sender, decision.Content))
		}

		if err := store.ExtendLeases(ctx, s.db, session.ID, s.config.LeaseTTL); err != nil {
			slog.Warn("failed to extend leases", "session", session.ID, "error", err)
		}
		speaker, listener = listener, speaker
	}

	if _, err := store.AppendTurn(ctx, s.db, session.ID, model.SenderSystem, "",
		fmt.Sprintf("Negotiation ended without agreement after %d turns.", s.config.MaxTurns),
	); err != nil {
		return nil, fmt.Errorf("recording budget turn: %w", err)
	}
	return s.concludeFailed(ctx, session, lost, found,
		fmt.Sprintf("no agreement after %d turns", s.config.MaxTurns))
}

// concludeAgreed parks the session for human confirmation. The leases stay
// held so nobody else can grab the items while the owners decide.
func (s *Service) concludeAgreed(ctx context.Context, session *model.Session) (*model.Session, error) {
	if err := store.SetSessionStatus(ctx, s.db, session.ID, model.SessionPendingConfirm, false); err != nil {
		return nil, err
	}
	if err := store.ExtendLeases(ctx, s.db, session.ID, s.config.LeaseTTL); err != nil {
		slog.Warn("failed to extend leases", "session", session.ID, "error", err)
	}
	return store.GetSession(ctx, s.db, session.ID)
}

func (s *Service) concludeFailed(ctx context.Context, session *model.Session, lost, found *model.Item, reason string) (*model.Session, error) {
	if err := store.SetSessionStatus(ctx, s.db, session.ID, model.SessionFailed, true); err != nil {
		return nil, err
	}
	if err := store.RecordFailedMatch(ctx, s.db, lost.ID, found.ID, &session.ID, reason); err != nil {
		return nil, err
	}
	if err := store.ReleaseLeases(ctx, s.db, session.ID, model.ItemStatusOpen); err != nil {
		return nil, err
	}
	return store.GetSession(ctx, s.db, session.ID)
}
