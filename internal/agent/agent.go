package agent

import (
	"context"
	"log/slog"

	"github.com/erazemk/najdeno/internal/model"
)

// Negotiator represents one side of a negotiation. It keeps its own copy of
// the transcript for prompting; the stored session turns remain the record.
type Negotiator struct {
	role       string
	system     string
	transcript []model.Turn
	engine     Engine
}

// NewSeeker builds the agent arguing on behalf of a lost item's owner.
func NewSeeker(item *model.Item, engine Engine) *Negotiator {
	return &Negotiator{
		role:   RoleSeeker,
		system: SeekerSystemPrompt(FactsFromItem(item)),
		engine: engine,
	}
}

// NewFinder builds the agent arguing on behalf of a found item's reporter.
func NewFinder(item *model.Item, engine Engine) *Negotiator {
	return &Negotiator{
		role:   RoleFinder,
		system: FinderSystemPrompt(FactsFromItem(item)),
		engine: engine,
	}
}

func (n *Negotiator) Role() string {
	return n.role
}

// Perceive records a turn into the agent's working transcript. Both its own
// and the other side's turns go through here so prompts see the full dialogue.
func (n *Negotiator) Perceive(turn model.Turn) {
	n.transcript = append(n.transcript, turn)
}

// Decide asks the engine for the next move. Engine faults never escape; a
// failed call degrades to the default clarifying question so a flaky model
// cannot stall a negotiation.
func (n *Negotiator) Decide(ctx context.Context) *Decision {
	d, err := n.engine.Generate(ctx, n.system, TranscriptPrompt(n.transcript))
	if err != nil {
		slog.Warn("decision engine failed, falling back", "role", n.role, "error", err)
		return DefaultDecision()
	}
	return sanitize(d)
}
