// Package agent implements the negotiating agents and the pluggable
// decision engines they delegate to. Engine output is untrusted external
// input: it is defensively parsed and every fault degrades to a safe
// default decision instead of propagating.
package agent

import (
	"context"
	"strings"
)

// Protocol actions. Anything else coming back from an engine is treated as
// informational and the dialogue simply continues.
const (
	ActionAsk         = "ASK"
	ActionAnswer      = "ANSWER"
	ActionConfirm     = "CONFIRM"
	ActionReject      = "REJECT"
	ActionProposeMeet = "PROPOSE_MEET"
	ActionAgree       = "AGREE"
)

// Decision is one engine verdict: what to do and what to say.
type Decision struct {
	Action  string `json:"action"`
	Content string `json:"content"`
}

// Engine produces a decision from a system prompt (role and disclosed facts)
// and a user prompt (conversation so far). Implementations may fail or
// return malformed data; callers must sanitize.
type Engine interface {
	Generate(ctx context.Context, system, user string) (*Decision, error)
}

// defaultContent is the generic clarifying prompt substituted when an engine
// returns no usable message.
const defaultContent = "Could you describe a specific detail of the item, such as its colour or brand?"

// DefaultDecision is the safe fallback used whenever an engine fails.
func DefaultDecision() *Decision {
	return &Decision{Action: ActionAsk, Content: defaultContent}
}

// sanitize fills in missing fields of an untrusted engine decision. A nil
// decision becomes the full default.
func sanitize(d *Decision) *Decision {
	if d == nil {
		return DefaultDecision()
	}
	out := &Decision{
		Action:  strings.ToUpper(strings.TrimSpace(d.Action)),
		Content: strings.TrimSpace(d.Content),
	}
	if out.Action == "" {
		out.Action = ActionAsk
	}
	if out.Content == "" {
		out.Content = defaultContent
	}
	return out
}
