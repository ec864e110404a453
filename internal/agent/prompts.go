package agent

import (
	"fmt"
	"strings"

	"github.com/erazemk/najdeno/internal/model"
)

// Agent roles.
const (
	RoleSeeker = "Seeker"
	RoleFinder = "Finder"
)

// Facts are the only details an agent is allowed to disclose: its own
// item's title, description and location. Nothing else reaches the prompt.
type Facts struct {
	Title       string
	Description string
	Location    string
}

// FactsFromItem extracts the disclosable facts of an item.
func FactsFromItem(item *model.Item) Facts {
	return Facts{
		Title:       item.Title,
		Description: item.Description,
		Location:    item.Location,
	}
}

const promptActions = `Reply with a single JSON object with exactly two fields:
- "action": one of "ASK" (ask a question), "ANSWER" (answer a question),
  "CONFIRM" (the details match), "REJECT" (the details do not match, end the
  negotiation), "PROPOSE_MEET" (propose meeting to hand the item over) or
  "AGREE" (accept the other side's proposal).
- "content": the message to send, in plain English.`

const promptRules = `Rules you must follow:
1. Never invent details. You only know the item facts listed above; if asked
   about something they do not cover, say you do not know.
2. Ask one question at a time.
3. If the other side's description clearly matches your item facts, confirm
   and move towards a meeting. If it clearly contradicts them, reject.
4. Stay polite and brief.`

// SeekerSystemPrompt instructs the agent representing the owner of a lost item.
func SeekerSystemPrompt(facts Facts) string {
	var b strings.Builder
	b.WriteString("You are the agent representing someone who LOST an item. ")
	b.WriteString("Your goal is to verify whether the item the other side found is the one your owner lost.\n\n")
	writeFacts(&b, "The lost item (everything you know)", facts)
	b.WriteString("\nAsk about identifying details (brand, colour, model), ")
	b.WriteString("compare answers against your facts, and propose a meeting once convinced.\n\n")
	b.WriteString(promptActions)
	b.WriteString("\n\n")
	b.WriteString(promptRules)
	return b.String()
}

// FinderSystemPrompt instructs the agent representing the finder of an item.
func FinderSystemPrompt(facts Facts) string {
	var b strings.Builder
	b.WriteString("You are the agent representing someone who FOUND an item. ")
	b.WriteString("Your goal is to verify whether the other side is the real owner.\n\n")
	writeFacts(&b, "The found item (everything you know)", facts)
	b.WriteString("\nAnswer questions truthfully from your facts, ask your own verifying questions, ")
	b.WriteString("and agree to a meeting once the other side has proven ownership.\n\n")
	b.WriteString(promptActions)
	b.WriteString("\n\n")
	b.WriteString(promptRules)
	return b.String()
}

func writeFacts(b *strings.Builder, heading string, facts Facts) {
	fmt.Fprintf(b, "%s:\n- title: %s\n", heading, facts.Title)
	if facts.Description != "" {
		fmt.Fprintf(b, "- description: %s\n", facts.Description)
	}
	if facts.Location != "" {
		fmt.Fprintf(b, "- location: %s\n", facts.Location)
	}
}

// openingPrompt is the user prompt for an agent speaking into an empty
// transcript.
const openingPrompt = "The negotiation is just starting. Open with one clarifying question that helps verify the item, as JSON."

// TranscriptPrompt renders the conversation so far into the user prompt.
func TranscriptPrompt(turns []model.Turn) string {
	if len(turns) == 0 {
		return openingPrompt
	}

	var b strings.Builder
	b.WriteString("Conversation so far:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Sender, t.Content)
	}
	b.WriteString("\nDecide your next move and reply as JSON.")
	return b.String()
}
