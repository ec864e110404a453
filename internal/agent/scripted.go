package agent

import (
	"context"
	"strings"
)

// ScriptedEngine is a deterministic, offline decision engine. It keys off
// the other side's last message and the item facts baked into the system
// prompt, so negotiations always converge without any network access. It
// doubles as the test engine.
type ScriptedEngine struct{}

func NewScriptedEngine() *ScriptedEngine {
	return &ScriptedEngine{}
}

// Generate never fails. It parses the facts back out of the system prompt
// and walks a small set of keyword rules against the latest message.
func (e *ScriptedEngine) Generate(_ context.Context, system, user string) (*Decision, error) {
	facts := strings.ToLower(system)
	last := strings.ToLower(lastMessage(user))

	switch {
	case last == "":
		return &Decision{
			Action:  ActionAsk,
			Content: "Hi! Could you tell me the brand or colour of the item?",
		}, nil

	case containsAny(last, "agree", "see you", "deal"):
		return &Decision{
			Action:  ActionAgree,
			Content: "Great, see you there.",
		}, nil

	case containsAny(last, "meet", "hand it over", "pick it up", "lost and found desk"):
		return &Decision{
			Action:  ActionAgree,
			Content: "That works for me, I agree to the meeting.",
		}, nil

	case containsAny(last, "matches", "that is mine", "that's mine", "confirm"):
		return &Decision{
			Action:  ActionProposeMeet,
			Content: "Glad it matches. Shall we meet at the campus lost and found desk tomorrow at noon?",
		}, nil

	case strings.Contains(last, "?"):
		// The other side asked something. Answer from facts when any
		// fact token appears in the question, otherwise admit ignorance.
		if answer, ok := answerFromFacts(facts, last); ok {
			return &Decision{Action: ActionAnswer, Content: answer}, nil
		}
		return &Decision{
			Action:  ActionAnswer,
			Content: "I'm not sure about that detail, but I can describe the rest of the item.",
		}, nil

	case overlapsFacts(facts, last):
		return &Decision{
			Action:  ActionConfirm,
			Content: "I can confirm those details match my item, it must be the same one.",
		}, nil

	case containsAny(last, "different", "not mine", "doesn't sound", "does not sound", "no match"):
		return &Decision{
			Action:  ActionReject,
			Content: "That doesn't sound like my item after all. Sorry for the confusion.",
		}, nil

	default:
		return &Decision{
			Action:  ActionAsk,
			Content: "Could you share one more detail, like where exactly it was?",
		}, nil
	}
}

// lastMessage pulls the final transcript line out of the user prompt.
// An opening prompt has no transcript and yields "".
func lastMessage(user string) string {
	if !strings.Contains(user, "Conversation so far:") {
		return ""
	}
	lines := strings.Split(user, "\n")
	last := ""
	for _, line := range lines {
		if strings.HasPrefix(line, "Seeker: ") || strings.HasPrefix(line, "Finder: ") {
			last = line[strings.Index(line, ": ")+2:]
		}
	}
	return last
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// overlapsFacts reports whether the message shares a meaningful word with
// the facts text. Short words are skipped so "the" and "it" never count.
func overlapsFacts(facts, message string) bool {
	for _, word := range strings.Fields(message) {
		word = strings.Trim(word, ".,!?:;\"'")
		if len(word) < 4 {
			continue
		}
		if strings.Contains(facts, word) {
			return true
		}
	}
	return false
}

// answerFromFacts replies to a question when it names a fact word,
// echoing the detail back.
func answerFromFacts(facts, question string) (string, bool) {
	for _, word := range strings.Fields(question) {
		word = strings.Trim(word, ".,!?:;\"'")
		if len(word) < 4 {
			continue
		}
		if strings.Contains(facts, word) {
			return "Yes, that's right: the item is a " + word + " one, just as described.", true
		}
	}
	return "", false
}
