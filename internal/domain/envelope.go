package domain

// EnvelopeAction is the next-step directive carried by an assistant reply.
type EnvelopeAction string

const (
	ActionNextStep              EnvelopeAction = "next_step"
	ActionProposeCompletion     EnvelopeAction = "propose_completion"
	ActionClarificationNeeded   EnvelopeAction = "clarification_needed"
	ActionHumanHandoffSuggested EnvelopeAction = "human_handoff_suggested"
)

// ValidAction reports whether a is one of the known envelope actions.
func ValidAction(a EnvelopeAction) bool {
	switch a {
	case ActionNextStep, ActionProposeCompletion, ActionClarificationNeeded, ActionHumanHandoffSuggested:
		return true
	}
	return false
}

// Envelope is the fixed shape every assistant reply is normalized into.
// Text and Options are always present; the rest is optional.
type Envelope struct {
	Text                      string         `json:"text"`
	Options                   []string       `json:"options"`
	Action                    EnvelopeAction `json:"action,omitempty"`
	SummaryDraft              string         `json:"summary_draft,omitempty"`
	TextToAgent               string         `json:"text_to_agent,omitempty"`
	SuggestedConfirmationText string         `json:"suggested_confirmation_text,omitempty"`
}
