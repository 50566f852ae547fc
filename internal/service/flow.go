package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/domain"
)

// flowAuthoringInstructions drives the workflow-authoring dialog: a
// back-and-forth that ends in a structured step plan.
const flowAuthoringInstructions = `Du hilfst einem Administrator, einen Bearbeitungsablauf (Dialog-Flow) für einen Anwendungsfall zu entwerfen.

Stelle gezielte Rückfragen, bis der Ablauf klar ist: welche Informationen abgefragt werden, in welcher Reihenfolge, und welche Verzweigungen es gibt. Stelle immer nur eine Frage auf einmal und antworte als Freitext.`

// flowGenerateInstructions switches the dialog into the final generation
// step that must return the structured plan.
const flowGenerateInstructions = `Der Ablauf ist jetzt vollständig besprochen. Antworte als einzelnes JSON-Objekt:
{"dialog_flow": {"steps": [{"id": "...", "question": "...", "options": ["..."], "next": "..."}]}}
Jeder Schritt braucht eine eindeutige id. "next" verweist auf die id des Folgeschritts oder ist leer für den letzten Schritt.`

// generateTriggers are phrases in the last user turn that end the
// clarification phase and request the structured plan.
var generateTriggers = []string{
	"generiere", "erstelle", "erzeuge", "schritte", "fertig", "passt", "abschließen",
}

// DialogFlow runs one turn of the workflow-authoring dialog. Early turns
// return free-text clarifying questions; once the author signals they are
// done (or the dialog has gone on long enough) the reply is forced into a
// structured step plan and extracted.
func (s *Service) DialogFlow(ctx context.Context, req domain.DialogRequest) (*domain.DialogResponse, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("%w: messages must not be empty", ErrValidation)
	}

	generate := req.Mode == "generate" || len(req.Messages) >= 6
	if !generate {
		last := req.Messages[len(req.Messages)-1]
		if last.Role == "user" && wantsGeneration(last.Content) {
			generate = true
		}
	}

	messages := []completion.ChatMessage{
		{Role: "system", Content: buildFlowContext(req)},
	}
	for _, m := range req.Messages {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, completion.ChatMessage{Role: role, Content: m.Content})
	}

	creq := &completion.ChatCompletionRequest{
		Model:              s.config.CompletionModel,
		Messages:           messages,
		PreviousResponseID: req.PreviousResponseID,
	}
	if generate {
		creq.Messages = append(creq.Messages, completion.ChatMessage{Role: "system", Content: flowGenerateInstructions})
		creq.ResponseFormat = map[string]interface{}{"type": "json_object"}
	}

	resp, err := s.completion.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	reply := strings.TrimSpace(resp.ReplyText())
	out := &domain.DialogResponse{
		Message:    reply,
		ResponseID: responseID(resp),
	}

	if generate && gjson.Valid(reply) {
		if flow := gjson.Get(reply, "dialog_flow"); flow.Exists() {
			out.DialogFlow = json.RawMessage(flow.Raw)
			out.FlowExtracted = true
		}
	}
	return out, nil
}

// wantsGeneration reports whether the author's turn asks for the final plan.
func wantsGeneration(content string) bool {
	lower := strings.ToLower(content)
	for _, trigger := range generateTriggers {
		if strings.Contains(lower, trigger) {
			return true
		}
	}
	return false
}

// buildFlowContext appends the optional authoring context to the
// instruction block.
func buildFlowContext(req domain.DialogRequest) string {
	var b strings.Builder
	b.WriteString(flowAuthoringInstructions)
	if req.UseCaseDescription != "" {
		b.WriteString("\n\nAnwendungsfall: ")
		b.WriteString(req.UseCaseDescription)
	}
	if req.Customer != "" {
		b.WriteString("\nKunde: ")
		b.WriteString(req.Customer)
	}
	if req.RoutingInfo != "" {
		b.WriteString("\nRouting: ")
		b.WriteString(req.RoutingInfo)
	}
	if len(req.CurrentSteps) > 0 {
		b.WriteString("\nBisheriger Entwurf: ")
		b.Write(req.CurrentSteps)
	}
	for key, val := range req.Parameters {
		b.WriteString("\n")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(val)
	}
	return b.String()
}
