package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/domain"
	"taskdesk/internal/envelope"
)

// guidanceInstructions is the fixed policy text for the agent-side guidance
// dialog. Task, use-case and customer context is appended per request.
const guidanceInstructions = `Du bist ein Assistent, der Servicemitarbeiter Schritt für Schritt durch die Bearbeitung eines Kundenanliegens führt.

Antworte IMMER als einzelnes JSON-Objekt mit genau diesen Feldern:
{"text": "...", "options": ["..."], "action": "...", "text_to_agent": "...", "suggested_confirmation_text": "..."}

Regeln:
- "text" ist die nächste Frage oder Anweisung an den Mitarbeiter, kurz und präzise. Stelle immer nur eine Frage auf einmal.
- "options" enthält die wahrscheinlichsten Antwortmöglichkeiten als Buttons. Lass die Liste leer, wenn Freitext erwartet wird.
- "action" ist eines von: "next_step", "propose_completion", "clarification_needed", "human_handoff_suggested".
- Setze "action" auf "propose_completion", sobald alle erforderlichen Informationen vorliegen, und fülle dann "suggested_confirmation_text" mit einem Abschlusstext für den Kunden.
- Setze "action" auf "human_handoff_suggested", wenn das Anliegen außerhalb des Anwendungsfalls liegt.
- "text_to_agent" enthält interne Hinweise für den Mitarbeiter, falls nötig.`

// summaryInstructions requests an on-demand case summary instead of the
// next guidance turn.
const summaryInstructions = `Erstelle eine kompakte Zusammenfassung des bisherigen Gesprächsverlaufs für die Fallakte. Antworte als einzelnes JSON-Objekt: {"summary_text": "..."}`

// autoInitPrompt stands in for the agent's first turn when the dialog is
// opened without input.
const autoInitPrompt = "Starte die Bearbeitung dieser Aufgabe und stelle die erste Frage."

// NextTurn produces the next guidance message for an agent working a task:
// it assembles the instruction block with task, use-case and customer
// context plus the full history, calls the completion API and normalizes
// the reply into the fixed envelope. Both the agent turn and the reply are
// persisted, except in summary-on-demand mode which persists nothing.
func (s *Service) NextTurn(ctx context.Context, taskID string, req domain.ChatRequest) (*domain.ChatResponse, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}

	useCaseID := req.UseCaseID
	if useCaseID == "" {
		useCaseID = task.UseCaseID
	}
	var useCase *domain.UseCase
	if useCaseID != "" {
		useCase, err = s.store.GetUseCase(ctx, useCaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to get use case: %w", err)
		}
	}

	var endCustomer *domain.EndCustomer
	if task.EndCustomerID != "" {
		endCustomer, err = s.store.GetEndCustomer(ctx, task.EndCustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get end customer: %w", err)
		}
	}

	history, err := s.store.GetMessages(ctx, taskID, 0, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get message history: %w", err)
	}

	agentInput := strings.TrimSpace(req.Message)
	if agentInput == "" {
		agentInput = strings.TrimSpace(req.ButtonChoice)
	}
	if agentInput == "" && !req.IsAutoInitialization && !req.GenerateSummaryOnDemand {
		return nil, fmt.Errorf("%w: message or button_choice required", ErrValidation)
	}

	messages := []completion.ChatMessage{
		{Role: "system", Content: buildGuidanceContext(task, useCase, endCustomer)},
	}
	for _, m := range history {
		role := "user"
		if m.Role == domain.RoleAssistant {
			role = "assistant"
		} else if m.Role == domain.RoleSystem {
			continue
		}
		messages = append(messages, completion.ChatMessage{Role: role, Content: m.Content})
	}

	if req.GenerateSummaryOnDemand {
		messages = append(messages, completion.ChatMessage{Role: "system", Content: summaryInstructions})
		return s.generateSummary(ctx, messages, req.PreviousResponseID)
	}

	turn := agentInput
	if turn == "" {
		turn = autoInitPrompt
	}
	messages = append(messages, completion.ChatMessage{Role: "user", Content: turn})

	resp, err := s.completion.CreateChatCompletion(ctx, &completion.ChatCompletionRequest{
		Model:              s.config.CompletionModel,
		Messages:           messages,
		ResponseFormat:     map[string]interface{}{"type": "json_object"},
		PreviousResponseID: req.PreviousResponseID,
	})
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	raw := resp.ReplyText()
	result := envelope.Parse(raw)
	switch result.Kind {
	case envelope.Malformed:
		return nil, fmt.Errorf("completion returned an unusable reply: %s", result.Reason)
	case envelope.Fallback:
		s.log.Warn("completion reply required fallback normalization",
			zap.String("task_id", taskID), zap.String("reason", result.Reason))
	}

	now := time.Now()
	var replyTo string
	if agentInput != "" {
		agentMsg := &domain.TaskMessage{
			MessageID: newID("msg"),
			TaskID:    taskID,
			Role:      domain.RoleAgent,
			Content:   agentInput,
			CreatedAt: now,
		}
		if err := s.store.CreateMessage(ctx, agentMsg); err != nil {
			return nil, fmt.Errorf("failed to store agent message: %w", err)
		}
		replyTo = agentMsg.MessageID
		s.publish("message", "insert", taskID, agentMsg)
	}

	content, _ := json.Marshal(result.Envelope)
	assistantMsg := &domain.TaskMessage{
		MessageID: newID("msg"),
		TaskID:    taskID,
		Role:      domain.RoleAssistant,
		Content:   string(content),
		ReplyToID: replyTo,
		CreatedAt: now.Add(time.Millisecond),
	}
	if err := s.store.CreateMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("failed to store assistant message: %w", err)
	}
	s.publish("message", "insert", taskID, assistantMsg)

	return &domain.ChatResponse{
		Response:   &result.Envelope,
		ResponseID: responseID(resp),
	}, nil
}

// generateSummary runs the summary request without persisting anything.
func (s *Service) generateSummary(ctx context.Context, messages []completion.ChatMessage, previousResponseID string) (*domain.ChatResponse, error) {
	resp, err := s.completion.CreateChatCompletion(ctx, &completion.ChatCompletionRequest{
		Model:              s.config.CompletionModel,
		Messages:           messages,
		ResponseFormat:     map[string]interface{}{"type": "json_object"},
		PreviousResponseID: previousResponseID,
	})
	if err != nil {
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	raw := strings.TrimSpace(resp.ReplyText())
	if raw == "" {
		return nil, fmt.Errorf("completion returned an empty summary")
	}

	var summary json.RawMessage
	if gjson.Valid(raw) && gjson.Get(raw, "summary_text").Exists() {
		summary = json.RawMessage(raw)
	} else {
		summary, _ = json.Marshal(map[string]string{"summary_text": raw})
	}

	return &domain.ChatResponse{
		Summary:    summary,
		ResponseID: responseID(resp),
	}, nil
}

// buildGuidanceContext interpolates task, use-case and customer fields into
// the instruction block.
func buildGuidanceContext(task *domain.Task, useCase *domain.UseCase, endCustomer *domain.EndCustomer) string {
	var b strings.Builder
	b.WriteString(guidanceInstructions)
	b.WriteString("\n\nAufgabe: ")
	b.WriteString(task.Title)
	if task.Description != "" {
		b.WriteString("\nBeschreibung: ")
		b.WriteString(task.Description)
	}
	if useCase != nil {
		b.WriteString("\n\nAnwendungsfall: ")
		b.WriteString(useCase.Title)
		if useCase.Description != "" {
			b.WriteString("\n")
			b.WriteString(useCase.Description)
		}
		if useCase.RequiredInfo != "" {
			b.WriteString("\nBenötigte Informationen: ")
			b.WriteString(useCase.RequiredInfo)
		}
		if useCase.ExpectedResult != "" {
			b.WriteString("\nErwartetes Ergebnis: ")
			b.WriteString(useCase.ExpectedResult)
		}
		if len(useCase.Steps) > 0 {
			b.WriteString("\nDefinierte Schritte: ")
			b.Write(useCase.Steps)
		}
	}
	if endCustomer != nil {
		b.WriteString("\n\nEndkunde: ")
		b.WriteString(endCustomer.Name)
		if endCustomer.Email != "" {
			b.WriteString("\nE-Mail: ")
			b.WriteString(endCustomer.Email)
		}
		if endCustomer.Phone != "" {
			b.WriteString("\nTelefon: ")
			b.WriteString(endCustomer.Phone)
		}
		if endCustomer.Address != "" {
			b.WriteString("\nAdresse: ")
			b.WriteString(endCustomer.Address)
		}
	}
	return b.String()
}

// responseID prefers the completion API's own ID and falls back to a
// generated one.
func responseID(resp *completion.ChatCompletionResponse) string {
	if resp.ID != "" {
		return resp.ID
	}
	return newID("resp")
}
