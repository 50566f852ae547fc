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
)

// CreateUseCaseInput carries the editable use-case fields.
type CreateUseCaseInput struct {
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	RequiredInfo   string          `json:"required_info"`
	ExpectedResult string          `json:"expected_result"`
	Steps          json.RawMessage `json:"steps"`
}

func (s *Service) CreateUseCase(ctx context.Context, input CreateUseCaseInput) (*domain.UseCase, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	now := time.Now()
	uc := &domain.UseCase{
		UseCaseID:      newID("uc"),
		Title:          input.Title,
		Description:    input.Description,
		RequiredInfo:   input.RequiredInfo,
		ExpectedResult: input.ExpectedResult,
		Steps:          input.Steps,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.CreateUseCase(ctx, uc); err != nil {
		return nil, fmt.Errorf("failed to create use case: %w", err)
	}
	return uc, nil
}

func (s *Service) GetUseCase(ctx context.Context, useCaseID string) (*domain.UseCase, error) {
	uc, err := s.store.GetUseCase(ctx, useCaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get use case: %w", err)
	}
	if uc == nil {
		return nil, ErrNotFound
	}
	return uc, nil
}

func (s *Service) ListUseCases(ctx context.Context) ([]domain.UseCase, error) {
	ucs, err := s.store.ListUseCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list use cases: %w", err)
	}
	return ucs, nil
}

func (s *Service) UpdateUseCase(ctx context.Context, useCaseID string, input CreateUseCaseInput) (*domain.UseCase, error) {
	uc, err := s.GetUseCase(ctx, useCaseID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}

	uc.Title = input.Title
	uc.Description = input.Description
	uc.RequiredInfo = input.RequiredInfo
	uc.ExpectedResult = input.ExpectedResult
	uc.Steps = input.Steps
	uc.UpdatedAt = time.Now()
	if err := s.store.UpdateUseCase(ctx, uc); err != nil {
		return nil, fmt.Errorf("failed to update use case: %w", err)
	}
	return uc, nil
}

// matchInstructions asks for a classification of a task against the
// catalog of use cases.
const matchInstructions = `Ordne das folgende Kundenanliegen dem passendsten Anwendungsfall zu. Antworte als einzelnes JSON-Objekt: {"use_case_id": "...", "confidence": 0.0}
Setze "use_case_id" auf einen leeren String, wenn kein Anwendungsfall passt.`

// MatchUseCase classifies a task against the use-case catalog and, when a
// match is found, links the task to it with an audit entry.
func (s *Service) MatchUseCase(ctx context.Context, taskID, actingUserID string) (*domain.UseCase, float64, error) {
	task, err := s.GetTask(ctx, taskID)
	if err != nil {
		return nil, 0, err
	}
	useCases, err := s.store.ListUseCases(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list use cases: %w", err)
	}
	if len(useCases) == 0 {
		return nil, 0, nil
	}

	var b strings.Builder
	b.WriteString(matchInstructions)
	b.WriteString("\n\nAnwendungsfälle:")
	for _, uc := range useCases {
		b.WriteString("\n- ")
		b.WriteString(uc.UseCaseID)
		b.WriteString(": ")
		b.WriteString(uc.Title)
		if uc.Description != "" {
			b.WriteString(" (")
			b.WriteString(uc.Description)
			b.WriteString(")")
		}
	}

	userTurn := "Anliegen: " + task.Title
	if task.Description != "" {
		userTurn += "\n" + task.Description
	}

	resp, err := s.completion.CreateChatCompletion(ctx, &completion.ChatCompletionRequest{
		Model: s.config.CompletionModel,
		Messages: []completion.ChatMessage{
			{Role: "system", Content: b.String()},
			{Role: "user", Content: userTurn},
		},
		ResponseFormat: map[string]interface{}{"type": "json_object"},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("completion call failed: %w", err)
	}

	reply := resp.ReplyText()
	matchedID := gjson.Get(reply, "use_case_id").String()
	confidence := gjson.Get(reply, "confidence").Float()
	if matchedID == "" {
		return nil, confidence, nil
	}

	var matched *domain.UseCase
	for i := range useCases {
		if useCases[i].UseCaseID == matchedID {
			matched = &useCases[i]
			break
		}
	}
	if matched == nil {
		s.log.Warn("completion proposed an unknown use case", zap.String("task_id", taskID), zap.String("use_case_id", matchedID))
		return nil, confidence, nil
	}

	if err := s.store.UpdateTaskUseCase(ctx, taskID, matched.UseCaseID); err != nil {
		return nil, 0, fmt.Errorf("failed to link use case: %w", err)
	}

	newValue, _ := json.Marshal(map[string]interface{}{"use_case_id": matched.UseCaseID, "confidence": confidence})
	entry := &domain.AuditEntry{
		EntryID:   newID("aud"),
		TaskID:    taskID,
		UserID:    actingUserID,
		Action:    domain.AuditUseCaseMatched,
		NewValue:  newValue,
		CreatedAt: time.Now(),
	}
	if err := s.store.AppendAudit(ctx, entry); err != nil {
		s.log.Warn("failed to append audit entry", zap.String("task_id", taskID), zap.Error(err))
	}

	s.publish("task", "update", taskID, map[string]string{"use_case_id": matched.UseCaseID})
	return matched, confidence, nil
}
