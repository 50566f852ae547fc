package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tidwall/gjson"

	"taskdesk/internal/adapter/completion"
	"taskdesk/internal/domain"
)

func TestNextTurnPersistsBothMessages(t *testing.T) {
	svc, db, mock := newTestService(t,
		`{"text":"Welche Wohnung betrifft es?","options":["EG","1. OG"],"action":"next_step"}`)
	task := createTask(t, svc)
	ctx := context.Background()

	resp, err := svc.NextTurn(ctx, task.TaskID, domain.ChatRequest{Message: "Heizung geht nicht"})
	if err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}
	if resp.Response == nil || resp.Response.Text != "Welche Wohnung betrifft es?" {
		t.Fatalf("unexpected envelope: %+v", resp.Response)
	}
	if resp.Response.Options == nil {
		t.Fatal("options must never be nil")
	}
	if resp.ResponseID == "" {
		t.Fatal("expected a response ID")
	}

	messages, err := db.GetMessages(ctx, task.TaskID, 0, "")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected agent + assistant message, got %d", len(messages))
	}
	if messages[0].Role != domain.RoleAgent || messages[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles: %s, %s", messages[0].Role, messages[1].Role)
	}
	if messages[1].ReplyToID != messages[0].MessageID {
		t.Fatal("assistant message must reference the agent turn")
	}

	// The system prompt carries the task context.
	if len(mock.Requests) != 1 {
		t.Fatalf("expected one completion call, got %d", len(mock.Requests))
	}
	system := mock.Requests[0].Messages[0]
	if system.Role != "system" || !strings.Contains(system.Content, task.Title) {
		t.Fatalf("system prompt missing task context: %q", system.Content)
	}
}

func TestNextTurnIncludesEndCustomerContext(t *testing.T) {
	svc, _, mock := newTestService(t, `{"text":"Verstanden.","options":[]}`)
	ctx := context.Background()

	ec, err := svc.CreateEndCustomer(ctx, CreateEndCustomerInput{
		Name:  "Familie Weber",
		Email: "weber@example.com",
	})
	if err != nil {
		t.Fatalf("CreateEndCustomer failed: %v", err)
	}
	task, err := svc.CreateTask(ctx, CreateTaskInput{
		Title:         "Heizung ausgefallen",
		EndCustomerID: ec.EndCustomerID,
		ActingUserID:  "usr_1",
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}

	if _, err := svc.NextTurn(ctx, task.TaskID, domain.ChatRequest{Message: "Heizung defekt"}); err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}

	system := mock.Requests[0].Messages[0].Content
	if !strings.Contains(system, "Endkunde") || !strings.Contains(system, "Familie Weber") {
		t.Fatalf("system prompt missing end-customer context: %q", system)
	}
	if !strings.Contains(system, "weber@example.com") {
		t.Fatalf("system prompt missing contact details: %q", system)
	}
}

func TestNextTurnAutoInitialization(t *testing.T) {
	svc, db, _ := newTestService(t, `{"text":"Womit kann ich helfen?","options":[]}`)
	task := createTask(t, svc)
	ctx := context.Background()

	resp, err := svc.NextTurn(ctx, task.TaskID, domain.ChatRequest{IsAutoInitialization: true})
	if err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}
	if resp.Response == nil {
		t.Fatal("expected an envelope")
	}

	messages, err := db.GetMessages(ctx, task.TaskID, 0, "")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != domain.RoleAssistant {
		t.Fatalf("auto-init must persist only the assistant reply, got %+v", messages)
	}
}

func TestNextTurnRequiresInput(t *testing.T) {
	svc, _, _ := newTestService(t, `{"text":"ok"}`)
	task := createTask(t, svc)

	_, err := svc.NextTurn(context.Background(), task.TaskID, domain.ChatRequest{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNextTurnButtonChoice(t *testing.T) {
	svc, db, _ := newTestService(t, `{"text":"Verstanden.","options":[]}`)
	task := createTask(t, svc)
	ctx := context.Background()

	if _, err := svc.NextTurn(ctx, task.TaskID, domain.ChatRequest{ButtonChoice: "1. OG"}); err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}

	messages, err := db.GetMessages(ctx, task.TaskID, 0, "")
	if err != nil {
		t.Fatalf("GetMessages failed: %v", err)
	}
	if messages[0].Content != "1. OG" {
		t.Fatalf("expected button choice as agent turn, got %q", messages[0].Content)
	}
}

func TestNextTurnSummaryOnDemandPersistsNothing(t *testing.T) {
	svc, db, _ := newTestService(t, `{"summary_text":"Mieter meldet Heizungsausfall im 1. OG."}`)
	task := createTask(t, svc)
	ctx := context.Background()

	resp, err := svc.NextTurn(ctx, task.TaskID, domain.ChatRequest{GenerateSummaryOnDemand: true})
	if err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}
	if resp.Response != nil {
		t.Fatal("summary mode must not return an envelope")
	}
	if gjson.GetBytes(resp.Summary, "summary_text").String() == "" {
		t.Fatalf("expected summary_text, got %s", resp.Summary)
	}

	count, err := db.CountMessages(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("summary mode must persist nothing, found %d messages", count)
	}
}

func TestNextTurnSummaryWrapsPlainText(t *testing.T) {
	svc, _, _ := newTestService(t, `Der Mieter hat einen Heizungsausfall gemeldet.`)
	task := createTask(t, svc)

	resp, err := svc.NextTurn(context.Background(), task.TaskID, domain.ChatRequest{GenerateSummaryOnDemand: true})
	if err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}
	if got := gjson.GetBytes(resp.Summary, "summary_text").String(); !strings.Contains(got, "Heizungsausfall") {
		t.Fatalf("expected wrapped summary, got %s", resp.Summary)
	}
}

func TestNextTurnFallbackReplyStillServed(t *testing.T) {
	svc, db, _ := newTestService(t, `Welche Etage? ["EG", "1. OG"]`)
	task := createTask(t, svc)
	ctx := context.Background()

	resp, err := svc.NextTurn(ctx, task.TaskID, domain.ChatRequest{Message: "Heizung defekt"})
	if err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}
	if len(resp.Response.Options) != 2 {
		t.Fatalf("expected extracted options, got %+v", resp.Response.Options)
	}

	count, err := db.CountMessages(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("fallback replies are persisted too, got %d messages", count)
	}
}

func TestNextTurnForwardsPreviousResponseID(t *testing.T) {
	svc, _, mock := newTestService(t, `{"text":"ok","options":[]}`)
	task := createTask(t, svc)

	_, err := svc.NextTurn(context.Background(), task.TaskID, domain.ChatRequest{
		Message:            "Weiter",
		PreviousResponseID: "cmpl_prev",
	})
	if err != nil {
		t.Fatalf("NextTurn failed: %v", err)
	}
	if got := mock.Requests[0].PreviousResponseID; got != "cmpl_prev" {
		t.Fatalf("previous response ID not forwarded, got %q", got)
	}
}

func TestNextTurnCompletionFailure(t *testing.T) {
	svc, db, mock := newTestService(t, `{"text":"ok"}`)
	task := createTask(t, svc)
	mock.Fail(errors.New("completion API error [429]: rate limit exceeded"))

	_, err := svc.NextTurn(context.Background(), task.TaskID, domain.ChatRequest{Message: "Hilfe"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !completion.IsRateLimit(err) {
		t.Fatalf("expected rate-limit classification for %v", err)
	}

	count, err := db.CountMessages(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("CountMessages failed: %v", err)
	}
	if count != 0 {
		t.Fatal("failed turns must not persist messages")
	}
}

func TestDialogFlowClarifyingQuestion(t *testing.T) {
	svc, _, mock := newTestService(t, `Welche Informationen sollen im ersten Schritt abgefragt werden?`)

	resp, err := svc.DialogFlow(context.Background(), domain.DialogRequest{
		Messages: []domain.DialogMessage{{Role: "user", Content: "Ich möchte einen Ablauf für Heizungsstörungen."}},
	})
	if err != nil {
		t.Fatalf("DialogFlow failed: %v", err)
	}
	if resp.FlowExtracted {
		t.Fatal("clarifying turn must not extract a flow")
	}
	if resp.Message == "" {
		t.Fatal("expected a clarifying question")
	}
	if mock.Requests[0].ResponseFormat != nil {
		t.Fatal("clarifying turns must not force JSON output")
	}
}

func TestDialogFlowGenerateExtractsPlan(t *testing.T) {
	svc, _, mock := newTestService(t,
		`{"dialog_flow":{"steps":[{"id":"s1","question":"Welche Etage?","options":["EG"],"next":""}]}}`)

	resp, err := svc.DialogFlow(context.Background(), domain.DialogRequest{
		Messages: []domain.DialogMessage{
			{Role: "user", Content: "Ablauf für Heizungsstörungen."},
			{Role: "assistant", Content: "Welche Schritte?"},
			{Role: "user", Content: "Passt so, bitte generiere die Schritte."},
		},
	})
	if err != nil {
		t.Fatalf("DialogFlow failed: %v", err)
	}
	if !resp.FlowExtracted {
		t.Fatal("expected the flow to be extracted")
	}
	if gjson.GetBytes(resp.DialogFlow, "steps.0.id").String() != "s1" {
		t.Fatalf("unexpected flow: %s", resp.DialogFlow)
	}
	if mock.Requests[0].ResponseFormat == nil {
		t.Fatal("generation turns must force JSON output")
	}
}

func TestDialogFlowForwardsPreviousResponseID(t *testing.T) {
	svc, _, mock := newTestService(t, `Welche Schritte brauchst du?`)

	_, err := svc.DialogFlow(context.Background(), domain.DialogRequest{
		Messages:           []domain.DialogMessage{{Role: "user", Content: "Ablauf für Schlüsselverlust."}},
		PreviousResponseID: "cmpl_prev",
	})
	if err != nil {
		t.Fatalf("DialogFlow failed: %v", err)
	}
	if got := mock.Requests[0].PreviousResponseID; got != "cmpl_prev" {
		t.Fatalf("previous response ID not forwarded, got %q", got)
	}
}

func TestDialogFlowEmptyMessagesRejected(t *testing.T) {
	svc, _, _ := newTestService(t, `ok`)

	_, err := svc.DialogFlow(context.Background(), domain.DialogRequest{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMatchUseCaseLinksTask(t *testing.T) {
	svc, db, _ := newTestService(t, `{"use_case_id":"REPLACED","confidence":0.92}`)
	ctx := context.Background()

	uc, err := svc.CreateUseCase(ctx, CreateUseCaseInput{Title: "Heizungsstörung"})
	if err != nil {
		t.Fatalf("CreateUseCase failed: %v", err)
	}

	// Re-script the reply with the real use case ID.
	svc.completion = completion.NewMockClient(`{"use_case_id":"` + uc.UseCaseID + `","confidence":0.92}`)

	task := createTask(t, svc)
	matched, confidence, err := svc.MatchUseCase(ctx, task.TaskID, "usr_1")
	if err != nil {
		t.Fatalf("MatchUseCase failed: %v", err)
	}
	if matched == nil || matched.UseCaseID != uc.UseCaseID {
		t.Fatalf("expected match on %s, got %+v", uc.UseCaseID, matched)
	}
	if confidence != 0.92 {
		t.Fatalf("expected confidence 0.92, got %f", confidence)
	}

	updated, err := db.GetTask(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if updated.UseCaseID != uc.UseCaseID {
		t.Fatal("task not linked to matched use case")
	}
}

func TestMatchUseCaseUnknownIDIgnored(t *testing.T) {
	svc, db, _ := newTestService(t, `{"use_case_id":"uc_ghost","confidence":0.5}`)
	ctx := context.Background()

	if _, err := svc.CreateUseCase(ctx, CreateUseCaseInput{Title: "Heizungsstörung"}); err != nil {
		t.Fatalf("CreateUseCase failed: %v", err)
	}
	task := createTask(t, svc)

	matched, _, err := svc.MatchUseCase(ctx, task.TaskID, "usr_1")
	if err != nil {
		t.Fatalf("MatchUseCase failed: %v", err)
	}
	if matched != nil {
		t.Fatalf("unknown ID must not match, got %+v", matched)
	}

	updated, err := db.GetTask(ctx, task.TaskID)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if updated.UseCaseID != "" {
		t.Fatal("task must stay unlinked")
	}
}
