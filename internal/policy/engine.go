// Package policy evaluates task status transitions against a rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

// Decision is the outcome of a transition evaluation.
type Decision string

const (
	DecisionAllow          Decision = "allow"
	DecisionBlock          Decision = "block"
	DecisionRequireComment Decision = "require_comment"
)

// TransitionInput is the input document for a transition evaluation.
type TransitionInput struct {
	From           string `json:"from"`
	To             string `json:"to"`
	Reopen         bool   `json:"reopen"`
	ClosingComment string `json:"closing_comment"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.task_policy.decision"),
		rego.Module("task_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Evaluate checks the transition policy and returns the decision.
func (e *Engine) Evaluate(ctx context.Context, input TransitionInput) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return "", fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return DecisionAllow, nil
	}

	if s, ok := results[0].Expressions[0].Value.(string); ok {
		return Decision(s), nil
	}
	return "", fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
}

// DefaultPolicy is the default transition policy: terminal states are
// immutable unless the transition is an explicit reopen, and completing a
// task requires a closing comment.
const DefaultPolicy = `
package task_policy

import rego.v1

default decision := "allow"

terminal := {"completed", "cancelled"}

decision := "block" if {
	input.from in terminal
	not input.reopen
}

decision := "require_comment" if {
	not input.from in terminal
	input.to == "completed"
	trim_space(input.closing_comment) == ""
}
`
