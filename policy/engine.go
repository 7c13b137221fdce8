// Package policy decides whether a chat message is admitted for an exchange.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"
)

const (
	ActionAllow = "allow"
	ActionBlock = "block"
)

// Input is the document the admission policy evaluates.
type Input struct {
	OwnerID         string
	Message         string
	MaxLength       int
	NewConversation bool
}

// Decision is the outcome of an admission check.
type Decision struct {
	Action string
	Reason string
}

// Allowed reports whether the message may proceed.
func (d Decision) Allowed() bool {
	return d.Action != ActionBlock
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.chat_admission.decision"),
		rego.Module("chat_admission.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine creates an engine running DefaultPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// Evaluate runs the admission policy for in.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(map[string]interface{}{
		"owner_id":         in.OwnerID,
		"message":          in.Message,
		"message_length":   len([]rune(in.Message)),
		"max_length":       in.MaxLength,
		"new_conversation": in.NewConversation,
	}))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	// A policy without a default decision admits everything it does not match.
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Action: ActionAllow, Reason: "default"}, nil
	}

	switch val := results[0].Expressions[0].Value.(type) {
	case string:
		return Decision{Action: val}, nil
	case map[string]interface{}:
		action, _ := val["action"].(string)
		reason, _ := val["reason"].(string)
		if action == "" {
			return Decision{}, fmt.Errorf("policy decision has no action: %v", val)
		}
		return Decision{Action: action, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("unexpected policy decision type %T", val)
	}
}

// DefaultPolicy blocks blank messages and messages longer than max_length.
const DefaultPolicy = `
package chat_admission

default decision = {"action": "allow", "reason": ""}

decision = {"action": "block", "reason": "message must not be empty"} {
	trim_space(input.message) == ""
} else = {"action": "block", "reason": reason} {
	input.max_length > 0
	input.message_length > input.max_length
	reason := sprintf("message exceeds %d characters", [input.max_length])
}
`
