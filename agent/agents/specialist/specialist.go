// Package specialist holds the three menu-analysis agents. Each variant
// shares one invocation contract and differs only in its prompt and
// context-shaping policy.
package specialist

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/saborai/saborai/agent/contract"
)

const emptyContextNote = "(no menu data has been ingested yet)"

// guard is an optional deterministic pre-check. When it reports handled=true
// the returned answer is used as-is and the model is never called.
type guard func(req contractx.EvaluateRequest) (answer string, handled bool)

type specialistImpl struct {
	tag          contractx.AgentType
	systemPrompt string
	temperature  float32
	reasoner     contractx.Reasoner
	guard        guard
}

var _ contractx.Specialist = (*specialistImpl)(nil)

func newSpecialist(
	tag contractx.AgentType,
	reasoner contractx.Reasoner,
	systemPrompt string,
	temperature float32,
	g guard,
) (*specialistImpl, error) {
	if reasoner == nil {
		return nil, fmt.Errorf("%w: reasoner is required for specialist=%s", contractx.ErrValidation, tag)
	}
	if strings.TrimSpace(systemPrompt) == "" {
		return nil, fmt.Errorf("%w: system prompt is required for specialist=%s", contractx.ErrValidation, tag)
	}
	return &specialistImpl{
		tag:          tag,
		systemPrompt: systemPrompt,
		temperature:  temperature,
		reasoner:     reasoner,
		guard:        g,
	}, nil
}

func (s *specialistImpl) Tag() contractx.AgentType {
	return s.tag
}

func (s *specialistImpl) Evaluate(ctx context.Context, req contractx.EvaluateRequest) (string, error) {
	if strings.TrimSpace(req.Query) == "" {
		return "", fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	if s.guard != nil {
		if answer, handled := s.guard(req); handled {
			return answer, nil
		}
	}

	menuContext := strings.TrimSpace(req.Context)
	if menuContext == "" {
		menuContext = emptyContextNote
	}

	out, err := s.reasoner.Complete(ctx, contractx.CompletionRequest{
		System:      s.systemPrompt,
		Prompt:      fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", menuContext, req.Query),
		Temperature: s.temperature,
	})
	if err != nil {
		return "", err
	}

	answer := strings.TrimSpace(out)
	if answer == "" {
		return "", fmt.Errorf("%w: specialist=%s returned an empty answer", contractx.ErrModelInvoke, s.tag)
	}
	return answer, nil
}
