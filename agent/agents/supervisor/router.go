package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/saborai/saborai/agent/contract"
	retryx "github.com/saborai/saborai/agent/retry"
)

// routingTemperature keeps the selection as deterministic as the model allows.
const routingTemperature float32 = 0

// route asks the reasoning service which specialists the query needs. The
// model's output is treated as untrusted: unknown tags are dropped and an
// empty or unparseable selection falls back to every known specialist, so a
// query is never left with zero coverage. Only the resilient call itself
// failing is terminal for the request.
func (s *Supervisor) route(ctx context.Context, q contractx.Query) (contractx.RoutingDecision, error) {
	prompt := strings.ReplaceAll(s.prompts.Routing, "{query}", q.Text)

	raw, _, err := retryx.Do(ctx, s.policy, "supervisor.route", func(ctx context.Context) (string, error) {
		return s.reasoner.Complete(ctx, contractx.CompletionRequest{
			Prompt:      prompt,
			Temperature: routingTemperature,
		})
	})
	if err != nil {
		return contractx.RoutingDecision{}, fmt.Errorf("%w: %w", contractx.ErrRoutingUnavailable, err)
	}

	decision := parseRoutingDecision(raw, s.registry.Tags())
	if decision.Fallback {
		log.Warn().Str("raw", raw).Msg("routing output unusable, falling back to all specialists")
	}
	log.Info().Interface("agents", decision.Agents).Bool("fallback", decision.Fallback).Msg("query routed")
	return decision, nil
}

// parseRoutingDecision decodes the model's tag selection, tolerating markdown
// fences around the JSON payload. The fallback is deterministic: repeated
// malformed inputs always yield the full specialist set.
func parseRoutingDecision(raw string, known []contractx.AgentType) contractx.RoutingDecision {
	payload := stripFences(raw)

	var names []string
	if err := json.Unmarshal([]byte(payload), &names); err != nil {
		return fallbackDecision(known)
	}

	isKnown := make(map[contractx.AgentType]bool, len(known))
	for _, tag := range known {
		isKnown[tag] = true
	}

	seen := make(map[contractx.AgentType]bool, len(names))
	agents := make([]contractx.AgentType, 0, len(names))
	for _, name := range names {
		tag := contractx.AgentType(strings.ToLower(strings.TrimSpace(name)))
		if !isKnown[tag] || seen[tag] {
			continue
		}
		seen[tag] = true
		agents = append(agents, tag)
	}

	if len(agents) == 0 {
		return fallbackDecision(known)
	}
	return contractx.RoutingDecision{Agents: agents}
}

func fallbackDecision(known []contractx.AgentType) contractx.RoutingDecision {
	agents := make([]contractx.AgentType, len(known))
	copy(agents, known)
	return contractx.RoutingDecision{Agents: agents, Fallback: true}
}

func stripFences(raw string) string {
	payload := strings.TrimSpace(raw)
	payload = strings.TrimPrefix(payload, "```json")
	payload = strings.TrimPrefix(payload, "```")
	payload = strings.TrimSuffix(payload, "```")
	return strings.TrimSpace(payload)
}
