package supervisor

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/saborai/saborai/agent/contract"
	retryx "github.com/saborai/saborai/agent/retry"
)

func TestParseRoutingDecision(t *testing.T) {
	t.Parallel()

	known := contractx.KnownAgentTypes()

	tests := []struct {
		name         string
		raw          string
		wantAgents   []contractx.AgentType
		wantFallback bool
	}{
		{
			name:       "plain array",
			raw:        `["nutrition"]`,
			wantAgents: []contractx.AgentType{contractx.AgentTypeNutrition},
		},
		{
			name:       "fenced json",
			raw:        "```json\n[\"nutrition\", \"quality\"]\n```",
			wantAgents: []contractx.AgentType{contractx.AgentTypeNutrition, contractx.AgentTypeQuality},
		},
		{
			name:       "bare fence and whitespace",
			raw:        "```\n [\"recommendation\"] \n```",
			wantAgents: []contractx.AgentType{contractx.AgentTypeRecommendation},
		},
		{
			name:       "unknown tags dropped",
			raw:        `["nutrition", "astrology"]`,
			wantAgents: []contractx.AgentType{contractx.AgentTypeNutrition},
		},
		{
			name:       "duplicates collapsed",
			raw:        `["quality", "quality", "nutrition"]`,
			wantAgents: []contractx.AgentType{contractx.AgentTypeQuality, contractx.AgentTypeNutrition},
		},
		{
			name:       "case and spacing normalized",
			raw:        `[" Nutrition ", "QUALITY"]`,
			wantAgents: []contractx.AgentType{contractx.AgentTypeNutrition, contractx.AgentTypeQuality},
		},
		{
			name:         "only unknown tags falls back to all",
			raw:          `["astrology"]`,
			wantAgents:   known,
			wantFallback: true,
		},
		{
			name:         "empty array falls back to all",
			raw:          `[]`,
			wantAgents:   known,
			wantFallback: true,
		},
		{
			name:         "prose instead of json falls back to all",
			raw:          "I think nutrition would be best here.",
			wantAgents:   known,
			wantFallback: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			decision := parseRoutingDecision(tt.raw, known)
			if decision.Fallback != tt.wantFallback {
				t.Fatalf("fallback = %v, want %v", decision.Fallback, tt.wantFallback)
			}
			if len(decision.Agents) != len(tt.wantAgents) {
				t.Fatalf("agents = %v, want %v", decision.Agents, tt.wantAgents)
			}
			for i := range tt.wantAgents {
				if decision.Agents[i] != tt.wantAgents[i] {
					t.Fatalf("agents[%d] = %s, want %s", i, decision.Agents[i], tt.wantAgents[i])
				}
			}
		})
	}
}

func TestParseRoutingDecisionFallbackIsIdempotent(t *testing.T) {
	t.Parallel()

	known := contractx.KnownAgentTypes()
	first := parseRoutingDecision("garbage", known)
	second := parseRoutingDecision("different garbage", known)

	if len(first.Agents) != len(second.Agents) {
		t.Fatalf("fallback decisions differ: %v vs %v", first.Agents, second.Agents)
	}
	for i := range first.Agents {
		if first.Agents[i] != second.Agents[i] {
			t.Fatalf("fallback decisions differ at %d: %v vs %v", i, first.Agents, second.Agents)
		}
	}
}

func TestRouteRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{
		errs: []error{
			retryx.Transient(retryx.KindRateLimit, errors.New("429")),
			retryx.Transient(retryx.KindRateLimit, errors.New("429")),
		},
		responses: []string{"", "", `["quality"]`},
	}
	s := newTestSupervisor(t, reasoner, allSpecialists(), nil)

	decision, err := s.route(context.Background(), contractx.Query{Text: "Avalie o cardápio"})
	if err != nil {
		t.Fatalf("route() error = %v", err)
	}
	if len(decision.Agents) != 1 || decision.Agents[0] != contractx.AgentTypeQuality {
		t.Fatalf("decision = %v, want [quality]", decision.Agents)
	}
}

func TestRouteExhaustedRetriesIsTerminal(t *testing.T) {
	t.Parallel()

	transient := retryx.Transient(retryx.KindRateLimit, errors.New("429"))
	reasoner := &fakeReasoner{errs: []error{transient, transient, transient, transient}}
	s := newTestSupervisor(t, reasoner, allSpecialists(), nil)

	_, err := s.route(context.Background(), contractx.Query{Text: "anything"})
	if !errors.Is(err, contractx.ErrRoutingUnavailable) {
		t.Fatalf("error = %v, want ErrRoutingUnavailable", err)
	}

	var exhausted *retryx.ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error should carry retry details, got %T", err)
	}
	if exhausted.Kind != retryx.KindRateLimit {
		t.Fatalf("kind = %s, want %s", exhausted.Kind, retryx.KindRateLimit)
	}
}
