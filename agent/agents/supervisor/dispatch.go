package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/saborai/saborai/agent/contract"
	retryx "github.com/saborai/saborai/agent/retry"
)

// dispatch fans the selected specialists out concurrently and fans their
// findings back in. Every goroutine writes exactly one Finding to the
// channel, so the fan-in loop is the only synchronization point and no
// locks are needed. One specialist failing terminally never cancels or
// delays its siblings; wall-clock latency is bounded by the slowest call.
//
// emit, when non-nil, observes each finding in completion order. The
// aggregate itself is always assembled in selection order.
func (s *Supervisor) dispatch(
	ctx context.Context,
	q contractx.Query,
	decision contractx.RoutingDecision,
	menuContext string,
	started time.Time,
	emit func(contractx.Finding),
) *contractx.Aggregate {
	n := len(decision.Agents)
	results := make(chan contractx.Finding, n)

	for _, tag := range decision.Agents {
		go func(tag contractx.AgentType) {
			results <- s.invokeSpecialist(ctx, tag, q, menuContext)
		}(tag)
	}

	byTag := make(map[contractx.AgentType]contractx.Finding, n)
	for i := 0; i < n; i++ {
		finding := <-results
		if emit != nil {
			emit(finding)
		}
		byTag[finding.Agent] = finding
	}

	return buildAggregate(q, decision, byTag, time.Since(started))
}

// invokeSpecialist runs one specialist through the resilient caller and
// always produces a Finding, success or isolated failure.
func (s *Supervisor) invokeSpecialist(
	ctx context.Context,
	tag contractx.AgentType,
	q contractx.Query,
	menuContext string,
) contractx.Finding {
	t0 := time.Now()

	spec, ok := s.registry.Get(tag)
	if !ok {
		// The routing decision only carries known tags, so this is a wiring
		// bug rather than a runtime condition.
		return contractx.Finding{
			Agent:     tag,
			Failed:    true,
			Error:     fmt.Sprintf("no specialist registered for tag %q", tag),
			LatencyMS: latencyMS(t0),
		}
	}

	content, attempts, err := retryx.Do(ctx, s.policy, "specialist."+string(tag), func(ctx context.Context) (string, error) {
		return spec.Evaluate(ctx, contractx.EvaluateRequest{Query: q.Text, Context: menuContext})
	})
	if err != nil {
		log.Error().Str("agent", string(tag)).Int("attempts", attempts).Err(err).Msg("specialist failed")
		return contractx.Finding{
			Agent:     tag,
			Failed:    true,
			Error:     err.Error(),
			Attempts:  attempts,
			LatencyMS: latencyMS(t0),
		}
	}

	return contractx.Finding{
		Agent:     tag,
		Content:   content,
		Attempts:  attempts,
		LatencyMS: latencyMS(t0),
	}
}

// buildAggregate folds findings into the final answer. Findings are ordered
// by the routing decision regardless of completion order, one per tag. The
// combined response concatenates successful findings as tagged sections;
// no further model call is made to merge them.
func buildAggregate(
	q contractx.Query,
	decision contractx.RoutingDecision,
	byTag map[contractx.AgentType]contractx.Finding,
	total time.Duration,
) *contractx.Aggregate {
	findings := make([]contractx.Finding, 0, len(decision.Agents))
	sections := make([]string, 0, len(decision.Agents))
	failed := 0

	for _, tag := range decision.Agents {
		finding := byTag[tag]
		findings = append(findings, finding)
		if finding.Failed {
			failed++
			continue
		}
		sections = append(sections, fmt.Sprintf("[%s]\n%s", strings.ToUpper(string(tag)), finding.Content))
	}

	status := contractx.StatusOK
	response := strings.Join(sections, "\n\n")
	switch {
	case failed == len(decision.Agents):
		status = contractx.StatusFailed
		response = "Nenhum agente especialista conseguiu responder a esta consulta. Tente novamente em instantes."
	case failed > 0:
		status = contractx.StatusPartial
	}

	return &contractx.Aggregate{
		Query:      q.Text,
		AgentsUsed: decision.Agents,
		Findings:   findings,
		Response:   response,
		Status:     status,
		LatencyMS:  float64(total.Microseconds()) / 1000,
	}
}

func latencyMS(t0 time.Time) float64 {
	return float64(time.Since(t0).Microseconds()) / 1000
}
