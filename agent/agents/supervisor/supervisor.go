// Package supervisor coordinates one query end to end: it asks the reasoning
// service which specialists the query needs, fans the selected specialists
// out concurrently, and folds their findings into a single aggregate. The
// same dispatch backs both the synchronous path and the event stream.
package supervisor

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/saborai/saborai/agent/contract"
	promptx "github.com/saborai/saborai/agent/prompt"
	retryx "github.com/saborai/saborai/agent/retry"
)

type Supervisor struct {
	reasoner  contractx.Reasoner
	retriever contractx.Retriever
	registry  contractx.Registry
	recorder  contractx.Recorder

	policy  retryx.Policy
	prompts promptx.Set

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	now func() time.Time
}

// New wires a supervisor. The recorder is optional; everything else is not.
func New(
	reasoner contractx.Reasoner,
	retriever contractx.Retriever,
	registry contractx.Registry,
	recorder contractx.Recorder,
	policy retryx.Policy,
) (*Supervisor, error) {
	if reasoner == nil {
		return nil, errors.New("reasoner is required")
	}
	if retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if registry == nil {
		return nil, errors.New("specialist registry is required")
	}
	if policy.MaxRetries < 0 {
		return nil, errors.New("retry policy max retries must be >= 0")
	}

	s := &Supervisor{
		reasoner:  reasoner,
		retriever: retriever,
		registry:  registry,
		recorder:  recorder,
		policy:    policy,
		prompts:   promptx.LoadSet(),
		now:       time.Now,
	}

	graphRunner, err := s.compileQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.graphRunner = graphRunner

	return s, nil
}

// HandleQuery runs the synchronous path. The aggregate is non-nil whenever
// routing succeeded, even when every specialist failed; in that case the
// aggregate is returned together with ErrAllAgentsFailed so the transport
// can choose how to surface it.
func (s *Supervisor) HandleQuery(ctx context.Context, q contractx.Query) (*contractx.Aggregate, error) {
	out, err := s.graphRunner.Invoke(ctx, GraphInput{Query: q})
	if err != nil {
		return nil, err
	}
	agg := out.Aggregate
	if agg != nil && agg.Status == contractx.StatusFailed {
		return agg, contractx.ErrAllAgentsFailed
	}
	return agg, nil
}

// retrieveContext issues the single resilient retrieval call for a request.
// A terminal retrieval failure degrades to an empty context: the specialists
// will tell the user no menu data is available instead of failing the query.
func (s *Supervisor) retrieveContext(ctx context.Context, q contractx.Query) string {
	docs, _, err := retryx.Do(ctx, s.policy, "retriever.retrieve", func(ctx context.Context) (string, error) {
		return s.retriever.Retrieve(ctx, q.Text, q.Menu)
	})
	if err != nil {
		log.Warn().Err(err).Str("menu", q.Menu).Msg("retrieval failed, continuing with empty context")
		return ""
	}
	return docs
}

// record persists the aggregate when a recorder is configured. History is an
// observability concern, so failures are logged and swallowed.
func (s *Supervisor) record(agg *contractx.Aggregate) {
	if s.recorder == nil || agg == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.recorder.Record(ctx, agg); err != nil {
		log.Warn().Err(err).Msg("failed to record query history")
	}
}
