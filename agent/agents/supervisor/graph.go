package supervisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/saborai/saborai/agent/contract"
)

type GraphInput struct {
	Query contractx.Query
}

type GraphOutput struct {
	Aggregate *contractx.Aggregate
}

// GraphState is threaded through the synchronous query pipeline.
type GraphState struct {
	Query    contractx.Query
	Started  time.Time
	Decision contractx.RoutingDecision
	Context  string
}

func validateQuery(q contractx.Query) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: query text is required", contractx.ErrValidation)
	}
	return nil
}

func (s *Supervisor) compileQueryGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_query",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*GraphState, error) {
			if err := validateQuery(in.Query); err != nil {
				return nil, err
			}
			return &GraphState{Query: in.Query, Started: s.now()}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_query: %w", err)
	}

	if err := graph.AddLambdaNode("route_query",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			decision, err := s.route(ctx, in.Query)
			if err != nil {
				return nil, err
			}
			in.Decision = decision
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node route_query: %w", err)
	}

	if err := graph.AddLambdaNode("retrieve_context",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (*GraphState, error) {
			in.Context = s.retrieveContext(ctx, in.Query)
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node retrieve_context: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_specialists",
		compose.InvokableLambda(func(ctx context.Context, in *GraphState) (GraphOutput, error) {
			agg := s.dispatch(ctx, in.Query, in.Decision, in.Context, in.Started, nil)
			s.record(agg)
			return GraphOutput{Aggregate: agg}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_specialists: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_query"},
		{"validate_query", "route_query"},
		{"route_query", "retrieve_context"},
		{"retrieve_context", "dispatch_specialists"},
		{"dispatch_specialists", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("supervisor.handle_query"))
	if err != nil {
		return nil, fmt.Errorf("compile supervisor graph: %w", err)
	}
	return runner, nil
}
