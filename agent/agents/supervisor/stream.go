package supervisor

import (
	"context"

	"github.com/rs/zerolog/log"

	contractx "github.com/saborai/saborai/agent/contract"
)

// StreamQuery replays one dispatch as an ordered sequence of events:
// exactly one routing event first, one agent event per dispatched specialist
// in completion order, then response, then done. The channel is closed after
// done; the sequence is finite and not restartable.
//
// Routing runs before the channel is returned, so a routing failure is the
// single terminal error a stream caller can see.
//
// If the consumer's ctx is cancelled mid-stream, delivery stops but in-flight
// specialist invocations run to completion on a detached context.
func (s *Supervisor) StreamQuery(ctx context.Context, q contractx.Query) (<-chan contractx.StreamEvent, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}
	started := s.now()

	decision, err := s.route(ctx, q)
	if err != nil {
		return nil, err
	}

	events := make(chan contractx.StreamEvent)
	go func() {
		defer close(events)

		if !send(ctx, events, contractx.StreamEvent{Type: contractx.EventRouting, Agents: decision.Agents}) {
			return
		}

		// Specialist calls outlive a consumer disconnect on purpose; only
		// event delivery is tied to the consumer's context.
		callCtx := context.WithoutCancel(ctx)
		menuContext := s.retrieveContext(callCtx, q)

		delivering := true
		agg := s.dispatch(callCtx, q, decision, menuContext, started, func(finding contractx.Finding) {
			if !delivering {
				return
			}
			f := finding
			delivering = send(ctx, events, contractx.StreamEvent{Type: contractx.EventAgent, Finding: &f})
		})
		s.record(agg)

		if !delivering {
			log.Debug().Msg("stream consumer went away, dropping remaining events")
			return
		}
		if !send(ctx, events, contractx.StreamEvent{Type: contractx.EventResponse, Aggregate: agg}) {
			return
		}
		send(ctx, events, contractx.StreamEvent{Type: contractx.EventDone})
	}()

	return events, nil
}

// send delivers one event unless the consumer has gone away.
func send(ctx context.Context, events chan<- contractx.StreamEvent, ev contractx.StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
