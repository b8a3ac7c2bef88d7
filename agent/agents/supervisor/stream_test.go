package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	contractx "github.com/saborai/saborai/agent/contract"
	retryx "github.com/saborai/saborai/agent/retry"
)

func collectEvents(t *testing.T, events <-chan contractx.StreamEvent) []contractx.StreamEvent {
	t.Helper()

	var got []contractx.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-timeout:
			t.Fatalf("stream did not close, events so far: %d", len(got))
		}
	}
}

func TestStreamQueryEventSequence(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{responses: []string{`["nutrition", "quality"]`}}
	recorder := &fakeRecorder{}
	s := newTestSupervisor(t, reasoner, allSpecialists(), recorder)

	events, err := s.StreamQuery(context.Background(), contractx.Query{Text: "Avalie o cardápio"})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 5 {
		t.Fatalf("events = %d, want routing + 2 agents + response + done", len(got))
	}

	routing := got[0]
	if routing.Type != contractx.EventRouting {
		t.Fatalf("first event = %s, want %s", routing.Type, contractx.EventRouting)
	}
	if len(routing.Agents) != 2 {
		t.Fatalf("routing agents = %v, want [nutrition quality]", routing.Agents)
	}

	// Agent events arrive in completion order, so only check the set.
	seen := map[contractx.AgentType]bool{}
	for _, ev := range got[1:3] {
		if ev.Type != contractx.EventAgent {
			t.Fatalf("event type = %s, want %s", ev.Type, contractx.EventAgent)
		}
		if ev.Finding == nil {
			t.Fatal("agent event missing its finding")
		}
		seen[ev.Finding.Agent] = true
	}
	if !seen[contractx.AgentTypeNutrition] || !seen[contractx.AgentTypeQuality] {
		t.Fatalf("agent events cover %v, want both routed tags", seen)
	}

	response := got[3]
	if response.Type != contractx.EventResponse {
		t.Fatalf("fourth event = %s, want %s", response.Type, contractx.EventResponse)
	}
	if response.Aggregate == nil || response.Aggregate.Status != contractx.StatusOK {
		t.Fatalf("response aggregate = %#v, want ok status", response.Aggregate)
	}

	if got[4].Type != contractx.EventDone {
		t.Fatalf("last event = %s, want %s", got[4].Type, contractx.EventDone)
	}

	if recorder.count() != 1 {
		t.Fatalf("recorded = %d, want 1", recorder.count())
	}
}

func TestStreamQueryRoutingFailureIsTerminal(t *testing.T) {
	t.Parallel()

	reasoner := &fakeReasoner{errs: []error{
		retryx.Terminal(retryx.KindAuth, errors.New("invalid key")),
	}}
	s := newTestSupervisor(t, reasoner, allSpecialists(), nil)

	events, err := s.StreamQuery(context.Background(), contractx.Query{Text: "anything"})
	if !errors.Is(err, contractx.ErrRoutingUnavailable) {
		t.Fatalf("error = %v, want ErrRoutingUnavailable", err)
	}
	if events != nil {
		t.Fatal("no channel should be handed out when routing fails")
	}
}

func TestStreamQueryEmptyTextFails(t *testing.T) {
	t.Parallel()

	s := newTestSupervisor(t, &fakeReasoner{}, allSpecialists(), nil)
	if _, err := s.StreamQuery(context.Background(), contractx.Query{Text: ""}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestStreamQueryPartialFailureKeepsStreaming(t *testing.T) {
	t.Parallel()

	registry := &fakeRegistry{specs: []*fakeSpecialist{
		{tag: contractx.AgentTypeNutrition, answer: "análise"},
		{tag: contractx.AgentTypeQuality, err: retryx.Terminal(retryx.KindServer, errors.New("down"))},
	}}
	reasoner := &fakeReasoner{responses: []string{`["nutrition", "quality"]`}}
	s := newTestSupervisor(t, reasoner, registry, nil)

	events, err := s.StreamQuery(context.Background(), contractx.Query{Text: "anything"})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	got := collectEvents(t, events)
	if len(got) != 5 {
		t.Fatalf("events = %d, want 5 even with one failed agent", len(got))
	}

	failed := 0
	for _, ev := range got[1:3] {
		if ev.Finding != nil && ev.Finding.Failed {
			failed++
		}
	}
	if failed != 1 {
		t.Fatalf("failed agent events = %d, want 1", failed)
	}
	if got[3].Aggregate.Status != contractx.StatusPartial {
		t.Fatalf("status = %s, want %s", got[3].Aggregate.Status, contractx.StatusPartial)
	}
}

func TestStreamQueryConsumerCancelStopsDelivery(t *testing.T) {
	t.Parallel()

	// The slow specialist keeps the dispatch in flight while the consumer
	// walks away. Delivery must stop, the channel must close, and the
	// aggregate must still be recorded from the detached call.
	registry := &fakeRegistry{specs: []*fakeSpecialist{
		{tag: contractx.AgentTypeNutrition, answer: "slow answer", delay: 50 * time.Millisecond},
	}}
	reasoner := &fakeReasoner{responses: []string{`["nutrition"]`}}
	recorder := &fakeRecorder{}
	s := newTestSupervisor(t, reasoner, registry, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	events, err := s.StreamQuery(ctx, contractx.Query{Text: "anything"})
	if err != nil {
		t.Fatalf("StreamQuery() error = %v", err)
	}

	first := <-events
	if first.Type != contractx.EventRouting {
		t.Fatalf("first event = %s, want %s", first.Type, contractx.EventRouting)
	}
	cancel()

	// Stop receiving long enough for the slow specialist to finish, so the
	// producer observes the cancelled context instead of a ready consumer.
	time.Sleep(150 * time.Millisecond)

	for ev := range events {
		if ev.Type == contractx.EventResponse || ev.Type == contractx.EventDone {
			t.Fatalf("got %s after consumer cancel", ev.Type)
		}
	}

	// The in-flight specialist call runs on a detached context, so the
	// result still reaches the recorder shortly after.
	deadline := time.Now().Add(2 * time.Second)
	for recorder.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("aggregate was never recorded after consumer cancel")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
