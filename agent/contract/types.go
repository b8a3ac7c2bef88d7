package contract

// AgentType identifies a specialist agent.
type AgentType string

const (
	AgentTypeNutrition      AgentType = "nutrition"
	AgentTypeRecommendation AgentType = "recommendation"
	AgentTypeQuality        AgentType = "quality"
)

// KnownAgentTypes returns every specialist tag in its canonical order.
// The order doubles as the fallback routing decision.
func KnownAgentTypes() []AgentType {
	return []AgentType{AgentTypeNutrition, AgentTypeRecommendation, AgentTypeQuality}
}

func (a AgentType) Known() bool {
	switch a {
	case AgentTypeNutrition, AgentTypeRecommendation, AgentTypeQuality:
		return true
	default:
		return false
	}
}

// Query is one user request. It is immutable for the lifetime of the request.
type Query struct {
	Text      string `json:"query"`
	Menu      string `json:"menu_name,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// RoutingDecision is the set of specialist tags selected for a query,
// in selection order. It is produced once and never mutated afterwards.
type RoutingDecision struct {
	Agents   []AgentType `json:"agents"`
	Fallback bool        `json:"fallback,omitempty"`
}

// Finding is the structured output of one specialist invocation.
type Finding struct {
	Agent     AgentType `json:"agent"`
	Content   string    `json:"content,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	Error     string    `json:"error,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	LatencyMS float64   `json:"latency_ms"`
}

type AggregateStatus string

const (
	StatusOK      AggregateStatus = "ok"
	StatusPartial AggregateStatus = "partial"
	StatusFailed  AggregateStatus = "failed"
)

// Aggregate is the final answer for one query. Findings appear in selection
// order, exactly one per tag in the routing decision.
type Aggregate struct {
	Query      string          `json:"query"`
	AgentsUsed []AgentType     `json:"agents_used"`
	Findings   []Finding       `json:"findings"`
	Response   string          `json:"response"`
	Status     AggregateStatus `json:"status"`
	LatencyMS  float64         `json:"latency_ms"`
}

type EventType string

const (
	EventRouting  EventType = "routing"
	EventAgent    EventType = "agent"
	EventResponse EventType = "response"
	EventDone     EventType = "done"
)

// StreamEvent is one element of the incremental delivery protocol.
// Exactly one field besides Type is populated, depending on Type:
// routing carries Agents, agent carries Finding, response carries Aggregate,
// done carries nothing.
type StreamEvent struct {
	Type      EventType   `json:"type"`
	Agents    []AgentType `json:"agents,omitempty"`
	Finding   *Finding    `json:"finding,omitempty"`
	Aggregate *Aggregate  `json:"aggregate,omitempty"`
}
