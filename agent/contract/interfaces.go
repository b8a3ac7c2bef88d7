package contract

import "context"

// CompletionRequest is one prompt for the reasoning service.
// Temperature < 0 means "use the client default".
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
}

// Reasoner is the externally rate-limited reasoning dependency. All retry and
// backoff logic in this repo targets calls through this interface.
type Reasoner interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// Retriever supplies menu context for a query. Retrieval internals (chunking,
// embeddings, ranking) are not this repo's concern.
type Retriever interface {
	Retrieve(ctx context.Context, query string, menuName string) (string, error)
}

// EvaluateRequest carries the query plus externally retrieved context.
type EvaluateRequest struct {
	Query   string
	Context string
}

// Specialist turns a query and retrieved context into a domain answer.
// Implementations never retry internally; that is the dispatcher's job.
type Specialist interface {
	Tag() AgentType
	Evaluate(ctx context.Context, req EvaluateRequest) (string, error)
}

// Registry resolves specialists by tag.
type Registry interface {
	Get(tag AgentType) (Specialist, bool)
	Tags() []AgentType
}

// Recorder persists a handled query for later inspection. Implementations
// must tolerate being called concurrently.
type Recorder interface {
	Record(ctx context.Context, agg *Aggregate) error
}
