package contract

import "errors"

var (
	ErrModelInvoke        = errors.New("model invoke failed")
	ErrRoutingUnavailable = errors.New("routing unavailable")
	ErrAllAgentsFailed    = errors.New("all specialist agents failed")
	ErrValidation         = errors.New("validation failed")
)
