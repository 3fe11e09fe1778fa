package types

// ContextDecision tells whether ranked knowledge is usable as grounding for an answer
type ContextDecision string

const (
	// ContextDecisionHasContext means at least one ranked entry carries text
	ContextDecisionHasContext ContextDecision = "HAS_CONTEXT"
	// ContextDecisionNoContext means the fixed fallback answer is used and no model is called
	ContextDecisionNoContext ContextDecision = "NO_CONTEXT"
)

// HasContext reports whether the decision allows a model call
func (d ContextDecision) HasContext() bool {
	return d == ContextDecisionHasContext
}

// String returns the string representation of the decision
func (d ContextDecision) String() string {
	return string(d)
}
