package llm

import "github.com/google/uuid"

// NewCallID generates a unique per-call id for providers that do not
// supply one on their own.
func NewCallID() string {
	return "call_" + uuid.NewString()
}
