package agent

import (
	"errors"
	"fmt"
)

// Sentinel errors for agent operations.
// Only errors that are checked with errors.Is() are defined here.
var (
	// ErrQuotaExhausted indicates the model provider rejected the request
	// due to quota or rate limits.
	// Used by: api/chat.go for HTTP status mapping
	ErrQuotaExhausted = errors.New("model quota exhausted")

	// ErrAuthFailed indicates the model provider rejected the credentials.
	// Used by: api/chat.go for HTTP status mapping
	ErrAuthFailed = errors.New("model authentication failed")

	// ErrGenerationFailed indicates model generation failed for any other
	// reason.
	ErrGenerationFailed = errors.New("generation failed")
)

// quotaPatterns and authPatterns classify provider errors by substring.
// Matched case-insensitively against err.Error().
//
// NOTE: String matching is used because Genkit and the Google GenAI SDK do
// not expose typed errors for these failure classes. Re-evaluate if a future
// Genkit version adds structured errors.
var (
	quotaPatterns = []string{"quota", "rate limit", "resource_exhausted", "429"}
	authPatterns  = []string{"api key", "unauthenticated", "unauthorized", "permission denied", "401", "403"}
)

// classify wraps a generation error with the matching sentinel so callers
// can map it to a user-facing failure class with errors.Is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	switch {
	case containsAny(errStr, quotaPatterns...):
		return fmt.Errorf("%w: %v", ErrQuotaExhausted, err)
	case containsAny(errStr, authPatterns...):
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	default:
		return fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
}
