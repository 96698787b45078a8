// Package testutil provides shared testing utilities for cartwright.
//
// It contains reusable test infrastructure usable across packages, following
// the pattern of standard library packages like net/http/httptest.
package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockLLM provides deterministic model responses for testing the agent loop.
//
// Two modes, combinable:
//   - Scripted turns (Enqueue*): consumed in order, one per generate call.
//     This drives multi-turn tool loops where the conversation grows between
//     calls.
//   - Pattern rules (AddResponse/AddToolResponse): matched against the last
//     user message when the script is empty; first match wins.
//
// Thread-safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	script   []mockTurn
	rules    []mockRule
	fallback string
	calls    []MockCall
}

type mockTurn struct {
	response string
	tools    []*ai.ToolRequest
	err      error
}

type mockRule struct {
	pattern  string // substring match in last user message, lowercase
	response string
	tools    []*ai.ToolRequest
}

// MockCall records a single call to the mock model.
type MockCall struct {
	UserMessage string        // last user message text
	Messages    []*ai.Message // full request messages at call time
	System      string        // system text seen by the model, if any
	Response    string        // response text returned
}

// NewMockLLM creates a mock model with the given fallback response.
// The fallback is returned when the script is empty and no rule matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// EnqueueText schedules a plain text turn.
func (m *MockLLM) EnqueueText(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockTurn{response: response})
}

// EnqueueToolRequests schedules a turn that requests the given tools.
func (m *MockLLM) EnqueueToolRequests(tools ...*ai.ToolRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockTurn{tools: tools})
}

// EnqueueError schedules a turn that fails with err.
func (m *MockLLM) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, mockTurn{err: err})
}

// AddResponse registers a pattern-response pair.
// When the last user message contains the pattern (case-insensitive), the
// response is returned. First match wins.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response})
}

// AddToolResponse registers a pattern that triggers tool requests.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, textResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: textResponse, tools: tools})
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Reset clears recorded calls and any unconsumed script (keeps rules).
func (m *MockLLM) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.script = nil
}

// ModelName is the provider-qualified name the mock registers under.
const ModelName = "mock/test-model"

// RegisterModel registers the mock as a Genkit model and returns a reference.
func (m *MockLLM) RegisterModel(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, ModelName, &ai.ModelOptions{
		Label: "Mock Test Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

// generate is the Genkit model function.
func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText, systemText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}
	for _, msg := range req.Messages {
		if msg.Role == ai.RoleSystem {
			systemText = msg.Text()
			break
		}
	}

	m.mu.Lock()

	var turn mockTurn
	switch {
	case len(m.script) > 0:
		turn = m.script[0]
		m.script = m.script[1:]
	default:
		turn = mockTurn{response: m.fallback}
		lower := strings.ToLower(userText)
		for i := range m.rules {
			if strings.Contains(lower, m.rules[i].pattern) {
				turn = mockTurn{response: m.rules[i].response, tools: m.rules[i].tools}
				break
			}
		}
	}

	messages := make([]*ai.Message, len(req.Messages))
	copy(messages, req.Messages)
	m.calls = append(m.calls, MockCall{
		UserMessage: userText,
		Messages:    messages,
		System:      systemText,
		Response:    turn.response,
	})
	m.mu.Unlock()

	if turn.err != nil {
		return nil, turn.err
	}

	if cb != nil && turn.response != "" {
		_ = cb(ctx, &ai.ModelResponseChunk{
			Content: []*ai.Part{ai.NewTextPart(turn.response)},
		})
	}

	var parts []*ai.Part
	for _, tr := range turn.tools {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	if turn.response != "" || len(parts) == 0 {
		parts = append(parts, ai.NewTextPart(turn.response))
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}
