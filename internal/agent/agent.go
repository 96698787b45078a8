// Package agent implements the shopping assistant's reasoning loop.
//
// The agent drives a model conversation in which the model may request tool
// calls. Requested tools are dispatched through the tool registry, their
// outputs are fed back as tool messages, and the loop continues until the
// model produces a plain text answer or the turn cap is reached.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/cartwright0/cartwright/internal/log"
	"github.com/cartwright0/cartwright/internal/tools"
)

const (
	// systemPrompt primes the model for the shopping assistant role.
	systemPrompt = `You are a helpful e-commerce shopping assistant.
You help users discover and learn about products from our store.

Available tools:
- list_products() - Show all available items
- product_details(product_id) - Get specific product information
- list_categories() - Show available categories
- products_by_category(category) - Filter by category
- search_products(query, category, min_price, max_price) - Search and filter products
- compare_products(product_ids) - Compare multiple products side-by-side
- add_to_cart(product_id, quantity) - Add items to shopping cart
- remove_from_cart(product_id) - Remove items from cart
- view_cart() - Show cart contents and total

Be friendly, helpful, and concise. Format responses nicely for readability. Make sure you use spacious tabular format to show product lists and comparisons.`

	// fallbackResponseMessage is returned when the model produces an empty
	// response with no tool requests.
	fallbackResponseMessage = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

	// turnLimitMessage is returned when the loop hits the turn cap while the
	// model is still requesting tools.
	turnLimitMessage = "I wasn't able to finish answering within the allowed number of steps. Please try a simpler or more specific request."

	defaultMaxTurns  = 8
	defaultChunkSize = 5
)

// Response represents the complete result of an agent execution.
type Response struct {
	FinalText    string            // Model's final text output
	ToolRequests []*ai.ToolRequest // Tool requests dispatched during execution
	Turns        int               // Model calls consumed
}

// Config contains all required parameters for the agent.
type Config struct {
	Genkit   *genkit.Genkit
	Registry *tools.Registry
	Logger   log.Logger
	Tools    []ai.Tool // Pre-registered tools from tools.Register()

	// Configuration values
	ModelName   string  // Provider-qualified model name (e.g., "googleai/gemini-2.5-flash-lite")
	MaxTurns    int     // Maximum reasoning loop turns
	ChunkSize   int     // Streaming chunk size in runes
	Temperature float32 // Sampling temperature

	// Resilience configuration
	RetryConfig RetryConfig   // Model retry settings (zero-value uses defaults)
	RateLimiter *rate.Limiter // Optional: proactive rate limiting (nil = use default)
}

// validate checks if all required parameters are present.
func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Registry == nil {
		return errors.New("tool registry is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	return nil
}

// Agent is the shopping assistant's conversational core.
//
// Agent is stateless between calls and safe for concurrent use. All
// configuration values are captured immutably at construction time.
type Agent struct {
	// Immutable configuration (captured at construction)
	modelName   string
	maxTurns    int
	chunkSize   int
	temperature float32

	// Resilience (captured at construction)
	retryConfig RetryConfig
	rateLimiter *rate.Limiter

	// Dependencies (read-only after construction)
	g         *genkit.Genkit
	registry  *tools.Registry
	logger    log.Logger
	toolRefs  []ai.ToolRef // Cached at construction (ai.Tool implements ai.ToolRef)
	toolNames string       // Cached as comma-separated for logging
}

// New creates a new Agent with required configuration.
//
// Example:
//
//	assistant, err := agent.New(agent.Config{
//	    Genkit:    g,
//	    Registry:  registry,
//	    Logger:    logger,
//	    Tools:     registered,
//	    ModelName: cfg.FullModelName(),
//	    MaxTurns:  cfg.MaxTurns,
//	})
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	// Default: 10 requests/sec sustained, burst of 30
	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	// Cache tool refs and names at construction
	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		modelName:   cfg.ModelName,
		maxTurns:    maxTurns,
		chunkSize:   chunkSize,
		temperature: cfg.Temperature,

		retryConfig: retryConfig,
		rateLimiter: rl,

		g:         cfg.Genkit,
		registry:  cfg.Registry,
		logger:    cfg.Logger,
		toolRefs:  toolRefs,
		toolNames: strings.Join(names, ", "),
	}

	a.logger.Info("shopping agent initialized",
		"totalTools", len(toolRefs),
		"maxTurns", a.maxTurns,
		"model", a.modelName,
	)

	return a, nil
}

// Run executes one conversation turn for the given user.
//
// history carries prior conversation messages in order; input is the new user
// message. Cart tools executed during the turn are scoped to userID.
func (a *Agent) Run(ctx context.Context, userID, input string, history []*ai.Message) (*Response, error) {
	ctx = tools.WithUserID(ctx, userID)

	// Deep copy history before generation. Genkit's renderMessages mutates
	// message content in place, so concurrent runs sharing history would
	// race on the same message objects.
	messages := deepCopyMessages(history)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(input)))

	var dispatched []*ai.ToolRequest

	for turn := 1; turn <= a.maxTurns; turn++ {
		resp, err := a.generate(ctx, messages)
		if err != nil {
			return nil, classify(err)
		}

		requests := resp.ToolRequests()
		if len(requests) == 0 {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				a.logger.Warn("model returned empty response with no tool requests",
					"user_id", userID)
				text = fallbackResponseMessage
			}
			return &Response{FinalText: text, ToolRequests: dispatched, Turns: turn}, nil
		}

		a.logger.Debug("dispatching tool requests",
			"turn", turn,
			"count", len(requests),
		)

		messages = append(messages, resp.Message)

		toolMsg := &ai.Message{Role: ai.RoleTool}
		for _, req := range requests {
			dispatched = append(dispatched, req)
			toolMsg.Content = append(toolMsg.Content, &ai.Part{
				Kind: ai.PartToolResponse,
				ToolResponse: &ai.ToolResponse{
					Name:   req.Name,
					Ref:    req.Ref,
					Output: a.executeTool(ctx, req),
				},
			})
		}
		messages = append(messages, toolMsg)
	}

	a.logger.Warn("turn cap reached with pending tool requests",
		"user_id", userID,
		"maxTurns", a.maxTurns,
	)
	return &Response{FinalText: turnLimitMessage, ToolRequests: dispatched, Turns: a.maxTurns}, nil
}

// generate performs one model call with tools attached but not auto-resolved.
// Tool dispatch stays in Run so unknown tools and handler failures become
// tool messages the model can recover from, instead of aborting the loop.
func (a *Agent) generate(ctx context.Context, messages []*ai.Message) (*ai.ModelResponse, error) {
	opts := []ai.GenerateOption{
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithReturnToolRequests(true),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature: genai.Ptr(a.temperature),
		}),
	}
	if a.modelName != "" {
		opts = append(opts, ai.WithModelName(a.modelName))
	}

	a.logger.Debug("calling model",
		"tools", a.toolNames,
		"messageCount", len(messages),
	)

	return a.generateWithRetry(ctx, opts)
}

// executeTool resolves and runs a single tool request, returning the output
// the model should see. Failures are reported to the model as text.
func (a *Agent) executeTool(ctx context.Context, req *ai.ToolRequest) any {
	tool := a.registry.Lookup(req.Name)
	if tool == nil {
		a.logger.Warn("model requested unknown tool", "tool", req.Name)
		return fmt.Sprintf("Tool '%s' not found", req.Name)
	}

	out, err := tool.RunRaw(ctx, req.Input)
	if err != nil {
		a.logger.Warn("tool execution failed",
			"tool", req.Name,
			"error", err,
		)
		return fmt.Sprintf("Error executing tool: %v", err)
	}
	return out
}

// deepCopyMessages copies each message down to its Part values so
// generation cannot mutate the caller's history.
func deepCopyMessages(messages []*ai.Message) []*ai.Message {
	copied := make([]*ai.Message, len(messages))
	for i, msg := range messages {
		content := make([]*ai.Part, len(msg.Content))
		for j, part := range msg.Content {
			content[j] = deepCopyPart(part)
		}
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  content,
			Metadata: shallowCopyMap(msg.Metadata),
		}
	}
	return copied
}

// deepCopyPart copies one Part struct. ToolRequest.Input and
// ToolResponse.Output are `any` and stay shared; they are JSON-decoded
// values nothing mutates after dispatch.
func deepCopyPart(p *ai.Part) *ai.Part {
	if p == nil {
		return nil
	}
	cp := &ai.Part{
		Kind:        p.Kind,
		ContentType: p.ContentType,
		Text:        p.Text,
		Custom:      shallowCopyMap(p.Custom),
		Metadata:    shallowCopyMap(p.Metadata),
	}
	if p.ToolRequest != nil {
		cp.ToolRequest = &ai.ToolRequest{
			Name:  p.ToolRequest.Name,
			Ref:   p.ToolRequest.Ref,
			Input: p.ToolRequest.Input,
		}
	}
	if p.ToolResponse != nil {
		cp.ToolResponse = &ai.ToolResponse{
			Name:   p.ToolResponse.Name,
			Ref:    p.ToolResponse.Ref,
			Output: p.ToolResponse.Output,
		}
	}
	return cp
}

func shallowCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
