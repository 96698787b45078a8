package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Registry resolves registered tools by name.
//
// Registry is stateless and safe for concurrent use: it performs a fresh
// Genkit lookup on every call, with ToolNames() as the single source of
// truth for which tools exist.
type Registry struct {
	g *genkit.Genkit
}

// NewRegistry creates a tool registry backed by the given Genkit instance.
func NewRegistry(g *genkit.Genkit) *Registry {
	return &Registry{g: g}
}

// All returns references to every registered shopping tool, for passing to
// generation options.
func (r *Registry) All(ctx context.Context) []ai.ToolRef {
	names := ToolNames()
	refs := make([]ai.ToolRef, 0, len(names))
	for _, name := range names {
		if tool := genkit.LookupTool(r.g, name); tool != nil {
			refs = append(refs, tool)
		}
	}
	return refs
}

// Lookup resolves one tool by name, or nil when the name is unknown.
// The dispatcher uses the nil result to produce an unknown-tool message
// instead of failing the loop.
func (r *Registry) Lookup(name string) ai.Tool {
	return genkit.LookupTool(r.g, name)
}

// Count returns the number of registered shopping tools.
func (r *Registry) Count(ctx context.Context) int {
	return len(r.All(ctx))
}
