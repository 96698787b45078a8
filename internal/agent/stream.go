package agent

import (
	"context"
	"iter"

	"github.com/firebase/genkit/go/ai"
)

// Chunk is one piece of a streamed answer.
type Chunk struct {
	Text  string
	Index int
}

// Stream runs one conversation turn and yields the final answer as a lazy
// sequence of fixed-size chunks. The sequence is finite, in order, and
// non-restartable; concatenating every chunk reproduces the full answer.
//
// A generation failure yields a single zero Chunk with the classified error
// and ends the sequence. Cancelling ctx stops the sequence between chunks.
func (a *Agent) Stream(ctx context.Context, userID, input string, history []*ai.Message) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		resp, err := a.Run(ctx, userID, input, history)
		if err != nil {
			yield(Chunk{}, err)
			return
		}

		i := 0
		for piece := range chunks(resp.FinalText, a.chunkSize) {
			if ctx.Err() != nil {
				yield(Chunk{}, ctx.Err())
				return
			}
			if !yield(Chunk{Text: piece, Index: i}, nil) {
				return
			}
			i++
		}
	}
}

// Chunks splits text into pieces using the agent's configured chunk size.
// Used by transports that run the loop themselves and shape the output.
func (a *Agent) Chunks(text string) iter.Seq[string] {
	return chunks(text, a.chunkSize)
}

// chunks yields size-rune pieces of s in order. The final piece may be
// shorter. Splitting on runes keeps multi-byte characters intact.
func chunks(s string, size int) iter.Seq[string] {
	return func(yield func(string) bool) {
		if size <= 0 {
			size = defaultChunkSize
		}
		runes := []rune(s)
		for i := 0; i < len(runes); i += size {
			end := min(i+size, len(runes))
			if !yield(string(runes[i:end])) {
				return
			}
		}
	}
}
