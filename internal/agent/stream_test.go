package agent

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
)

func collect(seq func(yield func(string) bool)) []string {
	var out []string
	seq(func(s string) bool {
		out = append(out, s)
		return true
	})
	return out
}

func TestChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{"even split with remainder", "abcdefghijkl", 5, []string{"abcde", "fghij", "kl"}},
		{"exact multiple", "abcdef", 3, []string{"abc", "def"}},
		{"shorter than size", "hi", 5, []string{"hi"}},
		{"empty", "", 5, nil},
		{"multibyte runes stay intact", "héllo wörld", 4, []string{"héll", "o wö", "rld"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(chunks(tt.text, tt.size))
			if !slices.Equal(got, tt.want) {
				t.Errorf("chunks(%q, %d) = %q, want %q", tt.text, tt.size, got, tt.want)
			}
		})
	}
}

func TestChunks_EarlyStop(t *testing.T) {
	var got []string
	for c := range chunks("abcdefghij", 2) {
		got = append(got, c)
		if len(got) == 2 {
			break
		}
	}
	if !slices.Equal(got, []string{"ab", "cd"}) {
		t.Errorf("got %q", got)
	}
}

func TestAgentChunks_UsesConfiguredSize(t *testing.T) {
	a, _ := newTestAgent(t, func(cfg *Config) {
		cfg.ChunkSize = 3
	})
	got := collect(a.Chunks("abcdefg"))
	if !slices.Equal(got, []string{"abc", "def", "g"}) {
		t.Errorf("got %q", got)
	}
}

func TestStream_ChunksFinalAnswer(t *testing.T) {
	a, env := newTestAgent(t, nil)
	env.llm.EnqueueText("abcdefghijkl")

	var pieces []string
	for chunk, err := range a.Stream(context.Background(), "alice", "hi", nil) {
		if err != nil {
			t.Fatalf("Stream: %v", err)
		}
		if chunk.Index != len(pieces) {
			t.Errorf("chunk index = %d, want %d", chunk.Index, len(pieces))
		}
		pieces = append(pieces, chunk.Text)
	}
	if !slices.Equal(pieces, []string{"abcde", "fghij", "kl"}) {
		t.Errorf("pieces = %q", pieces)
	}
	if strings.Join(pieces, "") != "abcdefghijkl" {
		t.Error("concatenated chunks do not reproduce the answer")
	}
}

func TestStream_YieldsClassifiedError(t *testing.T) {
	a, env := newTestAgent(t, nil)
	env.llm.EnqueueError(errors.New("googleai: API key not valid"))

	var streamErr error
	count := 0
	for _, err := range a.Stream(context.Background(), "alice", "hi", nil) {
		count++
		streamErr = err
	}
	if count != 1 {
		t.Fatalf("yields = %d, want 1", count)
	}
	if !errors.Is(streamErr, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", streamErr)
	}
}
