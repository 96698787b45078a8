package tui

import (
	"context"
	"fmt"
	"log/slog"

	tea "charm.land/bubbletea/v2"
)

// streamBufferSize absorbs chunk bursts during UI render delays while
// keeping memory bounded.
const streamBufferSize = 100

// streamEvent is a discriminated union for stream events. One channel with
// a union type keeps the select logic simple.
type streamEvent struct {
	text string // Answer chunk (when non-empty)
	err  error  // Failure (when non-nil)
	done bool   // Stream completed
}

// Bubble Tea messages produced by the stream machinery.
type streamStartedMsg struct {
	eventCh <-chan streamEvent
	cancel  context.CancelFunc
}

type streamTextMsg struct {
	text string
}

type streamDoneMsg struct{}

type streamErrorMsg struct {
	err error
}

// startStream runs one agent turn in a goroutine and forwards its chunks.
//
// The goroutine exits when the stream completes, errors, or the context is
// canceled. Channel closure signals completion, no WaitGroup needed.
func (m *Model) startStream(input string) tea.Cmd {
	history := m.turns
	return func() tea.Msg {
		eventCh := make(chan streamEvent, streamBufferSize)
		ctx, cancel := context.WithTimeout(m.ctx, streamTimeout)

		go func() {
			defer cancel()
			defer close(eventCh)

			// Panic recovery prevents a TUI lockup
			defer func() {
				if r := recover(); r != nil {
					slog.Error("stream panic recovered", "panic", r)
					select {
					case eventCh <- streamEvent{err: fmt.Errorf("stream panic: %v", r)}:
					default:
					}
				}
			}()

			for chunk, err := range m.assistant.Stream(ctx, m.userID, input, history) {
				if err != nil {
					select {
					case eventCh <- streamEvent{err: err}:
					case <-ctx.Done():
					}
					return
				}
				select {
				case eventCh <- streamEvent{text: chunk.Text}:
				case <-ctx.Done():
					return
				}
			}

			select {
			case eventCh <- streamEvent{done: true}:
			case <-ctx.Done():
			}
		}()

		return streamStartedMsg{eventCh: eventCh, cancel: cancel}
	}
}

// listenForStream waits for the next stream event. The answer accumulates
// in Model.output, so the done event carries nothing; Update snapshots the
// full text there.
func listenForStream(eventCh <-chan streamEvent) tea.Cmd {
	return func() tea.Msg {
		if eventCh == nil {
			return nil
		}

		for {
			event, ok := <-eventCh
			if !ok {
				return streamErrorMsg{err: fmt.Errorf("stream ended without completion signal")}
			}

			switch {
			case event.err != nil:
				return streamErrorMsg{err: event.err}
			case event.done:
				return streamDoneMsg{}
			case event.text != "":
				return streamTextMsg{text: event.text}
			default:
				// Empty event, loop instead of recursing
				continue
			}
		}
	}
}
