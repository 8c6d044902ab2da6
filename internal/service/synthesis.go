package service

import (
	"context"
	"errors"
	"io"
	"log"

	"github.com/scaleworks/docquery/internal/openai"
)

// DefaultSystemPrompt instructs the completion provider to stay grounded in
// the retrieved passages.
const DefaultSystemPrompt = "You are a document analyst. Answer the user's question using only the provided document content."

// EventKind tags one element of a synthesis stream.
type EventKind string

const (
	// EventFragment carries one incremental piece of generated text.
	EventFragment EventKind = "fragment"
	// EventError is a terminal provider failure. At most one per stream.
	EventError EventKind = "error"
	// EventEnd marks successful completion. At most one per stream.
	EventEnd EventKind = "end"
)

// Event is one tagged element of a synthesis stream. Exactly one terminal
// event (EventError or EventEnd) is emitted per call, after which the channel
// is closed.
type Event struct {
	Kind EventKind
	Text string
}

// Synthesizer streams a grounded answer from the completion provider.
type Synthesizer struct {
	client openai.CompletionAPI
	system string
}

// NewSynthesizer creates a Synthesizer with the default system prompt.
func NewSynthesizer(client openai.CompletionAPI) *Synthesizer {
	return &Synthesizer{client: client, system: DefaultSystemPrompt}
}

// NewSynthesizerWithPrompt overrides the system instruction.
func NewSynthesizerWithPrompt(client openai.CompletionAPI, system string) *Synthesizer {
	return &Synthesizer{client: client, system: system}
}

// Synthesize sends the assembled context plus the question to the completion
// provider and returns a channel of tagged events. The channel yields zero or
// more fragments followed by exactly one terminal event, then closes. A
// provider error after the stream has been marked closed is swallowed, not
// re-reported. cleanup, when non-nil, runs exactly once, strictly after the
// terminal event and never concurrently with active streaming. Cancelling
// ctx aborts the provider stream; cleanup still runs.
func (s *Synthesizer) Synthesize(ctx context.Context, contextText, query string, cleanup func(context.Context)) <-chan Event {
	events := make(chan Event)

	go func() {
		// closed guards the terminal protocol: once set, no further
		// events of any kind may be emitted.
		closed := false

		terminate := func(ev Event) {
			if closed {
				return
			}
			closed = true
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		defer func() {
			if !closed {
				terminate(Event{Kind: EventEnd})
			}
			close(events)
			if cleanup != nil {
				cleanup(context.WithoutCancel(ctx))
			}
		}()

		messages := []string{
			"Relevant Document Content:\n" + contextText,
			"Question: " + query,
		}

		stream, err := s.client.StreamCompletion(ctx, s.system, messages)
		if err != nil {
			terminate(Event{Kind: EventError, Text: err.Error()})
			return
		}
		defer stream.Close()

		for {
			text, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				terminate(Event{Kind: EventEnd})
				return
			}
			if err != nil {
				if closed {
					// terminal already fired; swallow
					log.Printf("synthesize: provider error after close: %v", err)
					return
				}
				terminate(Event{Kind: EventError, Text: err.Error()})
				return
			}
			if closed {
				return
			}

			select {
			case events <- Event{Kind: EventFragment, Text: text}:
			case <-ctx.Done():
				terminate(Event{Kind: EventError, Text: ctx.Err().Error()})
				return
			}
		}
	}()

	return events
}
