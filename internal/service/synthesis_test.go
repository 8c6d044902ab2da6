package service

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaleworks/docquery/internal/openai"
)

// scriptedStream replays a fixed sequence of fragments, then a final error.
type scriptedStream struct {
	fragments []string
	final     error
	pos       int
	closed    bool
}

func (s *scriptedStream) Recv() (string, error) {
	if s.pos < len(s.fragments) {
		text := s.fragments[s.pos]
		s.pos++
		return text, nil
	}
	if s.final != nil {
		return "", s.final
	}
	return "", io.EOF
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

type scriptedCompletionAPI struct {
	stream  *scriptedStream
	openErr error

	gotSystem   string
	gotMessages []string
}

func (a *scriptedCompletionAPI) StreamCompletion(ctx context.Context, system string, messages []string) (openai.CompletionStream, error) {
	a.gotSystem = system
	a.gotMessages = messages
	if a.openErr != nil {
		return nil, a.openErr
	}
	return a.stream, nil
}

func collectEvents(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var collected []Event
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return collected
			}
			collected = append(collected, ev)
		case <-timeout:
			t.Fatal("timed out draining event channel")
		}
	}
}

func TestSynthesizer_Synthesize(t *testing.T) {
	ctx := context.Background()

	t.Run("streams fragments then exactly one end", func(t *testing.T) {
		api := &scriptedCompletionAPI{stream: &scriptedStream{fragments: []string{"Hello", " world"}}}
		synth := NewSynthesizer(api)

		events := collectEvents(t, synth.Synthesize(ctx, "some context", "a question", nil))

		require.Len(t, events, 3)
		assert.Equal(t, Event{Kind: EventFragment, Text: "Hello"}, events[0])
		assert.Equal(t, Event{Kind: EventFragment, Text: " world"}, events[1])
		assert.Equal(t, EventEnd, events[2].Kind)
		assert.True(t, api.stream.closed)
	})

	t.Run("sends context and question as separate messages", func(t *testing.T) {
		api := &scriptedCompletionAPI{stream: &scriptedStream{}}
		synth := NewSynthesizer(api)

		collectEvents(t, synth.Synthesize(ctx, "chunk one\n\nchunk two", "why?", nil))

		assert.Equal(t, DefaultSystemPrompt, api.gotSystem)
		require.Len(t, api.gotMessages, 2)
		assert.Equal(t, "Relevant Document Content:\nchunk one\n\nchunk two", api.gotMessages[0])
		assert.Equal(t, "Question: why?", api.gotMessages[1])
	})

	t.Run("open failure yields one terminal error", func(t *testing.T) {
		api := &scriptedCompletionAPI{openErr: errors.New("rate limited")}
		synth := NewSynthesizer(api)

		events := collectEvents(t, synth.Synthesize(ctx, "context", "question", nil))

		require.Len(t, events, 1)
		assert.Equal(t, EventError, events[0].Kind)
		assert.Equal(t, "rate limited", events[0].Text)
	})

	t.Run("mid-stream failure is terminal, no further fragments", func(t *testing.T) {
		api := &scriptedCompletionAPI{stream: &scriptedStream{
			fragments: []string{"partial"},
			final:     errors.New("connection reset"),
		}}
		synth := NewSynthesizer(api)

		events := collectEvents(t, synth.Synthesize(ctx, "context", "question", nil))

		require.Len(t, events, 2)
		assert.Equal(t, EventFragment, events[0].Kind)
		assert.Equal(t, EventError, events[1].Kind)
	})

	t.Run("cleanup runs exactly once after success", func(t *testing.T) {
		api := &scriptedCompletionAPI{stream: &scriptedStream{fragments: []string{"done"}}}
		synth := NewSynthesizer(api)

		var calls atomic.Int32
		done := make(chan struct{})
		cleanup := func(context.Context) {
			calls.Add(1)
			close(done)
		}

		events := collectEvents(t, synth.Synthesize(ctx, "context", "question", cleanup))

		<-done
		assert.Equal(t, int32(1), calls.Load())
		assert.Equal(t, EventEnd, events[len(events)-1].Kind)
	})

	t.Run("cleanup runs after a provider error too", func(t *testing.T) {
		api := &scriptedCompletionAPI{openErr: errors.New("down")}
		synth := NewSynthesizer(api)

		var calls atomic.Int32
		done := make(chan struct{})
		cleanup := func(context.Context) {
			calls.Add(1)
			close(done)
		}

		collectEvents(t, synth.Synthesize(ctx, "context", "question", cleanup))

		<-done
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("custom system prompt", func(t *testing.T) {
		api := &scriptedCompletionAPI{stream: &scriptedStream{}}
		synth := NewSynthesizerWithPrompt(api, "be terse")

		collectEvents(t, synth.Synthesize(ctx, "context", "question", nil))

		assert.Equal(t, "be terse", api.gotSystem)
	})
}
