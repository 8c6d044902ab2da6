package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	t.Run("packs sentences greedily up to the limit", func(t *testing.T) {
		chunks := splitSentences("A. B. C.", 4)

		assert.Equal(t, []string{"A.", "B.", "C."}, chunks)
	})

	t.Run("keeps sentences together when they fit", func(t *testing.T) {
		chunks := splitSentences("A. B. C.", 10)

		assert.Equal(t, []string{"A. B. C."}, chunks)
	})

	t.Run("emits an oversized sentence whole", func(t *testing.T) {
		long := strings.Repeat("x", 600) + "."
		chunks := splitSentences("Short. "+long+" Tail.", 500)

		require.Len(t, chunks, 3)
		assert.Equal(t, "Short.", chunks[0])
		assert.Equal(t, long, chunks[1])
		assert.Equal(t, "Tail.", chunks[2])
	})

	t.Run("concatenation reproduces the sentence sequence", func(t *testing.T) {
		text := "One sentence here. Another one follows! Does it work? Yes."
		chunks := splitSentences(text, 30)

		assert.Equal(t, text, strings.Join(chunks, " "))
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		assert.Nil(t, splitSentences("", 500))
		assert.Nil(t, splitSentences("   \n\t  ", 500))
	})

	t.Run("text without terminal punctuation is one sentence", func(t *testing.T) {
		chunks := splitSentences("no punctuation at all", 500)

		assert.Equal(t, []string{"no punctuation at all"}, chunks)
	})

	t.Run("absorbs runs of terminal punctuation", func(t *testing.T) {
		chunks := splitSentences("Really?! Yes... Fine.", 8)

		assert.Equal(t, []string{"Really?!", "Yes...", "Fine."}, chunks)
	})
}

func TestSplitTokenWindows(t *testing.T) {
	t.Run("adjacent windows share overlap tokens", func(t *testing.T) {
		chunks := splitTokenWindows("a b c d e f g h", 4, 2)

		assert.Equal(t, []string{"a b c d", "c d e f", "e f g h"}, chunks)
	})

	t.Run("last window is truncated to the input", func(t *testing.T) {
		chunks := splitTokenWindows("a b c d e", 4, 2)

		assert.Equal(t, []string{"a b c d", "c d e"}, chunks)
	})

	t.Run("input shorter than one window is a single chunk", func(t *testing.T) {
		chunks := splitTokenWindows("a b", 4, 2)

		assert.Equal(t, []string{"a b"}, chunks)
	})

	t.Run("empty input yields nil", func(t *testing.T) {
		assert.Nil(t, splitTokenWindows("", 4, 2))
	})

	t.Run("overlap is clamped below the window size", func(t *testing.T) {
		chunks := splitTokenWindows("a b c d", 2, 5)

		// step becomes 1
		assert.Equal(t, []string{"a b", "b c", "c d"}, chunks)
	})
}

func TestSplitText(t *testing.T) {
	t.Run("sentence mode by default", func(t *testing.T) {
		chunks := SplitText("A. B.", ChunkConfig{MaxChars: 2})

		assert.Equal(t, []string{"A.", "B."}, chunks)
	})

	t.Run("window mode", func(t *testing.T) {
		cfg := ChunkConfig{Mode: ChunkModeWindow, WindowTokens: 2, OverlapTokens: 1}
		chunks := SplitText("a b c", cfg)

		assert.Equal(t, []string{"a b", "b c"}, chunks)
	})
}
