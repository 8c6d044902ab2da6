package service

import (
	"strings"
)

// ChunkMode selects which splitting strategy to use. The caller chooses; the
// splitter never picks a mode on its own.
type ChunkMode string

const (
	// ChunkModeSentence greedily packs whole sentences up to MaxChars.
	ChunkModeSentence ChunkMode = "sentence"
	// ChunkModeWindow slides a fixed-size token window with overlap, used
	// for large-volume ingestion where uniform chunk size matters more than
	// sentence boundaries.
	ChunkModeWindow ChunkMode = "window"
)

// ChunkConfig controls chunking for document embeddings.
type ChunkConfig struct {
	Mode     ChunkMode
	MaxChars int
	// WindowTokens and OverlapTokens apply to ChunkModeWindow only.
	WindowTokens  int
	OverlapTokens int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Mode:          ChunkModeSentence,
		MaxChars:      500,
		WindowTokens:  120,
		OverlapTokens: 20,
	}
}

// SplitText splits text into chunks according to cfg. Empty or
// whitespace-only input yields nil.
func SplitText(text string, cfg ChunkConfig) []string {
	if cfg.Mode == ChunkModeWindow {
		return splitTokenWindows(text, cfg.WindowTokens, cfg.OverlapTokens)
	}
	return splitSentences(text, cfg.MaxChars)
}

// splitSentences packs consecutive sentences into chunks of at most maxChars.
// A single sentence longer than maxChars is emitted whole as its own chunk;
// the limit is a packing target, not a truncation rule. Concatenating the
// chunks reproduces the original sentence sequence.
func splitSentences(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultChunkConfig().MaxChars
	}

	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	chunks := make([]string, 0, 8)
	var chunk string

	for _, sentence := range sentences {
		if chunk == "" {
			chunk = sentence
			continue
		}
		if len(chunk)+1+len(sentence) > maxChars {
			chunks = append(chunks, chunk)
			chunk = sentence
		} else {
			chunk += " " + sentence
		}
	}

	if chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks
}

// splitIntoSentences cuts text at sentence-terminal punctuation, keeping the
// punctuation with the sentence. Text without terminal punctuation is one
// sentence.
func splitIntoSentences(text string) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}

	var sentences []string
	runes := []rune(clean)
	start := 0

	for i := 0; i < len(runes); i++ {
		if !isSentenceTerminal(runes[i]) {
			continue
		}
		// absorb a run of terminal punctuation ("?!", "...")
		end := i + 1
		for end < len(runes) && isSentenceTerminal(runes[end]) {
			end++
		}
		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			sentences = append(sentences, s)
		}
		start = end
		i = end - 1
	}

	if start < len(runes) {
		if s := strings.TrimSpace(string(runes[start:])); s != "" {
			sentences = append(sentences, s)
		}
	}

	return sentences
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

// splitTokenWindows slides a window of size tokens over whitespace-delimited
// tokens, stepping by size-overlap so adjacent chunks share overlap tokens of
// context.
func splitTokenWindows(text string, size, overlap int) []string {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkConfig().WindowTokens
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	step := size - overlap
	chunks := make([]string, 0, (len(tokens)+step-1)/step)
	for start := 0; start < len(tokens); start += step {
		end := start + size
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, strings.Join(tokens[start:end], " "))
		if end == len(tokens) {
			break
		}
	}

	return chunks
}
