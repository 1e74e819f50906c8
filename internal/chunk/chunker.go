// Package chunk splits text into token-bounded, sentence-aligned segments
// with controlled overlap, sized for an embedding model's input window.
//
// Chunking is a pure function over the input string: it performs no I/O and
// never fails. The chunks it produces are transient; they become persisted
// content chunks only after an embedding is attached.
package chunk

import "strings"

// Default budgets, in estimated tokens.
const (
	DefaultSize    = 500
	DefaultOverlap = 50
)

// TextChunk is one bounded segment of a larger text.
type TextChunk struct {
	// Content is the chunk text, sentences joined by single spaces.
	Content string

	// Index is the zero-based position within the source's chunk sequence.
	// Indices are contiguous and strictly increasing.
	Index int

	// TokenCount is the estimated token count of Content.
	TokenCount int

	// Start and End are byte offsets into the original text covering the
	// first through last sentence of this chunk.
	Start int
	End   int
}

// Chunker accumulates sentences into chunks under a token budget.
type Chunker struct {
	size      int
	overlap   int
	estimator TokenEstimator
}

// NewChunker creates a Chunker. Non-positive size or negative overlap fall
// back to the defaults; a nil estimator falls back to CharEstimator.
func NewChunker(size, overlap int, estimator TokenEstimator) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	if estimator == nil {
		estimator = CharEstimator{}
	}
	return &Chunker{size: size, overlap: overlap, estimator: estimator}
}

// Chunk splits text into chunks of at most the configured token budget,
// seeding each chunk after the first with whole trailing sentences of its
// predecessor until the overlap budget is met. A text that fits the budget
// outright yields exactly one chunk equal to the whole input.
func (c *Chunker) Chunk(text string) []TextChunk {
	total := c.estimator.Estimate(text)
	if total <= c.size {
		return []TextChunk{{
			Content:    text,
			Index:      0,
			TokenCount: total,
			Start:      0,
			End:        len(text),
		}}
	}

	sentences := splitSentences(text)

	var chunks []TextChunk
	var current []sentence
	currentTokens := 0

	closeChunk := func() {
		texts := make([]string, len(current))
		for i, s := range current {
			texts[i] = s.text
		}
		content := strings.Join(texts, " ")
		chunks = append(chunks, TextChunk{
			Content:    content,
			Index:      len(chunks),
			TokenCount: c.estimator.Estimate(content),
			Start:      current[0].start,
			End:        current[len(current)-1].end,
		})
	}

	for _, s := range sentences {
		tokens := c.estimator.Estimate(s.text)
		if currentTokens+tokens > c.size && len(current) > 0 {
			closeChunk()

			// Seed the next chunk by walking backward through the sentences
			// just closed, taking whole sentences until the overlap budget
			// is met.
			var seed []sentence
			seedTokens := 0
			for i := len(current) - 1; i >= 0 && seedTokens < c.overlap; i-- {
				seed = append([]sentence{current[i]}, seed...)
				seedTokens += c.estimator.Estimate(current[i].text)
			}
			current = seed
			currentTokens = seedTokens
		}
		current = append(current, s)
		currentTokens += tokens
	}

	if len(current) > 0 {
		closeChunk()
	}

	return chunks
}

// sentence is a trimmed sentence with its byte span in the original text.
type sentence struct {
	text  string
	start int
	end   int
}

// splitSentences splits text into sentence-like units on terminal
// punctuation (., !, ?) followed by whitespace or end of input. Runs of
// terminal punctuation ("...", "?!") stay with their sentence.
func splitSentences(text string) []sentence {
	var out []sentence
	start := 0

	for i := 0; i < len(text); i++ {
		if !isTerminal(text[i]) {
			continue
		}
		j := i + 1
		for j < len(text) && isTerminal(text[j]) {
			j++
		}
		if j < len(text) && !isSpace(text[j]) {
			// Mid-token punctuation, e.g. "3.14" or "v1.2" — not a boundary.
			i = j - 1
			continue
		}
		if s, ok := trimSpan(text, start, j); ok {
			out = append(out, s)
		}
		start = j
		i = j - 1
	}

	if s, ok := trimSpan(text, start, len(text)); ok {
		out = append(out, s)
	}

	return out
}

// trimSpan trims whitespace from text[start:end], adjusting offsets.
// Reports false when nothing remains.
func trimSpan(text string, start, end int) (sentence, bool) {
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start == end {
		return sentence{}, false
	}
	return sentence{text: text[start:end], start: start, end: end}, true
}

func isTerminal(c byte) bool {
	return c == '.' || c == '!' || c == '?'
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
