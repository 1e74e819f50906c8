package retrieval

import (
	"fmt"
	"strings"
)

// noContextMessage is returned verbatim when retrieval finds nothing.
const noContextMessage = "No relevant context found."

// sectionSeparator joins formatted context sections.
const sectionSeparator = "\n\n---\n\n"

// formatContexts renders ranked contexts into one prompt-ready string.
// Zero contexts yield the literal noContextMessage.
func formatContexts(contexts []RetrievedContext) string {
	if len(contexts) == 0 {
		return noContextMessage
	}

	sections := make([]string, len(contexts))
	for i, c := range contexts {
		var b strings.Builder
		fmt.Fprintf(&b, "[Context %d] (%s, similarity: %.2f)\n", i+1, c.SourceType, c.Similarity)
		b.WriteString(c.Content)
		if line := metadataLine(c.Metadata); line != "" {
			b.WriteString("\n")
			b.WriteString(line)
		}
		sections[i] = b.String()
	}

	return "Relevant information from portfolio:\n\n" + strings.Join(sections, sectionSeparator)
}

// metadataKeys is the fixed render order; absent keys are skipped.
var metadataKeys = []struct {
	key   string
	label string
}{
	{"title", "Title"},
	{"technologies", "Technologies"},
	{"tags", "Tags"},
	{"category", "Category"},
}

// metadataLine renders the known metadata fields as "Metadata: Label: value"
// pairs joined by " | ". Returns "" when nothing renders.
func metadataLine(metadata map[string]any) string {
	if len(metadata) == 0 {
		return ""
	}

	var pairs []string
	for _, k := range metadataKeys {
		v, ok := metadata[k.key]
		if !ok {
			continue
		}
		if s := stringify(v); s != "" {
			pairs = append(pairs, k.label+": "+s)
		}
	}
	if len(pairs) == 0 {
		return ""
	}

	return "Metadata: " + strings.Join(pairs, " | ")
}

// stringify flattens a metadata value; lists comma-join.
func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []string:
		return strings.Join(val, ", ")
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(val)
	}
}

// FormatPromptWithContext assembles the final prompt for the downstream
// text-generation consumer: retrieved context, the user's question, and a
// fixed grounding instruction.
func FormatPromptWithContext(userMessage string, ragContext RAGContext) string {
	var b strings.Builder
	b.WriteString(ragContext.FormattedContext)
	b.WriteString("\n\n")
	b.WriteString("User question: ")
	b.WriteString(userMessage)
	b.WriteString("\n\n")
	b.WriteString("Answer using the context above when it is relevant to the question. If the context does not cover the question, answer from general knowledge and say so.")
	return b.String()
}
