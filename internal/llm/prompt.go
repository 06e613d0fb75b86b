package llm

import (
	"strings"

	"github.com/dgallion1/docqa/internal/doctree"
)

// Instruction is the fixed grounding instruction placed before the context.
const Instruction = `Use the following context extracted from the document to answer the question.
If the answer is not contained in the context, say "I don't know."`

// noContextInstruction replaces Instruction when retrieval found nothing,
// so the model is told to decline rather than answer from memory.
const noContextInstruction = `No context could be retrieved from the document for this question.
Do not guess. Answer exactly "I don't know."`

// BuildPrompt assembles the grounded prompt. Chunks are joined in the order
// given, which is rank order when they come straight from a search.
func BuildPrompt(query string, chunks []doctree.Chunk) string {
	var sb strings.Builder
	if len(chunks) == 0 {
		sb.WriteString(noContextInstruction)
	} else {
		sb.WriteString(Instruction)
		sb.WriteString("\n\nContext:\n")
		for i, c := range chunks {
			if i > 0 {
				sb.WriteString("\n\n")
			}
			sb.WriteString(c.Text)
		}
	}
	sb.WriteString("\n\nQuestion:\n")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// BuildZeroShotPrompt asks the question with no document context. It is
// the baseline for evaluation runs.
func BuildZeroShotPrompt(query string) string {
	return "Answer the following question:\n" + query + "\n\nAnswer:"
}
