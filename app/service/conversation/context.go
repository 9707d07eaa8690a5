package conversation

import (
	"strings"

	"runcoach/app/service/index"
)

const contextSeparator = "\n\n---\n\n"

// assembleContext joins retrieved chunk texts, best-ranked first, into one
// context block bounded by maxChars. When the budget runs out, the
// worst-scoring chunks are dropped whole; a chunk's text is never cut
// mid-message. Deterministic for a given ranking and budget.
func assembleContext(results []index.Result, maxChars int) string {
	var sb strings.Builder

	for _, result := range results {
		addition := len(result.Entry.Text)
		if sb.Len() > 0 {
			addition += len(contextSeparator)
		}

		if sb.Len()+addition > maxChars {
			break
		}

		if sb.Len() > 0 {
			sb.WriteString(contextSeparator)
		}
		sb.WriteString(result.Entry.Text)
	}

	return sb.String()
}
