package budget

import (
	"github.com/sandevgo/quill/internal/core"
	"github.com/sandevgo/quill/internal/providers/rag"
)

const (
	EstimatorChars    = "chars"
	EstimatorTiktoken = "tiktoken"

	// messageOverhead approximates role and framing tokens per message.
	messageOverhead = 4
)

// Estimator approximates token counts. Estimates never decrease when
// messages or text are added.
type Estimator interface {
	Estimate(msgs []core.Message) int
	EstimateText(text string) int
}

type TokenizerEstimator struct {
	tok rag.Tokenizer
}

// NewEstimator returns the estimator for kind, defaulting to the char heuristic.
func NewEstimator(kind string) *TokenizerEstimator {
	if kind == EstimatorTiktoken {
		return &TokenizerEstimator{tok: rag.DefaultTokenizer()}
	}
	return &TokenizerEstimator{tok: rag.CharTokenizer{}}
}

func (e *TokenizerEstimator) EstimateText(text string) int {
	return e.tok.Count(text)
}

func (e *TokenizerEstimator) Estimate(msgs []core.Message) int {
	total := 0
	for _, m := range msgs {
		total += messageOverhead + e.tok.Count(m.Content) + e.tok.Count(m.Reasoning)
		for _, tc := range m.ToolCalls {
			total += e.tok.Count(tc.Function.Name) + e.tok.Count(tc.Function.Arguments)
		}
	}
	return total
}
