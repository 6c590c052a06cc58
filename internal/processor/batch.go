package processor

import (
	"context"

	"smart-resume-analyzer/internal/types"
)

// AnswerBatch 依次回答多份简历，单份简历的结果互不影响
func (e *Engine) AnswerBatch(ctx context.Context, resumeTexts []string, query string) []types.IndexedDecision {
	results := make([]types.IndexedDecision, 0, len(resumeTexts))
	for i, text := range resumeTexts {
		results = append(results, types.IndexedDecision{
			ResumeIndex: i,
			Decision:    e.Answer(ctx, text, query),
		})
	}
	return results
}
