package engine

import (
	"context"
	"log"

	"github.com/illude/illude/internal/llm"
	"github.com/illude/illude/pkg/types"
)

// AnalyzeContinuity classifies how the next chapter must open given the
// previous chapter's text. It never fails: a backend error or unparseable
// response degrades to the fallback directive.
func AnalyzeContinuity(ctx context.Context, gen llm.TextGenerator, previousChapter string) types.ContinuityDirective {
	raw, err := gen.Complete(ctx, llm.ContinuityAnalysisPrompt(previousChapter))
	if err != nil {
		log.Printf("engine: continuity analysis failed, using fallback directive: %v", err)
		return types.FallbackDirective()
	}

	directive, outcome := llm.ParseContinuityDirective(raw)
	if outcome.Fallback {
		log.Printf("engine: continuity response unparseable (%s), using fallback directive", outcome.Reason)
	}
	return directive
}
