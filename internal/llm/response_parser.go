package llm

import (
	"encoding/json"
	"strings"

	"github.com/illude/illude/pkg/types"
)

// ParseOutcome reports whether a parse degraded to its fallback value and why.
type ParseOutcome struct {
	Fallback bool
	Reason   string
}

// extractJSON returns the outermost {...} span of text: the leftmost "{"
// through the rightmost "}". Markdown code fences around the object are
// tolerated because the span search ignores everything outside the braces.
func extractJSON(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseChapterAnalysis extracts a ChapterAnalysis from raw model output.
// It never fails: when no JSON span is found or the span does not parse,
// it returns the deterministic fallback analysis for the chapter.
func ParseChapterAnalysis(raw string, chapterNumber int, characterNames []string) (types.ChapterAnalysis, ParseOutcome) {
	span, ok := extractJSON(raw)
	if !ok {
		return types.FallbackAnalysis(chapterNumber, characterNames), ParseOutcome{Fallback: true, Reason: "no JSON object found in response"}
	}

	var analysis types.ChapterAnalysis
	if err := json.Unmarshal([]byte(span), &analysis); err != nil {
		return types.FallbackAnalysis(chapterNumber, characterNames), ParseOutcome{Fallback: true, Reason: "invalid JSON: " + err.Error()}
	}

	normalizeAnalysis(&analysis)
	return analysis, ParseOutcome{}
}

// ParseContinuityDirective extracts a ContinuityDirective from raw model
// output. It never fails: unparseable output yields the fallback directive.
func ParseContinuityDirective(raw string) (types.ContinuityDirective, ParseOutcome) {
	span, ok := extractJSON(raw)
	if !ok {
		return types.FallbackDirective(), ParseOutcome{Fallback: true, Reason: "no JSON object found in response"}
	}

	var directive types.ContinuityDirective
	if err := json.Unmarshal([]byte(span), &directive); err != nil {
		return types.FallbackDirective(), ParseOutcome{Fallback: true, Reason: "invalid JSON: " + err.Error()}
	}

	if !types.IsValidEndingType(string(directive.EndingType)) {
		directive.EndingType = types.EndingNaturalConclusion
	}
	if !types.IsValidContinuityNeed(string(directive.ContinuityNeeds)) {
		directive.ContinuityNeeds = types.ContinuitySceneBreak
	}
	if directive.TonalState == "" {
		directive.TonalState = "neutral"
	}
	if directive.SuggestedOpening == "" {
		directive.SuggestedOpening = "Continue the story naturally"
	}
	return directive, ParseOutcome{}
}

// normalizeAnalysis replaces nil sequences with empty ones so downstream
// memory folds and JSON encoding see a uniform shape.
func normalizeAnalysis(a *types.ChapterAnalysis) {
	if a.KeyEvents == nil {
		a.KeyEvents = []string{}
	}
	if a.CharactersInvolved == nil {
		a.CharactersInvolved = []string{}
	}
	if a.NewPlotPoints == nil {
		a.NewPlotPoints = []string{}
	}
	if a.CharacterDevelopments == nil {
		a.CharacterDevelopments = []types.CharacterDevelopment{}
	}
	if a.WorldStateChanges == nil {
		a.WorldStateChanges = []string{}
	}
	if a.NewConflicts == nil {
		a.NewConflicts = []string{}
	}
	if a.ResolvedConflicts == nil {
		a.ResolvedConflicts = []string{}
	}
	if a.Mysteries == nil {
		a.Mysteries = []string{}
	}
	if a.Foreshadowing == nil {
		a.Foreshadowing = []string{}
	}
}
