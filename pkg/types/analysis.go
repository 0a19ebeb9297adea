package types

import "fmt"

// EndingType classifies how the previous chapter ended.
type EndingType string

// Ending type constants
const (
	EndingCliffhanger       EndingType = "cliffhanger"
	EndingNaturalConclusion EndingType = "natural_conclusion"
	EndingSceneTransition   EndingType = "scene_transition"
	EndingActionSequence    EndingType = "action_sequence"
	EndingDialoguePause     EndingType = "dialogue_pause"
	EndingEmotionalMoment   EndingType = "emotional_moment"
)

// ContinuityNeed classifies how the next chapter must open relative to the
// previous chapter's ending. The prompt builder selects one of four fixed
// instruction templates based on this value.
type ContinuityNeed string

// Continuity need constants
const (
	ContinuityImmediate       ContinuityNeed = "immediate_continuation"
	ContinuitySceneBreak      ContinuityNeed = "scene_break"
	ContinuityTimeSkipAllowed ContinuityNeed = "time_skip_allowed"
	ContinuityLocationChange  ContinuityNeed = "location_change"
)

// IsValidEndingType reports whether t is a known ending type.
func IsValidEndingType(t string) bool {
	switch EndingType(t) {
	case EndingCliffhanger, EndingNaturalConclusion, EndingSceneTransition,
		EndingActionSequence, EndingDialoguePause, EndingEmotionalMoment:
		return true
	}
	return false
}

// IsValidContinuityNeed reports whether n is a known continuity need.
func IsValidContinuityNeed(n string) bool {
	switch ContinuityNeed(n) {
	case ContinuityImmediate, ContinuitySceneBreak,
		ContinuityTimeSkipAllowed, ContinuityLocationChange:
		return true
	}
	return false
}

// ContinuityDirective is the classification of the previous chapter's
// ending, produced fresh for every continuation request and discarded after
// prompt construction. It is never persisted.
type ContinuityDirective struct {
	EndingType         EndingType     `json:"endingType"`
	ContinuityNeeds    ContinuityNeed `json:"continuityNeeds"`
	TonalState         string         `json:"tonalState"`
	LastScene          string         `json:"lastScene,omitempty"`
	ActiveElements     []string       `json:"activeElements,omitempty"`
	ImmediateQuestions []string       `json:"immediateQuestions,omitempty"`
	SuggestedOpening   string         `json:"suggestedOpening,omitempty"`
}

// FallbackDirective is the directive used when continuity analysis fails
// for any reason (backend error or unparseable output).
func FallbackDirective() ContinuityDirective {
	return ContinuityDirective{
		EndingType:       EndingNaturalConclusion,
		ContinuityNeeds:  ContinuitySceneBreak,
		TonalState:       "neutral",
		SuggestedOpening: "Continue the story naturally",
	}
}

// CharacterDevelopment is a single character→development pair extracted
// from a chapter.
type CharacterDevelopment struct {
	Character   string `json:"character"`
	Development string `json:"development"`
}

// ChapterAnalysis is the structured extraction of narrative deltas from a
// generated chapter. It feeds the memory fold and the persisted chapter
// record, and is discarded afterwards.
type ChapterAnalysis struct {
	Summary               string                 `json:"summary"`
	KeyEvents             []string               `json:"keyEvents"`
	CharactersInvolved    []string               `json:"charactersInvolved"`
	NewPlotPoints         []string               `json:"newPlotPoints"`
	CharacterDevelopments []CharacterDevelopment `json:"characterDevelopments"`
	WorldStateChanges     []string               `json:"worldStateChanges"`
	NewConflicts          []string               `json:"newConflicts"`
	ResolvedConflicts     []string               `json:"resolvedConflicts"`
	Mysteries             []string               `json:"mysteries"`
	Foreshadowing         []string               `json:"foreshadowing"`
}

// FallbackAnalysis is the deterministic analysis used when the analysis
// response could not be parsed: a generic summary for the chapter and the
// full bible character list, with every delta sequence empty so the memory
// fold becomes a no-op.
func FallbackAnalysis(chapterNumber int, characterNames []string) ChapterAnalysis {
	involved := make([]string, len(characterNames))
	copy(involved, characterNames)
	return ChapterAnalysis{
		Summary:               chapterSummaryFallback(chapterNumber),
		KeyEvents:             []string{},
		CharactersInvolved:    involved,
		NewPlotPoints:         []string{},
		CharacterDevelopments: []CharacterDevelopment{},
		WorldStateChanges:     []string{},
		NewConflicts:          []string{},
		ResolvedConflicts:     []string{},
		Mysteries:             []string{},
		Foreshadowing:         []string{},
	}
}

func chapterSummaryFallback(chapterNumber int) string {
	return fmt.Sprintf("Chapter %d continues the story", chapterNumber)
}
