package engine

import (
	"reflect"
	"testing"

	"github.com/illude/illude/pkg/types"
)

func baseMemory() types.StoryMemory {
	return types.StoryMemory{
		PlotPoints:      []string{"the crown is hollow"},
		ImportantEvents: []string{"the vault heist"},
		WorldState:      []string{"curfew in the city"},
		Conflicts:       []string{"Mira vs the guild", "Dax vs his past"},
		Relationships:   []string{"Mira trusts Dax"},
		Mysteries:       []string{"who emptied the vault"},
		Foreshadowing:   []string{"the cracked seal"},
		CharacterArcs: []types.CharacterArc{
			{CharacterName: "Mira", Developments: []string{"lost her nerve"}, CurrentState: "shaken"},
			{CharacterName: "Dax", Developments: []string{}, CurrentState: "cautious"},
		},
	}
}

func TestUpdateMemoryAppendsDeltas(t *testing.T) {
	analysis := types.ChapterAnalysis{
		NewPlotPoints:     []string{"the guild master knew"},
		KeyEvents:         []string{"the confrontation"},
		WorldStateChanges: []string{"curfew lifted"},
		Mysteries:         []string{"the second key"},
		Foreshadowing:     []string{"a storm gathering"},
	}

	updated := UpdateMemory(baseMemory(), analysis)

	if !reflect.DeepEqual(updated.PlotPoints, []string{"the crown is hollow", "the guild master knew"}) {
		t.Errorf("PlotPoints = %v", updated.PlotPoints)
	}
	if !reflect.DeepEqual(updated.ImportantEvents, []string{"the vault heist", "the confrontation"}) {
		t.Errorf("ImportantEvents = %v", updated.ImportantEvents)
	}
	if !reflect.DeepEqual(updated.WorldState, []string{"curfew in the city", "curfew lifted"}) {
		t.Errorf("WorldState = %v", updated.WorldState)
	}
	if !reflect.DeepEqual(updated.Mysteries, []string{"who emptied the vault", "the second key"}) {
		t.Errorf("Mysteries = %v", updated.Mysteries)
	}
	if !reflect.DeepEqual(updated.Foreshadowing, []string{"the cracked seal", "a storm gathering"}) {
		t.Errorf("Foreshadowing = %v", updated.Foreshadowing)
	}
	if !reflect.DeepEqual(updated.Relationships, []string{"Mira trusts Dax"}) {
		t.Errorf("Relationships should pass through unchanged, got %v", updated.Relationships)
	}
}

func TestUpdateMemoryConflictResolution(t *testing.T) {
	analysis := types.ChapterAnalysis{
		ResolvedConflicts: []string{"Mira vs the guild", "not an active conflict"},
		NewConflicts:      []string{"Mira vs the crown"},
	}

	updated := UpdateMemory(baseMemory(), analysis)

	want := []string{"Dax vs his past", "Mira vs the crown"}
	if !reflect.DeepEqual(updated.Conflicts, want) {
		t.Errorf("Conflicts = %v, want %v", updated.Conflicts, want)
	}
}

func TestUpdateMemoryConflictExactMatchOnly(t *testing.T) {
	analysis := types.ChapterAnalysis{
		ResolvedConflicts: []string{"mira vs the guild"}, // case differs
	}

	updated := UpdateMemory(baseMemory(), analysis)
	if !reflect.DeepEqual(updated.Conflicts, []string{"Mira vs the guild", "Dax vs his past"}) {
		t.Errorf("conflict removal must match exactly, got %v", updated.Conflicts)
	}
}

func TestUpdateMemoryCharacterArcs(t *testing.T) {
	analysis := types.ChapterAnalysis{
		CharacterDevelopments: []types.CharacterDevelopment{
			{Character: "Mira", Development: "finds her resolve"},
		},
	}

	updated := UpdateMemory(baseMemory(), analysis)

	mira := updated.Arc("Mira")
	if mira == nil {
		t.Fatal("Mira's arc missing")
	}
	if !reflect.DeepEqual(mira.Developments, []string{"lost her nerve", "finds her resolve"}) {
		t.Errorf("Developments = %v", mira.Developments)
	}
	if mira.CurrentState != "finds her resolve" {
		t.Errorf("CurrentState = %q", mira.CurrentState)
	}

	dax := updated.Arc("Dax")
	if dax == nil || dax.CurrentState != "cautious" || len(dax.Developments) != 0 {
		t.Errorf("arcs without a development should pass through unchanged, got %+v", dax)
	}
}

func TestUpdateMemoryCreatesArcForNewCharacter(t *testing.T) {
	analysis := types.ChapterAnalysis{
		CharacterDevelopments: []types.CharacterDevelopment{
			{Character: "The Guild Master", Development: "revealed as the thief"},
		},
	}

	updated := UpdateMemory(baseMemory(), analysis)

	arc := updated.Arc("The Guild Master")
	if arc == nil {
		t.Fatal("expected an arc for the newly introduced character")
	}
	if arc.CurrentState != "revealed as the thief" {
		t.Errorf("CurrentState = %q", arc.CurrentState)
	}
	if !reflect.DeepEqual(arc.Developments, []string{"revealed as the thief"}) {
		t.Errorf("Developments = %v", arc.Developments)
	}
	if len(updated.CharacterArcs) != 3 {
		t.Errorf("expected 3 arcs, got %d", len(updated.CharacterArcs))
	}
}

func TestUpdateMemoryDuplicateDevelopmentTakesFirst(t *testing.T) {
	analysis := types.ChapterAnalysis{
		CharacterDevelopments: []types.CharacterDevelopment{
			{Character: "Mira", Development: "finds her resolve"},
			{Character: "Mira", Development: "doubts herself again"},
		},
	}

	updated := UpdateMemory(baseMemory(), analysis)

	mira := updated.Arc("Mira")
	if mira == nil {
		t.Fatal("Mira's arc missing")
	}
	if !reflect.DeepEqual(mira.Developments, []string{"lost her nerve", "finds her resolve"}) {
		t.Errorf("Developments = %v, want exactly one appended entry", mira.Developments)
	}
	if mira.CurrentState != "finds her resolve" {
		t.Errorf("CurrentState = %q", mira.CurrentState)
	}
}

func TestUpdateMemoryDuplicateDevelopmentNewCharacter(t *testing.T) {
	analysis := types.ChapterAnalysis{
		CharacterDevelopments: []types.CharacterDevelopment{
			{Character: "The Guild Master", Development: "revealed as the thief"},
			{Character: "The Guild Master", Development: "flees the city"},
		},
	}

	updated := UpdateMemory(baseMemory(), analysis)

	arc := updated.Arc("The Guild Master")
	if arc == nil {
		t.Fatal("expected an arc for the newly introduced character")
	}
	if !reflect.DeepEqual(arc.Developments, []string{"revealed as the thief"}) {
		t.Errorf("Developments = %v, want only the first entry", arc.Developments)
	}
	if len(updated.CharacterArcs) != 3 {
		t.Errorf("expected 3 arcs, got %d", len(updated.CharacterArcs))
	}
}

func TestUpdateMemoryIsPure(t *testing.T) {
	memory := baseMemory()
	analysis := types.ChapterAnalysis{
		NewPlotPoints:     []string{"a new thread"},
		ResolvedConflicts: []string{"Mira vs the guild"},
		CharacterDevelopments: []types.CharacterDevelopment{
			{Character: "Mira", Development: "changes"},
		},
	}

	_ = UpdateMemory(memory, analysis)

	if !reflect.DeepEqual(memory, baseMemory()) {
		t.Error("UpdateMemory must not mutate its input")
	}
}

func TestUpdateMemoryEmptyAnalysisIsNoOp(t *testing.T) {
	updated := UpdateMemory(baseMemory(), types.ChapterAnalysis{})
	if !reflect.DeepEqual(updated, baseMemory()) {
		t.Errorf("empty analysis should leave memory unchanged, got %+v", updated)
	}
}
