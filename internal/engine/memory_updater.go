package engine

import "github.com/illude/illude/pkg/types"

// UpdateMemory folds a chapter analysis into the story memory and returns
// the new memory. It is a pure function: the input memory is not mutated,
// and no input produces an error.
//
// Fold rules:
//   - plot points, important events, world state, mysteries, and
//     foreshadowing are append-only
//   - resolved conflicts are removed by exact string match, then new
//     conflicts are appended
//   - a character development appends to the matching arc's developments
//     and overwrites its current state; developments for characters without
//     an arc create one
//   - relationships pass through unchanged
func UpdateMemory(memory types.StoryMemory, analysis types.ChapterAnalysis) types.StoryMemory {
	updated := types.StoryMemory{
		PlotPoints:      appendAll(memory.PlotPoints, analysis.NewPlotPoints),
		ImportantEvents: appendAll(memory.ImportantEvents, analysis.KeyEvents),
		WorldState:      appendAll(memory.WorldState, analysis.WorldStateChanges),
		Mysteries:       appendAll(memory.Mysteries, analysis.Mysteries),
		Foreshadowing:   appendAll(memory.Foreshadowing, analysis.Foreshadowing),
		Conflicts:       foldConflicts(memory.Conflicts, analysis.ResolvedConflicts, analysis.NewConflicts),
		Relationships:   appendAll(memory.Relationships, nil),
		CharacterArcs:   foldArcs(memory.CharacterArcs, analysis.CharacterDevelopments),
	}
	return updated
}

func appendAll(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}

func foldConflicts(conflicts, resolved, added []string) []string {
	resolvedSet := make(map[string]bool, len(resolved))
	for _, r := range resolved {
		resolvedSet[r] = true
	}
	out := make([]string, 0, len(conflicts)+len(added))
	for _, c := range conflicts {
		if !resolvedSet[c] {
			out = append(out, c)
		}
	}
	out = append(out, added...)
	return out
}

func foldArcs(arcs []types.CharacterArc, developments []types.CharacterDevelopment) []types.CharacterArc {
	// First entry wins when an analysis names a character more than once.
	byName := make(map[string]string, len(developments))
	for _, dev := range developments {
		if _, ok := byName[dev.Character]; !ok {
			byName[dev.Character] = dev.Development
		}
	}

	out := make([]types.CharacterArc, 0, len(arcs)+len(developments))
	seen := make(map[string]bool, len(arcs))
	for _, arc := range arcs {
		seen[arc.CharacterName] = true
		if dev, ok := byName[arc.CharacterName]; ok {
			devs := make([]string, 0, len(arc.Developments)+1)
			devs = append(devs, arc.Developments...)
			devs = append(devs, dev)
			out = append(out, types.CharacterArc{
				CharacterName: arc.CharacterName,
				Developments:  devs,
				CurrentState:  dev,
			})
			continue
		}
		out = append(out, arc)
	}

	// New characters introduced mid-story get an arc on first development.
	for _, dev := range developments {
		if seen[dev.Character] {
			continue
		}
		seen[dev.Character] = true
		out = append(out, types.CharacterArc{
			CharacterName: dev.Character,
			Developments:  []string{dev.Development},
			CurrentState:  dev.Development,
		})
	}
	return out
}
