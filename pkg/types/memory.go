package types

// CharacterArc tracks one character's development across chapters.
// Developments is append-only; CurrentState is last-write-wins and always
// mirrors the most recent development.
type CharacterArc struct {
	CharacterName string   `json:"characterName"`
	Developments  []string `json:"developments"`
	CurrentState  string   `json:"currentState"`
}

// StoryMemory is the continuity ledger for a story, distinct from the story
// bible. It is a single mutable record: each chapter generation overwrites
// the prior snapshot with the folded result. A memory exists if and only if
// its story exists; the two are created together.
//
// All sequence fields except Conflicts are append-only. Conflicts has
// removal semantics: entries named in a chapter's resolved conflicts are
// filtered out before new conflicts are appended.
type StoryMemory struct {
	PlotPoints      []string       `json:"plotPoints"`
	CharacterArcs   []CharacterArc `json:"characterArcs"`
	WorldState      []string       `json:"worldState"`
	ImportantEvents []string       `json:"importantEvents"`
	Conflicts       []string       `json:"conflicts"`
	Relationships   []string       `json:"relationships"`
	Mysteries       []string       `json:"mysteries"`
	Foreshadowing   []string       `json:"foreshadowing"`
}

// NewStoryMemory builds the initial memory for a story: one arc per bible
// character seeded with the character's personality as its current state,
// and the bible conflict (when present) as the first active conflict.
func NewStoryMemory(characters []Character, conflict string) StoryMemory {
	arcs := make([]CharacterArc, 0, len(characters))
	for _, c := range characters {
		arcs = append(arcs, CharacterArc{
			CharacterName: c.Name,
			Developments:  []string{},
			CurrentState:  c.Personality,
		})
	}

	conflicts := []string{}
	if conflict != "" {
		conflicts = append(conflicts, conflict)
	}

	return StoryMemory{
		PlotPoints:      []string{},
		CharacterArcs:   arcs,
		WorldState:      []string{},
		ImportantEvents: []string{},
		Conflicts:       conflicts,
		Relationships:   []string{},
		Mysteries:       []string{},
		Foreshadowing:   []string{},
	}
}

// Arc returns the arc for the named character, or nil if no arc exists.
func (m *StoryMemory) Arc(characterName string) *CharacterArc {
	for i := range m.CharacterArcs {
		if m.CharacterArcs[i].CharacterName == characterName {
			return &m.CharacterArcs[i]
		}
	}
	return nil
}
