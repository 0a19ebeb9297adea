package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/illude/illude/pkg/types"
)

// GenerateModeAI lets the model choose the chapter's direction; GenerateModeUserDirected
// steers the chapter with the user's direction text.
const (
	GenerateModeAI           = "ai"
	GenerateModeUserDirected = "user-directed"
)

// storyContext is the story-bible projection embedded as JSON in chapter prompts.
type storyContext struct {
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	Characters       []types.Character `json:"characters"`
	Settings         string            `json:"settings"`
	Worldbuilding    []string          `json:"worldbuilding"`
	PowerSystem      []string          `json:"powerSystem"`
	MagicSystem      []string          `json:"magicSystem"`
	TechnologySystem []string          `json:"technologySystem"`
	Rules            []string          `json:"rules"`
	Lore             []string          `json:"lore"`
	History          []string          `json:"history"`
	Culture          []string          `json:"culture"`
	Plot             string            `json:"plot"`
	Conflict         string            `json:"conflict"`
	Memory           types.StoryMemory `json:"memory"`
}

func storyContextJSON(story *types.Story) string {
	ctx := storyContext{
		Title:            story.Title,
		Description:      story.Description,
		Characters:       story.Characters,
		Settings:         story.Settings,
		Worldbuilding:    story.Worldbuilding,
		PowerSystem:      story.PowerSystem,
		MagicSystem:      story.MagicSystem,
		TechnologySystem: story.TechnologySystem,
		Rules:            story.Rules,
		Lore:             story.Lore,
		History:          story.History,
		Culture:          story.Culture,
		Plot:             story.Plot,
		Conflict:         story.Conflict,
		Memory:           story.Memory,
	}
	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MemoryContext renders the story's continuity state as a prompt block.
func MemoryContext(story *types.Story) string {
	var b strings.Builder

	b.WriteString("STORY MEMORY AND CONTINUITY:\n")
	fmt.Fprintf(&b, "- Plot Points: %s\n", strings.Join(story.Memory.PlotPoints, ", "))
	fmt.Fprintf(&b, "- Active Conflicts: %s\n", strings.Join(story.Memory.Conflicts, ", "))
	fmt.Fprintf(&b, "- Important Events: %s\n", strings.Join(story.Memory.ImportantEvents, ", "))
	fmt.Fprintf(&b, "- World State: %s\n", strings.Join(story.Memory.WorldState, ", "))
	fmt.Fprintf(&b, "- Mysteries to Resolve: %s\n", strings.Join(story.Memory.Mysteries, ", "))
	fmt.Fprintf(&b, "- Foreshadowing Elements: %s\n", strings.Join(story.Memory.Foreshadowing, ", "))

	b.WriteString("\nCHARACTER ARCS:\n")
	for _, arc := range story.Memory.CharacterArcs {
		fmt.Fprintf(&b, "%s: Current State - %s, Developments - %s\n",
			arc.CharacterName, arc.CurrentState, strings.Join(arc.Developments, ", "))
	}

	b.WriteString("\nPREVIOUS CHAPTERS SUMMARY:\n")
	for _, ch := range story.Chapters {
		summary := ch.AISummary
		if summary == "" {
			summary = "Key events: " + strings.Join(ch.KeyEvents, ", ")
		}
		fmt.Fprintf(&b, "Chapter %d: %s\n", ch.ChapterNumber, summary)
	}

	return b.String()
}

// ContinuityInstructions renders the instruction block selected by the
// directive's continuity needs. A nil directive (first chapter) yields an
// empty block.
func ContinuityInstructions(directive *types.ContinuityDirective) string {
	if directive == nil {
		return ""
	}

	var requirement string
	switch directive.ContinuityNeeds {
	case types.ContinuityImmediate:
		requirement = `CONTINUITY REQUIREMENT: The previous chapter ended mid-action. Open this chapter in the SAME scene, at the SAME moment, with the SAME characters present. Do NOT skip time. Do NOT change location. Pick up exactly where the previous chapter left off.`
	case types.ContinuitySceneBreak:
		requirement = `CONTINUITY REQUIREMENT: The previous chapter reached a resting point. You may open this chapter with a light transition (a short time later, a nearby place), but the opening must clearly connect to where the previous chapter ended.`
	case types.ContinuityTimeSkipAllowed:
		requirement = `CONTINUITY REQUIREMENT: A time skip is acceptable here, but it must stay logical. If time passes, state it clearly and account for what the characters did in between. Nothing established may be contradicted.`
	case types.ContinuityLocationChange:
		requirement = `CONTINUITY REQUIREMENT: The story may move to a new location, but character and emotional continuity must be preserved. Carry the characters' states of mind forward from the previous chapter's ending.`
	default:
		requirement = `CONTINUITY REQUIREMENT: Open this chapter in a way that clearly connects to where the previous chapter ended.`
	}

	var b strings.Builder
	b.WriteString("PREVIOUS CHAPTER ENDING ANALYSIS:\n")
	fmt.Fprintf(&b, "- Ending Type: %s\n", directive.EndingType)
	fmt.Fprintf(&b, "- Tonal State: %s\n", directive.TonalState)
	fmt.Fprintf(&b, "- Last Scene: %s\n", directive.LastScene)
	fmt.Fprintf(&b, "- Active Elements: %s\n", strings.Join(directive.ActiveElements, ", "))
	fmt.Fprintf(&b, "- Immediate Questions: %s\n", strings.Join(directive.ImmediateQuestions, ", "))
	fmt.Fprintf(&b, "- Suggested Opening: %s\n", directive.SuggestedOpening)
	b.WriteString("\n")
	b.WriteString(requirement)
	return b.String()
}

// lastLines returns the last n non-empty lines of text, joined with newlines.
func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > n {
		kept = kept[len(kept)-n:]
	}
	return strings.Join(kept, "\n")
}

// ChapterPrompt composes the chapter-writing prompt for the next chapter of a
// story. The directive is nil for stories without prior chapters.
func ChapterPrompt(story *types.Story, directive *types.ContinuityDirective, mode, userDirection string, chapterNumber int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are continuing a story. This is Chapter %d.\n\n", chapterNumber)
	b.WriteString(MemoryContext(story))
	b.WriteString("\n")

	if directive != nil {
		b.WriteString(ContinuityInstructions(directive))
		b.WriteString("\n\n")
		if last := story.LastChapter(); last != nil {
			b.WriteString("THE PREVIOUS CHAPTER ENDED WITH THESE EXACT LINES:\n")
			b.WriteString(lastLines(last.Content, 5))
			b.WriteString("\n\n")
		}
	}

	b.WriteString("STORY CONTEXT:\n")
	b.WriteString(storyContextJSON(story))
	b.WriteString("\n\n")

	if mode == GenerateModeUserDirected && userDirection != "" {
		fmt.Fprintf(&b, "USER DIRECTION: %s\n\n", userDirection)
		b.WriteString("Your task:\n")
		fmt.Fprintf(&b, "- Write Chapter %d following the user's direction: %q\n", chapterNumber, userDirection)
	} else {
		b.WriteString("Your task:\n")
		fmt.Fprintf(&b, "- Write Chapter %d that naturally progresses the story\n", chapterNumber)
		b.WriteString("- Decide on the best direction for the plot based on established elements\n")
	}

	fmt.Fprintf(&b, `- Begin with a markdown heading in the form "## Chapter %d: <title>"
- Honor the continuity requirement above exactly
- Maintain consistency with previous chapters and story memory
- Develop character arcs naturally
- Advance the plot meaningfully
- Keep the tone and style consistent
- Ensure new developments align with established world rules
- Create engaging, immersive prose
- End with a natural transition point or cliffhanger

Remember to:
- Reference previous events when relevant
- Show character growth based on their arcs
- Maintain world consistency
- Advance ongoing conflicts or introduce new ones appropriately
- Pay off any foreshadowing when appropriate
`, chapterNumber)

	return b.String()
}

// FirstChapterPrompt composes the opening-chapter prompt from the story bible.
func FirstChapterPrompt(story *types.Story) string {
	var b strings.Builder
	b.WriteString("You are a masterful storyteller renowned for captivating first chapters.\n")
	b.WriteString("Given the following detailed story context:\n")
	b.WriteString(storyContextJSON(story))
	b.WriteString(`

Your task:
- Write the first chapter of this story.
- Begin with a markdown heading in the form "## Chapter 1: <title>"
- Begin with a compelling incident in a specific, vivid setting that triggers the main chain of events.
- Weave in elements of the plot, worldbuilding, and any unique systems (magic, technology, power) as relevant.
- Use a suspenseful, thriller-like tone to immediately hook the reader.
- Reveal the incident in an engaging, immersive way, balancing action, atmosphere, and intrigue.
- Avoid exposition dumps; show rather than tell.

The chapter should be immersive, dynamic, and leave the reader eager for more.
`)
	return b.String()
}

// ChapterAnalysisPrompt asks the model to extract continuity data from a
// finished chapter as JSON.
func ChapterAnalysisPrompt(chapterContent string) string {
	return fmt.Sprintf(`Analyze this chapter and extract key information for story continuity:

CHAPTER CONTENT:
%s

Please provide a JSON response with:
{
  "summary": "Brief summary of what happened in this chapter",
  "keyEvents": ["event1", "event2", "event3"],
  "charactersInvolved": ["character1", "character2"],
  "newPlotPoints": ["plot point 1", "plot point 2"],
  "characterDevelopments": [
    {"character": "name", "development": "what changed or happened to them"}
  ],
  "worldStateChanges": ["change1", "change2"],
  "newConflicts": ["conflict1", "conflict2"],
  "resolvedConflicts": ["resolved1", "resolved2"],
  "mysteries": ["new mystery 1", "new mystery 2"],
  "foreshadowing": ["element1", "element2"]
}
`, chapterContent)
}

// ContinuityAnalysisPrompt asks the model to classify how the next chapter
// must open, given the previous chapter's full text.
func ContinuityAnalysisPrompt(previousChapter string) string {
	return fmt.Sprintf(`Analyze how this chapter ends so the next chapter can open correctly.

CHAPTER CONTENT:
%s

Classify the ending and respond with ONLY a JSON object:
{
  "endingType": "one of: cliffhanger, natural_conclusion, scene_transition, action_sequence, dialogue_pause, emotional_moment",
  "continuityNeeds": "one of: immediate_continuation, scene_break, time_skip_allowed, location_change",
  "tonalState": "the emotional tone at the ending (e.g. tense, hopeful, somber)",
  "lastScene": "one sentence describing the final scene",
  "activeElements": ["ongoing elements that must carry into the next chapter"],
  "immediateQuestions": ["questions the ending leaves open"],
  "suggestedOpening": "one sentence suggesting how the next chapter should open"
}
`, previousChapter)
}
