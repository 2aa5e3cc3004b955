package refine

import (
	"fmt"
	"strings"

	"github.com/menta2k/scene-analyzer/pkg/profile"
)

// DefaultSystemPrompt is used when a request does not override it
const DefaultSystemPrompt = "You are the AI Scanner OS. Direct, cold, and factual. " +
	"Skip all 'thinking' and preamble. Do not use phrases like 'The image shows' or 'Here is a summary'. " +
	"Output only the final analytical data."

// SummarySeparator sits between the sentiment emoji line and the summary
const SummarySeparator = "------"

// categoryHints are used when the object's profile carries no hint
var categoryHints = map[string]string{
	"Humans":      "Identify this person. Provide name or physical description.",
	"Vehicles":    "Identify manufacturer, model, and estimated year.",
	"Animals":     "Identify breed/species and notable features.",
	"Electronics": "Identify brand and specific model.",
	"Food":        "Identify food type and ingredients.",
	"Household":   "Identify item and style/brand.",
}

// ResolveHint picks the identification hint: the profile's refine query, then
// its prompt hint, then the category table, then a generic instruction.
func ResolveHint(registry *profile.Registry, objectType, category string) string {
	if objectType != "" {
		if p, ok := registry.Find(objectType); ok {
			if p.RefineQuery != "" {
				return p.RefineQuery
			}
			if p.Prompt != "" {
				return p.Prompt
			}
		}
	}
	if hint, ok := categoryHints[category]; ok {
		return hint
	}
	return fmt.Sprintf("Identify this %s.", strings.ToLower(category))
}

// SummarizeQuery builds the summarization instruction for source text
func SummarizeQuery(text string) string {
	return fmt.Sprintf("SOURCE TEXT: %s\n\n"+
		"TASK: Summarize the text with the following structure:\n"+
		"1. Start with 1 to 5 emojis representing sentiment (no words allowed here only emojis).\n"+
		"2. Next add a new line with separator '%s'.\n"+
		"3. Finally write the 30-100 word summary about the SOURCE TEXT.", text, SummarySeparator)
}

// RefineQuery builds the identification instruction for raw vision output
func RefineQuery(text, hint string) string {
	return fmt.Sprintf("RAW VISION DATA: %s\n"+
		"IDENTIFICATION QUERY: %s\n\n"+
		"TASK: Perform high-certainty identification. Output ONLY the identification data. "+
		"Maximum 20 words.", text, hint)
}
