package client

import "strings"

// Natural-language equivalents of the task markers, for chat-style vision
// models that were not trained on marker tokens.
var taskPrompts = map[string]string{
	"<CAPTION>":               "What does the image describe?",
	"<DETAILED_CAPTION>":      "Describe in detail what is shown in the image.",
	"<MORE_DETAILED_CAPTION>": "Describe with a paragraph what is shown in the image.",
	"<OCR>":                   "What is the text in the image?",
}

// ExpandTaskPrompt rewrites a marker prompt into plain language. "<VQA>" is
// stripped so the question itself is asked; unknown prompts pass through.
func ExpandTaskPrompt(prompt string) string {
	if p, ok := taskPrompts[prompt]; ok {
		return p
	}
	if rest, ok := strings.CutPrefix(prompt, "<VQA>"); ok {
		rest = strings.TrimSpace(rest)
		if rest == "" {
			return "What is this?"
		}
		return rest
	}
	return prompt
}
