package evaluator

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/newslens/newslens/internal/model"
)

const evaluationRubric = `
You are an expert news analyst. Your goal is to help users understand the context, bias, and perspective of a news article — not to verify truth or accuracy. Provide a balanced, analytical assessment in structured JSON format.

Instructions

For the article, analyze:

- perspective: Identify the stance or slant of the article (e.g., "Pro Gun Control", "Anti Immigration", "Neutral"). Return only one value.
- tone_language: A list of adjectives describing the tone and language used (e.g., "Emotionally Charged", "Combative", "Restrained"). Return an empty list if none apply.
- fairness: Rate how well the article presents multiple viewpoints. Choose one of: "Low", "Medium", "High".
- headline_article: Evaluate the gap between headline and content. Choose one of: "Large", "Medium", "Small".
- notes: Briefly explain your reasoning for the above (1-3 sentences, concise and neutral).

For the publication, identify:

- source_of_funding: A list of known funding sources (Examples include things like advertising, government grants, reader subscriptions). If unknown, return "Unknown".
- location: The country where the publication is headquartered or registered. If unknown, return "Unknown".
- ownership: The entity or individual that owns the publication. If unknown, return "Unknown".

Formatting Rules

- Return only valid JSON, no markdown, code blocks, or explanations.
- Capitalize the first letter of every string and each item in lists.
- Ensure all fields are filled, using "Unknown" or an empty list [] where applicable.

Output Schema

{
  "article": {
    "perspective": "",
    "tone_language": [],
    "fairness": "",
    "headline_article": "",
    "notes": ""
  },
  "publication": {
    "source_of_funding": [],
    "location": "",
    "ownership": ""
  }
}

Return only this JSON structure with completed values. No cleaning should be required (i.e., no "` + "```json" + `" at the start and "` + "```" + `" at the end).
`

const evaluationSnippetChars = 3000

// MakeEvaluationPrompt renders the evaluation rubric plus the article's
// identifying metadata. Each evaluator receives an identical copy.
func MakeEvaluationPrompt(meta model.ArticleMetadata) string {
	snippet := meta.Content
	if utf8.RuneCountInString(snippet) > evaluationSnippetChars {
		snippet = string([]rune(snippet)[:evaluationSnippetChars])
	}

	payload, _ := json.MarshalIndent(map[string]any{
		"title":           meta.Title,
		"authors":         meta.Authors,
		"publication":     meta.Publication,
		"published_at":    meta.PublishedAt,
		"url":             meta.URL,
		"content_snippet": snippet,
	}, "", "  ")

	return evaluationRubric + "\n---\n" + string(payload)
}
