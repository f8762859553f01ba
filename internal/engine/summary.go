package engine

import (
	"encoding/json"

	"github.com/newslens/newslens/internal/evaluator"
	"github.com/newslens/newslens/internal/llmjson"
	"github.com/newslens/newslens/internal/model"
)

const summaryRubric = `
You are a news analyst. Analyze the provided news article and produce a structured JSON object with three fields: summary, topics, and type.

Instructions:

- summary: Write a 2-4 sentence summary capturing the key facts or conclusions of the article. Use neutral and concise language.
- topics: Provide a list of 1-3 broad topics (e.g., "Climate Change", "Elections", "Technology"). Each topic must start with a capital letter.
- type: Classify the article as either "Opinion" or "Reporting".
- Opinion = subjective commentary, argument, or editorial tone.
- Reporting = fact-based news, analysis, or investigative content.

Output format (JSON only):

{
    "summary": "",
    "topics": [],
    "type": ""
}

Return only valid JSON — no markdown, explanations, or extra text. No cleaning should be required (i.e., no "` + "```json" + `" at the start and "` + "```" + `" at the end).
`

func makeSummaryPrompt(meta model.ArticleMetadata) string {
	payload, _ := json.MarshalIndent(map[string]any{
		"title":           meta.Title,
		"authors":         meta.Authors,
		"publication":     meta.Publication,
		"url":             meta.URL,
		"content_snippet": meta.Content,
	}, "", "  ")
	return summaryRubric + "\n---\n" + string(payload)
}

func parseSummary(p evaluator.Payload) model.Summary {
	obj := llmjson.Clean(p.Text).AsObject()

	out := model.Summary{Topics: []string{}, EvaluatorID: p.EvaluatorID}
	if s, ok := obj["summary"].(string); ok {
		out.Summary = s
	}
	if t, ok := obj["type"].(string); ok {
		out.Type = t
	}
	if topics, ok := obj["topics"].([]any); ok {
		for _, topic := range topics {
			if s, ok := topic.(string); ok {
				out.Topics = append(out.Topics, s)
			}
		}
	}
	return out
}
