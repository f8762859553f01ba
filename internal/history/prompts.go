package history

import (
	"encoding/json"

	"github.com/newslens/newslens/internal/model"
)

const dedupRubric = `
You are a text analysis system.

The provided stats object contains multiple fields: perspective, tone_language, fairness, headline_article, source_of_funding, ownership, and location.

Each field includes an answers list of text strings (and their counts). Your task is to group semantically or stylistically equivalent answers within each field and produce canonical labels with combined counts.

Grouping Rules

1. Normalize for comparison:
- Convert to lowercase
- Trim whitespace
- Remove punctuation except internal hyphens (-)
- Collapse multiple spaces into one
2. Merge answers if they are effectively equivalent — for example:
- Same meaning with minor wording differences (e.g., "Pro-Palestinian" is close to "Pro Palestinian self-determination")
- Differ only in capitalization or punctuation (e.g., "Government of Qatar" vs "Government Of Qatar")
3. When merging, use the most representative or commonly occurring form as the canonical label (capitalize each major word).
4. The count for a canonical label is the sum of counts from all merged variants.
5. Preserve the order of fields as listed above.
6. Return "Unknown" if a field has no valid answers.

Output Schema

Return only a valid JSON object in this exact structure (no markdown, code fences, or explanations):

{
    "stats": [
        { "perspective": [ { "answer": "", "count": 0 } ] },
        { "tone_language": [ { "answer": "", "count": 0 } ] },
        { "fairness": [ { "answer": "", "count": 0 } ] },
        { "headline_article": [ { "answer": "", "count": 0 } ] },
        { "source_of_funding": [ { "answer": "", "count": 0 } ] },
        { "ownership": [ { "answer": "", "count": 0 } ] },
        { "location": [ { "answer": "", "count": 0 } ] }
    ]
}

Each list can contain multiple { "answer": "<canonical label>", "count": <combined count> } objects.

Return only this JSON — no extra text or commentary. No cleaning should be required (i.e., no "` + "```json" + `" at the start and "` + "```" + `" at the end).
`

func makeDedupPrompt(stats map[string]model.FieldStats) (string, error) {
	payload, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return "", err
	}
	return dedupRubric + "\n---\nAnswers:\n" + string(payload), nil
}
