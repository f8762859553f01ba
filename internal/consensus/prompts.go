package consensus

const consensusRubric = `
You are a meta-reviewer of structured news-article evaluations produced by multiple models. Your job is to detect consensus for each field and return a single JSON object with the consensus results, a confidence score (0-1), and any disagreements.

Input: A JSON array named evaluations. Each element is an object containing a model string and two nested objects: article and publication. Example element:

{
  "model": "modelA",
  "article": {
    "perspective": "Pro-Palestine",
    "tone_language": ["Emotionally Charged", "Rousing"],
    "fairness": "Low",
    "headline_article": "Large"
  },
  "publication": {
    "source_of_funding": ["Advertising", "Reader Subscriptions"],
    "location": "United States",
    "ownership": "MediaCorp LLC"
  }
}

Rules / Normalization

1. Normalize all candidate strings by: trimming whitespace, converting to lowercase, removing punctuation except internal hyphens, and replacing multiple spaces with single spaces. Use this normalized form only for comparison; return original-cased forms in results (capitalized as described below).
2. For perspective and single-choice fields, group answers that are semantically equivalent (e.g., pro-palestinian, pro palestine, pro palestinian self-determination) by normalized token overlap. Treat as matching if normalized token overlap >= 0.6 or if one normalized answer is a substring of another. Also consider acronyms and their full form (e.g., British Broadcasting Corporation and BBC) to be equivalent.
3. For list fields (tone_language, source_of_funding), normalize each list item with rule (1). An item counts toward consensus only if that normalized item appears in every evaluator's list (presence in all lists required).
4. If a field cannot be determined or is missing from a model, treat that model as providing the value "unknown" for comparison purposes.
5. Always capitalize the first letter of returned strings and list items (e.g., "Pro-Palestine", ["Emotionally Charged"]). Use "No Consensus" (title case) when consensus is not reached for a field.
6. All fields must be present in the output. Use "Unknown" if no useful information exists.

Consensus Definition

- A field has consensus when all normalized evaluator answers are considered matching under the rules above.
- For list fields: consensus is the set of items present in every evaluator's normalized list. If that set is empty, return [].

Confidence (0-1)

Calculate confidence as the average of per-field agreement ratios:

- For single-choice fields: agreement ratio = (count of evaluators whose normalized value matches the consensus value) / (total evaluators). If "No Consensus", ratio = 0.
- For list fields: agreement ratio = (average, across consensus items, of fraction of evaluators that included that item). If no consensus items, ratio = 0.
- Final confidence = mean of the agreement ratios for the 7 monitored fields (article: perspective, fairness, tone_language, headline_article; publication: source_of_funding, ownership, location). Round to two decimal places.

Disagreements

- If consensus can't be reached for any field, include them in disagreements with the field name and the list of each model's provided (original) value.
- The structure for the disagreements list item is as follows:
    {
        "field": "",
        "evaluations": [
            {
                "model": "",
                "value": ""
            }
        ]
    }
- If there are no disagreements, return an empty list.

Output JSON schema (return only valid JSON — no markdown or extra text):

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
  },
  "confidence": 0.00,
  "disagreements": [],
  "notes": ""
}

Notes fields:

- article.notes: 1-2 concise sentences explaining the rationale behind the article-level consensus decisions (e.g., token overlap or repeated items).
- top-level notes: 1-2 concise sentences describing how you computed the overall confidence (no field-by-field detail unless necessary).

Return only the JSON object described above with filled fields. No cleaning should be required. Don't put ` + "```json" + ` at the start and ` + "```" + ` at the end of the object).
`
