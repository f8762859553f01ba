// Package llmjson normalizes the loosely structured payloads returned by
// chat models: fenced JSON, stray quoting, double-encoded strings, or prose
// with an embedded object. Every call site that consumes model output goes
// through Clean so the parsing behavior cannot drift between them.
package llmjson

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/newslens/newslens/internal/model"
)

// Kind tags the outcome of normalization.
type Kind int

const (
	// Unparseable means no strategy produced structured data.
	Unparseable Kind = iota
	// Object is a decoded JSON object.
	Object
	// List is a decoded JSON array.
	List
)

// Value is the normalized form of an LLM payload.
type Value struct {
	Kind   Kind
	Object map[string]any
	List   []any
}

// AsObject returns the decoded object, or an empty one when normalization
// failed or produced an array. Callers degrade instead of erroring.
func (v Value) AsObject() map[string]any {
	if v.Kind == Object && v.Object != nil {
		return v.Object
	}
	return map[string]any{}
}

var (
	fenceOpen  = regexp.MustCompile("^```(?:json)?")
	fenceClose = regexp.MustCompile("```$")
	jsonSpan   = regexp.MustCompile(`(\{[\s\S]*\}|\[[\s\S]*\])`)
)

// Clean parses JSON out of raw model output. It strips code fences,
// decodes double-encoded strings through a second unmarshal, retries with
// stray surrounding quotes removed, and falls back to extracting the first
// {...} or [...] span, optionally swapping single quotes for double quotes.
// It never fails hard: total failure yields an Unparseable value.
func Clean(text string) Value {
	text = strings.TrimSpace(text)
	if text == "" {
		return Value{Kind: Unparseable}
	}

	text = fenceOpen.ReplaceAllString(text, "")
	text = fenceClose.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	// Decode before touching any quotes: a double-encoded payload is a JSON
	// string whose outer quotes must survive to the decoder.
	if v, ok := decode(text); ok {
		return v
	}
	if trimmed := strings.Trim(text, `"'`); trimmed != text {
		if v, ok := decode(trimmed); ok {
			return v
		}
	}

	// Regex fallback: first JSON object/array span inside surrounding prose.
	if m := jsonSpan.FindString(text); m != "" {
		if v, ok := decode(m); ok {
			return v
		}
		if v, ok := decode(strings.ReplaceAll(m, "'", `"`)); ok {
			return v
		}
	}

	return Value{Kind: Unparseable}
}

func decode(s string) (Value, bool) {
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return Value{}, false
	}

	switch t := parsed.(type) {
	case map[string]any:
		return Value{Kind: Object, Object: t}, true
	case []any:
		return Value{Kind: List, List: t}, true
	case string:
		// Double-encoded: the JSON value is itself a JSON document.
		var inner any
		if err := json.Unmarshal([]byte(t), &inner); err != nil {
			return Value{}, false
		}
		switch it := inner.(type) {
		case map[string]any:
			return Value{Kind: Object, Object: it}, true
		case []any:
			return Value{Kind: List, List: it}, true
		}
	}
	return Value{}, false
}

// Assessments maps a normalized evaluation object onto the canonical
// assessment structs, tolerating the field-name aliases different models
// produce. Missing single-valued fields degrade to Unknown, list fields to
// an empty list.
func Assessments(obj map[string]any) (model.ArticleAssessment, model.PublicationAssessment) {
	article := subObject(obj, "article")
	publication := subObject(obj, "publication")

	a := model.ArticleAssessment{
		Perspective:  stringField(article, "perspective", "slant", "article_perspective"),
		ToneLanguage: listField(article, "tone_language", "tone and language", "article_tone_language"),
		Fairness:     stringField(article, "fairness", "article_fairness"),
		HeadlineGap:  stringField(article, "headline_article", "headline_gap", "article_headline_article"),
		Notes:        rawString(article, "notes"),
	}
	p := model.PublicationAssessment{
		SourceOfFunding: listField(publication, "source_of_funding", "source of funding", "funding_source", "funding", "publication_funding"),
		Location:        stringField(publication, "location", "country", "publication_location"),
		Ownership:       stringField(publication, "ownership", "owner", "publication_ownership"),
	}
	return a, p
}

func subObject(obj map[string]any, key string) map[string]any {
	if m, ok := obj[key].(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func rawString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

func stringField(obj map[string]any, keys ...string) string {
	if s := rawString(obj, keys...); s != "" {
		return s
	}
	return model.Unknown
}

func listField(obj map[string]any, keys ...string) []string {
	for _, k := range keys {
		v, ok := obj[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case []any:
			out := make([]string, 0, len(t))
			for _, item := range t {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		case string:
			if t == "" {
				continue
			}
			return []string{t}
		}
	}
	return []string{}
}
