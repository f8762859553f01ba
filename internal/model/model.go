package model

import "time"

// Field values used when an evaluator or the aggregator could not decide.
const (
	Unknown     = "Unknown"
	NoConsensus = "No Consensus"
)

// MonitoredFields are the seven fields tracked for consensus and history,
// in their fixed reporting order.
var MonitoredFields = []string{
	"perspective",
	"tone_language",
	"fairness",
	"headline_article",
	"source_of_funding",
	"ownership",
	"location",
}

// AnalysisRequest is the immutable input of one pipeline run.
type AnalysisRequest struct {
	URL             string `json:"url"`
	MaxContentChars int    `json:"max_content_chars"`
}

// ScrapedArticle is the extracted article content, read-only downstream.
type ScrapedArticle struct {
	Title       string
	Authors     []string
	Publication string
	PublishedAt *time.Time
	Text        string
}

// ArticleMetadata is the identifying slice of a scraped article handed to
// evaluators and the aggregator. Content is already truncated to the
// request's limit.
type ArticleMetadata struct {
	Title       string   `json:"title"`
	Authors     []string `json:"authors"`
	Publication string   `json:"publication"`
	PublishedAt string   `json:"published_at"`
	URL         string   `json:"url"`
	Content     string   `json:"content_snippet"`
}

// ArticleAssessment is one judgement of the article itself.
type ArticleAssessment struct {
	Perspective  string   `json:"perspective"`
	ToneLanguage []string `json:"tone_language"`
	Fairness     string   `json:"fairness"`
	HeadlineGap  string   `json:"headline_article"`
	Notes        string   `json:"notes,omitempty"`
}

// PublicationAssessment is one judgement of the publishing outlet.
type PublicationAssessment struct {
	SourceOfFunding []string `json:"source_of_funding"`
	Location        string   `json:"location"`
	Ownership       string   `json:"ownership"`
}

// EvaluationRecord is the canonical outcome of one evaluator call. Failed
// calls are recorded as sentinel entries with EvaluatorID "error" and
// Unknown assessments, so batch length always equals dispatch count.
type EvaluationRecord struct {
	EvaluatorID string                `json:"model"`
	Article     ArticleAssessment     `json:"article"`
	Publication PublicationAssessment `json:"publication"`
	Raw         map[string]any        `json:"raw,omitempty"`
}

// EvaluatorValue is one evaluator's answer for a disputed field.
type EvaluatorValue struct {
	EvaluatorID string `json:"model"`
	Value       any    `json:"value"`
}

// Disagreement lists per-evaluator answers for a field without consensus.
type Disagreement struct {
	Field       string           `json:"field"`
	Evaluations []EvaluatorValue `json:"evaluations"`
}

// ConsensusResult is the reconciled judgement across all evaluations.
type ConsensusResult struct {
	Article       ArticleAssessment     `json:"article"`
	Publication   PublicationAssessment `json:"publication"`
	Confidence    float64               `json:"confidence"`
	Disagreements []Disagreement        `json:"disagreements"`
	Notes         string                `json:"notes"`
	EvaluatorID   string                `json:"model"`
}

// Summary is the structured article summary.
type Summary struct {
	Summary     string   `json:"summary"`
	Topics      []string `json:"topics"`
	Type        string   `json:"type"`
	EvaluatorID string   `json:"model"`
}

// AnswerCount is one answer with its occurrence count.
type AnswerCount struct {
	Answer string `json:"answer"`
	Count  int    `json:"count"`
}

// FieldStats aggregates historical consensus outcomes for one field.
// Consensus and NoConsensus are percentages that sum to 100 when Total > 0.
type FieldStats struct {
	Consensus   float64       `json:"consensus"`
	NoConsensus float64       `json:"no_consensus"`
	Total       int           `json:"total"`
	Answers     []AnswerCount `json:"answers"`
}

// HistoryStats is the recomputed view over all persisted results for a URL.
type HistoryStats struct {
	URL         string                `json:"url"`
	Stats       map[string]FieldStats `json:"stats"`
	EvaluatorID string                `json:"model,omitempty"`
}

// AnalysisResult is the complete outcome of one pipeline run; it is also
// the persisted blob.
type AnalysisResult struct {
	URL         string             `json:"url"`
	Title       string             `json:"title"`
	Authors     []string           `json:"authors"`
	Publication string             `json:"publication"`
	PublishedAt string             `json:"published_at"`
	Summary     Summary            `json:"summary"`
	Evaluations []EvaluationRecord `json:"evaluations"`
	Consensus   ConsensusResult    `json:"consensus"`
	History     *HistoryStats      `json:"history"`
}

// StatusPayload is the body of a "status" stream event.
type StatusPayload struct {
	Message string `json:"message"`
}

// UnknownArticle returns an article assessment with every field unset.
func UnknownArticle(notes string) ArticleAssessment {
	return ArticleAssessment{
		Perspective:  Unknown,
		ToneLanguage: []string{},
		Fairness:     Unknown,
		HeadlineGap:  Unknown,
		Notes:        notes,
	}
}

// UnknownPublication returns a publication assessment with every field unset.
func UnknownPublication() PublicationAssessment {
	return PublicationAssessment{
		SourceOfFunding: []string{},
		Location:        Unknown,
		Ownership:       Unknown,
	}
}
