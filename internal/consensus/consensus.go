// Package consensus reconciles the evaluation batch into a single
// judgement by delegating to the external semantic aggregator.
package consensus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newslens/newslens/internal/evaluator"
	"github.com/newslens/newslens/internal/llmjson"
	"github.com/newslens/newslens/internal/model"
	"github.com/newslens/newslens/pkg/logger"
)

// Requestor builds the reconciliation request and validates the response.
type Requestor struct {
	aggregator evaluator.Evaluator
}

// NewRequestor wires the semantic aggregator capability.
func NewRequestor(aggregator evaluator.Evaluator) *Requestor {
	return &Requestor{aggregator: aggregator}
}

// Reconcile sends the full ordered evaluation batch to the aggregator and
// returns its consensus. Every failure mode (call error, unparseable
// response, failed structural validation) degrades to a fallback result;
// Reconcile never fails past this boundary.
func (r *Requestor) Reconcile(ctx context.Context, evals []model.EvaluationRecord, meta model.ArticleMetadata) model.ConsensusResult {
	prompt := makeConsensusPrompt(evals, meta)

	payload, err := r.aggregator.Call(ctx, prompt)
	if err != nil {
		logger.Log.Warnf("consensus call failed, using fallback: %v", err)
		return fallbackResult(fmt.Sprintf("Aggregator call failed: %v", err))
	}

	obj := llmjson.Clean(payload.Text).AsObject()
	result, err := validate(obj)
	if err != nil {
		logger.Log.Warnf("consensus validation failed, using fallback: %v", err)
		return fallbackResult(fmt.Sprintf("Validation failed: %v", err))
	}

	result.EvaluatorID = payload.EvaluatorID
	return result
}

// validate checks the normalized aggregator response against the consensus
// shape and maps it onto the canonical result.
func validate(obj map[string]any) (model.ConsensusResult, error) {
	if len(obj) == 0 {
		return model.ConsensusResult{}, fmt.Errorf("response is not a JSON object")
	}
	if _, ok := obj["article"].(map[string]any); !ok {
		return model.ConsensusResult{}, fmt.Errorf("missing article object")
	}
	if _, ok := obj["publication"].(map[string]any); !ok {
		return model.ConsensusResult{}, fmt.Errorf("missing publication object")
	}

	confidence, ok := obj["confidence"].(float64)
	if !ok {
		return model.ConsensusResult{}, fmt.Errorf("missing or non-numeric confidence")
	}
	if confidence < 0 || confidence > 1 {
		return model.ConsensusResult{}, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}

	article, publication := llmjson.Assessments(obj)
	notes, _ := obj["notes"].(string)

	return model.ConsensusResult{
		Article:       article,
		Publication:   publication,
		Confidence:    confidence,
		Disagreements: parseDisagreements(obj["disagreements"]),
		Notes:         notes,
	}, nil
}

func parseDisagreements(v any) []model.Disagreement {
	items, ok := v.([]any)
	if !ok {
		return []model.Disagreement{}
	}

	out := make([]model.Disagreement, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		d := model.Disagreement{Evaluations: []model.EvaluatorValue{}}
		d.Field, _ = obj["field"].(string)
		if evs, ok := obj["evaluations"].([]any); ok {
			for _, ev := range evs {
				evObj, ok := ev.(map[string]any)
				if !ok {
					continue
				}
				id, _ := evObj["model"].(string)
				d.Evaluations = append(d.Evaluations, model.EvaluatorValue{
					EvaluatorID: id,
					Value:       evObj["value"],
				})
			}
		}
		out = append(out, d)
	}
	return out
}

func fallbackResult(notes string) model.ConsensusResult {
	return model.ConsensusResult{
		Article:       model.UnknownArticle(""),
		Publication:   model.UnknownPublication(),
		Confidence:    0,
		Disagreements: []model.Disagreement{},
		Notes:         notes,
		EvaluatorID:   "error",
	}
}

// slimEvaluation is the evaluation view sent to the aggregator; the raw
// diagnostic payload stays out of the prompt.
type slimEvaluation struct {
	EvaluatorID string                      `json:"model"`
	Article     model.ArticleAssessment     `json:"article"`
	Publication model.PublicationAssessment `json:"publication"`
}

func makeConsensusPrompt(evals []model.EvaluationRecord, meta model.ArticleMetadata) string {
	slim := make([]slimEvaluation, len(evals))
	for i, ev := range evals {
		slim[i] = slimEvaluation{EvaluatorID: ev.EvaluatorID, Article: ev.Article, Publication: ev.Publication}
	}

	payload, _ := json.MarshalIndent(map[string]any{
		"article":     map[string]any{"title": meta.Title, "url": meta.URL},
		"evaluations": slim,
	}, "", "  ")

	return consensusRubric + "\n---\nInput evaluations:\n" + string(payload)
}
