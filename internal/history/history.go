// Package history recomputes per-field consensus statistics from every
// persisted analysis of a URL.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/newslens/newslens/internal/evaluator"
	"github.com/newslens/newslens/internal/llmjson"
	"github.com/newslens/newslens/internal/model"
	"github.com/newslens/newslens/pkg/logger"
)

// ResultReader reads persisted analysis blobs by URL.
type ResultReader interface {
	ResultsForURL(ctx context.Context, url string) ([][]byte, error)
}

// Aggregator computes deterministic field statistics and then asks the
// semantic aggregator to merge near-duplicate answers.
type Aggregator struct {
	store      ResultReader
	aggregator evaluator.Evaluator
}

// NewAggregator wires the persistence reader and the canonicalization
// capability.
func NewAggregator(store ResultReader, agg evaluator.Evaluator) *Aggregator {
	return &Aggregator{store: store, aggregator: agg}
}

// persistedResult is the slice of the stored blob the tally needs. Older
// rows may carry extra fields; they are ignored.
type persistedResult struct {
	Consensus struct {
		Article     map[string]any `json:"article"`
		Publication map[string]any `json:"publication"`
	} `json:"consensus"`
	Evaluations []struct {
		Article     map[string]any `json:"article"`
		Publication map[string]any `json:"publication"`
	} `json:"evaluations"`
}

// StatsFor returns the historical field statistics for url. The
// deterministic tally always succeeds once rows are read; the
// canonicalization pass is additive polish and falls back to the raw
// frequency tables on any failure.
func (a *Aggregator) StatsFor(ctx context.Context, url string) (*model.HistoryStats, error) {
	rows, err := a.store.ResultsForURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("read persisted results: %w", err)
	}
	if len(rows) == 0 {
		return &model.HistoryStats{URL: url, Stats: map[string]model.FieldStats{}}, nil
	}

	stats := tally(rows)
	out := &model.HistoryStats{URL: url, Stats: stats}

	evaluatorID, err := a.canonicalize(ctx, stats)
	if err != nil {
		logger.Log.Warnf("canonicalization failed, keeping raw frequency counts: %v", err)
		return out, nil
	}
	out.EvaluatorID = evaluatorID
	return out, nil
}

// tally walks every persisted row and builds, per monitored field, the
// binary consensus/no-consensus ratio and the raw evaluator answer counts.
// Fields with zero observations are omitted.
func tally(rows [][]byte) map[string]model.FieldStats {
	consensusYes := map[string]int{}
	consensusNo := map[string]int{}
	answerCounts := map[string]map[string]int{}
	answerOrder := map[string][]string{}

	for _, raw := range rows {
		var data persistedResult
		if err := json.Unmarshal(raw, &data); err != nil {
			logger.Log.Warnf("failed to parse persisted record: %v", err)
			continue
		}

		for _, field := range model.MonitoredFields {
			value := fieldValue(data.Consensus.Article, data.Consensus.Publication, field)
			if value == nil {
				continue
			}
			if isNoConsensus(value) {
				consensusNo[field]++
			} else {
				consensusYes[field]++
			}
		}

		for _, ev := range data.Evaluations {
			for _, field := range model.MonitoredFields {
				value := fieldValue(ev.Article, ev.Publication, field)
				if value == nil {
					continue
				}
				for _, answer := range flatten(value) {
					if answerCounts[field] == nil {
						answerCounts[field] = map[string]int{}
					}
					if answerCounts[field][answer] == 0 {
						answerOrder[field] = append(answerOrder[field], answer)
					}
					answerCounts[field][answer]++
				}
			}
		}
	}

	stats := map[string]model.FieldStats{}
	for _, field := range model.MonitoredFields {
		total := consensusYes[field] + consensusNo[field]
		if total == 0 {
			continue
		}

		answers := make([]model.AnswerCount, 0, len(answerOrder[field]))
		for _, answer := range answerOrder[field] {
			answers = append(answers, model.AnswerCount{Answer: answer, Count: answerCounts[field][answer]})
		}

		stats[field] = model.FieldStats{
			Consensus:   round1(float64(consensusYes[field]) / float64(total) * 100),
			NoConsensus: round1(float64(consensusNo[field]) / float64(total) * 100),
			Total:       total,
			Answers:     answers,
		}
	}
	return stats
}

// canonicalize sends all frequency tables to the aggregator in one call and
// merges its canonical labels back into stats in place.
func (a *Aggregator) canonicalize(ctx context.Context, stats map[string]model.FieldStats) (string, error) {
	if a.aggregator == nil {
		return "", fmt.Errorf("no aggregator configured")
	}

	prompt, err := makeDedupPrompt(stats)
	if err != nil {
		return "", err
	}

	payload, err := a.aggregator.Call(ctx, prompt)
	if err != nil {
		return "", err
	}

	obj := llmjson.Clean(payload.Text).AsObject()
	fieldTables, ok := obj["stats"].([]any)
	if !ok {
		return "", fmt.Errorf("response has no stats list")
	}

	for _, entry := range fieldTables {
		fieldObj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		for field, v := range fieldObj {
			current, tracked := stats[field]
			if !tracked {
				continue
			}
			answers, ok := parseAnswers(v)
			if !ok {
				continue
			}

			total := 0
			for _, ac := range answers {
				total += ac.Count
			}
			current.Answers = answers
			current.Total = total
			stats[field] = current
		}
	}

	return payload.EvaluatorID, nil
}

func parseAnswers(v any) ([]model.AnswerCount, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	answers := make([]model.AnswerCount, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		answer, _ := obj["answer"].(string)
		count, ok := obj["count"].(float64)
		if !ok {
			return nil, false
		}
		answers = append(answers, model.AnswerCount{Answer: answer, Count: int(count)})
	}
	return answers, true
}

func fieldValue(article, publication map[string]any, field string) any {
	switch field {
	case "perspective", "tone_language", "fairness", "headline_article":
		return article[field]
	default:
		return publication[field]
	}
}

func isNoConsensus(v any) bool {
	s, ok := v.(string)
	return ok && strings.EqualFold(s, model.NoConsensus)
}

// flatten turns a field value into individual answers; list-valued fields
// contribute one answer per item.
func flatten(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case float64:
		return []string{fmt.Sprintf("%v", t)}
	}
	return nil
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
