package evaluator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/newslens/newslens/internal/llmjson"
	"github.com/newslens/newslens/internal/model"
)

// Coordinator fans a single evaluation prompt out to a bounded set of
// independent evaluator pairs.
type Coordinator struct {
	source   PairSource
	models   []string
	maxPairs int
}

// NewCoordinator builds a Coordinator over the configured evaluator pool.
// maxPairs is a hard ceiling on concurrent calls per request.
func NewCoordinator(source PairSource, models []string, maxPairs int) *Coordinator {
	return &Coordinator{source: source, models: models, maxPairs: maxPairs}
}

// EvaluateAll shuffles the pool with the request-scoped rng, partitions it
// into disjoint primary/fallback pairs capped at maxPairs, dispatches one
// call per pair concurrently, and waits for the whole batch. The returned
// slice is ordered by dispatch position, one record per pair: failures are
// isolated into sentinel records and never shrink the batch.
func (c *Coordinator) EvaluateAll(ctx context.Context, prompt string, rng *rand.Rand) []model.EvaluationRecord {
	shuffled := append([]string(nil), c.models...)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var pairs [][]string
	for i := 0; i+1 < len(shuffled) && len(pairs) < c.maxPairs; i += 2 {
		pairs = append(pairs, []string{shuffled[i], shuffled[i+1]})
	}

	records := make([]model.EvaluationRecord, len(pairs))
	var wg sync.WaitGroup
	for i, pair := range pairs {
		ev := c.source.Pair(pair)
		wg.Add(1)
		go func(i int, ev Evaluator) {
			defer wg.Done()
			payload, err := ev.Call(ctx, prompt)
			if err != nil {
				records[i] = SentinelRecord(err)
				return
			}
			records[i] = buildRecord(payload)
		}(i, ev)
	}
	wg.Wait()

	return records
}

// SentinelRecord is the well-formed stand-in for a failed evaluator call.
func SentinelRecord(err error) model.EvaluationRecord {
	return model.EvaluationRecord{
		EvaluatorID: "error",
		Article:     model.UnknownArticle(fmt.Sprintf("Model call failed: %v", err)),
		Publication: model.UnknownPublication(),
	}
}

func buildRecord(p Payload) model.EvaluationRecord {
	obj := llmjson.Clean(p.Text).AsObject()
	article, publication := llmjson.Assessments(obj)
	return model.EvaluationRecord{
		EvaluatorID: p.EvaluatorID,
		Article:     article,
		Publication: publication,
		Raw: map[string]any{
			"text":       p.Text,
			"normalized": obj,
		},
	}
}
