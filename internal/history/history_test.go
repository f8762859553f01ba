package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/newslens/newslens/internal/evaluator"
)

type fakeStore struct {
	rows [][]byte
	err  error
}

func (f *fakeStore) ResultsForURL(ctx context.Context, url string) ([][]byte, error) {
	return f.rows, f.err
}

type fakeAggregator struct {
	text string
	err  error
}

func (f *fakeAggregator) Call(ctx context.Context, prompt string) (evaluator.Payload, error) {
	if f.err != nil {
		return evaluator.Payload{}, f.err
	}
	return evaluator.Payload{EvaluatorID: "dedup-model", Text: f.text}, nil
}

// persistedRow builds a stored blob whose fairness consensus is the given
// value and whose evaluations answer fairness with the given answers.
func persistedRow(t *testing.T, fairness string, answers ...string) []byte {
	t.Helper()
	evals := make([]map[string]any, 0, len(answers))
	for _, a := range answers {
		evals = append(evals, map[string]any{
			"model":       "m1",
			"article":     map[string]any{"fairness": a},
			"publication": map[string]any{},
		})
	}
	blob, err := json.Marshal(map[string]any{
		"consensus": map[string]any{
			"article":     map[string]any{"fairness": fairness},
			"publication": map[string]any{},
		},
		"evaluations": evals,
	})
	if err != nil {
		t.Fatal(err)
	}
	return blob
}

func TestStatsForRatios(t *testing.T) {
	store := &fakeStore{rows: [][]byte{
		persistedRow(t, "High", "High", "High"),
		persistedRow(t, "High", "High"),
		persistedRow(t, "High", "Medium"),
		persistedRow(t, "High", "High"),
		persistedRow(t, "No Consensus", "Low", "High"),
	}}
	agg := &fakeAggregator{err: errors.New("skip canonicalization")}

	stats, err := NewAggregator(store, agg).StatsFor(context.Background(), "https://example.com/news/a")
	if err != nil {
		t.Fatal(err)
	}

	fs, ok := stats.Stats["fairness"]
	if !ok {
		t.Fatal("fairness stats missing")
	}
	if fs.Consensus != 80.0 || fs.NoConsensus != 20.0 {
		t.Errorf("ratios = %v/%v, want 80.0/20.0", fs.Consensus, fs.NoConsensus)
	}
	if fs.Total != 5 {
		t.Errorf("total = %d, want 5", fs.Total)
	}
	if fs.Consensus+fs.NoConsensus != 100.0 {
		t.Errorf("ratios must sum to 100, got %v", fs.Consensus+fs.NoConsensus)
	}
}

func TestStatsForRatioRounding(t *testing.T) {
	store := &fakeStore{rows: [][]byte{
		persistedRow(t, "High"),
		persistedRow(t, "High"),
		persistedRow(t, "No Consensus"),
	}}
	agg := &fakeAggregator{err: errors.New("skip")}

	stats, err := NewAggregator(store, agg).StatsFor(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	fs := stats.Stats["fairness"]
	if fs.Consensus != 66.7 || fs.NoConsensus != 33.3 {
		t.Errorf("ratios = %v/%v, want 66.7/33.3", fs.Consensus, fs.NoConsensus)
	}
}

func TestStatsForOmitsUnobservedFields(t *testing.T) {
	store := &fakeStore{rows: [][]byte{persistedRow(t, "High", "High")}}
	agg := &fakeAggregator{err: errors.New("skip")}

	stats, err := NewAggregator(store, agg).StatsFor(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := stats.Stats["perspective"]; ok {
		t.Error("perspective had zero observations and must be omitted")
	}
}

func TestStatsForAnswerFrequencies(t *testing.T) {
	store := &fakeStore{rows: [][]byte{
		persistedRow(t, "High", "High", "High", "Medium"),
		persistedRow(t, "High", "High"),
	}}
	agg := &fakeAggregator{err: errors.New("skip")}

	stats, _ := NewAggregator(store, agg).StatsFor(context.Background(), "u")
	answers := stats.Stats["fairness"].Answers
	counts := map[string]int{}
	for _, a := range answers {
		counts[a.Answer] = a.Count
	}
	if counts["High"] != 3 || counts["Medium"] != 1 {
		t.Errorf("answer counts = %v", counts)
	}
}

func TestStatsForFlattensListFields(t *testing.T) {
	blob, _ := json.Marshal(map[string]any{
		"consensus": map[string]any{
			"article":     map[string]any{"tone_language": []string{"Calm"}},
			"publication": map[string]any{},
		},
		"evaluations": []map[string]any{
			{
				"article":     map[string]any{"tone_language": []string{"Calm", "Measured"}},
				"publication": map[string]any{},
			},
		},
	})
	store := &fakeStore{rows: [][]byte{blob}}
	agg := &fakeAggregator{err: errors.New("skip")}

	stats, _ := NewAggregator(store, agg).StatsFor(context.Background(), "u")
	tone := stats.Stats["tone_language"]
	if len(tone.Answers) != 2 {
		t.Errorf("tone answers = %v, want items flattened individually", tone.Answers)
	}
}

func TestStatsForNoRows(t *testing.T) {
	agg := &fakeAggregator{}
	stats, err := NewAggregator(&fakeStore{}, agg).StatsFor(context.Background(), "https://example.com/news/a")
	if err != nil {
		t.Fatal(err)
	}
	if len(stats.Stats) != 0 {
		t.Errorf("stats = %v, want empty", stats.Stats)
	}
	if stats.URL != "https://example.com/news/a" {
		t.Errorf("url = %q", stats.URL)
	}
}

func TestStatsForStoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("connection refused")}
	if _, err := NewAggregator(store, &fakeAggregator{}).StatsFor(context.Background(), "u"); err == nil {
		t.Error("expected error from store failure")
	}
}

func TestCanonicalizationReplacesAnswers(t *testing.T) {
	store := &fakeStore{rows: [][]byte{
		persistedRow(t, "High", "High", "high", "HIGH"),
	}}
	agg := &fakeAggregator{text: `{"stats": [{"fairness": [{"answer": "High", "count": 3}]}]}`}

	stats, err := NewAggregator(store, agg).StatsFor(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}

	fs := stats.Stats["fairness"]
	if len(fs.Answers) != 1 || fs.Answers[0].Answer != "High" || fs.Answers[0].Count != 3 {
		t.Errorf("canonical answers = %v", fs.Answers)
	}
	if fs.Total != 3 {
		t.Errorf("total = %d, want recomputed sum of canonical counts", fs.Total)
	}
	if stats.EvaluatorID != "dedup-model" {
		t.Errorf("evaluator id = %q", stats.EvaluatorID)
	}
}

func TestCanonicalizationFailureKeepsRawCounts(t *testing.T) {
	store := &fakeStore{rows: [][]byte{
		persistedRow(t, "High", "High", "high"),
	}}

	for name, agg := range map[string]*fakeAggregator{
		"call error":   {err: fmt.Errorf("model unavailable")},
		"bad response": {text: "not json"},
	} {
		stats, err := NewAggregator(store, agg).StatsFor(context.Background(), "u")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		fs := stats.Stats["fairness"]
		if len(fs.Answers) != 2 {
			t.Errorf("%s: answers = %v, want raw counts preserved", name, fs.Answers)
		}
		if stats.EvaluatorID != "" {
			t.Errorf("%s: evaluator id = %q, want empty on fallback", name, stats.EvaluatorID)
		}
	}
}
