// Package engine runs the analysis pipeline from URL gate to persisted
// result, emitting ordered progress events along the way.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/newslens/newslens/internal/evaluator"
	"github.com/newslens/newslens/internal/model"
	"github.com/newslens/newslens/internal/sse"
	"github.com/newslens/newslens/internal/validate"
	"github.com/newslens/newslens/pkg/logger"
)

// EmitFunc delivers one pipeline event to a consumer. A delivery error
// truncates further delivery but never aborts the pipeline.
type EmitFunc func(event string, payload any) error

// Fetcher acquires raw article markup.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FanOut dispatches the evaluation batch.
type FanOut interface {
	EvaluateAll(ctx context.Context, prompt string, rng *rand.Rand) []model.EvaluationRecord
}

// Reconciler produces the consensus judgement. It never fails.
type Reconciler interface {
	Reconcile(ctx context.Context, evals []model.EvaluationRecord, meta model.ArticleMetadata) model.ConsensusResult
}

// HistoryProvider computes historical field statistics.
type HistoryProvider interface {
	StatsFor(ctx context.Context, url string) (*model.HistoryStats, error)
}

// Store appends completed analyses.
type Store interface {
	InsertResult(ctx context.Context, url, publication string, result []byte) error
}

// Deps are the engine's collaborators, wired once at startup.
type Deps struct {
	Fetcher    Fetcher
	Extract    func(pageURL, html string) (*model.ScrapedArticle, error)
	FanOut     FanOut
	Consensus  Reconciler
	History    HistoryProvider
	Store      Store
	Summarizer evaluator.Evaluator

	// MaxContentChars bounds article content when the request doesn't.
	MaxContentChars int
	// NewRand supplies request-scoped randomness; seedable under test.
	NewRand func() *rand.Rand
}

// Engine executes analysis runs. It is safe for concurrent use; each run
// keeps its own state.
type Engine struct {
	deps Deps
}

// New builds an Engine over its collaborators.
func New(deps Deps) *Engine {
	if deps.MaxContentChars <= 0 {
		deps.MaxContentChars = 10000
	}
	if deps.NewRand == nil {
		deps.NewRand = func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		}
	}
	return &Engine{deps: deps}
}

// Analyze runs the full pipeline for req. Only pre-content failures (URL
// shape, fetch, extraction, content gate) return an error; every later
// failure degrades in place so the caller always gets a complete result.
// emit may be nil for submit-and-wait callers.
func (e *Engine) Analyze(ctx context.Context, req model.AnalysisRequest, emit EmitFunc) (*model.AnalysisResult, error) {
	runID := uuid.NewString()[:8]
	send := newSender(emit, runID)

	if err := validate.CheckURL(req.URL); err != nil {
		return nil, err
	}

	html, err := e.deps.Fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	scraped, err := e.deps.Extract(req.URL, html)
	if err != nil {
		return nil, fmt.Errorf("failed to scrape URL: %w", err)
	}
	if err := validate.CheckContent(scraped); err != nil {
		return nil, err
	}

	maxChars := req.MaxContentChars
	if maxChars <= 0 {
		maxChars = e.deps.MaxContentChars
	}
	meta := metadata(req.URL, scraped, maxChars)
	logger.Log.Infof("[%s] analyzing %s (%s)", runID, req.URL, meta.Publication)

	summary := e.summarize(ctx, meta)

	send(sse.EventStatus, model.StatusPayload{Message: "Evaluating article..."})
	evaluations := e.deps.FanOut.EvaluateAll(ctx, evaluator.MakeEvaluationPrompt(meta), e.deps.NewRand())
	for _, record := range evaluations {
		send(sse.EventEvaluation, record)
	}

	send(sse.EventStatus, model.StatusPayload{Message: "Finding consensus..."})
	cons := e.deps.Consensus.Reconcile(ctx, evaluations, meta)

	send(sse.EventStatus, model.StatusPayload{Message: "Getting historical data..."})
	hist, err := e.deps.History.StatsFor(ctx, req.URL)
	if err != nil {
		logger.Log.Errorf("[%s] historical stats unavailable: %v", runID, err)
		hist = &model.HistoryStats{URL: req.URL, Stats: map[string]model.FieldStats{}}
	}

	result := &model.AnalysisResult{
		URL:         req.URL,
		Title:       meta.Title,
		Authors:     meta.Authors,
		Publication: meta.Publication,
		PublishedAt: meta.PublishedAt,
		Summary:     summary,
		Evaluations: evaluations,
		Consensus:   cons,
		History:     hist,
	}

	e.persist(ctx, runID, result)
	send(sse.EventDone, result)

	logger.Log.Infof("[%s] analysis complete, confidence %.2f", runID, cons.Confidence)
	return result, nil
}

func (e *Engine) persist(ctx context.Context, runID string, result *model.AnalysisResult) {
	blob, err := json.Marshal(result)
	if err != nil {
		logger.Log.Errorf("[%s] failed to encode result for persistence: %v", runID, err)
		return
	}
	if err := e.deps.Store.InsertResult(ctx, result.URL, result.Publication, blob); err != nil {
		logger.Log.Errorf("[%s] failed to persist result: %v", runID, err)
	}
}

func (e *Engine) summarize(ctx context.Context, meta model.ArticleMetadata) model.Summary {
	degraded := model.Summary{Topics: []string{}, EvaluatorID: "error"}
	if e.deps.Summarizer == nil {
		return degraded
	}

	payload, err := e.deps.Summarizer.Call(ctx, makeSummaryPrompt(meta))
	if err != nil {
		logger.Log.Warnf("summary call failed: %v", err)
		return degraded
	}

	summary := parseSummary(payload)
	return summary
}

// newSender wraps emit so one delivery failure silences the rest of the
// stream without touching the pipeline.
func newSender(emit EmitFunc, runID string) func(event string, payload any) {
	dead := false
	return func(event string, payload any) {
		if emit == nil || dead {
			return
		}
		if err := emit(event, payload); err != nil {
			logger.Log.Infof("[%s] consumer gone, stopping event delivery: %v", runID, err)
			dead = true
		}
	}
}

func metadata(url string, scraped *model.ScrapedArticle, maxChars int) model.ArticleMetadata {
	content := truncateRunes(scraped.Text, maxChars)

	publishedAt := ""
	if scraped.PublishedAt != nil {
		publishedAt = scraped.PublishedAt.Format(time.RFC3339)
	}

	return model.ArticleMetadata{
		Title:       scraped.Title,
		Authors:     scraped.Authors,
		Publication: scraped.Publication,
		PublishedAt: publishedAt,
		URL:         url,
		Content:     content,
	}
}

// truncateRunes bounds s to max characters without splitting a UTF-8
// sequence.
func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
