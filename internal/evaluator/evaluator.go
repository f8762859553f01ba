// Package evaluator dispatches article assessments to external chat models
// and collects them into canonical evaluation records.
package evaluator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/newslens/newslens/internal/conf"
	"github.com/newslens/newslens/pkg/logger"
)

// Payload is the raw outcome of one successful evaluator call.
type Payload struct {
	// EvaluatorID names the model that actually answered.
	EvaluatorID string
	// Text is the unparsed response body.
	Text string
}

// Evaluator is the external text-evaluation capability. One concrete
// implementation is selected at configuration time.
type Evaluator interface {
	Call(ctx context.Context, prompt string) (Payload, error)
}

// PairSource builds Evaluators backed by primary/fallback model pairs.
type PairSource interface {
	Pair(models []string) Evaluator
}

const systemPrompt = "You are a JSON generator. Output only a JSON object."

// ModelPool holds one chat model per configured model name, sharing a
// rate limiter across the endpoint.
type ModelPool struct {
	models  map[string]einomodel.ChatModel
	limiter *rate.Limiter
}

var _ PairSource = (*ModelPool)(nil)

// NewModelPool creates chat models for every name in names against the
// configured endpoint.
func NewModelPool(ctx context.Context, cfg conf.LLMConfig, names []string) (*ModelPool, error) {
	models := make(map[string]einomodel.ChatModel, len(names))
	for _, name := range names {
		if _, ok := models[name]; ok {
			continue
		}
		cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   name,
		})
		if err != nil {
			return nil, fmt.Errorf("init chat model %s: %w", name, err)
		}
		models[name] = cm
	}

	limiter := rate.NewLimiter(rate.Limit(float64(cfg.RPM)/60.0), cfg.Burst)
	return &ModelPool{models: models, limiter: limiter}, nil
}

// Pair returns an Evaluator that tries each model in order, answering with
// the first that succeeds.
func (p *ModelPool) Pair(models []string) Evaluator {
	return &pairEvaluator{pool: p, names: models}
}

type pairEvaluator struct {
	pool  *ModelPool
	names []string
}

func (e *pairEvaluator) Call(ctx context.Context, prompt string) (Payload, error) {
	var lastErr error
	for _, name := range e.names {
		cm, ok := e.pool.models[name]
		if !ok {
			lastErr = fmt.Errorf("unknown model %q", name)
			continue
		}
		if err := e.pool.limiter.Wait(ctx); err != nil {
			return Payload{}, err
		}

		resp, err := cm.Generate(ctx, []*schema.Message{
			{Role: schema.System, Content: systemPrompt},
			{Role: schema.User, Content: prompt},
		})
		if err != nil {
			logger.Log.Warnf("model %s failed, trying fallback: %v", name, err)
			lastErr = err
			continue
		}
		return Payload{EvaluatorID: name, Text: resp.Content}, nil
	}
	return Payload{}, fmt.Errorf("all models in pair failed: %w", lastErr)
}
