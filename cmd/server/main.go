package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/go-kratos/kratos/v2"

	"github.com/newslens/newslens/internal/conf"
	"github.com/newslens/newslens/internal/consensus"
	"github.com/newslens/newslens/internal/engine"
	"github.com/newslens/newslens/internal/evaluator"
	"github.com/newslens/newslens/internal/history"
	"github.com/newslens/newslens/internal/scraper"
	"github.com/newslens/newslens/internal/server"
	"github.com/newslens/newslens/internal/service"
	"github.com/newslens/newslens/internal/storage"
	"github.com/newslens/newslens/pkg/logger"
)

var (
	// Name is the service name.
	Name = "newslens"
	// Version is set at build time via -ldflags "-X main.Version=x.y.z".
	Version string

	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	bc, err := conf.Load(flagconf)
	if err != nil {
		panic(err)
	}
	if err := logger.Init(bc.Log.Level, bc.Log.File); err != nil {
		panic(err)
	}
	logger.Log.Infof("starting %s %s on %s (host %s)", Name, Version, bc.Server.Addr, id)

	store, cleanup, err := storage.New(bc.DB)
	if err != nil {
		logger.Log.Fatalf("failed to open database: %v", err)
	}
	defer cleanup()

	ctx := context.Background()
	pool, err := evaluator.NewModelPool(ctx, bc.LLM, modelUnion(bc.Evaluation.Models, bc.Evaluation.ConsensusModels))
	if err != nil {
		logger.Log.Fatalf("failed to initialize model pool: %v", err)
	}

	var renderer scraper.Renderer
	if bc.Scraper.RenderBaseURL != "" {
		renderer = scraper.NewRenderClient(bc.Scraper.RenderBaseURL, 0)
	}
	fetcher := scraper.NewFetcher(time.Duration(bc.Scraper.TimeoutSeconds)*time.Second, renderer)

	aggregator := pool.Pair(bc.Evaluation.ConsensusModels)
	eng := engine.New(engine.Deps{
		Fetcher:         fetcher,
		Extract:         scraper.Extract,
		FanOut:          evaluator.NewCoordinator(pool, bc.Evaluation.Models, bc.Evaluation.MaxPairs),
		Consensus:       consensus.NewRequestor(aggregator),
		History:         history.NewAggregator(store, aggregator),
		Store:           store,
		Summarizer:      aggregator,
		MaxContentChars: bc.Evaluation.MaxContentChars,
	})

	httpSrv := server.NewHTTPServer(bc.Server, service.NewNewsService(eng, store))
	app := kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Server(httpSrv),
	)
	if err := app.Run(); err != nil {
		logger.Log.Fatalf("server exited: %v", err)
	}
}

func modelUnion(groups ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, group := range groups {
		for _, name := range group {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
