package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/prepforge/prepforge/internal/cache"
	"github.com/prepforge/prepforge/internal/ocr"
	"github.com/prepforge/prepforge/internal/pipeline"
	"github.com/prepforge/prepforge/internal/resilience"
	"github.com/prepforge/prepforge/internal/sandbox"
	"github.com/prepforge/prepforge/internal/store"
	"github.com/prepforge/prepforge/pkg/claude"
	"github.com/prepforge/prepforge/pkg/openai"
)

// appEnv holds the initialized store, clients, and assistant shared by the
// serve/analyze/batch commands.
type appEnv struct {
	Store     store.Store
	Assistant *pipeline.Assistant
	Cache     *cache.Cache
	Sandbox   *sandbox.Runner
	OCR       *ocr.VisionExtractor
	Generator claude.Client
	Reviewer  openai.Client
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initAssistant sets up the store, API clients, cache, and assistant.
// Callers should defer env.Close().
func initAssistant(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	generator := claude.NewClient(cfg.Anthropic.Key)
	revOpts := []openai.Option{openai.WithModel(cfg.OpenAI.Model)}
	if cfg.OpenAI.BaseURL != "" {
		revOpts = append(revOpts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
	}
	reviewer := openai.NewClient(cfg.OpenAI.Key, revOpts...)

	results := cache.New(cfg.Cache.MaxEntries, time.Duration(cfg.Cache.TTLHours)*time.Hour)
	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMs)

	return &appEnv{
		Store:     st,
		Assistant: pipeline.New(cfg, generator, reviewer, results, st),
		Cache:     results,
		Sandbox:   sandbox.NewRunner(cfg.Sandbox.PythonPath),
		OCR:       ocr.NewVisionExtractor(generator, cfg.Anthropic.Model, retry),
		Generator: generator,
		Reviewer:  reviewer,
	}, nil
}

// initStore opens the history store selected by store.driver.
func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "", "sqlite":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}
