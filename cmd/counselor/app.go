package main

import (
	"context"
	"fmt"
	"io"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/config"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/fetch"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/llm"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/observability"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/pipeline"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/pipeline/steps"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/research"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/schemas"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/search"
)

// app wires the model, search and both graphs for one CLI invocation.
type app struct {
	client   llm.Client
	pipeline *pipeline.Pipeline
	research *research.Engine
	printer  *observability.Printer
}

// checkCredentials reports the first missing credential.
func checkCredentials(c config.Config) error {
	switch {
	case c.GeminiAPIKey == "":
		return fmt.Errorf("%s environment variable or gemini_api_key config value is required", config.EnvGeminiAPIKey)
	case c.SearchAPIKey == "":
		return fmt.Errorf("%s environment variable or search_api_key config value is required", config.EnvSearchAPIKey)
	case c.SearchEngineID == "":
		return fmt.Errorf("%s environment variable or search_engine_id config value is required", config.EnvSearchEngineID)
	}
	return nil
}

// modelConfig applies configured model overrides to the default tiers.
func modelConfig(c config.Config) *llm.Config {
	models := llm.DefaultConfig()
	for tier, model := range c.Models {
		models = models.WithModel(llm.ModelTier(tier), model)
	}
	return models
}

func newApp(ctx context.Context, c config.Config, out io.Writer, showProgress bool) (*app, error) {
	if err := checkCredentials(c); err != nil {
		return nil, err
	}

	client, err := llm.NewClient(ctx, modelConfig(c), c.GeminiAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}
	gen := llm.NewStructuredClient(client,
		llm.WithSchemaTier(schemas.SearchPlan().Name, llm.TierLite),
		llm.WithSchemaTier(schemas.Recommendations().Name, llm.TierAdvanced),
	)

	searcher, err := search.NewGoogleClient(ctx, c.SearchAPIKey, c.SearchEngineID, []search.GoogleOption{
		search.WithFetcher(fetch.NewCachedFetcher(nil, fetch.DefaultCacheTTL)),
		search.WithFetchConcurrency(c.ResearchConcurrency),
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	printer := observability.NewPrinter(out)
	var onProgress steps.ProgressCallback
	if showProgress {
		onProgress = printer.PrintProgress
	}

	engine, err := research.New(gen, searcher, research.Options{
		QueriesPerJob:       c.QueriesPerJob,
		MaxSearchesPerQuery: c.MaxSearchesPerQuery,
		Concurrency:         c.ResearchConcurrency,
		Search:              c.SearchOptions(),
		OnProgress:          onProgress,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	pipe, err := pipeline.New(gen, engine, pipeline.Options{
		MinRecommendations: c.MinRecommendations,
		AutoResearchJobs:   c.AutoResearchJobs,
		OnProgress:         onProgress,
	})
	if err != nil {
		_ = client.Close()
		return nil, err
	}

	return &app{client: client, pipeline: pipe, research: engine, printer: printer}, nil
}

func (a *app) Close() error {
	return a.client.Close()
}
