// Package research drains the research queue. Each queued job is taken
// through query generation, web search and analysis before the next one is
// dequeued, and every job ends up in the completed collection as COMPLETED or
// FAILED.
package research

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/llm"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/logging"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/pipeline/steps"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/search"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

// GraphName names the research graph in logs and events.
const GraphName = "research"

// Routes out of the dequeue and analysis steps.
const (
	RouteResearch = "research"
	RouteNext     = "next"
	RouteDone     = "done"
)

// maxSteps bounds one drain of the queue; every job takes four steps.
const maxSteps = 4096

// Options configures the research engine
type Options struct {
	QueriesPerJob       int
	MaxSearchesPerQuery int
	Concurrency         int
	Search              search.Options
	OnProgress          steps.ProgressCallback
}

// DefaultOptions returns the default research options.
func DefaultOptions() Options {
	return Options{
		QueriesPerJob:       5,
		MaxSearchesPerQuery: 2,
		Concurrency:         4,
		Search: search.Options{
			MaxResults:        2,
			Depth:             search.DepthThorough,
			IncludeRawContent: true,
		},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.QueriesPerJob <= 0 {
		o.QueriesPerJob = d.QueriesPerJob
	}
	if o.MaxSearchesPerQuery <= 0 {
		o.MaxSearchesPerQuery = d.MaxSearchesPerQuery
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.Search.MaxResults <= 0 {
		o.Search.MaxResults = d.Search.MaxResults
	}
	if o.Search.Depth == "" {
		o.Search.Depth = d.Search.Depth
	}
	return o
}

// Engine runs the research graph.
type Engine struct {
	gen      llm.Generator
	searcher search.Client
	opts     Options
	graph    *workflow.Graph[state.State, state.Update]
}

// New compiles the research graph over gen and searcher.
func New(gen llm.Generator, searcher search.Client, opts Options) (*Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("research: generator is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("research: search client is required")
	}

	e := &Engine{gen: gen, searcher: searcher, opts: opts.withDefaults()}
	graph, err := workflow.NewBuilder(GraphName, state.Schema).
		AddStep(steps.DequeueJob, e.dequeue).
		AddStep(steps.GenerateResearchQueries, e.generateQueries).
		AddStep(steps.GatherResearchResults, e.gatherResults).
		AddStep(steps.AnalyzeResearch, e.analyze).
		SetEntry(steps.DequeueJob).
		AddBranch(steps.DequeueJob, RouteDequeued, map[string]string{
			RouteResearch: steps.GenerateResearchQueries,
			RouteDone:     workflow.End,
		}, "").
		AddEdge(steps.GenerateResearchQueries, steps.GatherResearchResults).
		AddEdge(steps.GatherResearchResults, steps.AnalyzeResearch).
		AddBranch(steps.AnalyzeResearch, RouteQueue, map[string]string{
			RouteNext: steps.DequeueJob,
			RouteDone: workflow.End,
		}, "").
		OnFailure(recordFailure).
		Observe(steps.Observer(e.opts.OnProgress)).
		MaxSteps(maxSteps).
		Compile()
	if err != nil {
		return nil, err
	}
	e.graph = graph
	return e, nil
}

// Graph returns the compiled research graph.
func (e *Engine) Graph() *workflow.Graph[state.State, state.Update] {
	return e.graph
}

// Options returns the effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Run drains the research queue of s.
func (e *Engine) Run(ctx context.Context, s state.State) (state.State, error) {
	return e.graph.Run(ctx, s)
}

// RunResearch drains the research queue of s and logs a summary of the run.
func (e *Engine) RunResearch(ctx context.Context, s state.State) (state.State, error) {
	logger := componentLogger(ctx)
	logger.Info().Int("queued", len(s.ResearchQueue)).Msg("research started")

	before := len(s.CompletedResearch)
	final, err := e.Run(ctx, s)

	completed, failed := 0, 0
	for _, jr := range final.CompletedResearch[before:] {
		if jr.ResearchStatus == types.ResearchCompleted {
			completed++
		} else {
			failed++
		}
	}
	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.Int("completed", completed).
		Int("failed", failed).
		Int("remaining", len(final.ResearchQueue)).
		Msg("research finished")
	return final, err
}

func componentLogger(ctx context.Context) zerolog.Logger {
	return logging.FromContext(ctx).With().Str("component", "research").Logger()
}

// RouteDequeued continues with query generation when a job was dequeued.
func RouteDequeued(s state.State) string {
	if s.CurrentResearch != nil {
		return RouteResearch
	}
	return RouteDone
}

// RouteQueue loops back to the dequeue step while jobs remain queued.
func RouteQueue(s state.State) string {
	if len(s.ResearchQueue) > 0 {
		return RouteNext
	}
	return RouteDone
}

// recordFailure fails the job in progress, if any, so that it still reaches the
// completed collection, and explains what happened.
func recordFailure(s state.State, step string, err error) state.Update {
	if s.CurrentResearch == nil {
		return state.Say(types.AssistantMessage(
			fmt.Sprintf("Research stopped: I could not %s: %v", steps.Label(step), err)))
	}

	failed := s.CurrentResearch.Clone()
	failed.ResearchStatus = types.ResearchFailed
	failed.FailureReason = err.Error()
	return state.Update{
		Messages: []types.Message{types.AssistantMessage(
			fmt.Sprintf("Research on %s failed: I could not %s: %v", failed.Job.Name, steps.Label(step), err))},
		CurrentResearch:   workflow.Assign[*types.JobResearch](nil),
		CompletedResearch: []types.JobResearch{failed},
	}
}
