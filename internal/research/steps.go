package research

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/llm"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/prompts"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/schemas"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

type queryBatch struct {
	Queries []string `json:"queries" validate:"min=1"`
}

type searchPlan struct {
	Terms []string `json:"terms"`
}

func (e *Engine) dequeue(ctx context.Context, s state.State) (state.Update, error) {
	if len(s.ResearchQueue) == 0 {
		return state.Update{
			Messages:        []types.Message{types.AssistantMessage("No jobs are queued for research.")},
			CurrentResearch: workflow.Assign[*types.JobResearch](nil),
		}, nil
	}

	jobID := s.ResearchQueue[0]
	job, ok := types.FindJob(s.Recommendations, jobID)
	if !ok {
		return state.Update{}, &JobNotFoundError{JobID: jobID}
	}

	rest := make([]string, len(s.ResearchQueue)-1)
	copy(rest, s.ResearchQueue[1:])
	jr := types.NewJobResearch(job)

	logger := componentLogger(ctx)
	logger.Debug().Str("job_id", job.JobID).Str("job", job.Name).Int("remaining", len(rest)).Msg("job dequeued")

	return state.Update{
		Messages:        []types.Message{types.AssistantMessage(dequeueMessage(job, len(rest)))},
		CurrentResearch: workflow.Assign(&jr),
		ResearchQueue:   workflow.Assign(rest),
	}, nil
}

func dequeueMessage(job types.Job, remaining int) string {
	switch remaining {
	case 0:
		return fmt.Sprintf("Starting research on %s.", job.Name)
	case 1:
		return fmt.Sprintf("Starting research on %s. 1 more job is queued.", job.Name)
	default:
		return fmt.Sprintf("Starting research on %s. %d more jobs are queued.", job.Name, remaining)
	}
}

func (e *Engine) generateQueries(ctx context.Context, s state.State) (state.Update, error) {
	jr, err := e.GenerateQueries(ctx, *s.CurrentResearch)
	if err != nil {
		return state.Update{}, err
	}
	return state.Update{
		Messages: []types.Message{types.AssistantMessage(
			fmt.Sprintf("Planned %d research questions about %s.", len(jr.ResearchData), jr.Job.Name))},
		CurrentResearch: workflow.Assign(&jr),
	}, nil
}

func (e *Engine) gatherResults(ctx context.Context, s state.State) (state.Update, error) {
	jr, err := e.GatherResults(ctx, *s.CurrentResearch)
	if err != nil {
		return state.Update{}, err
	}

	answered := 0
	for _, d := range jr.ResearchData {
		if d.HasResults() {
			answered++
		}
	}
	return state.Update{
		Messages: []types.Message{types.AssistantMessage(
			fmt.Sprintf("Found web results for %d of %d research questions about %s.",
				answered, len(jr.ResearchData), jr.Job.Name))},
		CurrentResearch: workflow.Assign(&jr),
	}, nil
}

func (e *Engine) analyze(ctx context.Context, s state.State) (state.Update, error) {
	jr, err := e.Analyze(ctx, *s.CurrentResearch)

	var noData *NoResearchDataError
	if errors.As(err, &noData) {
		logger := componentLogger(ctx)
		logger.Warn().Str("job_id", noData.JobID).Str("job", noData.Job).Msg("no research data, job marked failed")
		return state.Update{
			Messages: []types.Message{types.AssistantMessage(
				fmt.Sprintf("I could not find any research results for %s, so its research is marked as failed.", jr.Job.Name))},
			CurrentResearch:   workflow.Assign[*types.JobResearch](nil),
			CompletedResearch: []types.JobResearch{jr},
		}, nil
	}
	if err != nil {
		return state.Update{}, err
	}

	return state.Update{
		Messages: []types.Message{types.AssistantMessage(
			fmt.Sprintf("Research on %s is complete.\n\n%s", jr.Job.Name, jr.Analysis()))},
		CurrentResearch:   workflow.Assign[*types.JobResearch](nil),
		CompletedResearch: []types.JobResearch{jr},
	}, nil
}

// GenerateQueries asks the generator for research questions about the job of
// jr and returns jr holding one ungathered entry per distinct question, capped
// at the configured number of queries per job.
func (e *Engine) GenerateQueries(ctx context.Context, jr types.JobResearch) (types.JobResearch, error) {
	prompt, err := prompts.Build(prompts.KeyResearchQueries, map[string]string{
		"Count":       strconv.Itoa(e.opts.QueriesPerJob),
		"Job":         jr.Job.Name,
		"Description": jr.Job.Description,
	})
	if err != nil {
		return jr, err
	}

	var batch queryBatch
	if err := e.gen.Generate(ctx, prompt, schemas.ResearchQueries(), &batch); err != nil {
		return jr, err
	}

	queries := distinct(batch.Queries, e.opts.QueriesPerJob)
	if len(queries) == 0 {
		return jr, &llm.GenerationError{Schema: schemas.ResearchQueries().Name, Message: "no usable research queries"}
	}

	out := jr.Clone()
	out.ResearchData = make([]types.JobResearchData, 0, len(queries))
	for _, q := range queries {
		out.ResearchData = append(out.ResearchData, types.JobResearchData{Query: q})
	}
	out.ResearchStatus = types.ResearchQueryGenerated
	return out, nil
}

// GatherResults runs the web research of every entry of jr. Entries are
// researched concurrently and folded back in query order. A failed query keeps
// empty results and sources; only cancellation of ctx is returned as an error.
func (e *Engine) GatherResults(ctx context.Context, jr types.JobResearch) (types.JobResearch, error) {
	out := jr.Clone()
	logger := componentLogger(ctx)

	var g errgroup.Group
	g.SetLimit(e.opts.Concurrency)
	for i := range out.ResearchData {
		g.Go(func() error {
			query := out.ResearchData[i].Query
			results, sources, err := e.researchQuery(ctx, out.Job, query)
			if err != nil {
				logger.Warn().Err(err).Str("job", out.Job.Name).Str("query", query).Msg("research query failed")
				results, sources = []string{}, []string{}
			}
			out.ResearchData[i].Results = results
			out.ResearchData[i].Sources = sources
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return jr, err
	}
	out.ResearchStatus = types.ResearchResultsGathered
	return out, nil
}

// researchQuery plans search terms for one question, runs each against the
// search client, and flattens the hits into parallel results and sources.
func (e *Engine) researchQuery(ctx context.Context, job types.Job, query string) ([]string, []string, error) {
	prompt, err := prompts.Build(prompts.KeySearchPlan, map[string]string{
		"Query": query,
		"Count": strconv.Itoa(e.opts.MaxSearchesPerQuery),
		"Job":   job.Name,
	})
	if err != nil {
		return nil, nil, err
	}

	var plan searchPlan
	if err := e.gen.Generate(ctx, prompt, schemas.SearchPlan(), &plan); err != nil {
		return nil, nil, err
	}

	results, sources := []string{}, []string{}
	seen := make(map[string]bool)
	for _, term := range distinct(plan.Terms, e.opts.MaxSearchesPerQuery) {
		hits, err := e.searcher.Search(ctx, term, e.opts.Search)
		if err != nil {
			return nil, nil, err
		}
		for _, hit := range hits {
			if seen[hit.URL] {
				continue
			}
			seen[hit.URL] = true
			results = append(results, hit.Flatten())
			sources = append(sources, hit.URL)
		}
	}
	return results, sources, nil
}

// Analyze summarizes the gathered results of jr. With nothing gathered, jr is
// returned FAILED together with a *NoResearchDataError. Analyzing a completed
// record again regenerates the analysis and keeps it COMPLETED.
func (e *Engine) Analyze(ctx context.Context, jr types.JobResearch) (types.JobResearch, error) {
	out := jr.Clone()

	block := out.ResultBlock()
	if block == "" {
		err := &NoResearchDataError{JobID: out.Job.JobID, Job: out.Job.Name}
		out.ResearchStatus = types.ResearchFailed
		out.FailureReason = err.Error()
		out.ResearchAnalysis = nil
		return out, err
	}

	prompt, err := prompts.Build(prompts.KeyResearchAnalysis, map[string]string{
		"Job":         out.Job.Name,
		"Description": out.Job.Description,
		"Research":    block,
	})
	if err != nil {
		return jr, err
	}

	text, err := e.gen.Complete(ctx, prompt)
	if err != nil {
		return jr, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return jr, &llm.GenerationError{Message: "empty research analysis"}
	}

	out.ResearchAnalysis = &text
	out.ResearchStatus = types.ResearchCompleted
	out.FailureReason = ""
	return out, nil
}

// distinct trims values, drops blanks and case-insensitive duplicates, and
// keeps at most limit values.
func distinct(values []string, limit int) []string {
	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
