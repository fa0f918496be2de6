// Package pipeline provides the high-level orchestration of a counseling turn:
// profile extraction, follow-up questions or job recommendations, and the
// research of the selected jobs.
package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/llm"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/logging"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/pipeline/steps"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/prompts"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/schemas"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

// GraphName names the pipeline graph in logs and events.
const GraphName = "pipeline"

// Routes out of profile extraction.
const (
	RouteNeedsMoreInfo   = "needs_more_info"
	RouteProfileComplete = "profile_complete"
)

// DefaultMinRecommendations is the number of jobs the generator is asked for.
const DefaultMinRecommendations = 10

// Options holds configuration for running the pipeline
type Options struct {
	MinRecommendations int
	AutoResearchJobs   int
	OnProgress         steps.ProgressCallback
}

type followUp struct {
	Message   string   `json:"message"`
	Questions []string `json:"questions" validate:"min=1"`
}

type recommendationItem struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description"`
	Education    []string `json:"education"`
	ProfileMatch string   `json:"profile_match"`
}

type recommendationOutput struct {
	Summary         string               `json:"summary"`
	Recommendations []recommendationItem `json:"recommendations" validate:"min=1,dive"`
}

// Pipeline runs one counseling turn over the shared state.
type Pipeline struct {
	gen   llm.Generator
	opts  Options
	graph *workflow.Graph[state.State, state.Update]
}

// New compiles the pipeline graph. researcher runs as the final step and is
// usually a *research.Engine.
func New(gen llm.Generator, researcher workflow.Runner[state.State], opts Options) (*Pipeline, error) {
	if gen == nil {
		return nil, fmt.Errorf("pipeline: generator is required")
	}
	if researcher == nil {
		return nil, fmt.Errorf("pipeline: researcher is required")
	}
	if opts.MinRecommendations <= 0 {
		opts.MinRecommendations = DefaultMinRecommendations
	}
	if opts.AutoResearchJobs < 0 {
		opts.AutoResearchJobs = 0
	}

	p := &Pipeline{gen: gen, opts: opts}
	graph, err := workflow.NewBuilder(GraphName, state.Schema).
		AddStep(steps.ExtractProfile, p.extractProfile).
		AddStep(steps.AskProfileQuestions, p.askProfileQuestions).
		AddStep(steps.RecommendJobs, p.recommendJobs).
		AddStep(steps.SelectResearchJobs, p.selectResearchJobs).
		AddStep(steps.StartResearch, workflow.Subgraph(researcher, state.Schema)).
		SetEntry(steps.ExtractProfile).
		AddBranch(steps.ExtractProfile, RouteProfile, map[string]string{
			RouteNeedsMoreInfo:   steps.AskProfileQuestions,
			RouteProfileComplete: steps.RecommendJobs,
		}, "").
		AddEdge(steps.AskProfileQuestions, workflow.End).
		AddEdge(steps.RecommendJobs, steps.SelectResearchJobs).
		AddEdge(steps.SelectResearchJobs, steps.StartResearch).
		AddEdge(steps.StartResearch, workflow.End).
		OnFailure(failureUpdate).
		Observe(steps.Observer(opts.OnProgress)).
		Compile()
	if err != nil {
		return nil, err
	}
	p.graph = graph
	return p, nil
}

// Graph returns the compiled pipeline graph.
func (p *Pipeline) Graph() *workflow.Graph[state.State, state.Update] {
	return p.graph
}

// RunPipeline runs one turn. s is the prior state with the new user message
// already appended. The returned state is valid even when err is not nil.
func (p *Pipeline) RunPipeline(ctx context.Context, s state.State) (state.State, error) {
	logger := componentLogger(ctx)
	logger.Info().Str("stage", string(s.Stage())).Int("messages", len(s.Messages)).Msg("pipeline started")

	final, err := p.graph.Run(ctx, s)
	if err != nil {
		logger.Error().Err(err).Str("stage", string(final.Stage())).Msg("pipeline failed")
		return final, err
	}
	logger.Info().Str("stage", string(final.Stage())).Msg("pipeline finished")
	return final, nil
}

func componentLogger(ctx context.Context) zerolog.Logger {
	return logging.FromContext(ctx).With().Str("component", "pipeline").Logger()
}

// NeedsMoreInfo reports whether the profile still lacks information.
func NeedsMoreInfo(profile *types.Profile) bool {
	return profile == nil || !profile.IsProfileComplete
}

// RouteProfile routes to follow-up questions until the profile is complete.
func RouteProfile(s state.State) string {
	if NeedsMoreInfo(s.Profile) {
		return RouteNeedsMoreInfo
	}
	return RouteProfileComplete
}

func failureUpdate(_ state.State, step string, err error) state.Update {
	return state.Say(types.AssistantMessage(
		fmt.Sprintf("Sorry, I could not %s: %v", steps.Label(step), err)))
}

func (p *Pipeline) extractProfile(ctx context.Context, s state.State) (state.Update, error) {
	prompt, err := prompts.Build(prompts.KeyExtractProfile, map[string]string{
		"FieldDescriptions": fieldDescriptions(),
		"Conversation":      types.FormatConversation(s.Messages),
		"Profile":           s.Profile.PromptString(),
	})
	if err != nil {
		return state.Update{}, err
	}

	var extracted types.Profile
	if err := p.gen.Generate(ctx, prompt, schemas.Profile(), &extracted); err != nil {
		return state.Update{}, err
	}

	merged := types.MergeProfile(s.Profile, &extracted)
	logger := componentLogger(ctx)
	logger.Debug().
		Bool("complete", merged.IsProfileComplete).
		Strs("missing", merged.MissingFields()).
		Msg("profile extracted")

	return state.Update{
		Messages: []types.Message{types.SystemMessage(profileMessage(merged))},
		Profile:  workflow.Assign(merged),
	}, nil
}

func fieldDescriptions() string {
	fields := types.ProfileFieldDescriptions()
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, fmt.Sprintf("- %s: %s", f.Name, f.Description))
	}
	return strings.Join(lines, "\n")
}

func profileMessage(profile *types.Profile) string {
	if profile.IsProfileComplete {
		return "Profile information is complete."
	}
	return "Profile updated. Still missing: " + strings.Join(profile.MissingFields(), ", ") + "."
}

func (p *Pipeline) askProfileQuestions(ctx context.Context, s state.State) (state.Update, error) {
	prompt, err := prompts.Build(prompts.KeyFollowUpQuestions, map[string]string{
		"MissingFields": strings.Join(s.Profile.MissingFields(), ", "),
		"Profile":       s.Profile.PromptString(),
	})
	if err != nil {
		return state.Update{}, err
	}

	var resp followUp
	if err := p.gen.Generate(ctx, prompt, schemas.FollowUp(), &resp); err != nil {
		return state.Update{}, err
	}

	var questions []string
	for _, q := range resp.Questions {
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) == 0 {
		return state.Update{}, &llm.GenerationError{Schema: schemas.FollowUp().Name, Message: "no follow-up questions"}
	}

	message := strings.TrimSpace(resp.Message)
	if message == "" {
		message = "I would like to know a bit more about you."
	}
	return state.Update{
		Messages:         []types.Message{types.AssistantMessage(message)},
		PendingQuestions: workflow.Assign(questions),
	}, nil
}

// recommendJobs generates a new batch of recommendations. A queue that only
// holds jobs of the current batch keeps that batch so the queued jobs can be
// researched; any other queue is dropped with the old batch.
func (p *Pipeline) recommendJobs(ctx context.Context, s state.State) (state.Update, error) {
	logger := componentLogger(ctx)
	if len(s.ResearchQueue) > 0 {
		if queuedFrom(s.Recommendations, s.ResearchQueue) {
			logger.Debug().Int("queued", len(s.ResearchQueue)).Msg("keeping recommendations of queued jobs")
			return state.Update{}, nil
		}
		logger.Warn().Strs("queue", s.ResearchQueue).Msg("dropping research queue of an earlier batch")
	}

	prompt, err := prompts.Build(prompts.KeyJobRecommendations, map[string]string{
		"Count":   strconv.Itoa(p.opts.MinRecommendations),
		"Profile": s.Profile.PromptString(),
	})
	if err != nil {
		return state.Update{}, err
	}

	var resp recommendationOutput
	if err := p.gen.Generate(ctx, prompt, schemas.Recommendations(), &resp); err != nil {
		return state.Update{}, err
	}

	recs := make([]types.JobRecommendation, 0, len(resp.Recommendations))
	for _, item := range resp.Recommendations {
		if strings.TrimSpace(item.Name) == "" {
			continue
		}
		education := item.Education
		if education == nil {
			education = []string{}
		}
		recs = append(recs, types.JobRecommendation{
			Job:          types.NewJob(item.Name, item.Description),
			Education:    education,
			ProfileMatch: strings.TrimSpace(item.ProfileMatch),
		})
	}
	if len(recs) == 0 {
		return state.Update{}, &llm.GenerationError{Schema: schemas.Recommendations().Name, Message: "no job recommendations"}
	}
	if len(recs) < p.opts.MinRecommendations {
		logger.Warn().
			Int("count", len(recs)).
			Int("min", p.opts.MinRecommendations).
			Msg("fewer recommendations than requested")
	}

	summary := strings.TrimSpace(resp.Summary)
	if summary == "" {
		summary = fmt.Sprintf("Here are %d jobs that match your profile.", len(recs))
	}
	return state.Update{
		Messages:         []types.Message{types.AssistantMessage(summary)},
		Recommendations:  workflow.Assign(recs),
		PendingQuestions: workflow.Assign[[]string](nil),
		ResearchQueue:    workflow.Assign[[]string](nil),
	}, nil
}

// queuedFrom reports whether every queued id names one of recs.
func queuedFrom(recs []types.JobRecommendation, queue []string) bool {
	for _, id := range queue {
		if _, ok := types.FindJob(recs, id); !ok {
			return false
		}
	}
	return true
}

func (p *Pipeline) selectResearchJobs(_ context.Context, s state.State) (state.Update, error) {
	switch {
	case len(s.ResearchQueue) > 0:
		return state.Say(types.AssistantMessage(
			fmt.Sprintf("Researching %d selected jobs.", len(s.ResearchQueue)))), nil
	case p.opts.AutoResearchJobs > 0:
		n := min(p.opts.AutoResearchJobs, len(s.Recommendations))
		queue := types.JobIDs(s.Recommendations[:n])
		names := make([]string, 0, n)
		for _, rec := range s.Recommendations[:n] {
			names = append(names, rec.Job.Name)
		}
		return state.Update{
			Messages: []types.Message{types.AssistantMessage(
				fmt.Sprintf("Queued %d jobs for research: %s.", n, strings.Join(names, ", ")))},
			ResearchQueue: workflow.Assign(queue),
		}, nil
	default:
		return state.Say(types.AssistantMessage("Pick the jobs you would like to research from the recommendations.")), nil
	}
}
