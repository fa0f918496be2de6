package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/llm"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/pipeline/steps"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/research"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/schemas"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/search"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

// fakeGenerator answers each schema with canned JSON, decoded through the
// real schema check.
type fakeGenerator struct {
	mu        sync.Mutex
	responses map[string]func(prompt string) (any, error)
	prompts   map[string][]string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		responses: map[string]func(string) (any, error){
			"profile": func(string) (any, error) {
				return map[string]any{}, nil
			},
			"follow_up": func(string) (any, error) {
				return map[string]any{
					"message":   "Thanks, tell me a bit more.",
					"questions": []string{"How old are you?", "What are you good at?"},
				}, nil
			},
			"job_recommendations": func(string) (any, error) {
				return map[string]any{
					"summary": "You enjoy technology and creative work.",
					"recommendations": []map[string]any{
						{"name": "software developer", "description": "builds software", "education": []string{"computer science"}, "profile_match": "analytical"},
						{"name": "ux designer", "description": "designs products", "education": []string{"interaction design"}, "profile_match": "creative"},
						{"name": "data scientist", "description": "analyzes data", "education": []string{"statistics"}, "profile_match": "math"},
					},
				}, nil
			},
			"research_queries": func(string) (any, error) {
				return map[string]any{"queries": []string{"What does the job entail?"}}, nil
			},
			"search_plan": func(string) (any, error) {
				return map[string]any{"terms": []string{"job duties"}}, nil
			},
		},
		prompts: make(map[string][]string),
	}
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string, schema schemas.Schema, out any) error {
	f.mu.Lock()
	f.prompts[schema.Name] = append(f.prompts[schema.Name], prompt)
	respond, ok := f.responses[schema.Name]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("unexpected schema %s", schema.Name)
	}

	value, err := respond(prompt)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return llm.Decode(string(raw), schema, out, nil)
}

func (f *fakeGenerator) Complete(context.Context, string) (string, error) {
	return "A solid analysis.", nil
}

func (f *fakeGenerator) calls(schema string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts[schema])
}

// fakeRunner records research invocations.
type fakeRunner struct {
	runs int
	run  func(s state.State) (state.State, error)
}

func (f *fakeRunner) Run(_ context.Context, s state.State) (state.State, error) {
	f.runs++
	if f.run != nil {
		return f.run(s)
	}
	return s, nil
}

type fakeSearcher struct{}

func (fakeSearcher) Search(_ context.Context, query string, _ search.Options) ([]search.Result, error) {
	return []search.Result{{Title: query, Content: "details", URL: "https://example.com/" + query}}, nil
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func completeProfile() *types.Profile {
	return types.MergeProfile(nil, &types.Profile{
		Age:                       intPtr(18),
		Interests:                 []string{"technology", "innovation"},
		Competencies:              []string{"Math", "History", "Arts"},
		PersonalCharacteristics:   []string{"analytical", "creative"},
		IsLocallyFocused:          boolPtr(false),
		DesiredJobCharacteristics: []string{"remote work", "learning opportunities"},
	})
}

func newPipeline(t *testing.T, gen llm.Generator, runner workflow.Runner[state.State], opts Options) *Pipeline {
	t.Helper()
	p, err := New(gen, runner, opts)
	require.NoError(t, err)
	return p
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, &fakeRunner{}, Options{})
	assert.Error(t, err)
	_, err = New(newFakeGenerator(), nil, Options{})
	assert.Error(t, err)

	p := newPipeline(t, newFakeGenerator(), &fakeRunner{}, Options{})
	assert.Equal(t, GraphName, p.Graph().Name())
	assert.Equal(t, steps.ExtractProfile, p.Graph().Entry())
}

func TestNeedsMoreInfo(t *testing.T) {
	tests := []struct {
		name    string
		profile *types.Profile
		want    bool
	}{
		{"no profile", nil, true},
		{"partial profile", types.MergeProfile(nil, &types.Profile{Interests: []string{"math"}}), true},
		{"complete profile", completeProfile(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsMoreInfo(tt.profile))
		})
	}
}

func TestGraphTransitions(t *testing.T) {
	g := newPipeline(t, newFakeGenerator(), &fakeRunner{}, Options{}).Graph()

	tests := []struct {
		name  string
		step  string
		state state.State
		want  string
	}{
		{"incomplete profile asks", steps.ExtractProfile, state.State{}, steps.AskProfileQuestions},
		{"complete profile recommends", steps.ExtractProfile, state.State{Profile: completeProfile()}, steps.RecommendJobs},
		{"questions end the turn", steps.AskProfileQuestions, state.State{}, workflow.End},
		{"recommendations lead to selection", steps.RecommendJobs, state.State{}, steps.SelectResearchJobs},
		{"selection starts research", steps.SelectResearchJobs, state.State{}, steps.StartResearch},
		{"research ends the turn", steps.StartResearch, state.State{}, workflow.End},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := g.Next(tt.step, tt.state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, next)
		})
	}
}

func TestRunPipeline_IncompleteProfileAsksQuestions(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["profile"] = func(string) (any, error) {
		return map[string]any{
			"age":                      nil,
			"interests":                []string{"math", "arts"},
			"personal_characteristics": []string{"social"},
		}, nil
	}
	runner := &fakeRunner{}
	var trace []string
	p := newPipeline(t, gen, runner, Options{OnProgress: func(ev steps.ProgressEvent) {
		if ev.Kind == workflow.EventStepStarted {
			trace = append(trace, ev.Step)
		}
	}})

	s := state.State{}.WithUserMessage("I like math, I am social and interested in arts")
	final, err := p.RunPipeline(context.Background(), s)
	require.NoError(t, err)

	require.NotNil(t, final.Profile)
	assert.Equal(t, []string{"math", "arts"}, final.Profile.Interests)
	assert.Equal(t, []string{"social"}, final.Profile.PersonalCharacteristics)
	assert.Nil(t, final.Profile.Age)
	assert.False(t, final.Profile.IsProfileComplete)
	assert.Equal(t, []string{"How old are you?", "What are you good at?"}, final.PendingQuestions)
	assert.Empty(t, final.Recommendations)
	assert.Equal(t, 0, runner.runs)
	assert.Equal(t, state.StageProfiling, final.Stage())

	require.Len(t, final.Messages, 3)
	assert.Equal(t, types.RoleUser, final.Messages[0].Role)
	assert.Equal(t, types.RoleSystem, final.Messages[1].Role)
	assert.Contains(t, final.Messages[1].Content, "Still missing")
	assert.Equal(t, types.RoleAssistant, final.Messages[2].Role)
	assert.Equal(t, "Thanks, tell me a bit more.", final.Messages[2].Content)

	assert.Equal(t, []string{steps.ExtractProfile, steps.AskProfileQuestions}, trace)
	assert.Contains(t, gen.prompts["profile"][0], "I like math, I am social and interested in arts")
	assert.Contains(t, gen.prompts["follow_up"][0], "age")
}

func TestRunPipeline_CompleteProfileRecommendsJobs(t *testing.T) {
	gen := newFakeGenerator()
	runner := &fakeRunner{}
	p := newPipeline(t, gen, runner, Options{MinRecommendations: 3})

	s := state.State{Profile: completeProfile(), PendingQuestions: []string{"old question"}}.
		WithUserMessage("I think that is everything")
	final, err := p.RunPipeline(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, final.Recommendations, 3)
	for _, rec := range final.Recommendations {
		assert.NotEmpty(t, rec.Job.JobID)
		assert.NotEmpty(t, rec.Job.Name)
		assert.NotNil(t, rec.Education)
		assert.NotEmpty(t, rec.ProfileMatch)
	}
	assert.True(t, final.Profile.IsProfileComplete)
	assert.Empty(t, final.PendingQuestions)
	assert.Equal(t, 1, runner.runs)
	assert.Equal(t, 0, gen.calls("follow_up"))
	assert.Contains(t, gen.prompts["job_recommendations"][0], "at least 3")
	assert.Contains(t, gen.prompts["job_recommendations"][0], "Age: 18")

	require.Len(t, final.Messages, 4)
	assert.Equal(t, "Profile information is complete.", final.Messages[1].Content)
	assert.Equal(t, "You enjoy technology and creative work.", final.Messages[2].Content)
	assert.Contains(t, final.Messages[3].Content, "Pick the jobs")
}

func TestRunPipeline_FewerRecommendationsThanRequested(t *testing.T) {
	p := newPipeline(t, newFakeGenerator(), &fakeRunner{}, Options{MinRecommendations: 10})

	final, err := p.RunPipeline(context.Background(), state.State{Profile: completeProfile()}.WithUserMessage("go"))
	require.NoError(t, err)
	assert.Len(t, final.Recommendations, 3)
}

func TestRunPipeline_AutoResearch(t *testing.T) {
	gen := newFakeGenerator()
	engine, err := research.New(gen, fakeSearcher{}, research.Options{QueriesPerJob: 1})
	require.NoError(t, err)

	var trace []string
	onProgress := func(ev steps.ProgressEvent) {
		if ev.Kind == workflow.EventStepCompleted {
			trace = append(trace, ev.Step)
		}
	}
	p := newPipeline(t, gen, engine, Options{MinRecommendations: 3, AutoResearchJobs: 2, OnProgress: onProgress})

	final, err := p.RunPipeline(context.Background(), state.State{Profile: completeProfile()}.WithUserMessage("research please"))
	require.NoError(t, err)

	require.Len(t, final.CompletedResearch, 2)
	assert.Equal(t, final.Recommendations[0].Job.JobID, final.CompletedResearch[0].Job.JobID)
	assert.Equal(t, final.Recommendations[1].Job.JobID, final.CompletedResearch[1].Job.JobID)
	for _, jr := range final.CompletedResearch {
		assert.Equal(t, types.ResearchCompleted, jr.ResearchStatus)
	}
	assert.Empty(t, final.ResearchQueue)
	assert.Nil(t, final.CurrentResearch)
	assert.Equal(t, state.StageJobResearch, final.Stage())
	assert.Contains(t, final.Messages[3].Content, "Queued 2 jobs for research: software developer, ux designer.")
	assert.Equal(t, []string{steps.ExtractProfile, steps.RecommendJobs, steps.SelectResearchJobs, steps.StartResearch}, trace)
	assert.NoError(t, steps.ValidateOrder(trace))
}

func TestRunPipeline_ExtractionFailure(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["profile"] = func(string) (any, error) {
		return nil, &llm.GenerationError{Schema: "profile", Message: "model call failed"}
	}
	runner := &fakeRunner{}
	p := newPipeline(t, gen, runner, Options{})

	previous := completeProfile()
	final, err := p.RunPipeline(context.Background(), state.State{Profile: previous}.WithUserMessage("hello"))

	var stepErr *workflow.StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, steps.ExtractProfile, stepErr.Step)
	var genErr *llm.GenerationError
	assert.True(t, errors.As(err, &genErr))

	assert.Same(t, previous, final.Profile, "a failed step leaves the profile untouched")
	require.Len(t, final.Messages, 2)
	assert.Equal(t, types.RoleAssistant, final.Messages[1].Role)
	assert.Contains(t, final.Messages[1].Content, "Sorry, I could not update your profile")
	assert.Equal(t, 0, runner.runs)
}

func TestRunPipeline_SchemaViolationFailsRecommendation(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["job_recommendations"] = func(string) (any, error) {
		return map[string]any{"summary": "nothing fits", "recommendations": []any{}}, nil
	}
	p := newPipeline(t, gen, &fakeRunner{}, Options{})

	final, err := p.RunPipeline(context.Background(), state.State{Profile: completeProfile()}.WithUserMessage("go"))
	var genErr *llm.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Equal(t, "job_recommendations", genErr.Schema)
	assert.Empty(t, final.Recommendations)
	assert.Contains(t, final.Messages[len(final.Messages)-1].Content, "recommend jobs")
}

func TestRunPipeline_ResearchFailureIsReportedOnce(t *testing.T) {
	gen := newFakeGenerator()
	gen.responses["research_queries"] = func(string) (any, error) {
		return nil, &llm.GenerationError{Schema: "research_queries", Message: "model call failed"}
	}
	engine, err := research.New(gen, fakeSearcher{}, research.Options{})
	require.NoError(t, err)
	p := newPipeline(t, gen, engine, Options{MinRecommendations: 3, AutoResearchJobs: 2})

	final, err := p.RunPipeline(context.Background(), state.State{Profile: completeProfile()}.WithUserMessage("go"))

	var genErr *llm.GenerationError
	require.True(t, errors.As(err, &genErr))
	require.Len(t, final.CompletedResearch, 1)
	assert.Equal(t, types.ResearchFailed, final.CompletedResearch[0].ResearchStatus)
	assert.Equal(t, []string{final.Recommendations[1].Job.JobID}, final.ResearchQueue)

	// user, profile, summary, selection, dequeue, research failure
	require.Len(t, final.Messages, 6)
	assert.Contains(t, final.Messages[5].Content, "Research on software developer failed")
	for _, m := range final.Messages {
		assert.NotContains(t, m.Content, "Sorry")
	}
}

func TestRunPipeline_QueuedJobsKeepTheirRecommendations(t *testing.T) {
	gen := newFakeGenerator()
	var seen []string
	runner := &fakeRunner{run: func(s state.State) (state.State, error) {
		seen = append([]string(nil), s.ResearchQueue...)
		return state.Merge(s, state.Update{ResearchQueue: workflow.Assign([]string{})}), nil
	}}
	p := newPipeline(t, gen, runner, Options{AutoResearchJobs: 3})

	recs := []types.JobRecommendation{
		{Job: types.NewJob("nurse", ""), Education: []string{}},
		{Job: types.NewJob("pilot", ""), Education: []string{}},
	}
	s := state.State{
		Profile:         completeProfile(),
		Recommendations: recs,
		ResearchQueue:   []string{recs[1].Job.JobID},
	}.WithUserMessage("go")
	final, err := p.RunPipeline(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, []string{recs[1].Job.JobID}, seen, "auto research only fills an empty queue")
	assert.Equal(t, recs, final.Recommendations)
	assert.Equal(t, 0, gen.calls("job_recommendations"))
	assert.Empty(t, final.ResearchQueue)

	// user, profile, selection
	require.Len(t, final.Messages, 3)
	assert.Contains(t, final.Messages[2].Content, "Researching 1 selected jobs.")
}

func TestRunPipeline_StaleQueueIsDropped(t *testing.T) {
	gen := newFakeGenerator()
	var seen []string
	runner := &fakeRunner{run: func(s state.State) (state.State, error) {
		seen = append([]string{}, s.ResearchQueue...)
		return s, nil
	}}
	p := newPipeline(t, gen, runner, Options{MinRecommendations: 3})

	old := []types.JobRecommendation{{Job: types.NewJob("nurse", ""), Education: []string{}}}
	s := state.State{
		Profile:         completeProfile(),
		Recommendations: old,
		ResearchQueue:   []string{old[0].Job.JobID, "unknown-id"},
	}.WithUserMessage("go")
	final, err := p.RunPipeline(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, 1, gen.calls("job_recommendations"))
	require.Len(t, final.Recommendations, 3)
	assert.Empty(t, seen)
	assert.Empty(t, final.ResearchQueue)
	assert.Contains(t, final.Messages[len(final.Messages)-1].Content, "Pick the jobs")
}

func TestRunPipeline_ResearchesJobPickedInEarlierTurn(t *testing.T) {
	gen := newFakeGenerator()
	engine, err := research.New(gen, fakeSearcher{}, research.Options{QueriesPerJob: 1})
	require.NoError(t, err)
	p := newPipeline(t, gen, engine, Options{MinRecommendations: 3})

	first, err := p.RunPipeline(context.Background(), state.State{Profile: completeProfile()}.WithUserMessage("hello"))
	require.NoError(t, err)
	require.Len(t, first.Recommendations, 3)
	assert.Empty(t, first.CompletedResearch)

	picked := first.Recommendations[1].Job
	next := state.Merge(first, state.Update{ResearchQueue: workflow.Assign([]string{picked.JobID})})
	second, err := p.RunPipeline(context.Background(), next.WithUserMessage("research that one"))
	require.NoError(t, err)

	assert.Equal(t, first.Recommendations, second.Recommendations)
	require.Len(t, second.CompletedResearch, 1)
	assert.Equal(t, picked.JobID, second.CompletedResearch[0].Job.JobID)
	assert.Equal(t, types.ResearchCompleted, second.CompletedResearch[0].ResearchStatus)
	assert.Empty(t, second.ResearchQueue)
	assert.Equal(t, 1, gen.calls("job_recommendations"))
}

func TestFieldDescriptions(t *testing.T) {
	out := fieldDescriptions()
	assert.Contains(t, out, "- age: The age of the user")
	assert.Contains(t, out, "- desired_job_characteristics:")
}
