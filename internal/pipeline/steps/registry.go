// Package steps catalogs the named steps of the counseling and research
// graphs: the stage each step belongs to, a human label for progress output,
// and the steps that must have completed before it can run.
package steps

import (
	"fmt"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
)

// Step names of the outer counseling pipeline.
const (
	ExtractProfile      = "extract_profile_information"
	AskProfileQuestions = "ask_profile_questions"
	RecommendJobs       = "get_job_recommendations"
	SelectResearchJobs  = "select_research_jobs"
	StartResearch       = "start_research"
)

// Step names of the research sub-workflow.
const (
	DequeueJob              = "dequeue_job"
	GenerateResearchQueries = "generate_research_queries"
	GatherResearchResults   = "gather_research_results"
	AnalyzeResearch         = "analyze_research"
)

// StepDefinition defines metadata for a graph step
type StepDefinition struct {
	Name         string
	Category     state.Stage
	Label        string
	Dependencies []string
}

// StepRegistry holds all step definitions
var StepRegistry = map[string]StepDefinition{
	ExtractProfile: {
		Name:         ExtractProfile,
		Category:     state.StageProfiling,
		Label:        "update your profile",
		Dependencies: []string{},
	},
	AskProfileQuestions: {
		Name:         AskProfileQuestions,
		Category:     state.StageProfiling,
		Label:        "prepare follow-up questions",
		Dependencies: []string{ExtractProfile},
	},
	RecommendJobs: {
		Name:         RecommendJobs,
		Category:     state.StageJobRecommendation,
		Label:        "recommend jobs",
		Dependencies: []string{ExtractProfile},
	},
	SelectResearchJobs: {
		Name:         SelectResearchJobs,
		Category:     state.StageJobRecommendation,
		Label:        "select jobs for research",
		Dependencies: []string{RecommendJobs},
	},
	StartResearch: {
		Name:         StartResearch,
		Category:     state.StageJobResearch,
		Label:        "research the selected jobs",
		Dependencies: []string{SelectResearchJobs},
	},
	DequeueJob: {
		Name:         DequeueJob,
		Category:     state.StageJobResearch,
		Label:        "pick the next job to research",
		Dependencies: []string{},
	},
	GenerateResearchQueries: {
		Name:         GenerateResearchQueries,
		Category:     state.StageJobResearch,
		Label:        "plan research questions",
		Dependencies: []string{DequeueJob},
	},
	GatherResearchResults: {
		Name:         GatherResearchResults,
		Category:     state.StageJobResearch,
		Label:        "search the web",
		Dependencies: []string{GenerateResearchQueries},
	},
	AnalyzeResearch: {
		Name:         AnalyzeResearch,
		Category:     state.StageJobResearch,
		Label:        "analyze the research",
		Dependencies: []string{GatherResearchResults},
	},
}

// Label returns the human label of a step, or the step name when it is not
// cataloged.
func Label(name string) string {
	if def, ok := StepRegistry[name]; ok && def.Label != "" {
		return def.Label
	}
	return name
}

// DependencyError represents a dependency validation error
type DependencyError struct {
	Step                string
	MissingDependencies []string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %v", e.MissingDependencies)
}

// ValidateDependencies checks if all required dependencies for a step are completed
func ValidateDependencies(stepName string, completed map[string]bool) error {
	def, ok := StepRegistry[stepName]
	if !ok {
		return fmt.Errorf("unknown step: %s", stepName)
	}

	var missing []string
	for _, dep := range def.Dependencies {
		if !completed[dep] {
			missing = append(missing, dep)
		}
	}

	if len(missing) > 0 {
		return &DependencyError{
			Step:                stepName,
			MissingDependencies: missing,
		}
	}

	return nil
}

// ValidateOrder checks that every step in a run trace had its dependencies
// completed earlier in the same trace.
func ValidateOrder(trace []string) error {
	completed := make(map[string]bool, len(trace))
	for _, name := range trace {
		if err := ValidateDependencies(name, completed); err != nil {
			return err
		}
		completed[name] = true
	}
	return nil
}

// StepsInCategory returns the cataloged step names of a stage.
func StepsInCategory(stage state.Stage) []string {
	var names []string
	for _, name := range []string{
		ExtractProfile, AskProfileQuestions, RecommendJobs, SelectResearchJobs, StartResearch,
		DequeueJob, GenerateResearchQueries, GatherResearchResults, AnalyzeResearch,
	} {
		if StepRegistry[name].Category == stage {
			names = append(names, name)
		}
	}
	return names
}
