package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
)

var (
	researchJobFlags []string
	researchQuiet    bool
)

var researchCommand = &cobra.Command{
	Use:   "research",
	Short: "Research jobs without a conversation",
	Long: `Researches each job given with --job and prints the analysis.

Example:
  counselor research --job "nurse=cares for patients" --job "electrician"`,
	RunE: runResearch,
}

func init() {
	researchCommand.Flags().StringArrayVarP(&researchJobFlags, "job", "j", nil, `Job to research as "name" or "name=description" (repeatable)`)
	researchCommand.Flags().BoolVarP(&researchQuiet, "quiet", "q", false, "Hide step progress")
	_ = researchCommand.MarkFlagRequired("job")
	rootCmd.AddCommand(researchCommand)
}

func runResearch(cmd *cobra.Command, _ []string) error {
	jobs := make([]types.Job, 0, len(researchJobFlags))
	for _, raw := range researchJobFlags {
		job, err := parseJobFlag(raw)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, cmd.OutOrStdout(), !researchQuiet)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	final, err := a.research.RunResearch(ctx, buildResearchState(jobs))
	for _, jr := range final.CompletedResearch {
		a.printer.PrintResearch(jr)
	}
	a.printer.PrintResearchSummary(final.CompletedResearch)
	if err != nil {
		return fmt.Errorf("research stopped: %w", err)
	}
	return nil
}

// parseJobFlag reads "name" or "name=description".
func parseJobFlag(raw string) (types.Job, error) {
	name, description, _ := strings.Cut(raw, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Job{}, fmt.Errorf("invalid --job %q: a job name is required", raw)
	}
	return types.NewJob(name, strings.TrimSpace(description)), nil
}

// buildResearchState makes each job a recommendation and queues all of them.
func buildResearchState(jobs []types.Job) state.State {
	s := state.State{
		Recommendations: make([]types.JobRecommendation, 0, len(jobs)),
		ResearchQueue:   make([]string, 0, len(jobs)),
	}
	for _, job := range jobs {
		s.Recommendations = append(s.Recommendations, types.JobRecommendation{Job: job, Education: []string{}})
		s.ResearchQueue = append(s.ResearchQueue, job.JobID)
	}
	return s
}
