package state

import (
	"fmt"
	"strings"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
)

// SelectionError reports a selector that does not resolve to exactly one job.
type SelectionError struct {
	Selector string
	Matches  int
}

func (e *SelectionError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no recommended job matches %q", e.Selector)
	}
	return fmt.Sprintf("%q matches %d recommended jobs, use the job id", e.Selector, e.Matches)
}

// SelectJobs resolves selectors to job ids. A selector matches a job id
// exactly, or else a job name case-insensitively when exactly one job has
// that name. Duplicates are dropped and order follows the selectors.
func SelectJobs(recs []types.JobRecommendation, selectors []string) ([]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, raw := range selectors {
		sel := strings.TrimSpace(raw)
		if sel == "" {
			continue
		}
		id, err := resolve(recs, sel)
		if err != nil {
			return nil, err
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func resolve(recs []types.JobRecommendation, sel string) (string, error) {
	if job, ok := types.FindJob(recs, sel); ok {
		return job.JobID, nil
	}
	var matches []string
	for _, r := range recs {
		if strings.EqualFold(strings.TrimSpace(r.Job.Name), sel) {
			matches = append(matches, r.Job.JobID)
		}
	}
	if len(matches) != 1 {
		return "", &SelectionError{Selector: sel, Matches: len(matches)}
	}
	return matches[0], nil
}
