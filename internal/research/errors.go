package research

import "fmt"

// JobNotFoundError means the research queue references a job id that is not
// among the recommendations.
type JobNotFoundError struct {
	JobID string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("job %s is not among the recommendations", e.JobID)
}

// NoResearchDataError means analysis was attempted on a record with no
// gathered results. It fails the job, not the research run.
type NoResearchDataError struct {
	JobID string
	Job   string
}

func (e *NoResearchDataError) Error() string {
	return fmt.Sprintf("no research data was gathered for %s", e.Job)
}
