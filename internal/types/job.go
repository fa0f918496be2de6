package types

import (
	"strings"

	"github.com/google/uuid"
)

// Job is a recommended job role. JobID is assigned once, at creation.
type Job struct {
	JobID       string `json:"job_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// NewJob creates a Job with a fresh identifier.
func NewJob(name, description string) Job {
	return Job{
		JobID:       uuid.NewString(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
	}
}

// JobRecommendation wraps a Job with the reasons it fits the profile.
type JobRecommendation struct {
	Job          Job      `json:"job"`
	Education    []string `json:"education"`
	ProfileMatch string   `json:"profile_match"`
}

// RecommendationBatch is the output of one recommendation step.
type RecommendationBatch struct {
	Recommendations []JobRecommendation `json:"recommendations"`
	Summary         string              `json:"summary"`
}

// FindJob returns the recommendation whose job has the given id.
func FindJob(recs []JobRecommendation, jobID string) (Job, bool) {
	for _, rec := range recs {
		if rec.Job.JobID == jobID {
			return rec.Job, true
		}
	}
	return Job{}, false
}

// JobIDs returns the job ids of recs in order.
func JobIDs(recs []JobRecommendation) []string {
	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		ids = append(ids, rec.Job.JobID)
	}
	return ids
}
