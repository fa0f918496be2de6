package types

import (
	"fmt"
	"strings"
)

// ResearchStatus tracks a job's progress through the research workflow.
type ResearchStatus string

// Research statuses in the order a job moves through them.
const (
	ResearchNotStarted      ResearchStatus = "NOT_STARTED"
	ResearchInitialized     ResearchStatus = "INITIALIZED"
	ResearchQueryGenerated  ResearchStatus = "RESEARCH_QUERY_GENERATED"
	ResearchResultsGathered ResearchStatus = "RESEARCH_RESULTS_GATHERED"
	ResearchCompleted       ResearchStatus = "COMPLETED"
	ResearchFailed          ResearchStatus = "FAILED"
)

// Terminal reports whether no further transitions are possible.
func (s ResearchStatus) Terminal() bool {
	return s == ResearchCompleted || s == ResearchFailed
}

// JobResearchData pairs one research query with its outcome.
// Results and Sources are nil until gathered and always have equal length afterwards.
type JobResearchData struct {
	Query   string   `json:"query"`
	Results []string `json:"results"`
	Sources []string `json:"sources"`
}

// Gathered reports whether the search step has attempted this query.
func (d JobResearchData) Gathered() bool {
	return d.Results != nil
}

// HasResults reports whether the query produced at least one result.
func (d JobResearchData) HasResults() bool {
	return len(d.Results) > 0
}

// JobResearch is the aggregate research record for one job.
type JobResearch struct {
	Job              Job               `json:"job"`
	ResearchData     []JobResearchData `json:"research_data"`
	ResearchStatus   ResearchStatus    `json:"research_status"`
	ResearchAnalysis *string           `json:"research_analysis,omitempty"`
	FailureReason    string            `json:"failure_reason,omitempty"`
}

// NewJobResearch creates an INITIALIZED research record for job.
func NewJobResearch(job Job) JobResearch {
	return JobResearch{
		Job:            job,
		ResearchData:   []JobResearchData{},
		ResearchStatus: ResearchInitialized,
	}
}

// Clone returns a deep copy of the record.
func (r JobResearch) Clone() JobResearch {
	out := r
	if r.ResearchData != nil {
		out.ResearchData = make([]JobResearchData, len(r.ResearchData))
		for i, d := range r.ResearchData {
			out.ResearchData[i] = JobResearchData{
				Query:   d.Query,
				Results: cloneStrings(d.Results),
				Sources: cloneStrings(d.Sources),
			}
		}
	}
	if r.ResearchAnalysis != nil {
		analysis := *r.ResearchAnalysis
		out.ResearchAnalysis = &analysis
	}
	return out
}

// Analysis returns the research analysis or an empty string.
func (r JobResearch) Analysis() string {
	if r.ResearchAnalysis == nil {
		return ""
	}
	return *r.ResearchAnalysis
}

// ResultBlock concatenates every entry with results into the analysis input:
//
//	Query: {q}
//	Results: {r1}; {r2}
//	Sources: {s1}; {s2}
//
// Entries are separated by a blank line. Entries without results are skipped.
func (r JobResearch) ResultBlock() string {
	var blocks []string
	for _, d := range r.ResearchData {
		if !d.HasResults() {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("Query: %s\nResults: %s\nSources: %s",
			d.Query,
			strings.Join(d.Results, "; "),
			strings.Join(d.Sources, "; ")))
	}
	return strings.Join(blocks, "\n\n")
}

// Queries returns the research queries in generation order.
func (r JobResearch) Queries() []string {
	queries := make([]string, 0, len(r.ResearchData))
	for _, d := range r.ResearchData {
		queries = append(queries, d.Query)
	}
	return queries
}
