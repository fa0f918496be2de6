package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob_AssignsUniqueIDs(t *testing.T) {
	a := NewJob("software developer", "writes code")
	b := NewJob("software developer", "writes code")

	assert.NotEmpty(t, a.JobID)
	assert.NotEqual(t, a.JobID, b.JobID)
	assert.Equal(t, "software developer", a.Name)
}

func TestFindJob(t *testing.T) {
	dev := NewJob("software developer", "")
	ds := NewJob("data scientist", "")
	recs := []JobRecommendation{{Job: dev}, {Job: ds}}

	job, ok := FindJob(recs, ds.JobID)
	require.True(t, ok)
	assert.Equal(t, "data scientist", job.Name)

	_, ok = FindJob(recs, "data scientist")
	assert.False(t, ok, "lookup must not match on name")

	assert.Equal(t, []string{dev.JobID, ds.JobID}, JobIDs(recs))
}

func TestNewJobResearch(t *testing.T) {
	jr := NewJobResearch(NewJob("nurse", ""))
	assert.Equal(t, ResearchInitialized, jr.ResearchStatus)
	assert.NotNil(t, jr.ResearchData)
	assert.Empty(t, jr.ResearchData)
	assert.Nil(t, jr.ResearchAnalysis)
}

func TestResearchStatusTerminal(t *testing.T) {
	assert.True(t, ResearchCompleted.Terminal())
	assert.True(t, ResearchFailed.Terminal())
	assert.False(t, ResearchInitialized.Terminal())
	assert.False(t, ResearchResultsGathered.Terminal())
}

func TestResultBlock(t *testing.T) {
	jr := JobResearch{
		ResearchData: []JobResearchData{
			{Query: "q1", Results: []string{"A: a", "B: b"}, Sources: []string{"http://a", "http://b"}},
			{Query: "q2", Results: []string{}, Sources: []string{}},
			{Query: "q3", Results: []string{"C: c"}, Sources: []string{"http://c"}},
		},
	}

	want := "Query: q1\nResults: A: a; B: b\nSources: http://a; http://b\n\n" +
		"Query: q3\nResults: C: c\nSources: http://c"
	assert.Equal(t, want, jr.ResultBlock())
}

func TestResultBlock_Empty(t *testing.T) {
	jr := JobResearch{ResearchData: []JobResearchData{{Query: "q"}}}
	assert.Empty(t, jr.ResultBlock())
}

func TestJobResearchClone(t *testing.T) {
	analysis := "text"
	jr := JobResearch{
		Job:              NewJob("x", ""),
		ResearchData:     []JobResearchData{{Query: "q", Results: []string{"r"}, Sources: []string{"s"}}},
		ResearchStatus:   ResearchCompleted,
		ResearchAnalysis: &analysis,
	}
	clone := jr.Clone()
	clone.ResearchData[0].Results[0] = "changed"
	*clone.ResearchAnalysis = "changed"

	assert.Equal(t, "r", jr.ResearchData[0].Results[0])
	assert.Equal(t, "text", jr.Analysis())
}

func TestFormatConversation(t *testing.T) {
	out := FormatConversation([]Message{
		UserMessage("I like math"),
		AssistantMessage("Tell me more"),
	})
	assert.Equal(t, "user: I like math\nassistant: Tell me more", out)
}
