// Package state declares the shared counseling state and how step updates
// merge into it.
package state

import (
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

// Stage names the phase a conversation is in.
type Stage string

// Stages.
const (
	StageProfiling         Stage = "profiling"
	StageJobRecommendation Stage = "job_recommendation"
	StageJobResearch       Stage = "job_research"
)

// State is the record shared by every step of a run.
type State struct {
	Messages          []types.Message           `json:"messages"`
	Profile           *types.Profile            `json:"profile,omitempty"`
	PendingQuestions  []string                  `json:"pending_questions,omitempty"`
	Recommendations   []types.JobRecommendation `json:"recommendations,omitempty"`
	CurrentResearch   *types.JobResearch        `json:"current_research,omitempty"`
	CompletedResearch []types.JobResearch       `json:"completed_research,omitempty"`
	ResearchQueue     []string                  `json:"research_queue,omitempty"`
}

// Update is a partial State. Nil append lists and unset replace fields leave
// the state untouched.
type Update struct {
	Messages          []types.Message
	Profile           workflow.Set[*types.Profile]
	PendingQuestions  workflow.Set[[]string]
	Recommendations   workflow.Set[[]types.JobRecommendation]
	CurrentResearch   workflow.Set[*types.JobResearch]
	CompletedResearch []types.JobResearch
	ResearchQueue     workflow.Set[[]string]
}

// Schema is the merge policy of every State field.
var Schema = workflow.MustSchema(
	workflow.Append[State, Update, types.Message]("messages",
		func(s *State) *[]types.Message { return &s.Messages },
		func(u *Update) *[]types.Message { return &u.Messages }),
	workflow.Replace[State, Update, *types.Profile]("profile",
		func(s *State) **types.Profile { return &s.Profile },
		func(u *Update) *workflow.Set[*types.Profile] { return &u.Profile }),
	workflow.Replace[State, Update, []string]("pending_questions",
		func(s *State) *[]string { return &s.PendingQuestions },
		func(u *Update) *workflow.Set[[]string] { return &u.PendingQuestions }),
	workflow.Replace[State, Update, []types.JobRecommendation]("recommendations",
		func(s *State) *[]types.JobRecommendation { return &s.Recommendations },
		func(u *Update) *workflow.Set[[]types.JobRecommendation] { return &u.Recommendations }),
	workflow.Replace[State, Update, *types.JobResearch]("current_research",
		func(s *State) **types.JobResearch { return &s.CurrentResearch },
		func(u *Update) *workflow.Set[*types.JobResearch] { return &u.CurrentResearch }),
	workflow.Append[State, Update, types.JobResearch]("completed_research",
		func(s *State) *[]types.JobResearch { return &s.CompletedResearch },
		func(u *Update) *[]types.JobResearch { return &u.CompletedResearch }),
	workflow.Replace[State, Update, []string]("research_queue",
		func(s *State) *[]string { return &s.ResearchQueue },
		func(u *Update) *workflow.Set[[]string] { return &u.ResearchQueue }),
)

// Merge folds u into s.
func Merge(s State, u Update) State {
	return Schema.Merge(s, u)
}

// Say returns an update that appends one message.
func Say(m types.Message) Update {
	return Update{Messages: []types.Message{m}}
}

// WithUserMessage returns s with a user message appended.
func (s State) WithUserMessage(content string) State {
	return Merge(s, Say(types.UserMessage(content)))
}

// Stage derives the conversation phase from what the state holds.
func (s State) Stage() Stage {
	switch {
	case s.CurrentResearch != nil || len(s.ResearchQueue) > 0 || len(s.CompletedResearch) > 0:
		return StageJobResearch
	case len(s.Recommendations) > 0:
		return StageJobRecommendation
	default:
		return StageProfiling
	}
}

// LastMessage returns the most recent message, if any.
func (s State) LastMessage() (types.Message, bool) {
	if len(s.Messages) == 0 {
		return types.Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// ResearchFor returns the completed research records of a job in completion order.
func (s State) ResearchFor(jobID string) []types.JobResearch {
	var out []types.JobResearch
	for _, jr := range s.CompletedResearch {
		if jr.Job.JobID == jobID {
			out = append(out, jr)
		}
	}
	return out
}
