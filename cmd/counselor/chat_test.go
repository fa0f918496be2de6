package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/observability"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

// fakeTurns answers each turn with the next canned update.
type fakeTurns struct {
	updates []state.Update
	err     error
	seen    []state.State
}

func (f *fakeTurns) RunPipeline(_ context.Context, s state.State) (state.State, error) {
	f.seen = append(f.seen, s)
	if len(f.updates) == 0 {
		return s, f.err
	}
	u := f.updates[0]
	f.updates = f.updates[1:]
	return state.Merge(s, u), f.err
}

// fakeResearch completes every queued job.
type fakeResearch struct {
	queues [][]string
}

func (f *fakeResearch) RunResearch(_ context.Context, s state.State) (state.State, error) {
	f.queues = append(f.queues, s.ResearchQueue)
	var done []types.JobResearch
	var msgs []types.Message
	for _, id := range s.ResearchQueue {
		job, _ := types.FindJob(s.Recommendations, id)
		analysis := "analysis of " + job.Name
		done = append(done, types.JobResearch{
			Job:              job,
			ResearchStatus:   types.ResearchCompleted,
			ResearchAnalysis: &analysis,
		})
		msgs = append(msgs, types.AssistantMessage("Research on "+job.Name+" is complete."))
	}
	return state.Merge(s, state.Update{
		Messages:          msgs,
		CompletedResearch: done,
		ResearchQueue:     workflow.Assign([]string{}),
	}), nil
}

func runSession(t *testing.T, turns turnRunner, research researchRunner, input string) (*chatSession, string) {
	t.Helper()
	var buf bytes.Buffer
	session := newChatSession(turns, research, observability.NewPrinter(&buf), &buf)
	require.NoError(t, session.run(context.Background(), strings.NewReader(input)))
	return session, buf.String()
}

func TestChat_ExitWords(t *testing.T) {
	for _, word := range []string{"quit", "exit", "q", "QUIT", " Exit "} {
		t.Run(word, func(t *testing.T) {
			turns := &fakeTurns{}
			_, output := runSession(t, turns, &fakeResearch{}, word+"\nnever sent\n")

			assert.Contains(t, output, "Good luck!")
			assert.Empty(t, turns.seen)
		})
	}
}

func TestChat_EndOfInput(t *testing.T) {
	turns := &fakeTurns{}
	_, output := runSession(t, turns, &fakeResearch{}, "")

	assert.Contains(t, output, greeting)
	assert.Empty(t, turns.seen)
}

func TestChat_TurnPrintsNewMessagesAndQuestions(t *testing.T) {
	turns := &fakeTurns{updates: []state.Update{{
		Messages: []types.Message{
			types.SystemMessage("Profile updated. Still missing: competencies"),
			types.AssistantMessage("Tell me more."),
		},
		PendingQuestions: workflow.Assign([]string{"What are you good at?"}),
	}}}

	session, output := runSession(t, turns, &fakeResearch{}, "I am 18\n\nq\n")

	require.Len(t, turns.seen, 1, "blank lines are not sent")
	last, ok := turns.seen[0].LastMessage()
	require.True(t, ok)
	assert.Equal(t, types.UserMessage("I am 18"), last)

	assert.Contains(t, output, "Still missing: competencies")
	assert.Contains(t, output, "Tell me more.")
	assert.Contains(t, output, "1. What are you good at?")
	assert.NotContains(t, output, "you: I am 18\n", "the user message is not echoed back")
	assert.Len(t, session.state.Messages, 3)
}

func TestChat_RecommendationsThenResearch(t *testing.T) {
	nurse := types.NewJob("Nurse", "cares for patients")
	pilot := types.NewJob("Pilot", "flies planes")
	turns := &fakeTurns{updates: []state.Update{{
		Messages: []types.Message{types.AssistantMessage("Here are 2 jobs that match your profile.")},
		Recommendations: workflow.Assign([]types.JobRecommendation{
			{Job: nurse, Education: []string{}},
			{Job: pilot, Education: []string{}},
		}),
	}}}
	research := &fakeResearch{}

	session, output := runSession(t, turns, research, "hello\n/research nurse, "+pilot.JobID+"\nexit\n")

	assert.Contains(t, output, "JOB RECOMMENDATIONS")
	assert.Contains(t, output, "/research <job>")
	require.Len(t, research.queues, 1)
	assert.Equal(t, []string{nurse.JobID, pilot.JobID}, research.queues[0])
	assert.Contains(t, output, "Research on Nurse is complete.")
	assert.Contains(t, output, "analysis of Pilot")
	assert.Contains(t, output, "2 of 2 completed")
	assert.Len(t, session.state.CompletedResearch, 2)
}

func TestChat_ResearchErrors(t *testing.T) {
	nurse := types.NewJob("Nurse", "")
	tests := []struct {
		name    string
		recs    []types.JobRecommendation
		command string
		want    string
	}{
		{name: "no recommendations", command: "/research nurse", want: "no recommendations to research"},
		{name: "unknown job", recs: []types.JobRecommendation{{Job: nurse}}, command: "/research pilot", want: `no recommended job matches "pilot"`},
		{name: "no selectors", recs: []types.JobRecommendation{{Job: nurse}}, command: "/research", want: "usage: /research"},
		{name: "unknown command", command: "/dance", want: "unknown command /dance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			research := &fakeResearch{}
			var buf bytes.Buffer
			session := newChatSession(&fakeTurns{}, research, observability.NewPrinter(&buf), &buf)
			session.state.Recommendations = tt.recs

			require.NoError(t, session.run(context.Background(), strings.NewReader(tt.command+"\nq\n")))

			assert.Contains(t, buf.String(), tt.want)
			assert.Empty(t, research.queues)
		})
	}
}

func TestChat_PipelineErrorKeepsState(t *testing.T) {
	turns := &fakeTurns{
		updates: []state.Update{state.Say(types.AssistantMessage("Sorry, I could not update your profile: boom"))},
		err:     errors.New("boom"),
	}

	session, output := runSession(t, turns, &fakeResearch{}, "hi\nq\n")

	assert.Contains(t, output, "Sorry, I could not update your profile")
	assert.Contains(t, output, "error: boom")
	assert.Len(t, session.state.Messages, 2)
}

func TestChat_ProfileAndJobsCommands(t *testing.T) {
	_, output := runSession(t, &fakeTurns{}, &fakeResearch{}, "/profile\n/jobs\n/help\nq\n")

	assert.Contains(t, output, "I do not know anything about you yet.")
	assert.Contains(t, output, "No recommendations yet.")
	assert.Contains(t, output, "Commands:")
}
