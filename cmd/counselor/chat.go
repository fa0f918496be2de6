package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/observability"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/state"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

const greeting = "Hi! I can help you find study and work options that suit you. Tell me a little about yourself: your age, what you are interested in and what you are good at."

const chatHelp = `Commands:
  /research <job>[, <job>...]  research recommended jobs by name or id
  /jobs                        show the recommended jobs
  /profile                     show what I know about you
  /help                        show this help
  quit, exit, q                leave the chat`

var chatQuiet bool

var chatCommand = &cobra.Command{
	Use:   "chat",
	Short: "Talk with the counselor",
	Long:  "Starts an interactive conversation. The counselor asks about you until your profile is complete, recommends jobs, and researches the ones you pick with /research.",
	RunE:  runChat,
}

func init() {
	chatCommand.Flags().BoolVarP(&chatQuiet, "quiet", "q", false, "Hide step progress")
	rootCmd.AddCommand(chatCommand)
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	a, err := newApp(ctx, cfg, out, !chatQuiet)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	session := newChatSession(a.pipeline, a.research, a.printer, out)
	return session.run(ctx, cmd.InOrStdin())
}

type turnRunner interface {
	RunPipeline(ctx context.Context, s state.State) (state.State, error)
}

type researchRunner interface {
	RunResearch(ctx context.Context, s state.State) (state.State, error)
}

type chatStyles struct {
	assistant lipgloss.Style
	system    lipgloss.Style
	err       lipgloss.Style
	hint      lipgloss.Style
}

func defaultChatStyles() chatStyles {
	return chatStyles{
		assistant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF")),
		system:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#888888")),
		err:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
		hint:      lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
	}
}

// chatSession holds the conversation state between turns.
type chatSession struct {
	turns    turnRunner
	research researchRunner
	printer  *observability.Printer
	out      io.Writer
	styles   chatStyles
	state    state.State
}

func newChatSession(turns turnRunner, research researchRunner, printer *observability.Printer, out io.Writer) *chatSession {
	return &chatSession{
		turns:    turns,
		research: research,
		printer:  printer,
		out:      out,
		styles:   defaultChatStyles(),
	}
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (c *chatSession) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, c.styles.assistant.Render("counselor: ")+greeting)
	fmt.Fprintln(c.out, c.styles.hint.Render("Type /help for commands."))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "\nyou: ")
		if !scanner.Scan() {
			fmt.Fprintln(c.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case isExit(line):
			fmt.Fprintln(c.out, c.styles.assistant.Render("counselor: ")+"Good luck!")
			return nil
		case strings.HasPrefix(line, "/"):
			c.command(ctx, line)
		default:
			c.turn(ctx, line)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func isExit(line string) bool {
	switch strings.ToLower(line) {
	case "quit", "exit", "q":
		return true
	}
	return false
}

// turn runs the pipeline on one user message and prints what changed.
func (c *chatSession) turn(ctx context.Context, line string) {
	before := c.state
	next, err := c.turns.RunPipeline(ctx, before.WithUserMessage(line))
	c.state = next
	// Skip the user message the session itself appended.
	c.printChanges(before, len(before.Messages)+1)
	if err != nil {
		c.printError(err)
	}
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (c *chatSession) command(ctx context.Context, line string) {
	name, args, _ := strings.Cut(line, " ")
	switch strings.ToLower(name) {
	case "/research":
		c.researchJobs(ctx, args)
	case "/jobs":
		if len(c.state.Recommendations) == 0 {
			fmt.Fprintln(c.out, c.styles.hint.Render("No recommendations yet."))
			return
		}
		c.printer.PrintRecommendations(c.state.Recommendations)
	case "/profile":
		if c.state.Profile == nil {
			fmt.Fprintln(c.out, c.styles.hint.Render("I do not know anything about you yet."))
			return
		}
		c.printer.PrintProfile(c.state.Profile)
	case "/help":
		fmt.Fprintln(c.out, c.styles.hint.Render(chatHelp))
	default:
		c.printError(fmt.Errorf("unknown command %s", name))
	}
}

// researchJobs queues the selected jobs and drains the queue.
func (c *chatSession) researchJobs(ctx context.Context, args string) {
	if len(c.state.Recommendations) == 0 {
		c.printError(fmt.Errorf("there are no recommendations to research yet"))
		return
	}
	ids, err := state.SelectJobs(c.state.Recommendations, strings.Split(args, ","))
	if err != nil {
		c.printError(err)
		return
	}
	if len(ids) == 0 {
		c.printError(fmt.Errorf("usage: /research <job>[, <job>...]"))
		return
	}

	before := c.state
	queued := state.Merge(before, state.Update{ResearchQueue: workflow.Assign(ids)})
	next, err := c.research.RunResearch(ctx, queued)
	c.state = next
	c.printChanges(before, len(before.Messages))
	if added := c.state.CompletedResearch[len(before.CompletedResearch):]; len(added) > 1 {
		c.printer.PrintResearchSummary(added)
	}
	if err != nil {
		c.printError(err)
	}
}

// printChanges prints messages from index from onward, then whatever the run
// added to the questions, recommendations and research.
func (c *chatSession) printChanges(before state.State, from int) {
	for _, m := range c.state.Messages[min(from, len(c.state.Messages)):] {
		c.printMessage(m)
	}
	if len(c.state.PendingQuestions) > 0 && !slices.Equal(before.PendingQuestions, c.state.PendingQuestions) {
		c.printer.PrintQuestions(c.state.PendingQuestions)
	}
	if !sameJobs(before.Recommendations, c.state.Recommendations) {
		c.printer.PrintRecommendations(c.state.Recommendations)
		if len(c.state.Recommendations) > 0 {
			fmt.Fprintln(c.out, c.styles.hint.Render("Type /research <job>[, <job>...] to research jobs.")) //nolint:errcheck
		}
	}
	for _, jr := range c.state.CompletedResearch[min(len(before.CompletedResearch), len(c.state.CompletedResearch)):] {
		c.printer.PrintResearch(jr)
	}
}

//nolint:errcheck // writing to stdout; errors are not recoverable
func (c *chatSession) printMessage(m types.Message) {
	switch m.Role {
	case types.RoleSystem:
		fmt.Fprintln(c.out, c.styles.system.Render(m.Content))
	case types.RoleUser:
		fmt.Fprintln(c.out, "you: "+m.Content)
	default:
		fmt.Fprintln(c.out, c.styles.assistant.Render("counselor: ")+m.Content)
	}
}

func (c *chatSession) printError(err error) {
	fmt.Fprintln(c.out, c.styles.err.Render("error: "+err.Error())) //nolint:errcheck
}

func sameJobs(a, b []types.JobRecommendation) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Job.JobID != b[i].Job.JobID {
			return false
		}
	}
	return true
}
