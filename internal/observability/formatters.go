// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/pipeline/steps"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/types"
	"github.com/MartinJHallberg/study-and-work-counselor/internal/workflow"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, shorten(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// shorten cuts s to at most n runes, marking the cut with "...".
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintProfile outputs a human-readable summary of the user profile.
func (p *Printer) PrintProfile(profile *types.Profile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(profile.PromptString())
	sb.WriteString("\n\n")
	if missing := profile.MissingFields(); len(missing) > 0 {
		sb.WriteString(fmt.Sprintf("Missing: %s", strings.Join(missing, ", ")))
	} else {
		sb.WriteString("✓ Profile complete")
	}

	p.printBox("PROFILE", sb.String())
}

// PrintQuestions outputs the pending follow-up questions.
func (p *Printer) PrintQuestions(questions []string) {
	if len(questions) == 0 {
		return
	}

	var sb strings.Builder
	for i, q := range questions {
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, q))
		if i < len(questions)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("QUESTIONS", sb.String())
}

// PrintRecommendations outputs the recommended jobs with their education paths.
func (p *Printer) PrintRecommendations(recs []types.JobRecommendation) {
	if len(recs) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Recommended jobs: %d\n\n", len(recs)))

	for i, rec := range recs {
		sb.WriteString(fmt.Sprintf("#%d  %s\n", i+1, rec.Job.Name))
		if rec.Job.Description != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", rec.Job.Description))
		}
		if len(rec.Education) > 0 {
			count := min(len(rec.Education), 3)
			education := strings.Join(rec.Education[:count], ", ")
			if len(rec.Education) > 3 {
				education += fmt.Sprintf(" +%d", len(rec.Education)-3)
			}
			sb.WriteString(fmt.Sprintf("    Education: %s\n", education))
		}
		if rec.ProfileMatch != "" {
			sb.WriteString(fmt.Sprintf("    Match: %s\n", rec.ProfileMatch))
		}
		sb.WriteString(fmt.Sprintf("    ID: %s", rec.Job.JobID))
		if i < len(recs)-1 {
			sb.WriteString("\n\n")
		}
	}

	p.printBox("JOB RECOMMENDATIONS", sb.String())
}

// PrintResearch outputs one job's research record followed by its analysis.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintResearch(jr types.JobResearch) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Job:     %s\n", jr.Job.Name))
	sb.WriteString(fmt.Sprintf("Status:  %s\n", jr.ResearchStatus))
	if jr.FailureReason != "" {
		sb.WriteString(fmt.Sprintf("Reason:  %s\n", jr.FailureReason))
	}

	if len(jr.ResearchData) > 0 {
		sb.WriteString("\nQueries:\n")
		count := min(len(jr.ResearchData), maxItemsToShow)
		for i := 0; i < count; i++ {
			d := jr.ResearchData[i]
			sb.WriteString(fmt.Sprintf("  • %s (%d sources)\n", d.Query, len(d.Sources)))
		}
		if len(jr.ResearchData) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(jr.ResearchData)-maxItemsToShow))
		}
	}

	p.printBox("JOB RESEARCH", strings.TrimSuffix(sb.String(), "\n"))

	if analysis := jr.Analysis(); analysis != "" {
		fmt.Fprintf(p.out, "%s\n", wrap(analysis, boxWidth))
	}
}

// PrintResearchSummary outputs one line per researched job.
func (p *Printer) PrintResearchSummary(completed []types.JobResearch) {
	if len(completed) == 0 {
		return
	}

	var sb strings.Builder
	done := 0
	for i, jr := range completed {
		mark := "⚠"
		if jr.ResearchStatus == types.ResearchCompleted {
			mark = "✓"
			done++
		}
		sb.WriteString(fmt.Sprintf("%s %s", mark, jr.Job.Name))
		if i < len(completed)-1 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString(fmt.Sprintf("\n\n%d of %d completed", done, len(completed)))

	p.printBox("RESEARCH SUMMARY", sb.String())
}

// PrintProgress outputs a one-line progress update. Only started and failed
// steps are shown.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProgress(ev steps.ProgressEvent) {
	switch ev.Kind {
	case workflow.EventStepStarted:
		fmt.Fprintf(p.out, "  … %s\n", ev.Message)
	case workflow.EventStepFailed:
		fmt.Fprintf(p.out, "  ✗ %s\n", ev.Message)
	}
}

// wrap breaks text into lines of at most width runes at word boundaries,
// keeping existing line breaks.
func wrap(text string, width int) string {
	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			out = append(out, "")
			continue
		}
		line := words[0]
		for _, w := range words[1:] {
			if len([]rune(line))+1+len([]rune(w)) > width {
				out = append(out, line)
				line = w
				continue
			}
			line += " " + w
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
