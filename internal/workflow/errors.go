package workflow

import (
	"fmt"
	"strings"
)

// StepError wraps the failure of a single step.
type StepError struct {
	Graph string
	Step  string
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow %s: step %s failed: %v", e.Graph, e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// RoutingError means no outgoing edge matched after a step completed.
// It signals a graph definition defect, not a runtime condition.
type RoutingError struct {
	Graph string
	Step  string
	Route string
}

func (e *RoutingError) Error() string {
	if e.Route != "" {
		return fmt.Sprintf("workflow %s: no edge from %s for route %q", e.Graph, e.Step, e.Route)
	}
	return fmt.Sprintf("workflow %s: no edge from %s", e.Graph, e.Step)
}

// CompileError lists the problems found while compiling a graph.
type CompileError struct {
	Graph    string
	Problems []string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("workflow %s: invalid graph: %s", e.Graph, strings.Join(e.Problems, "; "))
}

// StepLimitError means a run visited more steps than the graph allows.
type StepLimitError struct {
	Graph string
	Limit int
}

func (e *StepLimitError) Error() string {
	return fmt.Sprintf("workflow %s: exceeded %d steps", e.Graph, e.Limit)
}

// SubgraphError carries the delta a nested runner produced before it failed.
type SubgraphError[U any] struct {
	Update U
	Err    error
}

func (e *SubgraphError[U]) Error() string {
	return e.Err.Error()
}

func (e *SubgraphError[U]) Unwrap() error {
	return e.Err
}
