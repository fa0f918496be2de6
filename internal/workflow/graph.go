// Package workflow runs steps over a shared state value. Each step returns a
// partial update that is folded back into the state by a Schema, and
// transitions are looked up in a table of edges and branches.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/MartinJHallberg/study-and-work-counselor/internal/logging"
)

// End is the terminal transition target.
const End = "__end__"

// DefaultMaxSteps bounds the number of step executions in one run.
const DefaultMaxSteps = 256

// Step is one unit of work. It reads the state and returns the fields it
// changes. On error the update is discarded.
type Step[S, U any] func(ctx context.Context, state S) (U, error)

// Route picks the outcome key of a conditional transition from the state.
type Route[S any] func(state S) string

// Runner is anything that can run to completion over a state.
type Runner[S any] interface {
	Run(ctx context.Context, state S) (S, error)
}

// EventKind classifies an Event.
type EventKind string

// Event kinds.
const (
	EventStepStarted   EventKind = "step_started"
	EventStepCompleted EventKind = "step_completed"
	EventStepFailed    EventKind = "step_failed"
)

// Event reports step progress to an observer.
type Event struct {
	Graph  string
	Step   string
	Kind   EventKind
	Fields []string
	Err    error
}

type branch[S any] struct {
	route    Route[S]
	targets  map[string]string
	fallback string
}

// Builder assembles a graph definition.
type Builder[S, U any] struct {
	name      string
	schema    *Schema[S, U]
	entry     string
	steps     map[string]Step[S, U]
	order     []string
	edges     map[string]string
	branches  map[string]branch[S]
	problems  []string
	onFailure func(state S, step string, err error) U
	observer  func(Event)
	maxSteps  int
}

// NewBuilder starts a graph named name whose updates merge through schema.
func NewBuilder[S, U any](name string, schema *Schema[S, U]) *Builder[S, U] {
	return &Builder[S, U]{
		name:     name,
		schema:   schema,
		steps:    make(map[string]Step[S, U]),
		edges:    make(map[string]string),
		branches: make(map[string]branch[S]),
		maxSteps: DefaultMaxSteps,
	}
}

// AddStep registers a named step.
func (b *Builder[S, U]) AddStep(name string, step Step[S, U]) *Builder[S, U] {
	switch {
	case name == "" || name == End:
		b.problems = append(b.problems, fmt.Sprintf("invalid step name %q", name))
	case step == nil:
		b.problems = append(b.problems, fmt.Sprintf("step %s has no function", name))
	case b.steps[name] != nil:
		b.problems = append(b.problems, fmt.Sprintf("step %s registered twice", name))
	default:
		b.steps[name] = step
		b.order = append(b.order, name)
	}
	return b
}

// SetEntry names the first step of every run.
func (b *Builder[S, U]) SetEntry(name string) *Builder[S, U] {
	b.entry = name
	return b
}

// AddEdge adds an unconditional transition.
func (b *Builder[S, U]) AddEdge(from, to string) *Builder[S, U] {
	if _, ok := b.edges[from]; ok {
		b.problems = append(b.problems, fmt.Sprintf("step %s has two edges", from))
	}
	b.edges[from] = to
	return b
}

// AddBranch adds a conditional transition. route is evaluated on the state
// after the step's update was merged; its result is looked up in targets and
// falls back to fallback when no key matches. An empty fallback means an
// unmatched route is a RoutingError.
func (b *Builder[S, U]) AddBranch(from string, route Route[S], targets map[string]string, fallback string) *Builder[S, U] {
	if route == nil {
		b.problems = append(b.problems, fmt.Sprintf("branch from %s has no route", from))
	}
	if _, ok := b.branches[from]; ok {
		b.problems = append(b.problems, fmt.Sprintf("step %s has two branches", from))
	}
	copied := make(map[string]string, len(targets))
	for k, v := range targets {
		copied[k] = v
	}
	b.branches[from] = branch[S]{route: route, targets: copied, fallback: fallback}
	return b
}

// OnFailure sets the update merged into the state when a step fails or no
// route matches. fn sees the state the failed step received, or the merged
// state when routing failed. The update is merged exactly once per failed run.
func (b *Builder[S, U]) OnFailure(fn func(state S, step string, err error) U) *Builder[S, U] {
	b.onFailure = fn
	return b
}

// Observe registers a callback for step events.
func (b *Builder[S, U]) Observe(fn func(Event)) *Builder[S, U] {
	b.observer = fn
	return b
}

// MaxSteps overrides DefaultMaxSteps.
func (b *Builder[S, U]) MaxSteps(n int) *Builder[S, U] {
	b.maxSteps = n
	return b
}

// Compile validates the definition and returns an immutable graph.
func (b *Builder[S, U]) Compile() (*Graph[S, U], error) {
	problems := append([]string(nil), b.problems...)
	if b.schema == nil {
		problems = append(problems, "schema is required")
	}
	if b.entry == "" {
		problems = append(problems, "entry step is not set")
	} else if b.steps[b.entry] == nil {
		problems = append(problems, fmt.Sprintf("entry step %s is not registered", b.entry))
	}
	if b.maxSteps <= 0 {
		problems = append(problems, "max steps must be positive")
	}

	known := func(target string) bool {
		return target == End || b.steps[target] != nil
	}
	for _, from := range sortedKeys(b.edges) {
		to := b.edges[from]
		if b.steps[from] == nil {
			problems = append(problems, fmt.Sprintf("edge from unknown step %s", from))
		}
		if !known(to) {
			problems = append(problems, fmt.Sprintf("edge %s -> %s targets unknown step", from, to))
		}
		if _, ok := b.branches[from]; ok {
			problems = append(problems, fmt.Sprintf("step %s has both an edge and a branch", from))
		}
	}
	for _, from := range sortedKeys(b.branches) {
		br := b.branches[from]
		if b.steps[from] == nil {
			problems = append(problems, fmt.Sprintf("branch from unknown step %s", from))
		}
		for _, key := range sortedKeys(br.targets) {
			if !known(br.targets[key]) {
				problems = append(problems, fmt.Sprintf("branch %s[%s] targets unknown step %s", from, key, br.targets[key]))
			}
		}
		if br.fallback != "" && !known(br.fallback) {
			problems = append(problems, fmt.Sprintf("branch %s fallback targets unknown step %s", from, br.fallback))
		}
	}
	for _, name := range b.order {
		_, hasEdge := b.edges[name]
		_, hasBranch := b.branches[name]
		if !hasEdge && !hasBranch {
			problems = append(problems, fmt.Sprintf("step %s has no outgoing transition", name))
		}
	}
	if len(problems) > 0 {
		return nil, &CompileError{Graph: b.name, Problems: problems}
	}

	g := &Graph[S, U]{
		name:      b.name,
		schema:    b.schema,
		entry:     b.entry,
		steps:     make(map[string]Step[S, U], len(b.steps)),
		edges:     make(map[string]string, len(b.edges)),
		branches:  make(map[string]branch[S], len(b.branches)),
		onFailure: b.onFailure,
		observer:  b.observer,
		maxSteps:  b.maxSteps,
	}
	for k, v := range b.steps {
		g.steps[k] = v
	}
	for k, v := range b.edges {
		g.edges[k] = v
	}
	for k, v := range b.branches {
		g.branches[k] = v
	}
	return g, nil
}

// Graph is a compiled workflow. It is safe for concurrent runs.
type Graph[S, U any] struct {
	name      string
	schema    *Schema[S, U]
	entry     string
	steps     map[string]Step[S, U]
	edges     map[string]string
	branches  map[string]branch[S]
	onFailure func(state S, step string, err error) U
	observer  func(Event)
	maxSteps  int
}

// Name returns the graph name.
func (g *Graph[S, U]) Name() string { return g.name }

// Entry returns the entry step name.
func (g *Graph[S, U]) Entry() string { return g.entry }

// Next resolves the transition out of step for the given state.
func (g *Graph[S, U]) Next(step string, state S) (string, error) {
	if to, ok := g.edges[step]; ok {
		return to, nil
	}
	br, ok := g.branches[step]
	if !ok {
		return "", &RoutingError{Graph: g.name, Step: step}
	}
	key := br.route(state)
	if to, ok := br.targets[key]; ok {
		return to, nil
	}
	if br.fallback != "" {
		return br.fallback, nil
	}
	return "", &RoutingError{Graph: g.name, Step: step, Route: key}
}

// Run executes steps from the entry until End. On a step failure the failed
// step's update is dropped, the failure update is merged, and the state is
// returned together with a *StepError. A failing subgraph step is the
// exception: its partial delta already holds its own failure record and is
// merged in place of the failure update.
func (g *Graph[S, U]) Run(ctx context.Context, state S) (S, error) {
	logger := logging.FromContext(ctx).With().
		Str("component", "workflow").
		Str("graph", g.name).
		Logger()

	current := g.entry
	for visited := 0; ; visited++ {
		if visited >= g.maxSteps {
			err := &StepLimitError{Graph: g.name, Limit: g.maxSteps}
			return g.fail(state, current, err), &StepError{Graph: g.name, Step: current, Err: err}
		}

		step := g.steps[current]
		g.emit(Event{Graph: g.name, Step: current, Kind: EventStepStarted})
		logger.Debug().Str("step", current).Msg("step started")

		update, err := step(ctx, state)
		if err != nil {
			logger.Error().Err(err).Str("step", current).Msg("step failed")
			g.emit(Event{Graph: g.name, Step: current, Kind: EventStepFailed, Err: err})
			var sub *SubgraphError[U]
			if errors.As(err, &sub) {
				state = g.schema.Merge(state, sub.Update)
			} else {
				state = g.fail(state, current, err)
			}
			return state, &StepError{Graph: g.name, Step: current, Err: err}
		}

		written := g.schema.Written(update)
		state = g.schema.Merge(state, update)
		g.emit(Event{Graph: g.name, Step: current, Kind: EventStepCompleted, Fields: written})
		logger.Debug().Str("step", current).Strs("fields", written).Msg("step completed")

		next, err := g.Next(current, state)
		if err != nil {
			logger.Error().Err(err).Str("step", current).Msg("routing failed")
			return g.fail(state, current, err), err
		}
		if next == End {
			return state, nil
		}
		current = next
	}
}

func (g *Graph[S, U]) fail(state S, step string, err error) S {
	if g.onFailure == nil {
		return state
	}
	return g.schema.Merge(state, g.onFailure(state, step, err))
}

func (g *Graph[S, U]) emit(ev Event) {
	if g.observer != nil {
		g.observer(ev)
	}
}

// Subgraph adapts a runner into a step. The step's update is the delta between
// the state it received and the runner's final state, so the enclosing graph
// merges only what the runner added or replaced.
func Subgraph[S, U any](runner Runner[S], schema *Schema[S, U]) Step[S, U] {
	return func(ctx context.Context, state S) (U, error) {
		final, err := runner.Run(ctx, state)
		delta := schema.Delta(state, final)
		if err != nil {
			var zero U
			return zero, &SubgraphError[U]{Update: delta, Err: err}
		}
		return delta, nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
