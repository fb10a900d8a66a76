// Package workflow compiles named stages into a validated chain and runs it
// against a state record.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/smart-applier/internal/state"
)

// End is the terminal sentinel. It cannot be used as a stage name.
const End = "__end__"

// Stage is a unit of work. It receives a copy of the accumulated record and
// returns a partial record holding only the fields it produces.
type Stage interface {
	Run(ctx context.Context, in state.Record) (state.Record, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc func(ctx context.Context, in state.Record) (state.Record, error)

func (f StageFunc) Run(ctx context.Context, in state.Record) (state.Record, error) {
	return f(ctx, in)
}

// Graph is a workflow under construction. Builder errors are collected and
// reported by Compile.
type Graph struct {
	name   string
	order  []string
	stages map[string]Stage
	edges  map[string][]string
	entry  string
	errs   []*GraphValidationError
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		name:   name,
		stages: make(map[string]Stage),
		edges:  make(map[string][]string),
	}
}

// Name returns the graph name.
func (g *Graph) Name() string { return g.name }

// AddStage registers a stage under name.
func (g *Graph) AddStage(name string, stage Stage) *Graph {
	switch {
	case strings.TrimSpace(name) == "":
		g.fail(name, "stage name must not be empty")
	case name == End:
		g.fail(name, "stage name is reserved for the terminal sentinel")
	case stage == nil:
		g.fail(name, "stage implementation is nil")
	default:
		if _, ok := g.stages[name]; ok {
			g.fail(name, "stage is already registered")
			return g
		}
		g.stages[name] = stage
		g.order = append(g.order, name)
	}
	return g
}

// AddEdge declares that to runs after from. to may be End.
func (g *Graph) AddEdge(from, to string) *Graph {
	if from == to {
		g.fail(from, "self-referential edge")
		return g
	}
	for _, existing := range g.edges[from] {
		if existing == to {
			return g
		}
	}
	g.edges[from] = append(g.edges[from], to)
	return g
}

// SetEntry designates the starting stage.
func (g *Graph) SetEntry(name string) *Graph {
	if g.entry != "" && g.entry != name {
		g.fail(name, fmt.Sprintf("entry stage already set to %q", g.entry))
		return g
	}
	g.entry = name
	return g
}

func (g *Graph) fail(stage, reason string) {
	g.errs = append(g.errs, &GraphValidationError{Graph: g.name, Stage: stage, Reason: reason})
}

// Compile validates the graph and returns its executable form. The returned
// value does not share mutable state with the builder.
func (g *Graph) Compile(opts ...Option) (*Compiled, error) {
	if len(g.errs) > 0 {
		return nil, g.errs[0]
	}

	if err := g.validate(); err != nil {
		return nil, err
	}

	chain := make([]string, 0, len(g.stages))
	stages := make(map[string]Stage, len(g.stages))
	for current := g.entry; current != End; current = g.edges[current][0] {
		chain = append(chain, current)
		stages[current] = g.stages[current]
	}

	c := &Compiled{
		name:   g.name,
		chain:  chain,
		stages: stages,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.init()

	return c, nil
}

func (g *Graph) validate() error {
	if g.entry == "" {
		return &GraphValidationError{Graph: g.name, Reason: "entry stage is not set"}
	}
	if _, ok := g.stages[g.entry]; !ok {
		return &GraphValidationError{Graph: g.name, Stage: g.entry, Reason: "entry stage is not registered"}
	}

	for _, from := range g.sortedSources() {
		if _, ok := g.stages[from]; !ok {
			return &GraphValidationError{Graph: g.name, Stage: from, Reason: "edge starts at an unknown stage"}
		}
		for _, to := range g.edges[from] {
			if _, ok := g.stages[to]; !ok && to != End {
				return &GraphValidationError{Graph: g.name, Stage: from, Reason: fmt.Sprintf("edge points to unknown stage %q", to)}
			}
		}
	}

	for _, name := range g.order {
		switch n := len(g.edges[name]); {
		case n == 0:
			return &GraphValidationError{Graph: g.name, Stage: name, Reason: "stage has no outgoing edge"}
		case n > 1:
			return &GraphValidationError{Graph: g.name, Stage: name, Reason: fmt.Sprintf("stage has %d outgoing edges, only chains are supported", n)}
		}
	}

	if err := g.detectCycles(); err != nil {
		return err
	}

	reachable := g.reachable()
	for _, name := range g.order {
		if !reachable[name] {
			return &GraphValidationError{Graph: g.name, Stage: name, Reason: "stage is unreachable from the entry stage"}
		}
	}

	return nil
}

// detectCycles runs a depth-first search keeping the current path in
// temporary and finished nodes in permanent.
func (g *Graph) detectCycles() error {
	permanent := make(map[string]bool)
	temporary := make(map[string]bool)

	var visit func(name string) error
	visit = func(name string) error {
		if name == End || permanent[name] {
			return nil
		}
		if temporary[name] {
			return &GraphValidationError{Graph: g.name, Stage: name, Reason: "cycle detected"}
		}

		temporary[name] = true
		for _, next := range g.edges[name] {
			if err := visit(next); err != nil {
				return err
			}
		}
		delete(temporary, name)
		permanent[name] = true

		return nil
	}

	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) reachable() map[string]bool {
	seen := map[string]bool{g.entry: true}
	queue := []string{g.entry}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range g.edges[current] {
			if next == End || seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, next)
		}
	}
	return seen
}

// sortedSources returns edge sources in registration order, followed by
// unknown sources in the order they were first used.
func (g *Graph) sortedSources() []string {
	sources := make([]string, 0, len(g.edges))
	known := make(map[string]bool, len(g.order))
	for _, name := range g.order {
		known[name] = true
		if _, ok := g.edges[name]; ok {
			sources = append(sources, name)
		}
	}
	for from := range g.edges {
		if !known[from] {
			sources = append(sources, from)
		}
	}
	return sources
}
