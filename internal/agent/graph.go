package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// End is the implicit terminal node name.
const End = "__end__"

// NodeFunc consumes the current state and returns a partial update.
type NodeFunc func(ctx context.Context, state State) (Patch, error)

// DecisionFunc picks the label of the outgoing conditional edge.
type DecisionFunc func(ctx context.Context, state State) string

type conditionalEdge struct {
	decide  DecisionFunc
	targets map[string]string
}

// Graph is a static set of named nodes and transitions. Build it with the
// builder methods, then Compile. A compiled graph is safe for concurrent
// Invoke calls; all per-request data lives in State.
type Graph struct {
	nodes       map[string]NodeFunc
	edges       map[string]string
	conditional map[string]conditionalEdge
	entry       string
	compiled    bool
}

func NewGraph() *Graph {
	return &Graph{
		nodes:       make(map[string]NodeFunc),
		edges:       make(map[string]string),
		conditional: make(map[string]conditionalEdge),
	}
}

func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	g.nodes[name] = fn
	return g
}

func (g *Graph) AddEdge(from, to string) *Graph {
	g.edges[from] = to
	return g
}

func (g *Graph) AddConditionalEdges(from string, decide DecisionFunc, targets map[string]string) *Graph {
	g.conditional[from] = conditionalEdge{decide: decide, targets: targets}
	return g
}

func (g *Graph) SetEntryPoint(name string) *Graph {
	g.entry = name
	return g
}

// Compile validates the graph's static structure.
func (g *Graph) Compile() (*Graph, error) {
	if g.entry == "" {
		return nil, fmt.Errorf("graph has no entry point")
	}
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("entry point %q is not a node", g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("edge from unknown node %q", from)
		}
		if to != End {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("edge %q -> unknown node %q", from, to)
			}
		}
	}
	for from, ce := range g.conditional {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("conditional edge from unknown node %q", from)
		}
		for label, to := range ce.targets {
			if to != End {
				if _, ok := g.nodes[to]; !ok {
					return nil, fmt.Errorf("conditional edge %q[%q] -> unknown node %q", from, label, to)
				}
			}
		}
	}
	g.compiled = true
	return g, nil
}

// Invoke runs the graph to a terminal node. Node errors are not caught:
// the partially updated state is returned alongside the error with its
// outcome tagged Failed, and the caller decides what happens to the job.
func (g *Graph) Invoke(ctx context.Context, state State) (State, error) {
	if !g.compiled {
		return state, fmt.Errorf("graph is not compiled")
	}

	current := g.entry
	for current != End {
		node, ok := g.nodes[current]
		if !ok {
			state.Outcome = OutcomeFailed
			return state, fmt.Errorf("unknown node %q", current)
		}

		slog.DebugContext(ctx, "executing node", "node", current)
		patch, err := node(ctx, state)
		if err != nil {
			state.Outcome = OutcomeFailed
			return state, fmt.Errorf("node %q: %w", current, err)
		}
		state = state.apply(patch)

		next, err := g.next(ctx, current, state)
		if err != nil {
			state.Outcome = OutcomeFailed
			return state, err
		}
		current = next
	}

	return state, nil
}

func (g *Graph) next(ctx context.Context, current string, state State) (string, error) {
	if ce, ok := g.conditional[current]; ok {
		label := ce.decide(ctx, state)
		next, ok := ce.targets[label]
		if !ok {
			return "", fmt.Errorf("node %q decided unknown edge label %q", current, label)
		}
		return next, nil
	}
	if next, ok := g.edges[current]; ok {
		return next, nil
	}
	// No outgoing edge means the node is terminal.
	return End, nil
}
