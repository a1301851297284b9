package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"ebook-rag/internal/models"
)

const (
	END = "__end__"

	NodeRetrieve = "retrieve"
	NodeGenerate = "generate"
)

var (
	ErrInvalidGraph   = errors.New("invalid graph")
	ErrStateOverwrite = errors.New("state field already set")
)

// NodeFunc returns only the fields it adds; the graph merges them into the
// running state.
type NodeFunc func(ctx context.Context, state models.State) (models.State, error)

// Graph is a builder for a linear workflow of named nodes
type Graph struct {
	nodes map[string]NodeFunc
	edges map[string]string
	entry string
}

func NewGraph() *Graph {
	return &Graph{
		nodes: make(map[string]NodeFunc),
		edges: make(map[string]string),
	}
}

func (g *Graph) AddNode(name string, fn NodeFunc) error {
	if name == "" || name == END {
		return fmt.Errorf("%w: reserved or empty node name %q", ErrInvalidGraph, name)
	}
	if _, ok := g.nodes[name]; ok {
		return fmt.Errorf("%w: duplicate node %q", ErrInvalidGraph, name)
	}
	g.nodes[name] = fn
	return nil
}

// AddEdge connects from to to. Each node has at most one outgoing edge.
func (g *Graph) AddEdge(from, to string) error {
	if _, ok := g.edges[from]; ok {
		return fmt.Errorf("%w: node %q already has an outgoing edge", ErrInvalidGraph, from)
	}
	g.edges[from] = to
	return nil
}

func (g *Graph) SetEntryPoint(name string) {
	g.entry = name
}

// Compile checks that every path from the entry point reaches END
func (g *Graph) Compile() (*CompiledGraph, error) {
	if _, ok := g.nodes[g.entry]; !ok {
		return nil, fmt.Errorf("%w: entry point %q is not a node", ErrInvalidGraph, g.entry)
	}
	for from, to := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvalidGraph, from)
		}
		if _, ok := g.nodes[to]; !ok && to != END {
			return nil, fmt.Errorf("%w: edge to unknown node %q", ErrInvalidGraph, to)
		}
	}

	order := make([]string, 0, len(g.nodes))
	seen := make(map[string]bool, len(g.nodes))
	for cur := g.entry; cur != END; {
		if seen[cur] {
			return nil, fmt.Errorf("%w: cycle at %q", ErrInvalidGraph, cur)
		}
		seen[cur] = true
		order = append(order, cur)

		next, ok := g.edges[cur]
		if !ok {
			return nil, fmt.Errorf("%w: node %q never reaches END", ErrInvalidGraph, cur)
		}
		cur = next
	}

	nodes := make([]NodeFunc, len(order))
	for i, name := range order {
		nodes[i] = g.nodes[name]
	}
	return &CompiledGraph{order: order, nodes: nodes}, nil
}

// CompiledGraph runs its nodes in edge order
type CompiledGraph struct {
	order []string
	nodes []NodeFunc
}

// Nodes lists node names in execution order.
func (c *CompiledGraph) Nodes() []string {
	return append([]string(nil), c.order...)
}

func (c *CompiledGraph) Invoke(ctx context.Context, state models.State) (models.State, error) {
	for i, fn := range c.nodes {
		update, err := fn(ctx, state)
		if err != nil {
			return state, fmt.Errorf("node %s: %w", c.order[i], err)
		}
		if state, err = mergeState(state, update); err != nil {
			return state, fmt.Errorf("node %s: %w", c.order[i], err)
		}
		log.Debug().Str("node", c.order[i]).Msg("Node finished")
	}
	return state, nil
}

// mergeState adds the fields set in update to state. Setting a field twice is an error.
func mergeState(state, update models.State) (models.State, error) {
	if update.Query != "" {
		if state.Query != "" {
			return state, fmt.Errorf("%w: query", ErrStateOverwrite)
		}
		state.Query = update.Query
	}
	if update.Contexts != nil {
		if state.Contexts != nil {
			return state, fmt.Errorf("%w: contexts", ErrStateOverwrite)
		}
		state.Contexts = update.Contexts
	}
	if update.Scores != nil {
		if state.Scores != nil {
			return state, fmt.Errorf("%w: scores", ErrStateOverwrite)
		}
		state.Scores = update.Scores
	}
	if update.Answer != nil {
		if state.Answer != nil {
			return state, fmt.Errorf("%w: answer", ErrStateOverwrite)
		}
		state.Answer = update.Answer
	}
	if update.Confidence != nil {
		if state.Confidence != nil {
			return state, fmt.Errorf("%w: confidence", ErrStateOverwrite)
		}
		state.Confidence = update.Confidence
	}
	return state, nil
}

// NewPipelineGraph wires the pipeline's stages as retrieve -> generate -> END
func NewPipelineGraph(p *Pipeline) (*CompiledGraph, error) {
	g := NewGraph()
	if err := g.AddNode(NodeRetrieve, p.retrieveNode); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeGenerate, p.generateNode); err != nil {
		return nil, err
	}
	g.SetEntryPoint(NodeRetrieve)
	if err := g.AddEdge(NodeRetrieve, NodeGenerate); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeGenerate, END); err != nil {
		return nil, err
	}
	return g.Compile()
}

func (p *Pipeline) retrieveNode(ctx context.Context, state models.State) (models.State, error) {
	retrieved, err := p.retriever.Retrieve(ctx, state.Query)
	if err != nil {
		return models.State{}, err
	}
	return models.State{Contexts: retrieved.Contexts, Scores: retrieved.Scores}, nil
}

func (p *Pipeline) generateNode(ctx context.Context, state models.State) (models.State, error) {
	answer, err := p.generator.GenerateAnswer(ctx, state.Query, state.Contexts)
	if err != nil {
		return models.State{}, err
	}
	confidence := Confidence(state.Scores)
	return models.State{Answer: &answer, Confidence: &confidence}, nil
}
