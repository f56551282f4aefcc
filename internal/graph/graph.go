// Package graph builds the fleet dependency graph that feeds repository
// categorization to every analysis stage.
package graph

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/types"
)

// Graph is a directed dependency graph over the fleet. Edges mean
// "depends on". Built once per engine lifetime; Build replaces the graph
// wholesale, there is no removal operation.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]types.RepositoryNode
	// reverse maps a repository to the repositories depending on it.
	reverse map[string][]string
}

// Build constructs the graph from the configured fleet. An edge whose
// target is not a tracked repository is silently dropped; that is documented
// behavior, not an error, so a fleet declaration can reference external
// dependencies without breaking the build.
func Build(fleet []config.RepoConfig, logger *logrus.Entry) *Graph {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}

	g := &Graph{
		nodes:   make(map[string]types.RepositoryNode, len(fleet)),
		reverse: make(map[string][]string),
	}

	for _, repo := range fleet {
		g.nodes[repo.Name] = types.RepositoryNode{
			ID:       repo.Name,
			Category: repo.Category,
		}
	}

	edges := 0
	for _, repo := range fleet {
		node := g.nodes[repo.Name]
		for _, dep := range repo.Dependencies {
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			node.Dependencies = append(node.Dependencies, dep)
			g.reverse[dep] = append(g.reverse[dep], repo.Name)
			edges++
		}
		g.nodes[repo.Name] = node
	}

	logger.WithFields(logrus.Fields{
		"nodes": len(g.nodes),
		"edges": edges,
	}).Info("repository graph built")

	return g
}

// Nodes returns all repository nodes.
func (g *Graph) Nodes() []types.RepositoryNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	nodes := make([]types.RepositoryNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Category returns the category of a repository; RepoOther for unknown IDs.
func (g *Graph) Category(id string) types.RepoCategory {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, ok := g.nodes[id]; ok {
		return n.Category
	}
	return types.RepoOther
}

// Dependencies returns the repositories the given repository depends on.
func (g *Graph) Dependencies(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if n, ok := g.nodes[id]; ok {
		return append([]string(nil), n.Dependencies...)
	}
	return nil
}

// Dependents returns the repositories that depend on the given repository.
func (g *Graph) Dependents(id string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]string(nil), g.reverse[id]...)
}

// AddEdge adds a single dependency edge incrementally. The edge is dropped
// when either endpoint is unknown, matching Build's semantics.
func (g *Graph) AddEdge(from, to string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	node, ok := g.nodes[from]
	if !ok {
		return false
	}
	if _, ok := g.nodes[to]; !ok {
		return false
	}
	for _, dep := range node.Dependencies {
		if dep == to {
			return true
		}
	}
	node.Dependencies = append(node.Dependencies, to)
	g.nodes[from] = node
	g.reverse[to] = append(g.reverse[to], from)
	return true
}

// Len returns the node count.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
