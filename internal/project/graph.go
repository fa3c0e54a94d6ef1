// Package project builds the include-graph view of a workspace: connected
// components over #include edges, and the root-selection heuristic that
// picks each component's entry point (spec.md §4.6).
//
// Grounded on pkg/build/dependency_graph.go: that file builds a directed
// package dependency graph, detects cycles with a DFS recursion-stack walk,
// and returns a topological build order. This package keeps the same node
// shape but makes the graph undirected (an #include edge merges two files
// into one project rather than ordering a build), since spec.md's project
// concept is "the connected component", not a build plan; components are
// found by BFS and no cycle detection is done.
package project

import (
	"sort"
	"strings"

	"github.com/sourcepawn-studio/spls/internal/ids"
)

// Graph is the include graph for an entire workspace: one node per known
// file, edges for every #include/#tryinclude resolved by the preprocessor.
type Graph struct {
	edges map[ids.FileID]map[ids.FileID]struct{}
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[ids.FileID]map[ids.FileID]struct{})}
}

// AddFile ensures file has a node, even if it has no include edges (e.g. a
// standalone file with no #include directives is still its own project).
func (g *Graph) AddFile(file ids.FileID) {
	if _, ok := g.edges[file]; !ok {
		g.edges[file] = make(map[ids.FileID]struct{})
	}
}

// AddEdge records that from includes to (directly), in either direction —
// the graph is undirected because project membership doesn't care which
// file did the including.
func (g *Graph) AddEdge(from, to ids.FileID) {
	g.AddFile(from)
	g.AddFile(to)
	g.edges[from][to] = struct{}{}
	g.edges[to][from] = struct{}{}
}

// Project is one connected component of the include graph, plus its
// resolved root file (spec.md §3 ProjectGraph / §4.6).
type Project struct {
	Files []ids.FileID
	Root  ids.FileID
}

// RootSelector answers the questions the three-step root heuristic needs
// about a candidate file, without the project package depending directly on
// vfs or itemtree (spec.md §4.6):
//  1. config main_path override, matched by path
//  2. first .sp file outside include directories whose text contains
//     "OnPluginStart("
//  3. lexicographically smallest FileID as a last-resort tie-break
type RootSelector interface {
	Path(file ids.FileID) (string, bool)
	IsIncludeDirectory(file ids.FileID) bool
	HasPluginStart(file ids.FileID) bool
}

// Components partitions the graph into connected components using
// iterative BFS (grounded on the same node/edge-map shape as
// dependency_graph.go, adapted from that file's DFS into BFS purely because
// an undirected reachability walk has no recursion-stack cycle to track).
func (g *Graph) Components() [][]ids.FileID {
	visited := make(map[ids.FileID]bool, len(g.edges))
	var components [][]ids.FileID

	var allFiles []ids.FileID
	for f := range g.edges {
		allFiles = append(allFiles, f)
	}
	sort.Slice(allFiles, func(i, j int) bool { return allFiles[i] < allFiles[j] })

	for _, start := range allFiles {
		if visited[start] {
			continue
		}
		var component []ids.FileID
		queue := []ids.FileID{start}
		visited[start] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			component = append(component, cur)
			neighbors := make([]ids.FileID, 0, len(g.edges[cur]))
			for n := range g.edges[cur] {
				neighbors = append(neighbors, n)
			}
			sort.Slice(neighbors, func(i, j int) bool { return neighbors[i] < neighbors[j] })
			for _, n := range neighbors {
				if !visited[n] {
					visited[n] = true
					queue = append(queue, n)
				}
			}
		}
		sort.Slice(component, func(i, j int) bool { return component[i] < component[j] })
		components = append(components, component)
	}
	return components
}

// BuildProjects partitions the graph and resolves a root for each component
// using the three-step heuristic from spec.md §4.6: config main_path
// override, then the first OnPluginStart-bearing non-include file, then the
// lexicographically smallest FileID.
func (g *Graph) BuildProjects(sel RootSelector, mainPathOverride string) []Project {
	components := g.Components()
	projects := make([]Project, 0, len(components))

	for _, files := range components {
		root := selectRoot(files, sel, mainPathOverride)
		projects = append(projects, Project{Files: files, Root: root})
	}
	return projects
}

func selectRoot(files []ids.FileID, sel RootSelector, mainPathOverride string) ids.FileID {
	if mainPathOverride != "" {
		for _, f := range files {
			if p, ok := sel.Path(f); ok && pathsMatch(p, mainPathOverride) {
				return f
			}
		}
	}

	for _, f := range files {
		if sel.IsIncludeDirectory(f) {
			continue
		}
		if p, ok := sel.Path(f); !ok || !strings.HasSuffix(p, ".sp") {
			continue
		}
		if sel.HasPluginStart(f) {
			return f
		}
	}

	// files is already sorted ascending by Components.
	if len(files) > 0 {
		return files[0]
	}
	return ids.Invalid
}

func pathsMatch(path, override string) bool {
	if path == override {
		return true
	}
	n := len(override)
	return len(path) >= n && path[len(path)-n:] == override
}
