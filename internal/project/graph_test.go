package project_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/project"
)

type fakeSelector struct {
	paths       map[ids.FileID]string
	includeDirs map[ids.FileID]bool
	pluginStart map[ids.FileID]bool
}

func (f *fakeSelector) Path(file ids.FileID) (string, bool) {
	p, ok := f.paths[file]
	return p, ok
}
func (f *fakeSelector) IsIncludeDirectory(file ids.FileID) bool { return f.includeDirs[file] }
func (f *fakeSelector) HasPluginStart(file ids.FileID) bool     { return f.pluginStart[file] }

func TestComponentsSplitsDisjointIncludeGraphs(t *testing.T) {
	g := project.NewGraph()
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddFile(4)

	comps := g.Components()
	require.Len(t, comps, 2)
	assert.Equal(t, []ids.FileID{1, 2, 3}, comps[0])
	assert.Equal(t, []ids.FileID{4}, comps[1])
}

func TestBuildProjectsPrefersMainPathOverride(t *testing.T) {
	g := project.NewGraph()
	g.AddEdge(1, 2)

	sel := &fakeSelector{
		paths: map[ids.FileID]string{1: "/proj/a.sp", 2: "/proj/b.sp"},
	}
	projects := g.BuildProjects(sel, "b.sp")
	require.Len(t, projects, 1)
	assert.Equal(t, ids.FileID(2), projects[0].Root)
}

func TestBuildProjectsFallsBackToOnPluginStart(t *testing.T) {
	g := project.NewGraph()
	g.AddEdge(1, 2)

	sel := &fakeSelector{
		paths:       map[ids.FileID]string{1: "/proj/util.inc", 2: "/proj/plugin.sp"},
		includeDirs: map[ids.FileID]bool{},
		pluginStart: map[ids.FileID]bool{2: true},
	}
	projects := g.BuildProjects(sel, "")
	require.Len(t, projects, 1)
	assert.Equal(t, ids.FileID(2), projects[0].Root)
}

func TestBuildProjectsFallsBackToSmallestFileID(t *testing.T) {
	g := project.NewGraph()
	g.AddEdge(5, 9)

	sel := &fakeSelector{paths: map[ids.FileID]string{}}
	projects := g.BuildProjects(sel, "")
	require.Len(t, projects, 1)
	assert.Equal(t, ids.FileID(5), projects[0].Root)
}

func TestBuildProjectsSkipsIncludeDirectoryFilesForPluginStartHeuristic(t *testing.T) {
	g := project.NewGraph()
	g.AddEdge(1, 2)

	sel := &fakeSelector{
		paths:       map[ids.FileID]string{1: "/include/fake.inc", 2: "/proj/plugin.sp"},
		includeDirs: map[ids.FileID]bool{1: true},
		pluginStart: map[ids.FileID]bool{1: true, 2: true},
	}
	projects := g.BuildProjects(sel, "")
	require.Len(t, projects, 1)
	assert.Equal(t, ids.FileID(2), projects[0].Root, "an include-directory file must never be chosen as root even if it matches the heuristic text")
}

func pluginStartBody() string {
	return strings.Join([]string{"public void OnPluginStart()", "{", "}"}, "\n")
}
