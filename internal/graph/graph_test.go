package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/reposcope/reposcope/internal/config"
	"github.com/reposcope/reposcope/internal/types"
)

func testFleet() []config.RepoConfig {
	return []config.RepoConfig{
		{Name: "wazaa", Category: types.RepoStructural, Dependencies: []string{"ecos-cli", "data-miner", "not-tracked"}},
		{Name: "ecos-cli", Category: types.RepoStructural, Dependencies: []string{"wazaa"}},
		{Name: "data-miner", Category: types.RepoStructural},
		{Name: "fluence", Category: types.RepoCore, Dependencies: []string{"wazaa"}},
	}
}

func TestBuildDropsUnknownTargets(t *testing.T) {
	g := Build(testFleet(), nil)

	assert.Equal(t, 4, g.Len())
	// "not-tracked" edge silently dropped.
	assert.ElementsMatch(t, []string{"ecos-cli", "data-miner"}, g.Dependencies("wazaa"))
}

func TestDependents(t *testing.T) {
	g := Build(testFleet(), nil)
	assert.ElementsMatch(t, []string{"ecos-cli", "fluence"}, g.Dependents("wazaa"))
	assert.Empty(t, g.Dependents("fluence"))
}

func TestCategoryUnknownRepoIsOther(t *testing.T) {
	g := Build(testFleet(), nil)
	assert.Equal(t, types.RepoCore, g.Category("fluence"))
	assert.Equal(t, types.RepoOther, g.Category("missing"))
}

func TestAddEdge(t *testing.T) {
	g := Build(testFleet(), nil)

	assert.True(t, g.AddEdge("fluence", "data-miner"))
	assert.Contains(t, g.Dependencies("fluence"), "data-miner")

	// Unknown endpoints are dropped, not errors.
	assert.False(t, g.AddEdge("fluence", "elsewhere"))
	assert.False(t, g.AddEdge("elsewhere", "fluence"))

	// Duplicate edges are idempotent.
	assert.True(t, g.AddEdge("fluence", "data-miner"))
	count := 0
	for _, dep := range g.Dependencies("fluence") {
		if dep == "data-miner" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestRebuildReplacesWholesale(t *testing.T) {
	g := Build(testFleet(), nil)
	assert.Equal(t, 4, g.Len())

	g = Build([]config.RepoConfig{{Name: "solo", Category: types.RepoOther}}, nil)
	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.Dependencies("wazaa"))
}
