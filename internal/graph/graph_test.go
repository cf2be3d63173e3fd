package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopologicalOrder_LinearChain(t *testing.T) {
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, order)
}

func TestTopologicalOrder_DeterministicTieBreak(t *testing.T) {
	// B and C both depend only on A and have no dependents; the fewer-
	// dependents-then-lexicographic tie-break must always put B before C.
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")

	for i := 0; i < 5; i++ {
		order, err := g.TopologicalOrder()
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "C"}, order)
	}
}

func TestTopologicalOrder_FewerDependentsFirst(t *testing.T) {
	// X has one dependent (Z), Y has zero dependents; both are ready at the
	// same point. Fewer dependents first means Y is ordered before X.
	g := New()
	g.AddNode("X")
	g.AddNode("Y")
	g.AddEdge("X", "Z")

	order, err := g.TopologicalOrder()
	require.NoError(t, err)
	yIdx, xIdx := indexOf(order, "Y"), indexOf(order, "X")
	assert.Less(t, yIdx, xIdx)
}

func TestHasCycle_DetectsCycleWithWitness(t *testing.T) {
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddEdge("C", "A")

	has, err := g.HasCycle()
	require.True(t, has)
	require.Error(t, err)

	var cycErr *CycleError
	require.ErrorAs(t, err, &cycErr)
	assertValidCycleRotation(t, cycErr.Witness, []string{"A", "B", "C"})
}

func TestHasCycle_NoCycle(t *testing.T) {
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")

	has, err := g.HasCycle()
	assert.False(t, has)
	assert.NoError(t, err)
}

func TestTopologicalOrder_CyclicGraphFails(t *testing.T) {
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "A")

	_, err := g.TopologicalOrder()
	require.Error(t, err)
}

func TestParallelLayers_GroupsIndependentNodes(t *testing.T) {
	g := New()
	g.AddNode("A")
	g.AddNode("B")
	g.AddEdge("A", "C")
	g.AddEdge("B", "C")

	layers, err := g.ParallelLayers()
	require.NoError(t, err)
	require.Len(t, layers, 2)
	assert.ElementsMatch(t, []string{"A", "B"}, layers[0])
	assert.Equal(t, []string{"C"}, layers[1])
}

func TestMinimalSubset_BackwardReachability(t *testing.T) {
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("B", "C")
	g.AddNode("D") // unrelated node, must not appear in the subset

	subset := g.MinimalSubset("C")
	assert.Equal(t, []string{"A", "B", "C"}, subset)
}

func TestMinimalSubset_UnknownGoalReturnsEmpty(t *testing.T) {
	g := New()
	g.AddNode("A")

	assert.Empty(t, g.MinimalSubset("nonexistent"))
}

func TestValidate_ReportsMissingReference(t *testing.T) {
	g := New()
	g.AddNode("A")

	missing := g.Validate(map[string][]string{
		"A": {"B"}, // B was never added as a node
	})
	require.Len(t, missing, 1)
	assert.Equal(t, "A", missing[0].Operation)
	assert.Equal(t, "B", missing[0].Missing)
}

func TestDebugRepr_IsDeterministic(t *testing.T) {
	g := New()
	g.AddEdge("A", "B")
	g.AddEdge("A", "C")

	first := g.DebugRepr()
	second := g.DebugRepr()
	assert.Equal(t, first, second)
	assert.Contains(t, first, "layer[0]")
}


// assertValidCycleRotation checks that witness is the closing-looped form of
// some rotation of want (e.g. want=[A,B,C] accepts [A,B,C,A], [B,C,A,B], or
// [C,A,B,C]) — the starting node depends on traversal order, which the
// dependency graph's contract does not fix, only that a genuine cycle is
// reported.
func assertValidCycleRotation(t *testing.T, witness, want []string) {
	t.Helper()
	require.Len(t, witness, len(want)+1)
	require.Equal(t, witness[0], witness[len(witness)-1])
	body := witness[:len(witness)-1]

	n := len(want)
	for offset := 0; offset < n; offset++ {
		match := true
		for i := 0; i < n; i++ {
			if body[i] != want[(i+offset)%n] {
				match = false
				break
			}
		}
		if match {
			return
		}
	}
	t.Fatalf("witness %v is not a rotation of %v", witness, want)
}
