package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(tasks []*Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestReadinessCascade(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddTasks([]*Task{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
		{ID: "c", Dependencies: []string{"b"}},
	}))

	assert.Equal(t, []string{"a"}, ids(g.GetReadyTasks()))

	require.NoError(t, g.UpdateState("a", StateRunning))
	require.NoError(t, g.UpdateState("a", StateReview))
	require.NoError(t, g.UpdateState("a", StateApproved))
	require.NoError(t, g.UpdateState("a", StateMerged))
	assert.Equal(t, []string{"b"}, ids(g.GetReadyTasks()))

	require.NoError(t, g.UpdateState("b", StateRunning))
	require.NoError(t, g.UpdateState("b", StateReview))
	require.NoError(t, g.UpdateState("b", StateApproved))
	require.NoError(t, g.UpdateState("b", StateMerged))
	assert.Equal(t, []string{"c"}, ids(g.GetReadyTasks()))

	require.NoError(t, g.UpdateState("c", StateRunning))
	require.NoError(t, g.UpdateState("c", StateReview))
	require.NoError(t, g.UpdateState("c", StateApproved))
	require.NoError(t, g.UpdateState("c", StateMerged))
	assert.True(t, g.IsComplete())
}

func TestPriorityOrdering(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddTasks([]*Task{
		{ID: "low", Priority: 5},
		{ID: "high", Priority: 1},
	}))
	assert.Equal(t, []string{"high", "low"}, ids(g.GetReadyTasks()))
}

func TestCycleDetection(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddTasks([]*Task{
		{ID: "a", Dependencies: []string{"b"}},
		{ID: "b", Dependencies: []string{"a"}},
	}))

	_, err := g.TopologicalOrder()
	require.Error(t, err)
	var cycleErr *ErrCycleDetected
	require.True(t, errors.As(err, &cycleErr))
	assert.ElementsMatch(t, []string{"a", "b"}, cycleErr.TaskIDs)
}

func TestFailedDependencyNeverUnblocks(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddTasks([]*Task{
		{ID: "a"},
		{ID: "b", Dependencies: []string{"a"}},
	}))
	require.NoError(t, g.UpdateState("a", StateRunning))
	require.NoError(t, g.UpdateState("a", StateFailed))
	assert.Empty(t, g.GetReadyTasks())
	assert.Equal(t, StatePending, g.Get("b").State)
}

func TestIllegalTransitionRejected(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddTask(&Task{ID: "a"}))
	err := g.UpdateState("a", StateMerged)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalTransition))
}

func TestSLMTemplateDependencyChain(t *testing.T) {
	g := New(nil)
	require.NoError(t, g.AddTasks(CreateSLMTrainingTasks("train a tiny model")))
	assert.ElementsMatch(t, []string{"slm-data-prep", "slm-arch-design"}, ids(g.GetReadyTasks()))
}

func TestKernelBuildTemplate(t *testing.T) {
	tasks := CreateKernelBuildTasks("build a kernel", []string{"memory", "scheduler"})
	require.Len(t, tasks, 5)
	g := New(nil)
	require.NoError(t, g.AddTasks(tasks))
	assert.ElementsMatch(t, []string{"design-memory", "design-scheduler"}, ids(g.GetReadyTasks()))
}
