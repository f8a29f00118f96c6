package agentrole

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osforge/osforge/graph"
	"github.com/osforge/osforge/llmgateway"
	"github.com/osforge/osforge/scheduler"
	"github.com/osforge/osforge/types"
	"github.com/osforge/osforge/validate"
	"github.com/osforge/osforge/workspace"
)

type scriptedGateway struct {
	replies []*llmgateway.Response
	calls   int
}

func (g *scriptedGateway) SendMessage(ctx context.Context, agentID, system string, history []types.Message, tools []types.ToolSchema, temperature float32, model string) (*llmgateway.Response, error) {
	i := g.calls
	g.calls++
	if i >= len(g.replies) {
		return g.replies[len(g.replies)-1], nil
	}
	return g.replies[i], nil
}

func newTestWorkspace(t *testing.T) *workspace.Workspace {
	t.Helper()
	ws := workspace.New(t.TempDir(), nil)
	return ws
}

func TestNewAgentSatisfiesSchedulerInterface(t *testing.T) {
	agent := New(Config{
		ID:         "dev-01",
		Definition: Definitions()[RoleDeveloper],
		Workspace:  newTestWorkspace(t),
		Build:      validate.NewBuildValidator(0, nil),
		Test:       validate.NewTestValidator(0, nil),
	})
	var _ scheduler.Agent = agent
	assert.Equal(t, "dev-01", agent.ID())
	assert.Equal(t, scheduler.AgentIdle, agent.State())
}

func TestHandlersAreNarrowedToRoleToolNames(t *testing.T) {
	agent := New(Config{
		ID:         "rev-01",
		Definition: Definitions()[RoleReviewer],
		Workspace:  newTestWorkspace(t),
		Build:      validate.NewBuildValidator(0, nil),
		Test:       validate.NewTestValidator(0, nil),
	})
	handlers := agent.handlers()
	_, hasDiff := handlers["git_diff"]
	_, hasBuild := handlers["build_kernel"]
	assert.True(t, hasDiff)
	assert.False(t, hasBuild)
}

func TestExecuteTaskSuccessExtractsSummaryAndArtifacts(t *testing.T) {
	gw := &scriptedGateway{replies: []*llmgateway.Response{
		{ToolCalls: []types.ToolCall{{ID: "c1", Name: "write_file", Arguments: []byte(`{"path":"sched.c","content":"x"}`)}}},
		{Text: "Implemented the scheduler.", FinishReason: "stop"},
	}}
	ws := newTestWorkspace(t)
	agent := New(Config{
		ID:         "dev-01",
		Definition: Definitions()[RoleDeveloper],
		Workspace:  ws,
		Gateway:    gw,
		Build:      validate.NewBuildValidator(0, nil),
		Test:       validate.NewTestValidator(0, nil),
		MaxTurns:   5,
	})

	task := &graph.Task{ID: "t1", Title: "Implement scheduler", Subsystem: "scheduler"}
	result := agent.ExecuteTask(context.Background(), task)

	require.True(t, result.Success)
	assert.Equal(t, "Implemented the scheduler.", result.Summary)
	assert.Equal(t, []string{"sched.c"}, result.Artifacts)
	assert.Equal(t, scheduler.AgentDone, agent.State())
}

func TestExecuteTaskFailurePropagatesGatewayError(t *testing.T) {
	agent := New(Config{
		ID:         "dev-01",
		Definition: Definitions()[RoleDeveloper],
		Workspace:  newTestWorkspace(t),
		Gateway:    erroringGateway{},
		Build:      validate.NewBuildValidator(0, nil),
		Test:       validate.NewTestValidator(0, nil),
	})
	task := &graph.Task{ID: "t1", Title: "x"}
	result := agent.ExecuteTask(context.Background(), task)
	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Error)
	assert.Equal(t, scheduler.AgentError, agent.State())
}

type erroringGateway struct{}

func (erroringGateway) SendMessage(ctx context.Context, agentID, system string, history []types.Message, tools []types.ToolSchema, temperature float32, model string) (*llmgateway.Response, error) {
	return nil, errGatewayUnavailable
}

var errGatewayUnavailable = errors.New("gateway unavailable")

func TestReadWriteFileToolHandlers(t *testing.T) {
	ws := newTestWorkspace(t)
	agent := New(Config{
		ID:         "dev-01",
		Definition: Definitions()[RoleDeveloper],
		Workspace:  ws,
		Build:      validate.NewBuildValidator(0, nil),
		Test:       validate.NewTestValidator(0, nil),
	})

	out, err := agent.toolWriteFile(context.Background(), map[string]any{"path": "a.c", "content": "int x;"})
	require.NoError(t, err)
	assert.Contains(t, out, "Written")

	content, err := agent.toolReadFile(context.Background(), map[string]any{"path": "a.c"})
	require.NoError(t, err)
	assert.Equal(t, "int x;", content)
}

func TestReadSpecMissingSubsystemIsNonFatal(t *testing.T) {
	agent := New(Config{
		ID:         "arch-01",
		Definition: Definitions()[RoleArchitect],
		Workspace:  newTestWorkspace(t),
		Build:      validate.NewBuildValidator(0, nil),
		Test:       validate.NewTestValidator(0, nil),
		SpecRoot:   t.TempDir(),
	})
	out, err := agent.toolReadSpec(context.Background(), map[string]any{"section": "scheduler"})
	require.NoError(t, err)
	assert.Contains(t, out, "not found")
}
