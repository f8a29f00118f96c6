package workspace

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipIfNoGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	skipIfNoGit(t)
	root := t.TempDir()
	ws := New(root, nil)
	require.NoError(t, ws.Init(context.Background()))
	return ws
}

func TestInitCreatesMetadataTreeAndSeedCommit(t *testing.T) {
	ws := newTestWorkspace(t)

	for _, dir := range []string{".osforge", filepath.Join(".osforge", "tasks"), filepath.Join(".osforge", "messages")} {
		info, err := os.Stat(filepath.Join(ws.Root, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	stdout, _, err := ws.git(context.Background(), "log", "--oneline")
	require.NoError(t, err)
	assert.NotEmpty(t, stdout)
}

func TestInitIsIdempotent(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.Init(context.Background()))

	entries, err := ws.ListFiles(".", false)
	require.NoError(t, err)
	names := map[string]bool{}
	for _, e := range entries {
		names[e.Path] = true
	}
	assert.True(t, names[".gitignore"])
}

func TestWriteReadFileRoundTrip(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.WriteFile("src/kernel/main.c", []byte("int main() { return 0; }\n")))

	content, err := ws.ReadFile("src/kernel/main.c")
	require.NoError(t, err)
	assert.Equal(t, "int main() { return 0; }\n", string(content))
}

func TestReadFilePathTraversalIsClampedToRoot(t *testing.T) {
	ws := newTestWorkspace(t)
	full, err := ws.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(full, ws.Root))
}

func TestListFilesRecursive(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.WriteFile("a/b/c.txt", []byte("x")))
	require.NoError(t, ws.WriteFile("a/d.txt", []byte("y")))

	entries, err := ws.ListFiles("a", true)
	require.NoError(t, err)
	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Contains(t, paths, filepath.Join("a", "b", "c.txt"))
	assert.Contains(t, paths, filepath.Join("a", "d.txt"))
}

func TestSearchCodeFindsMatch(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.WriteFile("kernel/sched.c", []byte("void schedule(void) {\n  // TODO implement\n}\n")))

	matches, err := ws.SearchCode("TODO", "*.c")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, 2, matches[0].Line)
}

func TestCommitIsNoopWhenNothingStaged(t *testing.T) {
	ws := newTestWorkspace(t)
	err := ws.Commit(context.Background(), "empty commit", nil)
	require.NoError(t, err)
}

func TestCommitAddsAndCommitsFile(t *testing.T) {
	ws := newTestWorkspace(t)
	require.NoError(t, ws.WriteFile("README.md", []byte("# hi\n")))
	require.NoError(t, ws.Commit(context.Background(), "docs: add readme", nil))

	status, err := ws.GetBranchStatus(context.Background(), mainBranchName)
	require.NoError(t, err)
	assert.False(t, status.HasUncommited)
}

func TestCreateBranchAndCheckoutMain(t *testing.T) {
	ws := newTestWorkspace(t)
	branch, err := ws.CreateBranch(context.Background(), "dev-01", "scheduler", "core")
	require.NoError(t, err)
	assert.Equal(t, "agent/dev-01/scheduler/core", branch)

	require.NoError(t, ws.WriteFile("scheduler/core.go", []byte("package core\n")))
	require.NoError(t, ws.Commit(context.Background(), "feat: add core", nil))

	status, err := ws.GetBranchStatus(context.Background(), branch)
	require.NoError(t, err)
	assert.True(t, status.Exists)
	assert.Equal(t, 1, status.Ahead)

	require.NoError(t, ws.CheckoutMain(context.Background()))
}

func TestGetBranchStatusMissingBranch(t *testing.T) {
	ws := newTestWorkspace(t)
	status, err := ws.GetBranchStatus(context.Background(), "agent/nope/x/y")
	require.NoError(t, err)
	assert.False(t, status.Exists)
}
