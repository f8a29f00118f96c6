package workspace

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNotInitialized = errors.New("workspace: not initialized")
	ErrPathEscapes    = errors.New("workspace: path escapes workspace root")
	ErrGitFailed      = errors.New("workspace: git command failed")
)

const (
	metaDirName    = ".osforge"
	gitTimeout     = 30 * time.Second
	mainBranchName = "main"
)

// BranchStatus reports the git state of a task branch.
type BranchStatus struct {
	Branch        string   `json:"branch"`
	Exists        bool     `json:"exists"`
	Ahead         int      `json:"ahead"`
	Behind        int      `json:"behind"`
	ChangedFiles  []string `json:"changed_files"`
	HasUncommited bool     `json:"has_uncommitted"`
}

// FileInfo is a single entry returned by ListFiles.
type FileInfo struct {
	Path  string `json:"path"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// SearchMatch is a single line match returned by SearchCode.
type SearchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Workspace is a git-backed repository that agents read and write
// through. Every mutating git operation runs relative to Root and is
// bounded by a context timeout.
type Workspace struct {
	Root   string
	logger *zap.Logger
}

// New binds a Workspace to root without touching the filesystem; call
// Init to create the repository and metadata subtree.
func New(root string, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	return &Workspace{Root: abs, logger: logger.With(zap.String("component", "workspace"))}
}

// Init creates the workspace directory, initializes a git repository
// if one is not already present, creates the tasks/messages metadata
// subtree, and produces the two seed commits a fresh run expects: an
// empty root commit and a .gitignore commit.
func (w *Workspace) Init(ctx context.Context) error {
	if err := os.MkdirAll(w.Root, 0o755); err != nil {
		return fmt.Errorf("workspace: create root: %w", err)
	}
	for _, sub := range []string{metaDirName, filepath.Join(metaDirName, "tasks"), filepath.Join(metaDirName, "messages")} {
		if err := os.MkdirAll(filepath.Join(w.Root, sub), 0o755); err != nil {
			return fmt.Errorf("workspace: create metadata dir %s: %w", sub, err)
		}
	}

	if _, err := os.Stat(filepath.Join(w.Root, ".git")); err == nil {
		return nil
	}

	if _, _, err := w.git(ctx, "init", "-b", mainBranchName); err != nil {
		if _, _, err2 := w.git(ctx, "init"); err2 != nil {
			return err
		}
		if _, _, err := w.git(ctx, "symbolic-ref", "HEAD", "refs/heads/"+mainBranchName); err != nil {
			return err
		}
	}
	if _, _, err := w.git(ctx, "config", "user.email", "agent@osforge.local"); err != nil {
		return err
	}
	if _, _, err := w.git(ctx, "config", "user.name", "osforge"); err != nil {
		return err
	}
	if _, _, err := w.git(ctx, "commit", "--allow-empty", "-m", "chore: initial commit"); err != nil {
		return err
	}

	gitignorePath := filepath.Join(w.Root, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte(metaDirName+"/\n"), 0o644); err != nil {
			return fmt.Errorf("workspace: write .gitignore: %w", err)
		}
	}

	if err := w.Commit(ctx, "chore: initialize workspace", nil); err != nil {
		return err
	}
	w.logger.Info("workspace initialized", zap.String("root", w.Root))
	return nil
}

// resolve joins a workspace-relative path onto Root, rejecting any
// path that would escape it.
func (w *Workspace) resolve(relPath string) (string, error) {
	clean := filepath.Clean("/" + relPath)
	full := filepath.Join(w.Root, clean)
	if !strings.HasPrefix(full, filepath.Clean(w.Root)+string(filepath.Separator)) && full != filepath.Clean(w.Root) {
		return "", ErrPathEscapes
	}
	return full, nil
}

// ReadFile returns the contents of a workspace-relative file.
func (w *Workspace) ReadFile(relPath string) ([]byte, error) {
	full, err := w.resolve(relPath)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(full)
}

// WriteFile writes content to a workspace-relative file, creating
// parent directories as needed.
func (w *Workspace) WriteFile(relPath string, content []byte) error {
	full, err := w.resolve(relPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, content, 0o644)
}

// ListFiles lists entries under a workspace-relative directory,
// skipping the metadata and .git subtrees.
func (w *Workspace) ListFiles(relPath string, recursive bool) ([]FileInfo, error) {
	full, err := w.resolve(relPath)
	if err != nil {
		return nil, err
	}

	var out []FileInfo
	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, rerr := filepath.Rel(w.Root, path)
		if rerr != nil {
			return rerr
		}
		if rel == "." {
			return nil
		}
		if d.IsDir() && (d.Name() == ".git" || d.Name() == metaDirName) {
			return filepath.SkipDir
		}
		if !recursive && d.IsDir() && path != full {
			return filepath.SkipDir
		}
		info, ierr := d.Info()
		var size int64
		if ierr == nil {
			size = info.Size()
		}
		out = append(out, FileInfo{Path: rel, IsDir: d.IsDir(), Size: size})
		return nil
	}

	if !recursive {
		entries, err := os.ReadDir(full)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Name() == ".git" || e.Name() == metaDirName {
				continue
			}
			rel, _ := filepath.Rel(w.Root, filepath.Join(full, e.Name()))
			info, _ := e.Info()
			var size int64
			if info != nil {
				size = info.Size()
			}
			out = append(out, FileInfo{Path: rel, IsDir: e.IsDir(), Size: size})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
		return out, nil
	}

	if err := filepath.WalkDir(full, walkFn); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// SearchCode scans every file under Root whose base name matches glob
// (default "*" when empty) for lines matching pattern, skipping the
// .git and metadata subtrees.
func (w *Workspace) SearchCode(pattern, glob string) ([]SearchMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("workspace: invalid pattern: %w", err)
	}
	if glob == "" {
		glob = "*"
	}

	var matches []SearchMatch
	err = filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == metaDirName {
				return filepath.SkipDir
			}
			return nil
		}
		rel, rerr := filepath.Rel(w.Root, path)
		if rerr != nil {
			return rerr
		}
		ok, merr := filepath.Match(glob, filepath.Base(rel))
		if merr != nil {
			return merr
		}
		if !ok {
			return nil
		}
		content, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		for i, line := range strings.Split(string(content), "\n") {
			if re.MatchString(line) {
				matches = append(matches, SearchMatch{Path: rel, Line: i + 1, Text: line})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Commit stages files (or everything, if files is empty) and commits
// with message. A no-op commit (nothing staged) is not an error.
func (w *Workspace) Commit(ctx context.Context, message string, files []string) error {
	if len(files) == 0 {
		if _, _, err := w.git(ctx, "add", "-A"); err != nil {
			return err
		}
	} else {
		args := append([]string{"add"}, files...)
		if _, _, err := w.git(ctx, args...); err != nil {
			return err
		}
	}

	_, _, err := w.git(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return nil
	}

	if _, _, err := w.git(ctx, "commit", "-m", message); err != nil {
		return err
	}
	w.logger.Info("committed", zap.String("message", message))
	return nil
}

// Diff returns the diff of the working tree against branch (default
// HEAD when empty).
func (w *Workspace) Diff(ctx context.Context, branch string) (string, error) {
	if branch == "" {
		branch = "HEAD"
	}
	stdout, _, err := w.git(ctx, "diff", branch)
	return stdout, err
}

// CreateBranch creates and checks out a task branch named from
// agentID, subsystem, and component.
func (w *Workspace) CreateBranch(ctx context.Context, agentID, subsystem, component string) (string, error) {
	branch := branchName(agentID, subsystem, component)
	if _, _, err := w.git(ctx, "checkout", "-b", branch); err != nil {
		return "", err
	}
	w.logger.Info("created branch", zap.String("branch", branch))
	return branch, nil
}

func branchName(agentID, subsystem, component string) string {
	parts := []string{"agent", sanitizeBranchPart(agentID)}
	if subsystem != "" {
		parts = append(parts, sanitizeBranchPart(subsystem))
	}
	if component != "" {
		parts = append(parts, sanitizeBranchPart(component))
	}
	return strings.Join(parts, "/")
}

func sanitizeBranchPart(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, s)
	if s == "" {
		s = "task"
	}
	return s
}

// CheckoutMain switches the working tree back to the main branch.
func (w *Workspace) CheckoutMain(ctx context.Context) error {
	_, _, err := w.git(ctx, "checkout", mainBranchName)
	return err
}

// GetBranchStatus reports ahead/behind counts and dirty files for
// branch relative to main.
func (w *Workspace) GetBranchStatus(ctx context.Context, branch string) (*BranchStatus, error) {
	status := &BranchStatus{Branch: branch}

	if _, _, err := w.git(ctx, "rev-parse", "--verify", branch); err != nil {
		status.Exists = false
		return status, nil
	}
	status.Exists = true

	stdout, _, err := w.git(ctx, "rev-list", "--left-right", "--count", mainBranchName+"..."+branch)
	if err == nil {
		fields := strings.Fields(stdout)
		if len(fields) == 2 {
			fmt.Sscanf(fields[0], "%d", &status.Behind)
			fmt.Sscanf(fields[1], "%d", &status.Ahead)
		}
	}

	stdout, _, err = w.git(ctx, "status", "--porcelain")
	if err == nil {
		for _, line := range strings.Split(strings.TrimRight(stdout, "\n"), "\n") {
			if line == "" {
				continue
			}
			status.HasUncommited = true
			status.ChangedFiles = append(status.ChangedFiles, strings.TrimSpace(line[3:]))
		}
	}

	return status, nil
}

// git runs a git subcommand against Root with a bounded timeout,
// capturing stdout/stderr the same way the sandbox execution backends
// capture child-process output.
func (w *Workspace) git(ctx context.Context, args ...string) (stdout string, stderr string, err error) {
	runCtx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "git", args...)
	cmd.Dir = w.Root

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	runErr := cmd.Run()
	stdout, stderr = outBuf.String(), errBuf.String()

	if runErr != nil {
		w.logger.Debug("git command failed",
			zap.Strings("args", args),
			zap.String("stderr", stderr),
			zap.Error(runErr),
		)
		return stdout, stderr, fmt.Errorf("%w: git %s: %s", ErrGitFailed, strings.Join(args, " "), strings.TrimSpace(stderr))
	}
	return stdout, stderr, nil
}
