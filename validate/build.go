package validate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	diagLineRe     = regexp.MustCompile(`^([^:\n]+):([^:\n]*):([^:\n]*):\s*(error|warning):\s*(.*)$`)
	diagFallbackRe = regexp.MustCompile(`\b(error|warning)\b:?\s*(.*)$`)
)

// BuildValidator invokes a workspace's makefile-style build entry
// point and parses the compiler diagnostics out of its stderr.
type BuildValidator struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewBuildValidator creates a BuildValidator bounded by timeout.
func NewBuildValidator(timeout time.Duration, logger *zap.Logger) *BuildValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &BuildValidator{timeout: timeout, logger: logger.With(zap.String("component", "build_validator"))}
}

// Run builds target inside path via `make -C path target`.
func (v *BuildValidator) Run(ctx context.Context, path, target string) *BuildResult {
	start := time.Now()
	result := &BuildResult{ExitCode: -1}

	if _, err := os.Stat(filepath.Join(path, "Makefile")); err != nil {
		result.Stderr = fmt.Sprintf("no Makefile found in %s", path)
		result.Duration = time.Since(start)
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "make", "-C", path, target)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}

	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			result.Stderr += fmt.Sprintf("\nbuild timed out after %s", v.timeout)
			result.Success = false
			return result
		}
	}

	result.Diagnostics = ParseDiagnostics(result.Stderr)
	result.Success = result.ExitCode == 0
	return result
}

// ParseDiagnostics extracts compiler diagnostics from build stderr,
// one per line. Non-numeric line/column fields default to 0; a line
// that names a level word but doesn't match the strict shape still
// yields a diagnostic carrying only the message.
func ParseDiagnostics(stderr string) []Diagnostic {
	var diags []Diagnostic
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if m := diagLineRe.FindStringSubmatch(line); m != nil {
			diags = append(diags, Diagnostic{
				File:    strings.TrimSpace(m[1]),
				Line:    atoiOrZero(m[2]),
				Col:     atoiOrZero(m[3]),
				Level:   DiagnosticLevel(m[4]),
				Message: strings.TrimSpace(m[5]),
			})
			continue
		}
		if m := diagFallbackRe.FindStringSubmatch(line); m != nil {
			diags = append(diags, Diagnostic{
				Level:   DiagnosticLevel(m[1]),
				Message: strings.TrimSpace(m[2]),
			})
		}
	}
	return diags
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
