package validate

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	testLineRe = regexp.MustCompile(`^\[TEST\]\s*([^:]+):\s*(PASS|FAIL)(?:\s*-\s*(.*))?$`)
	bootLineRe = regexp.MustCompile(`\[BOOT\]\s*OK`)
)

// ArchProfile describes how to invoke a machine emulator for one
// target architecture.
type ArchProfile struct {
	Arch        string   // e.g. "x86_64", "aarch64"
	Binary      string   // qemu-system-<arch> by default if empty
	Machine     string   // optional -machine value
	CPU         string   // optional -cpu value
	MemoryMB    int      // default 128
	ExtraArgs   []string // profile-specific extras appended verbatim
}

func (p ArchProfile) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "qemu-system-" + p.Arch
}

func (p ArchProfile) memoryMB() int {
	if p.MemoryMB > 0 {
		return p.MemoryMB
	}
	return 128
}

func (p ArchProfile) buildArgs(kernelImage string) []string {
	args := []string{"-kernel", kernelImage}
	if p.Machine != "" {
		args = append(args, "-machine", p.Machine)
	}
	if p.CPU != "" {
		args = append(args, "-cpu", p.CPU)
	}
	args = append(args,
		"-m", fmt.Sprintf("%d", p.memoryMB()),
		"-serial", "stdio",
		"-display", "none",
		"-no-reboot",
	)
	args = append(args, p.ExtraArgs...)
	return args
}

// TestValidator boots a kernel image under an emulator and parses its
// serial output for test markers.
type TestValidator struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewTestValidator creates a TestValidator bounded by timeout.
func NewTestValidator(timeout time.Duration, logger *zap.Logger) *TestValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &TestValidator{timeout: timeout, logger: logger.With(zap.String("component", "test_validator"))}
}

// Run boots kernelImage under profile's emulator and parses its serial
// output.
func (v *TestValidator) Run(ctx context.Context, profile ArchProfile, kernelImage string) *TestResult {
	start := time.Now()
	result := &TestResult{}

	if _, err := os.Stat(kernelImage); err != nil {
		result.RawOutput = fmt.Sprintf("kernel image not found: %s", kernelImage)
		result.Duration = time.Since(start)
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, profile.binary(), profile.buildArgs(kernelImage)...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	result.Duration = time.Since(start)
	result.RawOutput = outBuf.String() + errBuf.String()

	if err != nil && runCtx.Err() == context.DeadlineExceeded {
		result.RawOutput = fmt.Sprintf("emulator timed out after %d seconds", int(v.timeout/time.Second))
		result.Success = false
		return result
	}

	result.Tests = ParseTestOutput(result.RawOutput)
	result.BootSuccess = bootLineRe.MatchString(result.RawOutput)
	result.Success = result.Failed() == 0 && (result.BootSuccess || len(result.Tests) == 0)
	return result
}

// ParseTestOutput extracts `[TEST] name: PASS|FAIL[ - message]` lines
// from emulator serial output.
func ParseTestOutput(raw string) []TestCase {
	var cases []TestCase
	for _, line := range strings.Split(raw, "\n") {
		m := testLineRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		cases = append(cases, TestCase{
			Name:    strings.TrimSpace(m[1]),
			Passed:  m[2] == "PASS",
			Message: strings.TrimSpace(m[3]),
		})
	}
	return cases
}
