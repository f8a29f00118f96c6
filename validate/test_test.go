package validate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTestOutputPassAndFail(t *testing.T) {
	raw := "[TEST] sched_priority: PASS\n[TEST] mm_alloc: FAIL - out of memory\n[BOOT] OK\n"
	cases := ParseTestOutput(raw)
	require.Len(t, cases, 2)
	assert.True(t, cases[0].Passed)
	assert.False(t, cases[1].Passed)
	assert.Equal(t, "out of memory", cases[1].Message)
}

func TestParseTestOutputBootOnlyNoTests(t *testing.T) {
	cases := ParseTestOutput("[BOOT] OK\n")
	assert.Empty(t, cases)
	assert.True(t, bootLineRe.MatchString("[BOOT] OK\n"))
}

func TestTestValidatorMissingImage(t *testing.T) {
	v := NewTestValidator(0, nil)
	result := v.Run(context.Background(), ArchProfile{Arch: "x86_64"}, "/nonexistent/kernel.img")
	assert.False(t, result.Success)
	assert.Contains(t, result.RawOutput, "not found")
}

func TestTestResultCountsPassedAndFailed(t *testing.T) {
	r := TestResult{Tests: []TestCase{{Name: "a", Passed: true}}, BootSuccess: false}
	assert.Equal(t, 1, r.Passed())
	assert.Equal(t, 0, r.Failed())
}

func TestArchProfileBuildArgsIncludesExtras(t *testing.T) {
	p := ArchProfile{Arch: "x86_64", Machine: "q35", CPU: "host", ExtraArgs: []string{"-nographic"}}
	args := p.buildArgs("/tmp/kernel.img")
	assert.Contains(t, args, "-kernel")
	assert.Contains(t, args, "q35")
	assert.Contains(t, args, "-nographic")
	assert.Equal(t, "qemu-system-x86_64", p.binary())
}
