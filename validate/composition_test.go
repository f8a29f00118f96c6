package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffCompositionIssuesFrankensteinFailure(t *testing.T) {
	unit := &TestResult{Tests: []TestCase{
		{Name: "sched_priority", Passed: true},
		{Name: "mm_alloc", Passed: true},
	}}
	integration := &TestResult{Tests: []TestCase{
		{Name: "sched_priority", Passed: false},
		{Name: "mm_alloc", Passed: true},
	}}

	issues := diffCompositionIssues(unit, integration)
	require.NotEmpty(t, issues)

	var critical, warning bool
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			critical = true
			assert.Contains(t, issue.Message, "composition failure")
		}
		if issue.Severity == SeverityWarning {
			warning = true
			assert.Equal(t, "sched_priority", issue.TestName)
		}
	}
	assert.True(t, critical)
	assert.True(t, warning)
}

func TestDiffCompositionIssuesCleanPassIsEmpty(t *testing.T) {
	unit := &TestResult{Tests: []TestCase{{Name: "a", Passed: true}}}
	integration := &TestResult{Tests: []TestCase{{Name: "a", Passed: true}}}
	assert.Empty(t, diffCompositionIssues(unit, integration))
}
