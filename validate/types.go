package validate

import "time"

// DiagnosticLevel is the severity of a compiler diagnostic.
type DiagnosticLevel string

const (
	LevelError   DiagnosticLevel = "error"
	LevelWarning DiagnosticLevel = "warning"
)

// Diagnostic is one parsed compiler message.
type Diagnostic struct {
	File    string          `json:"file"`
	Line    int             `json:"line"`
	Col     int             `json:"col"`
	Level   DiagnosticLevel `json:"level"`
	Message string          `json:"message"`
}

// BuildResult is the outcome of one BuildValidator.Run call.
type BuildResult struct {
	Success     bool          `json:"success"`
	ExitCode    int           `json:"exit_code"`
	Stdout      string        `json:"stdout"`
	Stderr      string        `json:"stderr"`
	Diagnostics []Diagnostic  `json:"diagnostics"`
	Duration    time.Duration `json:"duration"`
}

// TestCase is one parsed `[TEST] name: PASS|FAIL` line.
type TestCase struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message,omitempty"`
}

// TestResult is the outcome of one TestValidator.Run call.
type TestResult struct {
	Success     bool          `json:"success"`
	BootSuccess bool          `json:"boot_success"`
	Tests       []TestCase    `json:"tests"`
	RawOutput   string        `json:"raw_output"`
	Duration    time.Duration `json:"duration"`
}

// Passed returns the number of passing test cases.
func (r TestResult) Passed() int {
	n := 0
	for _, tc := range r.Tests {
		if tc.Passed {
			n++
		}
	}
	return n
}

// Failed returns the number of failing test cases.
func (r TestResult) Failed() int {
	return len(r.Tests) - r.Passed()
}

// IssueSeverity distinguishes a composition failure's severity.
type IssueSeverity string

const (
	SeverityCritical IssueSeverity = "critical"
	SeverityWarning  IssueSeverity = "warning"
)

// Issue is one finding raised by CompositionValidator.
type Issue struct {
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
	TestName string        `json:"test_name,omitempty"`
}

// CompositionResult is the outcome of a full build/unit/integration
// pipeline comparison.
type CompositionResult struct {
	Success     bool          `json:"success"`
	Build       *BuildResult  `json:"build"`
	UnitTests   *TestResult   `json:"unit_tests,omitempty"`
	Integration *TestResult   `json:"integration,omitempty"`
	Issues      []Issue       `json:"issues"`
	// ManualVerificationNote is a free-text slot for a human-reviewable
	// summary. Validate never sets it, so it is empty in every result
	// this package returns.
	ManualVerificationNote string `json:"manual_verification_note,omitempty"`
}
