package validate

import (
	"context"

	"go.uber.org/zap"
)

// CompositionValidator runs build, unit tests, and integration tests
// in sequence and flags tests that pass in isolation but fail once
// integrated — the "Frankenstein" failure mode where components built
// independently don't actually fit together.
type CompositionValidator struct {
	build  *BuildValidator
	test   *TestValidator
	logger *zap.Logger
}

// NewCompositionValidator composes a BuildValidator and TestValidator
// into one pipeline.
func NewCompositionValidator(build *BuildValidator, test *TestValidator, logger *zap.Logger) *CompositionValidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompositionValidator{build: build, test: test, logger: logger.With(zap.String("component", "composition_validator"))}
}

// Validate builds buildTarget inside path, boots unitImage
// under profile to collect the unit-test pass, then repeats against
// integrationImage for the integration pass, diffing the two test
// results for compositions that regress under integration.
func (c *CompositionValidator) Validate(ctx context.Context, path, buildTarget string, profile ArchProfile, unitImage, integrationImage string) *CompositionResult {
	result := &CompositionResult{}

	build := c.build.Run(ctx, path, buildTarget)
	result.Build = build
	if !build.Success {
		result.Success = false
		result.Issues = append(result.Issues, Issue{
			Severity: SeverityCritical,
			Message:  "build failed, cannot proceed to test validation",
		})
		return result
	}

	unit := c.test.Run(ctx, profile, unitImage)
	result.UnitTests = unit

	integration := c.test.Run(ctx, profile, integrationImage)
	result.Integration = integration

	result.Issues = append(result.Issues, diffCompositionIssues(unit, integration)...)

	for _, issue := range result.Issues {
		if issue.Severity == SeverityCritical {
			result.Success = false
			return result
		}
	}
	result.Success = true
	return result
}

// diffCompositionIssues compares a unit-test pass against an
// integration pass and reports tests whose outcome regressed.
func diffCompositionIssues(unit, integration *TestResult) []Issue {
	var issues []Issue

	if unit.Failed() == 0 && integration.Failed() > 0 {
		issues = append(issues, Issue{
			Severity: SeverityCritical,
			Message:  "composition failure: tests pass in isolation but fail in combination",
		})
	}

	unitPassed := make(map[string]bool, len(unit.Tests))
	for _, tc := range unit.Tests {
		if tc.Passed {
			unitPassed[tc.Name] = true
		}
	}
	for _, tc := range integration.Tests {
		if unitPassed[tc.Name] && !tc.Passed {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  "test passed in isolation but failed during integration",
				TestName: tc.Name,
			})
		}
	}

	return issues
}
