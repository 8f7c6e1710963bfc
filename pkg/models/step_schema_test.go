package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLintSteps_CleanDefinition(t *testing.T) {
	steps := []*Step{
		{ID: "s1", Kind: StepKindWait, Config: map[string]any{"amount": 2.0, "unit": "days"}},
		{ID: "s2", Kind: StepKindSMS, Config: map[string]any{"message": "Hi {{firstName}}"}},
		{ID: "s3", Kind: StepKindTask, Config: map[string]any{"title": "Call back"}},
	}

	assert.Empty(t, LintSteps(steps))
}

func TestLintSteps_UnknownKind(t *testing.T) {
	warnings := LintSteps([]*Step{
		{ID: "s1", Kind: StepKind("carrier_pigeon")},
	})

	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "unknown kind")
}

func TestLintSteps_MissingRequiredConfig(t *testing.T) {
	warnings := LintSteps([]*Step{
		{ID: "s1", Kind: StepKindSMS, Config: map[string]any{}},
		{ID: "s2", Kind: StepKindEmail},
	})

	assert.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "message")
	assert.Contains(t, warnings[1], "body")
}

func TestLintSteps_NestedIfBeyondOneLevel(t *testing.T) {
	inner := &Step{ID: "inner", Kind: StepKindIf, Config: map[string]any{}}
	outer := &Step{ID: "outer", Kind: StepKindIf, Config: map[string]any{}, Then: []*Step{inner}}

	warnings := LintSteps([]*Step{outer})

	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "nested if")
}

func TestLintSteps_BranchStepsAreLinted(t *testing.T) {
	outer := &Step{
		ID:   "outer",
		Kind: StepKindIf,
		Then: []*Step{{ID: "bad", Kind: StepKindSMS, Config: map[string]any{}}},
	}

	warnings := LintSteps([]*Step{outer})

	assert.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "bad")
}
