package models

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// stepConfigSchemas holds one JSON schema per step kind. Lint is advisory:
// the executor tolerates missing or malformed config at run time, so the
// authoring surface reports findings as warnings rather than rejecting saves.
var stepConfigSchemas = map[StepKind]map[string]any{
	StepKindSMS: {
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"message"},
	},
	StepKindEmail: {
		"type": "object",
		"properties": map[string]any{
			"subject": map[string]any{"type": "string"},
			"body":    map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"body"},
	},
	StepKindTask: {
		"type": "object",
		"properties": map[string]any{
			"title":          map[string]any{"type": "string", "minLength": 1},
			"notes":          map[string]any{"type": "string"},
			"due_at":         map[string]any{"type": "string"},
			"offset_minutes": map[string]any{"type": "number"},
			"offset_hours":   map[string]any{"type": "number"},
			"offset_days":    map[string]any{"type": "number"},
		},
		"required": []any{"title"},
	},
	StepKindWait: {
		"type": "object",
		"properties": map[string]any{
			"amount": map[string]any{"type": "number"},
			"unit":   map[string]any{"enum": []any{"hours", "days", "weeks", "months"}},
			"hours":  map[string]any{"type": "number"},
			"days":   map[string]any{"type": "number"},
		},
	},
	StepKindIf: {
		"type": "object",
		"properties": map[string]any{
			"conditions": map[string]any{"type": "object"},
		},
	},
}

// LintSteps validates step configs against the per-kind schemas and flags IF
// nesting deeper than one level, which the builder does not produce. Returns
// human-readable warnings, never an error for config shape alone.
func LintSteps(steps []*Step) []string {
	return lintSteps(steps, 0)
}

func lintSteps(steps []*Step, depth int) []string {
	var warnings []string

	for i, step := range steps {
		label := string(step.Kind)
		if step.ID != "" {
			label = step.ID
		}

		schema, ok := stepConfigSchemas[step.Kind]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("step %d (%s): unknown kind %q", i, label, step.Kind))

			continue
		}

		if msg := validateConfig(schema, step.Config); msg != "" {
			warnings = append(warnings, fmt.Sprintf("step %d (%s): %s", i, label, msg))
		}

		if step.Kind == StepKindIf {
			if depth >= 1 {
				warnings = append(warnings, fmt.Sprintf("step %d (%s): nested if deeper than one level", i, label))
			}

			warnings = append(warnings, lintSteps(step.Then, depth+1)...)
			warnings = append(warnings, lintSteps(step.Else, depth+1)...)
		}
	}

	return warnings
}

func validateConfig(schema map[string]any, config map[string]any) string {
	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(config))
	if err != nil {
		return err.Error()
	}

	if result.Valid() {
		return ""
	}

	descs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		descs = append(descs, desc.String())
	}

	return strings.Join(descs, "; ")
}
