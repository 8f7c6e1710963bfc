package models

// StepKind discriminates the step tagged union.
type StepKind string

const (
	StepKindSMS   StepKind = "sms"
	StepKindEmail StepKind = "email"
	StepKindTask  StepKind = "task"
	StepKindWait  StepKind = "wait"
	StepKindIf    StepKind = "if"
)

// Step is one entry in a definition's ordered step list. Config is an opaque
// per-kind payload validated defensively at execution time. Then and Else are
// populated only for "if" steps.
type Step struct {
	ID     string         `json:"id,omitempty"`
	Kind   StepKind       `json:"kind"`
	Config map[string]any `json:"config,omitempty"`
	Then   []*Step        `json:"then,omitempty"`
	Else   []*Step        `json:"else,omitempty"`
}

// ConfigString returns a string config value, or "" when the key is absent or
// holds a non-string.
func (s *Step) ConfigString(key string) string {
	if s.Config == nil {
		return ""
	}

	v, ok := s.Config[key].(string)
	if !ok {
		return ""
	}

	return v
}

// ConfigNumber returns a numeric config value. JSON decoding yields float64,
// but hand-built configs may carry int values.
func (s *Step) ConfigNumber(key string) (float64, bool) {
	if s.Config == nil {
		return 0, false
	}

	switch v := s.Config[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
