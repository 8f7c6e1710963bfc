// Package conditions evaluates the restricted condition groups used by "if"
// steps. Field access is a fixed allowlist over the contact and listing
// snapshots; user-authored conditions never reach arbitrary entity fields.
package conditions

import "github.com/dealdesk/dealdesk/pkg/models"

// Join combines the conditions of a group.
type Join string

const (
	JoinAnd Join = "AND"
	JoinOr  Join = "OR"
)

// Operator compares a resolved field against a condition value.
type Operator string

const (
	OperatorEquals    Operator = "equals"
	OperatorNotEquals Operator = "not_equals"
)

// Condition is one field comparison.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
}

// Group is the normalized form every input shape reduces to.
type Group struct {
	Join       Join        `json:"join"`
	Conditions []Condition `json:"conditions"`
}

// Normalize reduces the raw condition payload of an "if" step to a Group.
// A bare {field, operator, value} map becomes a one-element AND group.
// Conditions with an empty field or value are dropped. Anything unparsable
// yields an empty group, which Evaluate treats as false.
func Normalize(raw any) Group {
	group := Group{Join: JoinAnd}

	m, ok := raw.(map[string]any)
	if !ok {
		return group
	}

	if join, ok := m["join"].(string); ok && Join(join) == JoinOr {
		group.Join = JoinOr
	}

	list, ok := m["conditions"].([]any)
	if !ok {
		// Legacy shape: the map itself is a single condition.
		if c, ok := parseCondition(m); ok {
			group.Conditions = append(group.Conditions, c)
		}

		return group
	}

	for _, entry := range list {
		cm, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		if c, ok := parseCondition(cm); ok {
			group.Conditions = append(group.Conditions, c)
		}
	}

	return group
}

func parseCondition(m map[string]any) (Condition, bool) {
	field, _ := m["field"].(string)
	value, _ := m["value"].(string)

	if field == "" || value == "" {
		return Condition{}, false
	}

	operator, _ := m["operator"].(string)

	return Condition{Field: field, Operator: Operator(operator), Value: value}, true
}

// Evaluate applies the group against the loaded snapshots. AND requires all
// conditions true, OR at least one. An empty group evaluates to false: a
// malformed condition payload fails closed, never open.
func Evaluate(group Group, contact *models.Contact, listing *models.Listing) bool {
	if len(group.Conditions) == 0 {
		return false
	}

	for _, c := range group.Conditions {
		matched := evaluateCondition(c, contact, listing)

		if group.Join == JoinOr && matched {
			return true
		}

		if group.Join != JoinOr && !matched {
			return false
		}
	}

	return group.Join != JoinOr
}

func evaluateCondition(c Condition, contact *models.Contact, listing *models.Listing) bool {
	actual, ok := resolveField(c.Field, contact, listing)
	if !ok {
		return false
	}

	switch c.Operator {
	case OperatorNotEquals:
		return actual != c.Value
	default:
		// Unknown operators fall back to equals.
		return actual == c.Value
	}
}

// resolveField maps a condition field reference to a snapshot value. The
// allowlist is deliberate; do not replace with reflection.
func resolveField(field string, contact *models.Contact, listing *models.Listing) (string, bool) {
	switch field {
	case "contact.stage":
		if contact == nil {
			return "", false
		}

		return contact.Stage, true
	case "contact.type":
		if contact == nil {
			return "", false
		}

		return contact.Type, true
	case "contact.source":
		if contact == nil {
			return "", false
		}

		return contact.Source, true
	case "listing.status":
		if listing == nil {
			return "", false
		}

		return listing.Status, true
	default:
		return "", false
	}
}
